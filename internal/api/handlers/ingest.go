package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/fintrack-ai/internal/api/middleware"
	"github.com/dvloznov/fintrack-ai/internal/gcsuploader"
	"github.com/dvloznov/fintrack-ai/internal/jobs"
	"github.com/dvloznov/fintrack-ai/internal/pipeline"
)

// IngestHandler accepts statements and queues them for extraction.
type IngestHandler struct {
	svc       *pipeline.Service
	publisher jobs.Publisher
	storage   gcsuploader.Storage
	bucket    string
	log       zerolog.Logger
	now       func() time.Time
}

// NewIngestHandler creates an ingest handler. Uploads are copied to bucket
// when storage is set; otherwise their text travels inside the job.
func NewIngestHandler(svc *pipeline.Service, publisher jobs.Publisher, storage gcsuploader.Storage, bucket string, log zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		svc:       svc,
		publisher: publisher,
		storage:   storage,
		bucket:    bucket,
		log:       log,
		now:       time.Now,
	}
}

func (h *IngestHandler) gcsEnabled() bool {
	return h.storage != nil && h.bucket != ""
}

// readUpload returns the statement from a multipart "file" field or, for any
// other content type, from the raw body.
func readUpload(r *http.Request) (name string, data []byte, err error) {
	var src io.Reader = r.Body
	name = "statement.txt"

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("file field is required: %w", pipeline.ErrInvalidInput)
		}
		defer file.Close()
		src = file
		name = header.Filename
	}

	data, err = io.ReadAll(io.LimitReader(src, gcsuploader.MaxObjectSize+1))
	if err != nil {
		return "", nil, err
	}
	if len(data) > gcsuploader.MaxObjectSize {
		return "", nil, gcsuploader.ErrTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil, fmt.Errorf("statement is empty: %w", pipeline.ErrInvalidInput)
	}
	return name, data, nil
}

// Upload handles POST /upload. With ?sync=true the statement is extracted
// and stored before responding.
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, data, err := readUpload(r)
	if errors.Is(err, gcsuploader.ErrTooLarge) {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Statement is too large")
		return
	}
	if err != nil {
		writeServiceError(w, r, err, "Failed to read upload")
		return
	}

	if r.URL.Query().Get("sync") == "true" {
		if !utf8.Valid(data) {
			middleware.WriteError(w, http.StatusBadRequest, "Statement must be UTF-8 text")
			return
		}
		res, err := h.svc.IngestText(ctx, uuid.NewString(), string(data))
		if err != nil {
			writeServiceError(w, r, err, "Failed to ingest statement")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, res)
		return
	}

	job := &jobs.IngestJob{FileName: name}
	if h.gcsEnabled() {
		object := gcsuploader.ObjectName(name, h.now())
		if err := h.storage.Upload(ctx, h.bucket, object, "text/plain", bytes.NewReader(data)); err != nil {
			writeServiceError(w, r, err, "Failed to upload statement")
			return
		}
		job.Source = jobs.SourceGCS
		job.GCSURI = gcsuploader.BuildURI(h.bucket, object)
	} else {
		if !utf8.Valid(data) {
			middleware.WriteError(w, http.StatusBadRequest, "Statement must be UTF-8 text")
			return
		}
		job.Source = jobs.SourceText
		job.Text = string(data)
	}

	h.enqueue(w, r, job)
}

// Ingest handles POST /ingest with either inline text or a gs:// URI.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text   string `json:"text"`
		GCSURI string `json:"gcs_uri"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var job *jobs.IngestJob
	switch {
	case req.GCSURI != "" && req.Text != "":
		middleware.WriteError(w, http.StatusBadRequest, "Provide either text or gcs_uri, not both")
		return
	case req.GCSURI != "":
		if _, _, err := gcsuploader.ParseURI(req.GCSURI); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		job = &jobs.IngestJob{Source: jobs.SourceGCS, GCSURI: req.GCSURI, FileName: gcsuploader.FileName(req.GCSURI)}
	case strings.TrimSpace(req.Text) != "":
		job = &jobs.IngestJob{Source: jobs.SourceText, Text: req.Text}
	default:
		middleware.WriteError(w, http.StatusBadRequest, "text or gcs_uri is required")
		return
	}

	h.enqueue(w, r, job)
}

func (h *IngestHandler) enqueue(w http.ResponseWriter, r *http.Request, job *jobs.IngestJob) {
	if err := h.publisher.PublishIngest(r.Context(), job); err != nil {
		writeServiceError(w, r, err, "Failed to enqueue ingest job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source", string(job.Source)).Str("gcs_uri", job.GCSURI).
		Msg("Ingest job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"status":  string(job.Status),
		"gcs_uri": job.GCSURI,
	})
}
