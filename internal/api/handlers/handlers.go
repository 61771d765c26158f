// Package handlers implements the HTTP API on top of the pipeline service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/fintrack-ai/internal/api/middleware"
	"github.com/dvloznov/fintrack-ai/internal/contract"
	"github.com/dvloznov/fintrack-ai/internal/jobs"
	"github.com/dvloznov/fintrack-ai/internal/logger"
	"github.com/dvloznov/fintrack-ai/internal/pipeline"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// writeServiceError maps domain errors onto HTTP status codes and logs
// everything that is not the caller's fault.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, jobs.ErrJobNotFound):
		middleware.WriteError(w, http.StatusNotFound, msg+": not found")
	case contract.IsValidation(err):
		log.Warn().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusBadGateway, msg+": model returned an invalid answer")
	default:
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ConfigInfo is what GET /config reports about the running server.
type ConfigInfo struct {
	LLMType       string `json:"llm_type"`
	Storage       string `json:"storage"`
	BudgetMode    string `json:"budget_mode,omitempty"`
	UploadsToGCS  bool   `json:"uploads_to_gcs"`
	NotionEnabled bool   `json:"notion_enabled"`
}

// ConfigHandler serves GET /config.
type ConfigHandler struct {
	info ConfigInfo
}

func NewConfigHandler(info ConfigInfo) *ConfigHandler {
	return &ConfigHandler{info: info}
}

func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.info)
}

// CommandHandler serves POST /command.
type CommandHandler struct {
	svc *pipeline.Service
	log zerolog.Logger
}

func NewCommandHandler(svc *pipeline.Service, log zerolog.Logger) *CommandHandler {
	return &CommandHandler{svc: svc, log: log}
}

// RunCommand handles POST /command
func (h *CommandHandler) RunCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.svc.ApplyCommand(r.Context(), req.Command)
	if err != nil {
		writeServiceError(w, r, err, "Failed to apply command")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
