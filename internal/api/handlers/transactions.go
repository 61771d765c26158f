package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/fintrack-ai/internal/api/middleware"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	repo store.Repository
	log  zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo store.Repository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{repo: repo, log: log}
}

func parseDateParam(r *http.Request, name string) (time.Time, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ListTransactions handles GET /transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	start, ok := parseDateParam(r, "start_date")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
		return
	}
	end, ok := parseDateParam(r, "end_date")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
		return
	}

	query := r.URL.Query()
	h.list(w, r, store.Filter{
		Start:    start,
		End:      end,
		Vendor:   query.Get("vendor"),
		Category: query.Get("category"),
	})
}

// ListTransfers handles GET /transactions/transfers
func (h *TransactionsHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.Filter{TransfersOnly: true})
}

func (h *TransactionsHandler) list(w http.ResponseWriter, r *http.Request, f store.Filter) {
	recs, err := h.repo.ListTransactions(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if recs == nil {
		recs = []store.TransactionRecord{}
	}
	middleware.WriteJSON(w, http.StatusOK, recs)
}

// UpdateTransaction handles PATCH /transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch store.TransactionPatch
	if err := decodeJSON(r, &patch); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if patch.IsEmpty() {
		middleware.WriteError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	rec, err := h.repo.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rec)
}

// DeleteTransactions handles DELETE /transactions
func (h *TransactionsHandler) DeleteTransactions(w http.ResponseWriter, r *http.Request) {
	n, err := h.repo.DeleteAllTransactions(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to delete transactions")
		return
	}
	h.log.Info().Int("deleted", n).Msg("Deleted all transactions")
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
}
