package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/fintrack-ai/internal/api/middleware"
	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/pipeline"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// BudgetHandler serves saved budgets and budget generation.
type BudgetHandler struct {
	svc  *pipeline.Service
	repo store.Repository
	log  zerolog.Logger
}

func NewBudgetHandler(svc *pipeline.Service, repo store.Repository, log zerolog.Logger) *BudgetHandler {
	return &BudgetHandler{svc: svc, repo: repo, log: log}
}

// ListBudgets handles GET /budget
func (h *BudgetHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.repo.ListBudgets(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to list budgets")
		return
	}
	if budgets == nil {
		budgets = []domain.Budget{}
	}
	middleware.WriteJSON(w, http.StatusOK, budgets)
}

// SaveBudget handles POST /budget
func (h *BudgetHandler) SaveBudget(w http.ResponseWriter, r *http.Request) {
	var b domain.Budget
	if err := decodeJSON(r, &b); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.Category = strings.TrimSpace(b.Category)
	if b.Category == "" {
		middleware.WriteError(w, http.StatusBadRequest, "category is required")
		return
	}
	if b.MonthlyLimit < 0 {
		middleware.WriteError(w, http.StatusBadRequest, "monthly_limit must not be negative")
		return
	}

	if err := h.repo.UpsertBudget(r.Context(), b); err != nil {
		writeServiceError(w, r, err, "Failed to save budget")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, b)
}

// GenerateBudget handles POST /budget/generate. The body is optional.
// ?format=items answers with the bare item array instead of the full plan.
func (h *BudgetHandler) GenerateBudget(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "plan" && format != "items" {
		middleware.WriteError(w, http.StatusBadRequest, "format must be plan or items")
		return
	}

	var req struct {
		Income float64 `json:"income"`
		Mode   string  `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	plan, err := h.svc.GenerateBudget(r.Context(), pipeline.BudgetRequest{
		Income: req.Income,
		Mode:   domain.BudgetMode(req.Mode),
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to generate budget")
		return
	}

	if format == "items" {
		middleware.WriteJSON(w, http.StatusOK, plan.Items)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, plan)
}

// BudgetStatus handles GET /budget/status
func (h *BudgetHandler) BudgetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.BudgetStatus(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to load budget status")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, status)
}
