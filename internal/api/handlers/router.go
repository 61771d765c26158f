package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/fintrack-ai/internal/api/middleware"
	"github.com/dvloznov/fintrack-ai/internal/gcsuploader"
	"github.com/dvloznov/fintrack-ai/internal/jobs"
	"github.com/dvloznov/fintrack-ai/internal/pipeline"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Service   *pipeline.Service
	Repo      store.Repository
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	// Storage and Bucket are optional; without them uploads travel inline.
	Storage gcsuploader.Storage
	Bucket  string
	Info    ConfigInfo
	Log     zerolog.Logger
}

// NewRouter builds the chi router with every endpoint and the middleware chain.
func NewRouter(d Deps) http.Handler {
	configHandler := NewConfigHandler(d.Info)
	ingestHandler := NewIngestHandler(d.Service, d.Publisher, d.Storage, d.Bucket, d.Log)
	jobsHandler := NewJobsHandler(d.Jobs, d.Log)
	transactionsHandler := NewTransactionsHandler(d.Repo, d.Log)
	commandHandler := NewCommandHandler(d.Service, d.Log)
	budgetHandler := NewBudgetHandler(d.Service, d.Repo, d.Log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Get("/config", configHandler.GetConfig)

	r.Post("/upload", ingestHandler.Upload)
	r.Post("/ingest", ingestHandler.Ingest)

	r.Get("/jobs", jobsHandler.ListJobs)
	r.Get("/jobs/{id}", jobsHandler.GetJob)

	r.Get("/transactions", transactionsHandler.ListTransactions)
	r.Delete("/transactions", transactionsHandler.DeleteTransactions)
	r.Get("/transactions/transfers", transactionsHandler.ListTransfers)
	r.Patch("/transactions/{id}", transactionsHandler.UpdateTransaction)

	r.Post("/command", commandHandler.RunCommand)

	r.Get("/budget", budgetHandler.ListBudgets)
	r.Post("/budget", budgetHandler.SaveBudget)
	r.Post("/budget/generate", budgetHandler.GenerateBudget)
	r.Get("/budget/status", budgetHandler.BudgetStatus)

	return r
}
