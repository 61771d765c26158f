package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/fintrack-ai/internal/api/handlers"
	"github.com/dvloznov/fintrack-ai/internal/bootstrap"
	"github.com/dvloznov/fintrack-ai/internal/config"
	"github.com/dvloznov/fintrack-ai/internal/gcsuploader"
	"github.com/dvloznov/fintrack-ai/internal/jobs/inmemory"
	"github.com/dvloznov/fintrack-ai/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	ctx := logger.WithContext(context.Background(), log)

	repo, err := bootstrap.OpenRepository(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open repository")
	}
	defer repo.Close()

	var storage gcsuploader.Storage
	gcs, err := bootstrap.OpenStorage(ctx, cfg.GCS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	if gcs != nil {
		defer gcs.Close()
		storage = gcs
	} else {
		log.Warn().Msg("No GCS bucket configured - uploads are queued inline")
	}

	svc, err := bootstrap.NewService(ctx, cfg, repo, storage)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.LLM.Provider).Msg("Failed to create LLM provider")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Jobs.QueueSize, cfg.Jobs.Workers, jobStore)
	jobQueue.SetMaxRetries(cfg.Jobs.MaxRetries)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, svc.HandleJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	router := handlers.NewRouter(handlers.Deps{
		Service:   svc,
		Repo:      repo,
		Publisher: jobQueue,
		Jobs:      jobStore,
		Storage:   storage,
		Bucket:    cfg.GCS.Bucket,
		Info: handlers.ConfigInfo{
			LLMType:       svc.ProviderName(),
			Storage:       cfg.Storage.Backend,
			BudgetMode:    cfg.Budget.Mode,
			UploadsToGCS:  storage != nil,
			NotionEnabled: cfg.Notion.Token != "" && cfg.Notion.DatabaseID != "",
		},
		Log: log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("provider", svc.ProviderName()).
			Str("storage", cfg.Storage.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
