// Package bootstrap turns a config.Config into the collaborators the
// binaries share: repository, object storage and pipeline service.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dvloznov/fintrack-ai/internal/config"
	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/gcsuploader"
	infraBQ "github.com/dvloznov/fintrack-ai/internal/infra/bigquery"
	"github.com/dvloznov/fintrack-ai/internal/infra/postgres"
	"github.com/dvloznov/fintrack-ai/internal/llm"
	"github.com/dvloznov/fintrack-ai/internal/pipeline"
	"github.com/dvloznov/fintrack-ai/internal/store"
	"github.com/dvloznov/fintrack-ai/internal/store/memory"
)

// OpenRepository connects the configured storage backend.
func OpenRepository(ctx context.Context, cfg config.StorageConfig) (store.Repository, error) {
	switch cfg.Backend {
	case config.StorageMemory, "":
		return memory.New(), nil
	case config.StoragePostgres:
		repo, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return repo, nil
	case config.StorageBigQuery:
		repo, err := infraBQ.NewRepository(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenRepository: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("OpenRepository: unknown backend %q", cfg.Backend)
	}
}

// OpenStorage returns a GCS client when a bucket is configured, otherwise nil.
func OpenStorage(ctx context.Context, cfg config.GCSConfig) (*gcsuploader.GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	s, err := gcsuploader.NewGCSStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("OpenStorage: %w", err)
	}
	return s, nil
}

// ServiceOptions maps configuration onto pipeline options.
func ServiceOptions(cfg config.Config) pipeline.Options {
	return pipeline.Options{
		MaxAttempts:   cfg.LLM.MaxAttempts,
		BudgetMode:    domain.BudgetMode(cfg.Budget.Mode),
		Tolerance:     cfg.Budget.Tolerance,
		HistoryMonths: cfg.Budget.HistoryMonths,
	}
}

// NewService builds the configured provider and the pipeline service on top
// of repo. storage may be nil.
func NewService(ctx context.Context, cfg config.Config, repo store.Repository, storage gcsuploader.Storage) (*pipeline.Service, error) {
	provider, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("NewService: %w", err)
	}
	return pipeline.NewService(provider, repo, storage, ServiceOptions(cfg)), nil
}
