package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fintrack-ai/internal/config"
	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/store/memory"
)

func TestOpenRepository_Memory(t *testing.T) {
	repo, err := OpenRepository(context.Background(), config.StorageConfig{Backend: config.StorageMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, repo)

	_, err = OpenRepository(context.Background(), config.StorageConfig{Backend: "sqlite"})
	assert.Error(t, err)
}

func TestOpenStorage_NoBucket(t *testing.T) {
	s, err := OpenStorage(context.Background(), config.GCSConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestServiceOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Budget.Mode = "zero_based"
	cfg.Budget.Tolerance = 2.5

	opts := ServiceOptions(cfg)
	assert.Equal(t, 3, opts.MaxAttempts)
	assert.Equal(t, domain.BudgetModeZeroBased, opts.BudgetMode)
	assert.Equal(t, 2.5, opts.Tolerance)
	assert.Equal(t, 6, opts.HistoryMonths)
}

func TestNewService_Heuristic(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderHeuristic

	svc, err := NewService(context.Background(), cfg, memory.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderHeuristic, svc.ProviderName())
}
