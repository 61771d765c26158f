// Package pipeline runs every model-backed operation: it builds the request,
// calls the provider, records the raw answer and validates it, retrying when
// the answer breaks the expected contract.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/fintrack-ai/internal/contract"
	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/gcsuploader"
	"github.com/dvloznov/fintrack-ai/internal/llm"
	"github.com/dvloznov/fintrack-ai/internal/logger"
	"github.com/dvloznov/fintrack-ai/internal/prompts"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// ErrInvalidInput marks requests that can never succeed as given.
var ErrInvalidInput = errors.New("invalid input")

// Options tunes the service.
type Options struct {
	// MaxAttempts bounds model calls per operation when answers fail validation.
	MaxAttempts int
	// BudgetMode forces a budgeting mode; empty picks zero-based when an income is given.
	BudgetMode domain.BudgetMode
	// Tolerance is the allowed zero-based gap; zero uses contract.DefaultTolerance.
	Tolerance float64
	// HistoryMonths is the trend window for budget generation.
	HistoryMonths int
}

// Service is the entry point for extraction, commands, budgets and ingestion.
type Service struct {
	provider llm.Provider
	repo     store.Repository
	storage  gcsuploader.Storage
	opts     Options
	now      func() time.Time
}

// NewService wires a provider and a repository. storage may be nil when GCS
// ingestion is not used.
func NewService(provider llm.Provider, repo store.Repository, storage gcsuploader.Storage, opts Options) *Service {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.HistoryMonths < 1 {
		opts.HistoryMonths = 6
	}
	return &Service{provider: provider, repo: repo, storage: storage, opts: opts, now: time.Now}
}

// ProviderName reports which backend answers model calls.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// complete sends one task to the provider and validates the answer with parse.
// Answers failing validation are recorded and retried up to MaxAttempts;
// provider and storage errors end the call at once.
func complete[T any](ctx context.Context, s *Service, task prompts.Task, input string, parse func(string) (T, error)) (T, error) {
	var zero T
	log := logger.Component(logger.FromContext(ctx), "pipeline").With().Str("task", string(task)).Logger()

	system, err := prompts.ForTask(task)
	if err != nil {
		return zero, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		resp, err := s.provider.Complete(ctx, llm.Request{Task: task, System: system, User: input})
		if err != nil {
			return zero, fmt.Errorf("%s: provider %s: %w", task, s.provider.Name(), err)
		}

		out, parseErr := parse(resp.Text)

		record := &store.ModelOutput{
			Task:         string(task),
			Provider:     s.provider.Name(),
			Model:        resp.Model,
			Attempt:      attempt,
			Input:        input,
			RawText:      resp.Text,
			Valid:        parseErr == nil,
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
			CreatedAt:    s.now().UTC(),
		}
		if parseErr != nil {
			record.Error = parseErr.Error()
		}
		if err := s.repo.InsertModelOutput(ctx, record); err != nil {
			return zero, fmt.Errorf("%s: storing model output: %w", task, err)
		}

		if parseErr == nil {
			log.Debug().Int("attempt", attempt).Str("model", resp.Model).Msg("Model answer accepted")
			return out, nil
		}
		if !contract.IsValidation(parseErr) {
			return zero, fmt.Errorf("%s: %w", task, parseErr)
		}

		log.Warn().Err(parseErr).Int("attempt", attempt).Int("max_attempts", s.opts.MaxAttempts).
			Msg("Model answer failed validation")
		lastErr = parseErr
	}
	return zero, fmt.Errorf("%s: no valid answer after %d attempts: %w", task, s.opts.MaxAttempts, lastErr)
}

// ExtractTransactions turns raw statement text into validated transactions.
func (s *Service) ExtractTransactions(ctx context.Context, text string) ([]domain.Transaction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("ExtractTransactions: empty statement: %w", ErrInvalidInput)
	}
	return complete(ctx, s, prompts.TaskExtract, text, contract.ParseTransactions)
}

// InterpretCommand turns a natural-language instruction into an Action.
func (s *Service) InterpretCommand(ctx context.Context, command string) (domain.Action, error) {
	if strings.TrimSpace(command) == "" {
		return domain.Action{}, fmt.Errorf("InterpretCommand: empty command: %w", ErrInvalidInput)
	}
	return complete(ctx, s, prompts.TaskInterpret, command, contract.ParseAction)
}

// CommandResult reports what ApplyCommand did.
type CommandResult struct {
	Action  domain.Action `json:"action"`
	Updated int           `json:"updated"`
	Message string        `json:"message"`
}

// ApplyCommand interprets command and executes the resulting action against
// stored transactions. Unknown actions change nothing.
func (s *Service) ApplyCommand(ctx context.Context, command string) (*CommandResult, error) {
	action, err := s.InterpretCommand(ctx, command)
	if err != nil {
		return nil, err
	}

	res := &CommandResult{Action: action}
	switch action.Action {
	case domain.ActionUpdateCategory:
		n, err := s.repo.UpdateCategoryByVendor(ctx, action.Vendor, action.NewCategory)
		if err != nil {
			return nil, fmt.Errorf("ApplyCommand: %w", err)
		}
		res.Updated = n
		res.Message = fmt.Sprintf("Updated %d transaction(s) matching %q to category %q.", n, action.Vendor, action.NewCategory)
		log := logger.FromContext(ctx)
		log.Info().Str("vendor", action.Vendor).Str("category", action.NewCategory).
			Int("updated", n).Msg("Applied category update")
	default:
		res.Message = "Command not understood; nothing was changed."
	}
	return res, nil
}
