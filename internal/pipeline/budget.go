package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/fintrack-ai/internal/budget"
	"github.com/dvloznov/fintrack-ai/internal/contract"
	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/prompts"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// BudgetRequest parameterises GenerateBudget.
type BudgetRequest struct {
	// Income is the estimated monthly income. It is required in zero-based mode.
	Income float64
	// Mode overrides the service default when set.
	Mode domain.BudgetMode
}

// BudgetPlan is a validated budget suggestion and the trends it came from.
type BudgetPlan struct {
	Mode   domain.BudgetMode      `json:"mode"`
	Income float64                `json:"income,omitempty"`
	Trends []domain.SpendingTrend `json:"trends"`
	Items  []domain.BudgetItem    `json:"items"`
}

// resolveMode picks the budgeting mode: explicit request, then service
// default, then zero-based when an income is known.
func (s *Service) resolveMode(req BudgetRequest) domain.BudgetMode {
	switch {
	case req.Mode != "":
		return req.Mode
	case s.opts.BudgetMode != "":
		return s.opts.BudgetMode
	case req.Income > 0:
		return domain.BudgetModeZeroBased
	default:
		return domain.BudgetModeTrends
	}
}

// GenerateBudget derives spending trends from stored transactions and asks the
// model for a budget in the resolved mode.
func (s *Service) GenerateBudget(ctx context.Context, req BudgetRequest) (*BudgetPlan, error) {
	mode := s.resolveMode(req)
	if mode != domain.BudgetModeTrends && mode != domain.BudgetModeZeroBased {
		return nil, fmt.Errorf("GenerateBudget: unknown mode %q: %w", mode, ErrInvalidInput)
	}
	if mode == domain.BudgetModeZeroBased && req.Income <= 0 {
		return nil, fmt.Errorf("GenerateBudget: zero-based budgeting needs a positive income: %w", ErrInvalidInput)
	}

	txs, err := s.repo.ListTransactions(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("GenerateBudget: loading transactions: %w", err)
	}
	plain := make([]domain.Transaction, 0, len(txs))
	for _, r := range txs {
		plain = append(plain, r.Resolved())
	}
	trends := budget.ComputeTrends(plain, s.now(), s.opts.HistoryMonths)

	plan := &BudgetPlan{Mode: mode, Trends: trends, Items: []domain.BudgetItem{}}
	opts := contract.BudgetOptions{
		Mode:                 mode,
		Income:               req.Income,
		Tolerance:            s.opts.Tolerance,
		HistoricalCategories: budget.Categories(trends),
	}

	var (
		task    prompts.Task
		payload string
	)
	switch mode {
	case domain.BudgetModeTrends:
		if len(trends) == 0 {
			return plan, nil
		}
		task = prompts.TaskBudgetTrends
		payload, err = prompts.TrendsPayload(trends)
	default:
		plan.Income = req.Income
		task = prompts.TaskBudgetZeroBased
		payload, err = prompts.ZeroBasedPayload(trends, req.Income)
	}
	if err != nil {
		return nil, fmt.Errorf("GenerateBudget: building payload: %w", err)
	}

	items, err := complete(ctx, s, task, payload, func(raw string) ([]domain.BudgetItem, error) {
		return contract.ParseBudget(raw, opts)
	})
	if err != nil {
		return nil, err
	}
	plan.Items = items
	return plan, nil
}

// BudgetStatus compares this month's spend with the saved budgets.
func (s *Service) BudgetStatus(ctx context.Context) ([]domain.BudgetStatus, error) {
	budgets, err := s.repo.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("BudgetStatus: loading budgets: %w", err)
	}
	txs, err := s.repo.ListTransactions(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("BudgetStatus: loading transactions: %w", err)
	}
	plain := make([]domain.Transaction, 0, len(txs))
	for _, r := range txs {
		plain = append(plain, r.Resolved())
	}
	return budget.Status(budgets, budget.CurrentMonthSpend(plain, s.now())), nil
}
