package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

const budgetsTable = "budgets"

type BudgetRow struct {
	Category     string                 `bigquery:"category"`      // REQUIRED
	MonthlyLimit float64                `bigquery:"monthly_limit"` // REQUIRED
	UpdatedTS    bigquery.NullTimestamp `bigquery:"updated_ts"`    // NULLABLE
}

// UpsertBudgetWithClient replaces the limit of a category, matched case-insensitively.
func UpsertBudgetWithClient(ctx context.Context, client *bigquery.Client, table string, b domain.Budget) error {
	q := client.Query(`
		MERGE ` + table + ` t
		USING (SELECT @category AS category, @monthly_limit AS monthly_limit) s
		ON LOWER(t.category) = LOWER(s.category)
		WHEN MATCHED THEN
		  UPDATE SET category = s.category, monthly_limit = s.monthly_limit, updated_ts = @now
		WHEN NOT MATCHED THEN
		  INSERT (category, monthly_limit, updated_ts) VALUES (s.category, s.monthly_limit, @now)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "category", Value: b.Category},
		{Name: "monthly_limit", Value: b.MonthlyLimit},
		{Name: "now", Value: time.Now().UTC()},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpsertBudget: %w", err)
	}
	return nil
}

// ListBudgetsWithClient returns saved budgets sorted by category.
func ListBudgetsWithClient(ctx context.Context, client *bigquery.Client, table string) ([]domain.Budget, error) {
	q := client.Query(`
		SELECT category, monthly_limit, updated_ts
		FROM ` + table + `
		ORDER BY category
	`)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: query read: %w", err)
	}

	budgets := []domain.Budget{}
	for {
		var r BudgetRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: iter next: %w", err)
		}
		budgets = append(budgets, domain.Budget{Category: r.Category, MonthlyLimit: r.MonthlyLimit})
	}
	return budgets, nil
}
