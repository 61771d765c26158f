package budget

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

// Thresholds for BudgetStatus levels, as a percentage of the limit.
const (
	WarningPercent = 75
	OverPercent    = 100
)

// CurrentMonthSpend totals outflows per category for the calendar month of now.
// Transfers and undated transactions are skipped. Keys keep the casing of the
// first transaction seen for a category.
func CurrentMonthSpend(txs []domain.Transaction, now time.Time) map[string]float64 {
	sums := make(map[string]decimal.Decimal)
	names := make(map[string]string)
	for _, tx := range txs {
		if tx.IsTransfer || tx.Amount >= 0 {
			continue
		}
		d, ok := domain.ParseDate(tx.Date, now)
		if !ok || d.Year() != now.Year() || d.Month() != now.Month() {
			continue
		}
		cat := strings.TrimSpace(tx.Category)
		if cat == "" {
			cat = Uncategorized
		}
		key := strings.ToLower(cat)
		if _, seen := names[key]; !seen {
			names[key] = cat
		}
		sums[key] = sums[key].Add(decimal.NewFromFloat(tx.Amount).Abs())
	}

	out := make(map[string]float64, len(sums))
	for key, total := range sums {
		out[names[key]] = total.Round(2).InexactFloat64()
	}
	return out
}

// Status grades spend against the saved budgets. Budgeted categories come first
// in the order given, followed by unbudgeted categories with spend, sorted by
// amount spent.
func Status(budgets []domain.Budget, spend map[string]float64) []domain.BudgetStatus {
	byKey := make(map[string]float64, len(spend))
	for cat, amt := range spend {
		byKey[strings.ToLower(cat)] += amt
	}

	out := make([]domain.BudgetStatus, 0, len(budgets)+len(spend))
	budgeted := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		key := strings.ToLower(b.Category)
		budgeted[key] = true
		out = append(out, grade(b.Category, b.MonthlyLimit, byKey[key]))
	}

	var extra []domain.BudgetStatus
	for cat, amt := range spend {
		if budgeted[strings.ToLower(cat)] {
			continue
		}
		extra = append(extra, grade(cat, 0, amt))
	}
	sort.Slice(extra, func(i, j int) bool {
		if extra[i].Spent != extra[j].Spent {
			return extra[i].Spent > extra[j].Spent
		}
		return extra[i].Category < extra[j].Category
	})
	return append(out, extra...)
}

func grade(category string, limit, spent float64) domain.BudgetStatus {
	l := decimal.NewFromFloat(limit)
	s := decimal.NewFromFloat(spent)
	st := domain.BudgetStatus{
		Category:     category,
		MonthlyLimit: limit,
		Spent:        spent,
		Remaining:    l.Sub(s).Round(2).InexactFloat64(),
		Level:        domain.BudgetLevelNone,
	}
	if !l.IsPositive() {
		st.Remaining = 0
		return st
	}
	pct := s.Div(l).Mul(decimal.NewFromInt(100)).Round(1)
	st.Percent = pct.InexactFloat64()
	switch {
	case pct.GreaterThan(decimal.NewFromInt(OverPercent)):
		st.Level = domain.BudgetLevelOver
	case pct.GreaterThan(decimal.NewFromInt(WarningPercent)):
		st.Level = domain.BudgetLevelWarning
	default:
		st.Level = domain.BudgetLevelOK
	}
	return st
}
