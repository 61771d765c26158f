// Package budget derives spending trends from stored transactions and builds
// rule-based budget suggestions from them.
package budget

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

// Uncategorized is used for expenses without a category.
const Uncategorized = "Uncategorized"

// VarianceRatio is the max/avg ratio above which a category counts as variable.
const VarianceRatio = 1.25

// ComputeTrends returns the average and maximum monthly spend per category over
// the `months` complete calendar months before now. Transfers and income are
// ignored, as are transactions whose date cannot be read. The average divides
// by the number of months that contain any expense, so a short history is not
// diluted by empty months before it started.
func ComputeTrends(txs []domain.Transaction, now time.Time, months int) []domain.SpendingTrend {
	if months <= 0 {
		months = 6
	}
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, -months, 0)

	monthly := make(map[string]map[string]decimal.Decimal)
	activeMonths := make(map[string]bool)

	for _, tx := range txs {
		if tx.IsTransfer || !(tx.IsExpense() || tx.Amount < 0) {
			continue
		}
		d, ok := domain.ParseDate(tx.Date, now)
		if !ok || d.Before(start) || !d.Before(end) {
			continue
		}
		cat := strings.TrimSpace(tx.Category)
		if cat == "" {
			cat = Uncategorized
		}
		month := d.Format("2006-01")
		if monthly[cat] == nil {
			monthly[cat] = make(map[string]decimal.Decimal)
		}
		amount := decimal.NewFromFloat(tx.Amount).Abs()
		monthly[cat][month] = monthly[cat][month].Add(amount)
		activeMonths[month] = true
	}

	if len(activeMonths) == 0 {
		return []domain.SpendingTrend{}
	}
	divisor := decimal.NewFromInt(int64(len(activeMonths)))

	trends := make([]domain.SpendingTrend, 0, len(monthly))
	for cat, byMonth := range monthly {
		total := decimal.Zero
		max := decimal.Zero
		for _, v := range byMonth {
			total = total.Add(v)
			if v.GreaterThan(max) {
				max = v
			}
		}
		trends = append(trends, domain.SpendingTrend{
			Category: cat,
			AvgSpend: total.Div(divisor).Round(2).InexactFloat64(),
			MaxSpend: max.Round(2).InexactFloat64(),
		})
	}

	sort.Slice(trends, func(i, j int) bool {
		if trends[i].AvgSpend != trends[j].AvgSpend {
			return trends[i].AvgSpend > trends[j].AvgSpend
		}
		return trends[i].Category < trends[j].Category
	})
	return trends
}

// Categories returns the category names of trends in order.
func Categories(trends []domain.SpendingTrend) []string {
	out := make([]string, 0, len(trends))
	for _, t := range trends {
		out = append(out, t.Category)
	}
	return out
}

// SuggestFromTrends applies the trends-only rules: variable categories get a
// limit slightly above their average, stable ones are rounded up.
func SuggestFromTrends(trends []domain.SpendingTrend) []domain.BudgetItem {
	items := make([]domain.BudgetItem, 0, len(trends))
	for _, t := range trends {
		avg := decimal.NewFromFloat(t.AvgSpend)
		var limit decimal.Decimal
		var reasoning string
		if t.AvgSpend > 0 && t.MaxSpend > t.AvgSpend*VarianceRatio {
			limit = roundUpTo(avg.Mul(decimal.NewFromFloat(1.1)), 10)
			reasoning = "Variable spending, suggested limit sits slightly above the average and covers most months."
		} else {
			limit = roundUpTo(avg, 10)
			reasoning = "Stable spending, suggested limit matches the average rounded up."
		}
		items = append(items, domain.BudgetItem{
			Category:       t.Category,
			HistoricalAvg:  t.AvgSpend,
			SuggestedLimit: limit.InexactFloat64(),
			Reasoning:      reasoning,
		})
	}
	return items
}

func roundUpTo(d decimal.Decimal, step int64) decimal.Decimal {
	s := decimal.NewFromInt(step)
	return d.Div(s).Ceil().Mul(s)
}
