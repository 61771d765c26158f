package budget

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

// DefaultShares is the share of income given to each standard category that
// has no spending history. The shares sum to 1.
var DefaultShares = map[string]float64{
	domain.CategoryHousing:       0.30,
	domain.CategoryFood:          0.12,
	domain.CategoryTransport:     0.10,
	domain.CategoryUtilities:     0.07,
	domain.CategoryInsurance:     0.05,
	domain.CategorySavings:       0.20,
	domain.CategoryEntertainment: 0.05,
	domain.CategoryPersonalCare:  0.03,
	domain.CategoryDebtRepayment: 0.05,
	domain.CategoryMisc:          0.03,
}

// AllocateZeroBased builds a zero-based budget: every standard category plus
// every historical one, with limits that add up to income exactly.
//
// Categories with history are budgeted at their average. What is left of the
// income is spread over the standard categories without history using
// DefaultShares. When history alone exceeds the income, historical limits are
// scaled down proportionally. Rounding residue goes to Savings & Investments.
func AllocateZeroBased(trends []domain.SpendingTrend, income float64) []domain.BudgetItem {
	inc := decimal.NewFromFloat(income).Round(2)
	if inc.IsNegative() {
		inc = decimal.Zero
	}

	history := make(map[string]domain.SpendingTrend, len(trends))
	for _, t := range trends {
		history[strings.ToLower(t.Category)] = t
	}

	type slot struct {
		category string
		avg      decimal.Decimal
		hasHist  bool
		limit    decimal.Decimal
		reason   string
	}

	slots := make([]*slot, 0, len(domain.StandardCategories)+len(trends))
	standard := make(map[string]bool, len(domain.StandardCategories))
	for _, c := range domain.StandardCategories {
		standard[strings.ToLower(c)] = true
		s := &slot{category: c}
		if t, ok := history[strings.ToLower(c)]; ok && t.AvgSpend > 0 {
			s.avg = decimal.NewFromFloat(t.AvgSpend)
			s.hasHist = true
		}
		slots = append(slots, s)
	}
	for _, t := range trends {
		if standard[strings.ToLower(t.Category)] {
			continue
		}
		slots = append(slots, &slot{category: t.Category, avg: decimal.NewFromFloat(t.AvgSpend), hasHist: true})
	}

	fixed := decimal.Zero
	for _, s := range slots {
		if s.hasHist {
			fixed = fixed.Add(s.avg)
		}
	}

	remaining := inc.Sub(fixed)
	if remaining.IsNegative() {
		for _, s := range slots {
			if s.hasHist {
				s.limit = s.avg.Mul(inc).Div(fixed).Round(2)
				s.reason = "Historical spending exceeds income; scaled down proportionally."
			} else {
				s.reason = "No history and no income left to allocate."
			}
		}
	} else {
		weight := decimal.Zero
		for _, s := range slots {
			if !s.hasHist {
				weight = weight.Add(decimal.NewFromFloat(DefaultShares[s.category]))
			}
		}
		for _, s := range slots {
			if s.hasHist {
				s.limit = s.avg.Round(2)
				s.reason = fmt.Sprintf("Matches the historical monthly average of %s.", s.avg.StringFixed(2))
				continue
			}
			share := decimal.NewFromFloat(DefaultShares[s.category])
			if weight.IsPositive() {
				s.limit = remaining.Mul(share).Div(weight).Round(2)
			}
			s.reason = fmt.Sprintf("No history; allocated %s%% of income by guideline.", share.Mul(decimal.NewFromInt(100)).StringFixed(0))
		}
	}

	total := decimal.Zero
	for _, s := range slots {
		total = total.Add(s.limit)
	}
	if residue := inc.Sub(total); !residue.IsZero() {
		for _, s := range slots {
			if s.category == domain.CategorySavings {
				s.limit = s.limit.Add(residue)
				if s.limit.IsNegative() {
					s.limit = decimal.Zero
				}
				break
			}
		}
	}

	items := make([]domain.BudgetItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, domain.BudgetItem{
			Category:       s.category,
			HistoricalAvg:  s.avg.Round(2).InexactFloat64(),
			SuggestedLimit: s.limit.InexactFloat64(),
			Reasoning:      s.reason,
		})
	}
	return items
}
