package contract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

const taskBudget = "budget"

// BudgetOptions controls budget validation.
type BudgetOptions struct {
	Mode domain.BudgetMode
	// Income is the estimated monthly income; required in zero-based mode.
	Income float64
	// Tolerance is the allowed absolute gap between the allocated total and
	// Income. Zero selects DefaultTolerance.
	Tolerance float64
	// HistoricalCategories must also appear in a zero-based budget.
	HistoricalCategories []string
}

// DefaultTolerance returns the allowed gap for an income: 1% of it, never
// less than one currency unit.
func DefaultTolerance(income float64) float64 {
	t := income * 0.01
	if t < 1 {
		return 1
	}
	return t
}

// ParseBudget validates a budgeting response in the given mode.
func ParseBudget(raw string, opts BudgetOptions) ([]domain.BudgetItem, error) {
	clean := CleanModelJSON(raw, '[')
	if clean == "" {
		return nil, &ValidationError{Task: taskBudget, Index: -1, Reason: "expected a JSON list", Err: ErrNoJSON}
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, &ValidationError{Task: taskBudget, Index: -1, Reason: "invalid JSON: " + err.Error(), Err: ErrNoJSON}
	}
	list, ok := parsed.([]interface{})
	if !ok {
		return nil, schemaErr(taskBudget, -1, "", "top-level value is "+jsonType(parsed)+", want array")
	}

	items := make([]domain.BudgetItem, 0, len(list))
	seen := make(map[string]bool, len(list))
	for i, el := range list {
		obj, ok := el.(map[string]interface{})
		if !ok {
			return nil, schemaErr(taskBudget, i, "", "element is "+jsonType(el)+", want object")
		}
		item, err := budgetItemFromMap(i, obj)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(item.Category)
		if seen[key] {
			return nil, schemaErr(taskBudget, i, "category", fmt.Sprintf("duplicate category %q", item.Category))
		}
		seen[key] = true
		items = append(items, item)
	}

	if opts.Mode == domain.BudgetModeZeroBased {
		if err := CheckZeroBased(items, opts); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func budgetItemFromMap(i int, obj map[string]interface{}) (domain.BudgetItem, error) {
	category, err := getString(obj, "category", true)
	if err != nil {
		return domain.BudgetItem{}, schemaErr(taskBudget, i, "category", err.Error())
	}
	avg, err := getNumber(obj, "historical_avg")
	if err != nil {
		return domain.BudgetItem{}, schemaErr(taskBudget, i, "historical_avg", err.Error())
	}
	if avg < 0 {
		return domain.BudgetItem{}, schemaErr(taskBudget, i, "historical_avg", "must not be negative")
	}
	limit, err := getNumber(obj, "suggested_limit")
	if err != nil {
		return domain.BudgetItem{}, schemaErr(taskBudget, i, "suggested_limit", err.Error())
	}
	if limit < 0 {
		return domain.BudgetItem{}, schemaErr(taskBudget, i, "suggested_limit", "must not be negative")
	}
	reasoning, err := getString(obj, "reasoning", false)
	if err != nil {
		return domain.BudgetItem{}, schemaErr(taskBudget, i, "reasoning", err.Error())
	}
	return domain.BudgetItem{
		Category:       category,
		HistoricalAvg:  avg,
		SuggestedLimit: limit,
		Reasoning:      reasoning,
	}, nil
}

// CheckZeroBased verifies that items cover every standard and historical
// category and that their limits add up to opts.Income within tolerance.
func CheckZeroBased(items []domain.BudgetItem, opts BudgetOptions) error {
	present := make(map[string]bool, len(items))
	total := decimal.Zero
	for _, it := range items {
		present[strings.ToLower(strings.TrimSpace(it.Category))] = true
		total = total.Add(decimal.NewFromFloat(it.SuggestedLimit))
	}

	required := append(append([]string{}, domain.StandardCategories...), opts.HistoricalCategories...)
	for _, c := range required {
		if !present[strings.ToLower(strings.TrimSpace(c))] {
			return &ValidationError{
				Task:   taskBudget,
				Index:  -1,
				Field:  "category",
				Reason: fmt.Sprintf("missing category %q", c),
				Err:    ErrMissingCategory,
			}
		}
	}

	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance(opts.Income)
	}
	gap := total.Sub(decimal.NewFromFloat(opts.Income)).Abs()
	if gap.GreaterThan(decimal.NewFromFloat(tolerance)) {
		return &ValidationError{
			Task:   taskBudget,
			Index:  -1,
			Field:  "suggested_limit",
			Reason: fmt.Sprintf("limits sum to %s, income is %s (tolerance %s)", total.StringFixed(2), decimal.NewFromFloat(opts.Income).StringFixed(2), decimal.NewFromFloat(tolerance).StringFixed(2)),
			Err:    ErrBudgetUnbalanced,
		}
	}
	return nil
}
