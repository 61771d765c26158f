package budget

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fintrack-ai/internal/contract"
	"github.com/dvloznov/fintrack-ai/internal/domain"
)

var now = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

func expense(date, category string, amount float64) domain.Transaction {
	return domain.Transaction{
		Date:        date,
		Description: category + " purchase",
		Amount:      -amount,
		Type:        domain.TypeExpense,
		Category:    category,
		AccountName: "Checking",
	}
}

func TestComputeTrends(t *testing.T) {
	txs := []domain.Transaction{
		expense("2025-01-03", "Food", 100),
		expense("2025-01-20", "Food", 50),
		expense("2025-02-03", "Food", 300),
		expense("2025-03-03", "Food", 150),
		expense("2025-03-10", "Transport", 60),
		expense("2025-04-02", "Food", 999), // current month, excluded
		expense("2024-09-02", "Food", 999), // before the window, excluded
		{Date: "2025-02-01", Description: "Salary", Amount: 4000, Type: domain.TypeIncome, AccountName: "Checking"},
		{Date: "2025-02-01", Description: "Transfer to savings", Amount: -500, Type: domain.TypeExpense, IsTransfer: true, AccountName: "Checking"},
		{Date: "garbage", Description: "x", Amount: -10, Type: domain.TypeExpense, AccountName: "Checking"},
	}

	trends := ComputeTrends(txs, now, 6)
	require.Len(t, trends, 2)

	assert.Equal(t, "Food", trends[0].Category)
	assert.Equal(t, 200.0, trends[0].AvgSpend)
	assert.Equal(t, 300.0, trends[0].MaxSpend)

	assert.Equal(t, "Transport", trends[1].Category)
	assert.Equal(t, 20.0, trends[1].AvgSpend)
	assert.Equal(t, 60.0, trends[1].MaxSpend)
}

func TestComputeTrends_UncategorizedAndEmpty(t *testing.T) {
	assert.Empty(t, ComputeTrends(nil, now, 6))

	trends := ComputeTrends([]domain.Transaction{expense("2025-03-01", "  ", 40)}, now, 0)
	require.Len(t, trends, 1)
	assert.Equal(t, Uncategorized, trends[0].Category)
	assert.Equal(t, 40.0, trends[0].AvgSpend)
}

func TestSuggestFromTrends(t *testing.T) {
	items := SuggestFromTrends([]domain.SpendingTrend{
		{Category: "Food", AvgSpend: 200, MaxSpend: 300},
		{Category: "Utilities", AvgSpend: 84.5, MaxSpend: 90},
	})
	require.Len(t, items, 2)

	assert.Equal(t, "Food", items[0].Category)
	assert.Equal(t, 200.0, items[0].HistoricalAvg)
	assert.Equal(t, 220.0, items[0].SuggestedLimit)
	assert.Contains(t, items[0].Reasoning, "Variable")

	assert.Equal(t, 90.0, items[1].SuggestedLimit)
	assert.Contains(t, items[1].Reasoning, "Stable")
}

func sumLimits(items []domain.BudgetItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.SuggestedLimit))
	}
	return total
}

func TestAllocateZeroBased_NoHistory(t *testing.T) {
	items := AllocateZeroBased(nil, 5000)
	require.Len(t, items, len(domain.StandardCategories))
	assert.True(t, sumLimits(items).Equal(decimal.NewFromInt(5000)))

	byCat := map[string]float64{}
	for _, it := range items {
		byCat[it.Category] = it.SuggestedLimit
	}
	assert.Equal(t, 1500.0, byCat[domain.CategoryHousing])
	assert.Equal(t, 1000.0, byCat[domain.CategorySavings])
}

func TestAllocateZeroBased_WithHistory(t *testing.T) {
	trends := []domain.SpendingTrend{
		{Category: "Food", AvgSpend: 412.37, MaxSpend: 500},
		{Category: "Pets", AvgSpend: 80, MaxSpend: 95},
	}
	items := AllocateZeroBased(trends, 3333.33)

	require.Len(t, items, len(domain.StandardCategories)+1)
	assert.True(t, sumLimits(items).Equal(decimal.RequireFromString("3333.33")))

	var pets *domain.BudgetItem
	for i := range items {
		if items[i].Category == "Pets" {
			pets = &items[i]
		}
	}
	require.NotNil(t, pets)
	assert.Equal(t, 80.0, pets.SuggestedLimit)
	assert.Equal(t, 80.0, pets.HistoricalAvg)

	err := contract.CheckZeroBased(items, contract.BudgetOptions{
		Mode:                 domain.BudgetModeZeroBased,
		Income:               3333.33,
		Tolerance:            contract.DefaultTolerance(3333.33),
		HistoricalCategories: Categories(trends),
	})
	assert.NoError(t, err)
}

func TestAllocateZeroBased_HistoryExceedsIncome(t *testing.T) {
	trends := []domain.SpendingTrend{
		{Category: "Housing", AvgSpend: 3000, MaxSpend: 3000},
		{Category: "Food", AvgSpend: 1000, MaxSpend: 1200},
	}
	items := AllocateZeroBased(trends, 2000)
	assert.True(t, sumLimits(items).Equal(decimal.NewFromInt(2000)))
	for _, it := range items {
		assert.GreaterOrEqual(t, it.SuggestedLimit, 0.0)
		if it.Category == domain.CategoryHousing {
			assert.Equal(t, 1500.0, it.SuggestedLimit)
		}
	}
}

func TestDefaultSharesSumToOne(t *testing.T) {
	total := decimal.Zero
	for _, c := range domain.StandardCategories {
		share, ok := DefaultShares[c]
		require.True(t, ok, c)
		total = total.Add(decimal.NewFromFloat(share))
	}
	assert.True(t, total.Equal(decimal.NewFromInt(1)))
}

func TestCurrentMonthSpend(t *testing.T) {
	txs := []domain.Transaction{
		expense("2025-04-02", "Food", 40.10),
		expense("2025-04-09", "food", 19.90),
		expense("2025-04-10", "", 12),
		expense("2025-03-31", "Food", 999), // previous month
		{Date: "2025-04-05", Description: "Refund", Amount: 25, Type: domain.TypeIncome, Category: "Food"},
		{Date: "2025-04-06", Description: "To savings", Amount: -300, Type: domain.TypeExpense, IsTransfer: true},
		{Date: "unknown", Description: "x", Amount: -5, Type: domain.TypeExpense, Category: "Food"},
	}

	spend := CurrentMonthSpend(txs, now)
	assert.Equal(t, map[string]float64{"Food": 60, Uncategorized: 12}, spend)
}

func TestStatus(t *testing.T) {
	budgets := []domain.Budget{
		{Category: "Food", MonthlyLimit: 200},
		{Category: "Transport", MonthlyLimit: 100},
		{Category: "Entertainment", MonthlyLimit: 50},
		{Category: "Housing", MonthlyLimit: 1000},
	}
	spend := map[string]float64{
		"food":          80,
		"Transport":     90,
		"Entertainment": 65,
		"Shopping":      30,
		"Uncategorized": 45,
	}

	got := Status(budgets, spend)
	require.Len(t, got, 6)

	assert.Equal(t, domain.BudgetStatus{Category: "Food", MonthlyLimit: 200, Spent: 80, Remaining: 120, Percent: 40, Level: domain.BudgetLevelOK}, got[0])
	assert.Equal(t, domain.BudgetLevelWarning, got[1].Level)
	assert.Equal(t, 90.0, got[1].Percent)
	assert.Equal(t, domain.BudgetLevelOver, got[2].Level)
	assert.Equal(t, -15.0, got[2].Remaining)
	assert.Equal(t, domain.BudgetStatus{Category: "Housing", MonthlyLimit: 1000, Level: domain.BudgetLevelOK, Remaining: 1000}, got[3])

	// Unbudgeted spend follows, largest first.
	assert.Equal(t, "Uncategorized", got[4].Category)
	assert.Equal(t, domain.BudgetLevelNone, got[4].Level)
	assert.Equal(t, "Shopping", got[5].Category)
	assert.Zero(t, got[5].Percent)
}

func TestStatus_Boundaries(t *testing.T) {
	budgets := []domain.Budget{{Category: "A", MonthlyLimit: 100}, {Category: "B", MonthlyLimit: 100}}
	got := Status(budgets, map[string]float64{"A": 75, "B": 100})
	assert.Equal(t, domain.BudgetLevelOK, got[0].Level)
	assert.Equal(t, domain.BudgetLevelWarning, got[1].Level)
}
