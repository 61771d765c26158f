package domain

// Standard budget categories. A zero-based budget must cover every one of them.
const (
	CategoryHousing       = "Housing"
	CategoryFood          = "Food"
	CategoryTransport     = "Transport"
	CategoryUtilities     = "Utilities"
	CategoryInsurance     = "Insurance"
	CategorySavings       = "Savings & Investments"
	CategoryEntertainment = "Entertainment"
	CategoryPersonalCare  = "Personal Care"
	CategoryDebtRepayment = "Debt Repayment"
	CategoryMisc          = "Miscellaneous"
)

// StandardCategories lists the mandatory zero-based categories in prompt order.
var StandardCategories = []string{
	CategoryHousing,
	CategoryFood,
	CategoryTransport,
	CategoryUtilities,
	CategoryInsurance,
	CategorySavings,
	CategoryEntertainment,
	CategoryPersonalCare,
	CategoryDebtRepayment,
	CategoryMisc,
}

// BudgetMode selects which budgeting template and validation rules apply.
type BudgetMode string

const (
	// BudgetModeTrends suggests a limit per historical category from avg/max spend.
	BudgetModeTrends BudgetMode = "trends"
	// BudgetModeZeroBased allocates the whole estimated income across the standard categories.
	BudgetModeZeroBased BudgetMode = "zero_based"
)

// SpendingTrend summarises historical monthly spending for one category.
type SpendingTrend struct {
	Category string  `json:"category"`
	AvgSpend float64 `json:"avg_spend"`
	MaxSpend float64 `json:"max_spend"`
}

// BudgetItem is one budget recommendation produced by the budgeting prompt.
type BudgetItem struct {
	Category       string  `json:"category"`
	HistoricalAvg  float64 `json:"historical_avg"`
	SuggestedLimit float64 `json:"suggested_limit"`
	Reasoning      string  `json:"reasoning"`
}

// Budget is a monthly limit the user saved for a category.
type Budget struct {
	Category     string  `json:"category"`
	MonthlyLimit float64 `json:"monthly_limit"`
}

// BudgetLevel grades current-month spend against a saved limit.
type BudgetLevel string

const (
	// BudgetLevelNone means the category has spend but no saved limit.
	BudgetLevelNone BudgetLevel = "none"
	// BudgetLevelOK is at most 75% of the limit.
	BudgetLevelOK BudgetLevel = "ok"
	// BudgetLevelWarning is above 75% and at most 100% of the limit.
	BudgetLevelWarning BudgetLevel = "warning"
	// BudgetLevelOver is above the limit.
	BudgetLevelOver BudgetLevel = "over"
)

// BudgetStatus compares one category's spend this month with its saved limit.
type BudgetStatus struct {
	Category     string      `json:"category"`
	MonthlyLimit float64     `json:"monthly_limit"`
	Spent        float64     `json:"spent"`
	Remaining    float64     `json:"remaining"`
	Percent      float64     `json:"percent"`
	Level        BudgetLevel `json:"level"`
}
