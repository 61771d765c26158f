// Package prompts holds the instruction templates sent to the language model
// and the builders for the user payloads that accompany them.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

// Task identifies which template a model call uses.
type Task string

const (
	TaskExtract         Task = "extract"
	TaskInterpret       Task = "interpret"
	TaskBudgetTrends    Task = "budget_trends"
	TaskBudgetZeroBased Task = "budget_zero_based"
)

// ExtractionPrompt turns raw statement text into a JSON list of transactions.
const ExtractionPrompt = `You are a financial data extraction assistant.
Extract transactions from the provided raw text into a JSON list.
Each item in the list should have the following fields:
- date: string (ISO 8601 format YYYY-MM-DD if possible, or as appears)
- description: string (original description)
- amount: number (positive for income, negative for expense, or just absolute value if type implies it. Prefer signed.)
- type: string ("income" or "expense")
- category: string (infer a category like "Food", "Transport", "Utilities", "Salary", "Transfer", etc.)
- merchant: string (extracted merchant name)
- account_name: string (MANDATORY: infer the account name from the text, e.g., "Chase Checking", "Amex Gold". If not explicitly stated, use "Unknown Account")
- is_transfer: boolean (true if the transaction appears to be a transfer between accounts, e.g., "Payment to Credit Card", "Transfer to Savings", otherwise false)
- potential_transfer: boolean (true if description contains keywords like "Transfer", "Acct", "Savings", "IRA", "Investment", "EFT", "Contribution", otherwise false)

If the text is messy, do your best to identify transaction rows.
Ignore header lines or footer lines that are not transactions.
Output ONLY the valid JSON list.
`

// CommandInterpreterPrompt turns one natural-language command into a JSON action.
const CommandInterpreterPrompt = `You are a command interpreter for a finance app.
Your goal is to parse natural language commands into structured JSON actions.

Supported Actions:
1. "update_category": Change the category of transactions.
   - Parameters: "vendor" (string), "new_category" (string)
   - Example: "Change all Starbucks to Coffee" -> {"action": "update_category", "vendor": "Starbucks", "new_category": "Coffee"}

2. "unknown": If the command is not understood or supported.
   - Example: "What is the weather?" -> {"action": "unknown"}

Output ONLY the JSON object.
`

// BudgetTrendsPrompt suggests a monthly limit per category from historical spending.
const BudgetTrendsPrompt = `You are a financial advisor. Analyze the provided spending trends (Average Monthly Spend, Max Monthly Spend) for each category.
Create a recommended monthly budget for each category.

Rules:
1. If a category has high variance (Max is much higher than Average), flag it as 'Variable' and suggest a conservative average (e.g., slightly above average).
2. If it is stable (Max is close to Average), suggest the exact amount or slightly rounded up.
3. Provide a brief reasoning for each suggestion.

Input Format:
[
  {"category": "Food", "avg_spend": 450, "max_spend": 600},
  ...
]

Output Format (JSON List):
[
  {
    "category": "Food",
    "historical_avg": 450,
    "suggested_limit": 500,
    "reasoning": "Variable spending, suggested limit covers most months."
  },
  ...
]
Output ONLY the valid JSON list.
`

// BudgetZeroBasedPrompt allocates the estimated monthly income across a fixed
// category list plus any historical categories.
var BudgetZeroBasedPrompt = `You are a financial advisor building a zero-based monthly budget.
You receive the user's spending trends (Average Monthly Spend, Max Monthly Spend per category)
and their estimated monthly income.

Rules:
1. You MUST include every one of these categories exactly once:
` + bulletList(domain.StandardCategories) + `
2. Also include every category that appears in the spending trends.
3. Every unit of income must be allocated: the sum of all "suggested_limit" values MUST equal "estimated_monthly_income".
4. Use the historical averages to size each category. When a category has no history, use "historical_avg": 0
   and these guidelines: Housing ~30%, Food ~10-15%, Transport ~10%, Savings & Investments ~20%, Utilities ~5-10%.
5. Provide a brief reasoning for each category.

Input Format:
{
  "estimated_monthly_income": 5000,
  "spending_trends": [
    {"category": "Food", "avg_spend": 450, "max_spend": 600},
    ...
  ]
}

Output Format (JSON List):
[
  {
    "category": "Housing",
    "historical_avg": 1400,
    "suggested_limit": 1500,
    "reasoning": "Rent is fixed; matches the 30% guideline."
  },
  ...
]
Output ONLY the valid JSON list.
`

func bulletList(items []string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString("   - " + it + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// ForTask returns the system template for a task.
func ForTask(task Task) (string, error) {
	switch task {
	case TaskExtract:
		return ExtractionPrompt, nil
	case TaskInterpret:
		return CommandInterpreterPrompt, nil
	case TaskBudgetTrends:
		return BudgetTrendsPrompt, nil
	case TaskBudgetZeroBased:
		return BudgetZeroBasedPrompt, nil
	default:
		return "", fmt.Errorf("prompts: unknown task %q", task)
	}
}

// TrendsPayload renders the trends-only budgeting input.
func TrendsPayload(trends []domain.SpendingTrend) (string, error) {
	if trends == nil {
		trends = []domain.SpendingTrend{}
	}
	data, err := json.MarshalIndent(trends, "", "  ")
	if err != nil {
		return "", fmt.Errorf("TrendsPayload: %w", err)
	}
	return string(data), nil
}

// ZeroBasedInput is the payload of the zero-based budgeting template.
type ZeroBasedInput struct {
	EstimatedMonthlyIncome float64                `json:"estimated_monthly_income"`
	SpendingTrends         []domain.SpendingTrend `json:"spending_trends"`
}

// ZeroBasedPayload renders the zero-based budgeting input.
func ZeroBasedPayload(trends []domain.SpendingTrend, income float64) (string, error) {
	if trends == nil {
		trends = []domain.SpendingTrend{}
	}
	data, err := json.MarshalIndent(ZeroBasedInput{
		EstimatedMonthlyIncome: income,
		SpendingTrends:         trends,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ZeroBasedPayload: %w", err)
	}
	return string(data), nil
}
