package prompts

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

func TestForTask(t *testing.T) {
	for _, task := range []Task{TaskExtract, TaskInterpret, TaskBudgetTrends, TaskBudgetZeroBased} {
		p, err := ForTask(task)
		require.NoError(t, err, task)
		assert.Contains(t, p, "Output ONLY")
	}

	_, err := ForTask("translate")
	assert.Error(t, err)
}

func TestZeroBasedPromptListsEveryStandardCategory(t *testing.T) {
	for _, c := range domain.StandardCategories {
		assert.True(t, strings.Contains(BudgetZeroBasedPrompt, "   - "+c+"\n"), "missing %q", c)
	}
}

func TestExtractionPromptNamesEveryField(t *testing.T) {
	for _, f := range []string{"date", "description", "amount", "type", "category", "merchant", "account_name", "is_transfer", "potential_transfer"} {
		assert.Contains(t, ExtractionPrompt, "- "+f+":")
	}
	assert.Contains(t, ExtractionPrompt, domain.UnknownAccount)
}

func TestZeroBasedPayload(t *testing.T) {
	out, err := ZeroBasedPayload(nil, 4200)
	require.NoError(t, err)

	var in ZeroBasedInput
	require.NoError(t, json.Unmarshal([]byte(out), &in))
	assert.Equal(t, 4200.0, in.EstimatedMonthlyIncome)
	assert.NotNil(t, in.SpendingTrends)
	assert.Contains(t, out, `"spending_trends": []`)
}

func TestTrendsPayload(t *testing.T) {
	out, err := TrendsPayload([]domain.SpendingTrend{{Category: "Food", AvgSpend: 450, MaxSpend: 600}})
	require.NoError(t, err)

	var trends []domain.SpendingTrend
	require.NoError(t, json.Unmarshal([]byte(out), &trends))
	require.Len(t, trends, 1)
	assert.Equal(t, "Food", trends[0].Category)
	assert.Equal(t, 600.0, trends[0].MaxSpend)
}
