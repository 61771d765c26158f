package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/fintrack-ai/internal/budget"
	"github.com/dvloznov/fintrack-ai/internal/config"
	"github.com/dvloznov/fintrack-ai/internal/contract"
	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/prompts"
)

const heuristicModel = "heuristic-v1"

var (
	accountLine = regexp.MustCompile(`(?i)^\s*account(?:\s+name)?\s*[:\-]\s*(.+?)\s*$`)
	dateToken   = `(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?)`
	amountToken = `([-+]?\$?\d[\d,]*\.\d{2})`
	// "04/01 STARBUCKS #123 -5.75"
	dateFirst = regexp.MustCompile(`^\s*` + dateToken + `\s+(.+?)\s+` + amountToken + `\s*$`)
	// "STARBUCKS #123 -5.75 04/01"
	dateLast = regexp.MustCompile(`^\s*(.+?)\s+` + amountToken + `\s+` + dateToken + `\s*$`)

	incomeWords   = regexp.MustCompile(`(?i)\b(salary|payroll|deposit|refund|interest|dividend|credit)\b`)
	transferWords = regexp.MustCompile(`(?i)\b(transfer|xfer|payment to|payment thank you)\b`)
	storeNumber   = regexp.MustCompile(`\s*(#\s*\d+|\*\S+|\d{3,})`)

	commandPattern = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:change|set|move|update|recategori[sz]e|categori[sz]e)\s+(?:all\s+)?(?:of\s+)?(?:my\s+)?(.+?)\s+(?:transactions\s+|purchases\s+|expenses\s+)?(?:to|as|into|under)\s+(?:the\s+)?(.+?)(?:\s+category)?\s*[.!]?\s*$`)
)

var categoryKeywords = []struct {
	category string
	pattern  *regexp.Regexp
}{
	{"Transfer", regexp.MustCompile(`(?i)\b(transfer|xfer)\b`)},
	{"Salary", regexp.MustCompile(`(?i)\b(salary|payroll)\b`)},
	{domain.CategoryFood, regexp.MustCompile(`(?i)(starbucks|coffee|cafe|restaurant|grocer|market|pizza|burger|deli|bakery|whole foods|trader joe)`)},
	{domain.CategoryTransport, regexp.MustCompile(`(?i)(uber|lyft|taxi|shell|chevron|exxon|fuel|gas station|parking|metro|transit|airline)`)},
	{domain.CategoryUtilities, regexp.MustCompile(`(?i)(electric|water|internet|comcast|verizon|at&t|utility|phone)`)},
	{domain.CategoryHousing, regexp.MustCompile(`(?i)\b(rent|mortgage|hoa)\b`)},
	{domain.CategoryInsurance, regexp.MustCompile(`(?i)(insurance|geico|allstate)`)},
	{domain.CategoryEntertainment, regexp.MustCompile(`(?i)(netflix|spotify|cinema|theater|theatre|steam|hulu)`)},
	{domain.CategoryPersonalCare, regexp.MustCompile(`(?i)(pharmacy|salon|barber|gym|cvs|walgreens)`)},
}

// HeuristicProvider answers every task with deterministic rules. It needs no
// network access and is used offline and in tests.
type HeuristicProvider struct {
	now func() time.Time
}

func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{now: time.Now}
}

func (p *HeuristicProvider) Name() string { return config.ProviderHeuristic }

func (p *HeuristicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		out interface{}
		err error
	)
	switch taskOf(req) {
	case prompts.TaskExtract:
		out = p.extract(req.User)
	case prompts.TaskInterpret:
		out = interpret(req.User)
	case prompts.TaskBudgetTrends:
		var trends []domain.SpendingTrend
		if err = json.Unmarshal([]byte(req.User), &trends); err == nil {
			out = budget.SuggestFromTrends(trends)
		}
	case prompts.TaskBudgetZeroBased:
		var in prompts.ZeroBasedInput
		if err = json.Unmarshal([]byte(req.User), &in); err == nil {
			out = budget.AllocateZeroBased(in.SpendingTrends, in.EstimatedMonthlyIncome)
		}
	default:
		return nil, fmt.Errorf("HeuristicProvider.Complete: unsupported task %q", req.Task)
	}
	if err != nil {
		return nil, fmt.Errorf("HeuristicProvider.Complete: decode payload: %w", err)
	}

	text, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("HeuristicProvider.Complete: encode answer: %w", err)
	}
	return &Response{Text: string(text), Model: heuristicModel}, nil
}

func taskOf(req Request) prompts.Task {
	if req.Task != "" {
		return req.Task
	}
	switch req.System {
	case prompts.ExtractionPrompt:
		return prompts.TaskExtract
	case prompts.CommandInterpreterPrompt:
		return prompts.TaskInterpret
	case prompts.BudgetTrendsPrompt:
		return prompts.TaskBudgetTrends
	case prompts.BudgetZeroBasedPrompt:
		return prompts.TaskBudgetZeroBased
	}
	return ""
}

func (p *HeuristicProvider) extract(text string) []domain.Transaction {
	now := p.now()
	account := domain.UnknownAccount
	txs := []domain.Transaction{}

	for _, line := range strings.Split(text, "\n") {
		if m := accountLine.FindStringSubmatch(line); m != nil {
			account = m[1]
			continue
		}

		var dateStr, desc, amountStr string
		if m := dateFirst.FindStringSubmatch(line); m != nil {
			dateStr, desc, amountStr = m[1], m[2], m[3]
		} else if m := dateLast.FindStringSubmatch(line); m != nil {
			desc, amountStr, dateStr = m[1], m[2], m[3]
		} else {
			continue
		}

		amount, err := strconv.ParseFloat(strings.NewReplacer("$", "", ",", "").Replace(amountStr), 64)
		if err != nil {
			continue
		}
		date := dateStr
		if d, ok := domain.ParseDate(dateStr, now); ok {
			date = d.Format("2006-01-02")
		}

		desc = strings.TrimSpace(desc)
		txType := domain.TypeExpense
		if strings.HasPrefix(amountStr, "+") || (amount > 0 && incomeWords.MatchString(desc)) {
			txType = domain.TypeIncome
		}

		tx := domain.Transaction{
			Date:              date,
			Description:       desc,
			Amount:            amount,
			Type:              txType,
			Category:          categorize(desc, txType),
			Merchant:          merchantName(desc),
			AccountName:       account,
			IsTransfer:        transferWords.MatchString(desc),
			PotentialTransfer: contract.HasTransferKeyword(desc),
		}
		txs = append(txs, contract.NormalizeTransaction(tx))
	}
	return txs
}

func categorize(desc, txType string) string {
	for _, ck := range categoryKeywords {
		if ck.pattern.MatchString(desc) {
			return ck.category
		}
	}
	if txType == domain.TypeIncome {
		return "Income"
	}
	return domain.CategoryMisc
}

func merchantName(desc string) string {
	cleaned := strings.TrimSpace(storeNumber.ReplaceAllString(desc, ""))
	if cleaned == "" {
		cleaned = desc
	}
	words := strings.Fields(strings.ToLower(cleaned))
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[:1])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

func interpret(command string) domain.Action {
	m := commandPattern.FindStringSubmatch(command)
	if m == nil {
		return domain.UnknownAction()
	}
	vendor := strings.Trim(strings.TrimSpace(m[1]), `"'`)
	category := strings.Trim(strings.TrimSpace(m[2]), `"'`)
	if vendor == "" || category == "" {
		return domain.UnknownAction()
	}
	return domain.Action{
		Action:      domain.ActionUpdateCategory,
		Vendor:      vendor,
		NewCategory: category,
	}
}
