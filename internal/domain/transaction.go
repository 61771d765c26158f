package domain

import (
	"strings"
	"time"
)

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// UnknownAccount is the account name used when the source text does not name one.
const UnknownAccount = "Unknown Account"

// Transaction is one financial event extracted from raw statement text.
// JSON field names are the wire contract shared with the extraction prompt.
type Transaction struct {
	Date              string  `json:"date"`        // ISO 8601 when the model could infer it, otherwise as it appeared
	Description       string  `json:"description"` // verbatim source text
	Amount            float64 `json:"amount"`      // positive = income, negative = expense
	Type              string  `json:"type"`
	Category          string  `json:"category"`
	Merchant          string  `json:"merchant"`
	AccountName       string  `json:"account_name"`
	IsTransfer        bool    `json:"is_transfer"`
	PotentialTransfer bool    `json:"potential_transfer"`
}

// IsExpense reports whether the transaction is an outflow.
func (t Transaction) IsExpense() bool {
	return t.Type == TypeExpense
}

// MatchesVendor reports whether vendor appears in the merchant or description,
// ignoring case.
func (t Transaction) MatchesVendor(vendor string) bool {
	v := strings.ToLower(strings.TrimSpace(vendor))
	if v == "" {
		return false
	}
	return strings.Contains(strings.ToLower(t.Merchant), v) ||
		strings.Contains(strings.ToLower(t.Description), v)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate interprets the free-form date of a transaction. Dates without a year
// ("04/01") are placed in the year of ref. ok is false when no layout matched.
func ParseDate(s string, ref time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range []string{"01/02", "1/2", "Jan 2", "02 Jan"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(ref.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
