// Package store defines the persistence contract shared by the memory,
// BigQuery and Postgres backends.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

// ErrNotFound is returned when a record with the requested ID does not exist.
var ErrNotFound = errors.New("not found")

// TransactionRecord is a persisted transaction.
type TransactionRecord struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id,omitempty"`
	domain.Transaction
	CreatedAt time.Time `json:"created_at"`
}

// DateRef is the reference time for reading year-less dates such as "12/15":
// the moment the record was stored, as every backend resolves them at insert.
func (r TransactionRecord) DateRef() time.Time {
	if r.CreatedAt.IsZero() {
		return time.Now()
	}
	return r.CreatedAt
}

// Resolved returns the transaction with its date rewritten as YYYY-MM-DD when
// it can be read. Free-form dates are left as they are.
func (r TransactionRecord) Resolved() domain.Transaction {
	tx := r.Transaction
	if d, ok := domain.ParseDate(tx.Date, r.DateRef()); ok {
		tx.Date = d.Format("2006-01-02")
	}
	return tx
}

// TransactionPatch lists the user-editable fields. Nil fields are left unchanged.
type TransactionPatch struct {
	Category   *string `json:"category,omitempty"`
	Merchant   *string `json:"merchant,omitempty"`
	IsTransfer *bool   `json:"is_transfer,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Category == nil && p.Merchant == nil && p.IsTransfer == nil
}

// Apply returns tx with the patch applied.
func (p TransactionPatch) Apply(tx domain.Transaction) domain.Transaction {
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Merchant != nil {
		tx.Merchant = *p.Merchant
	}
	if p.IsTransfer != nil {
		tx.IsTransfer = *p.IsTransfer
	}
	return tx
}

// Filter narrows ListTransactions. Zero values match everything.
type Filter struct {
	Start    time.Time
	End      time.Time
	Vendor   string
	Category string
	// TransfersOnly keeps rows flagged as transfers or potential transfers.
	TransfersOnly bool
}

// Match reports whether tx passes the filter. Start and End are inclusive
// dates; a transaction whose date cannot be read fails any date bound.
func (f Filter) Match(tx domain.Transaction, ref time.Time) bool {
	if f.Vendor != "" && !tx.MatchesVendor(f.Vendor) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(tx.Category), strings.TrimSpace(f.Category)) {
		return false
	}
	if f.TransfersOnly && !tx.IsTransfer && !tx.PotentialTransfer {
		return false
	}
	if f.Start.IsZero() && f.End.IsZero() {
		return true
	}
	d, ok := domain.ParseDate(tx.Date, ref)
	if !ok {
		return false
	}
	if !f.Start.IsZero() && d.Before(truncateDay(f.Start)) {
		return false
	}
	if !f.End.IsZero() && d.After(truncateDay(f.End)) {
		return false
	}
	return true
}

// MatchRecord is Match with the record's own reference time.
func (f Filter) MatchRecord(r TransactionRecord) bool {
	return f.Match(r.Transaction, r.DateRef())
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ModelOutput records one raw model answer and whether it passed validation.
type ModelOutput struct {
	ID           string    `json:"id"`
	Task         string    `json:"task"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Attempt      int       `json:"attempt"`
	Input        string    `json:"input"`
	RawText      string    `json:"raw_text"`
	Valid        bool      `json:"valid"`
	Error        string    `json:"error,omitempty"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists transactions, saved budgets and model outputs.
type Repository interface {
	InsertTransactions(ctx context.Context, documentID string, txs []domain.Transaction) ([]TransactionRecord, error)
	ListTransactions(ctx context.Context, f Filter) ([]TransactionRecord, error)
	GetTransaction(ctx context.Context, id string) (*TransactionRecord, error)
	UpdateTransaction(ctx context.Context, id string, patch TransactionPatch) (*TransactionRecord, error)
	// UpdateCategoryByVendor recategorises every transaction whose merchant or
	// description contains vendor, case-insensitively, and returns the count.
	UpdateCategoryByVendor(ctx context.Context, vendor, category string) (int, error)
	DeleteAllTransactions(ctx context.Context) (int, error)

	UpsertBudget(ctx context.Context, b domain.Budget) error
	ListBudgets(ctx context.Context) ([]domain.Budget, error)

	InsertModelOutput(ctx context.Context, out *ModelOutput) error

	Close() error
}

// NewRecords assigns IDs and a creation time to freshly extracted transactions.
func NewRecords(documentID string, txs []domain.Transaction, now time.Time) []TransactionRecord {
	recs := make([]TransactionRecord, 0, len(txs))
	for _, tx := range txs {
		recs = append(recs, TransactionRecord{
			ID:          uuid.NewString(),
			DocumentID:  documentID,
			Transaction: tx,
			CreatedAt:   now,
		})
	}
	return recs
}
