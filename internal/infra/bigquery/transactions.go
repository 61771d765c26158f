package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

type TransactionRow struct {
	TransactionID string              `bigquery:"transaction_id"` // REQUIRED
	DocumentID    bigquery.NullString `bigquery:"document_id"`    // NULLABLE

	// RawDate is the date as extracted; TransactionDate is its parsed form
	// and stays NULL when the extracted text could not be read as a date.
	RawDate         string            `bigquery:"raw_date"`         // REQUIRED
	TransactionDate bigquery.NullDate `bigquery:"transaction_date"` // NULLABLE

	Description string   `bigquery:"description"` // REQUIRED
	Amount      *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC
	Type        string   `bigquery:"type"`        // REQUIRED

	Category    bigquery.NullString `bigquery:"category"` // NULLABLE
	Merchant    bigquery.NullString `bigquery:"merchant"` // NULLABLE
	AccountName string              `bigquery:"account_name"`

	IsTransfer        bool `bigquery:"is_transfer"`
	PotentialTransfer bool `bigquery:"potential_transfer"`

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// toTransactionRow converts a record for storage. Year-less dates are placed in
// the year of ref.
func toTransactionRow(rec store.TransactionRecord, ref time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID:     rec.ID,
		DocumentID:        nullString(rec.DocumentID),
		RawDate:           rec.Date,
		Description:       rec.Description,
		Amount:            decimal.NewFromFloat(rec.Amount).Rat(),
		Type:              rec.Type,
		Category:          nullString(rec.Category),
		Merchant:          nullString(rec.Merchant),
		AccountName:       rec.AccountName,
		IsTransfer:        rec.IsTransfer,
		PotentialTransfer: rec.PotentialTransfer,
		CreatedTS:         rec.CreatedAt,
	}
	if d, ok := domain.ParseDate(rec.Date, ref); ok {
		row.TransactionDate = bigquery.NullDate{Date: civil.DateOf(d), Valid: true}
	}
	return row
}

func (r *TransactionRow) toRecord() store.TransactionRecord {
	var amount float64
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}
	return store.TransactionRecord{
		ID:         r.TransactionID,
		DocumentID: r.DocumentID.StringVal,
		Transaction: domain.Transaction{
			Date:              r.RawDate,
			Description:       r.Description,
			Amount:            amount,
			Type:              r.Type,
			Category:          r.Category.StringVal,
			Merchant:          r.Merchant.StringVal,
			AccountName:       r.AccountName,
			IsTransfer:        r.IsTransfer,
			PotentialTransfer: r.PotentialTransfer,
		},
		CreatedAt: r.CreatedTS,
	}
}

// loadRecord is the newline-delimited JSON shape used by load jobs.
type loadRecord struct {
	TransactionID     string  `json:"transaction_id"`
	DocumentID        *string `json:"document_id"`
	RawDate           string  `json:"raw_date"`
	TransactionDate   *string `json:"transaction_date"`
	Description       string  `json:"description"`
	Amount            string  `json:"amount"`
	Type              string  `json:"type"`
	Category          *string `json:"category"`
	Merchant          *string `json:"merchant"`
	AccountName       string  `json:"account_name"`
	IsTransfer        bool    `json:"is_transfer"`
	PotentialTransfer bool    `json:"potential_transfer"`
	CreatedTS         string  `json:"created_ts"`
}

func optional(ns bigquery.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.StringVal
	return &s
}

func (r *TransactionRow) toLoadRecord() loadRecord {
	lr := loadRecord{
		TransactionID:     r.TransactionID,
		DocumentID:        optional(r.DocumentID),
		RawDate:           r.RawDate,
		Description:       r.Description,
		Amount:            bigquery.NumericString(r.Amount),
		Type:              r.Type,
		Category:          optional(r.Category),
		Merchant:          optional(r.Merchant),
		AccountName:       r.AccountName,
		IsTransfer:        r.IsTransfer,
		PotentialTransfer: r.PotentialTransfer,
		CreatedTS:         r.CreatedTS.UTC().Format(time.RFC3339Nano),
	}
	if r.TransactionDate.Valid {
		d := r.TransactionDate.Date.String()
		lr.TransactionDate = &d
	}
	return lr
}
