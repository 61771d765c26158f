package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

func TestTransactionRecord_Resolved(t *testing.T) {
	rec := TransactionRecord{
		Transaction: domain.Transaction{Date: "12/15", Description: "GIFT SHOP"},
		CreatedAt:   time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "2024-12-15", rec.Resolved().Date)
	assert.Equal(t, "12/15", rec.Date)

	rec.Date = "sometime last week"
	assert.Equal(t, "sometime last week", rec.Resolved().Date)
}

func TestFilter_MatchRecord(t *testing.T) {
	rec := TransactionRecord{
		Transaction: domain.Transaction{Date: "12/15"},
		CreatedAt:   time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
	}
	december := Filter{
		Start: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, december.MatchRecord(rec))

	december.Start = december.Start.AddDate(1, 0, 0)
	december.End = december.End.AddDate(1, 0, 0)
	assert.False(t, december.MatchRecord(rec))
}
