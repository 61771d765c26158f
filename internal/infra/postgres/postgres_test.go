package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fintrack-ai/internal/store"
)

func TestListQuery(t *testing.T) {
	q, args := listQuery(store.Filter{})
	assert.Equal(t, "SELECT "+transactionColumns+" FROM transactions ORDER BY created_at, transaction_date", q)
	assert.Empty(t, args)

	q, args = listQuery(store.Filter{
		Start:    time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC),
		Vendor:   "Starbucks",
		Category: "food",
	})
	assert.Contains(t, q, "transaction_date >= $1")
	assert.Contains(t, q, "LOWER($2)")
	assert.Contains(t, q, "LOWER(TRIM($3))")
	assert.Equal(t, []interface{}{"2025-03-01", "Starbucks", "food"}, args)
}

func TestListQuery_Transfers(t *testing.T) {
	q, args := listQuery(store.Filter{TransfersOnly: true, End: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)})
	assert.Contains(t, q, "WHERE transaction_date <= $1 AND (is_transfer OR potential_transfer)")
	assert.Len(t, args, 1)
}

func TestUpdateQuery(t *testing.T) {
	_, _, ok := updateQuery("id", store.TransactionPatch{})
	assert.False(t, ok)

	merchant := "Blue Bottle"
	q, args, ok := updateQuery("id-1", store.TransactionPatch{Merchant: &merchant})
	require.True(t, ok)
	assert.Equal(t, "UPDATE transactions SET updated_at = NOW(), merchant = $2 WHERE id = $1", q)
	assert.Equal(t, []interface{}{"id-1", "Blue Bottle"}, args)
}

func TestSchemaIsIdempotent(t *testing.T) {
	for _, stmt := range schema {
		assert.True(t, strings.Contains(stmt, "IF NOT EXISTS"), stmt)
	}
}
