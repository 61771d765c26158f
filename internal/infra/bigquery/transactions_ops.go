package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/fintrack-ai/internal/store"
)

const (
	transactionsTable = "transactions"

	transactionColumns = `
			transaction_id,
			document_id,
			raw_date,
			transaction_date,
			description,
			amount,
			type,
			category,
			merchant,
			account_name,
			is_transfer,
			potential_transfer,
			created_ts,
			updated_ts`
)

// InsertTransactionsWithClient writes rows with a load job. Load jobs bypass
// the streaming buffer, so the rows can be updated or deleted right away.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, datasetID string, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		if err := enc.Encode(row.toLoadRecord()); err != nil {
			return fmt.Errorf("InsertTransactions: encoding row %s: %w", row.TransactionID, err)
		}
	}

	src := bigquery.NewReaderSource(&buf)
	src.SourceFormat = bigquery.JSON

	loader := client.Dataset(datasetID).Table(transactionsTable).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteAppend

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertTransactions: starting load job: %w", err)
	}
	if err := waitJob(ctx, job); err != nil {
		return fmt.Errorf("InsertTransactions: %w", err)
	}
	return nil
}

// listQuery builds the filtered SELECT for ListTransactions.
func listQuery(table string, f store.Filter) (string, []bigquery.QueryParameter) {
	var (
		where  []string
		params []bigquery.QueryParameter
	)
	if !f.Start.IsZero() {
		where = append(where, "transaction_date >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: civil.DateOf(f.Start)})
	}
	if !f.End.IsZero() {
		where = append(where, "transaction_date <= @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: civil.DateOf(f.End)})
	}
	if f.Vendor != "" {
		where = append(where, vendorCondition)
		params = append(params, bigquery.QueryParameter{Name: "vendor", Value: f.Vendor})
	}
	if f.Category != "" {
		where = append(where, "LOWER(TRIM(IFNULL(category, ''))) = LOWER(TRIM(@category))")
		params = append(params, bigquery.QueryParameter{Name: "category", Value: f.Category})
	}
	if f.TransfersOnly {
		where = append(where, "(is_transfer OR potential_transfer)")
	}

	sql := "SELECT" + transactionColumns + "\n\t\tFROM " + table
	if len(where) > 0 {
		sql += "\n\t\tWHERE " + strings.Join(where, "\n\t\t  AND ")
	}
	sql += "\n\t\tORDER BY created_ts, transaction_date"
	return sql, params
}

const vendorCondition = `(STRPOS(LOWER(IFNULL(merchant, '')), LOWER(@vendor)) > 0
		    OR STRPOS(LOWER(description), LOWER(@vendor)) > 0)`

// ListTransactionsWithClient runs a filtered query over the transactions table.
func ListTransactionsWithClient(ctx context.Context, client *bigquery.Client, table string, f store.Filter) ([]*TransactionRow, error) {
	sql, params := listQuery(table, f)
	q := client.Query(sql)
	q.Parameters = params
	return readTransactions(ctx, q)
}

// GetTransactionWithClient returns one row or store.ErrNotFound.
func GetTransactionWithClient(ctx context.Context, client *bigquery.Client, table, id string) (*TransactionRow, error) {
	q := client.Query("SELECT" + transactionColumns + "\n\t\tFROM " + table + "\n\t\tWHERE transaction_id = @id")
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}

	rows, err := readTransactions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return rows[0], nil
}

func readTransactions(ctx context.Context, q *bigquery.Query) ([]*TransactionRow, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("readTransactions: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("readTransactions: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// updateQuery builds the UPDATE for a patch. ok is false for an empty patch.
func updateQuery(table, id string, patch store.TransactionPatch) (string, []bigquery.QueryParameter, bool) {
	if patch.IsEmpty() {
		return "", nil, false
	}
	sets := []string{"updated_ts = CURRENT_TIMESTAMP()"}
	params := []bigquery.QueryParameter{{Name: "id", Value: id}}
	if patch.Category != nil {
		sets = append(sets, "category = @category")
		params = append(params, bigquery.QueryParameter{Name: "category", Value: *patch.Category})
	}
	if patch.Merchant != nil {
		sets = append(sets, "merchant = @merchant")
		params = append(params, bigquery.QueryParameter{Name: "merchant", Value: *patch.Merchant})
	}
	if patch.IsTransfer != nil {
		sets = append(sets, "is_transfer = @is_transfer")
		params = append(params, bigquery.QueryParameter{Name: "is_transfer", Value: *patch.IsTransfer})
	}
	sql := "UPDATE " + table + "\n\t\tSET " + strings.Join(sets, ", ") + "\n\t\tWHERE transaction_id = @id"
	return sql, params, true
}

// UpdateTransactionWithClient applies patch and returns the affected row count.
func UpdateTransactionWithClient(ctx context.Context, client *bigquery.Client, table, id string, patch store.TransactionPatch) (int64, error) {
	sql, params, ok := updateQuery(table, id, patch)
	if !ok {
		return 0, nil
	}
	q := client.Query(sql)
	q.Parameters = params
	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("UpdateTransaction: %w", err)
	}
	return n, nil
}

// UpdateCategoryByVendorWithClient recategorises matching rows.
func UpdateCategoryByVendorWithClient(ctx context.Context, client *bigquery.Client, table, vendor, category string) (int64, error) {
	q := client.Query(`
		UPDATE ` + table + `
		SET category = @category, updated_ts = CURRENT_TIMESTAMP()
		WHERE ` + vendorCondition)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "vendor", Value: vendor},
		{Name: "category", Value: category},
	}
	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("UpdateCategoryByVendor: %w", err)
	}
	return n, nil
}
