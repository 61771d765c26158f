package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

// DeleteAllTransactionsWithClient empties the transactions table and returns
// how many rows were removed.
func DeleteAllTransactionsWithClient(ctx context.Context, client *bigquery.Client, table string) (int64, error) {
	q := client.Query(`
		DELETE FROM ` + table + `
		WHERE TRUE
	`)
	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("DeleteAllTransactions: %w", err)
	}
	return n, nil
}

// runDML runs a DML statement and returns the number of affected rows.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}
	if err := waitJob(ctx, job); err != nil {
		return 0, err
	}

	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return 0, nil
	}
	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return qs.NumDMLAffectedRows, nil
	}
	return 0, nil
}

func waitJob(ctx context.Context, job *bigquery.Job) error {
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
