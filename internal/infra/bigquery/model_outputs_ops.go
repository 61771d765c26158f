package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const modelOutputsTable = "model_outputs"

// InsertModelOutputWithClient inserts a single ModelOutputRow using DML so the
// row never sits in the streaming buffer.
func InsertModelOutputWithClient(ctx context.Context, client *bigquery.Client, table string, row *ModelOutputRow) error {
	q := client.Query(`
		INSERT INTO ` + table + ` (
			output_id, task, provider,
			model_name, attempt, input_text,
			raw_text, valid, error_message,
			tokens_input, tokens_output, created_ts
		)
		VALUES (
			@output_id, @task, @provider,
			@model_name, @attempt, @input_text,
			@raw_text, @valid, @error_message,
			@tokens_input, @tokens_output, @created_ts
		)
	`)

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "task", Value: row.Task},
		{Name: "provider", Value: row.Provider},
		{Name: "model_name", Value: row.ModelName},
		{Name: "attempt", Value: row.Attempt},
		{Name: "input_text", Value: row.InputText},
		{Name: "raw_text", Value: row.RawText},
		{Name: "valid", Value: row.Valid},
		{Name: "error_message", Value: row.ErrorMessage},
		{Name: "tokens_input", Value: row.TokensInput},
		{Name: "tokens_output", Value: row.TokensOutput},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("InsertModelOutput: running insert query: %w", err)
	}
	if err := waitJob(ctx, job); err != nil {
		return fmt.Errorf("InsertModelOutput: %w", err)
	}
	return nil
}
