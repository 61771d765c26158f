package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/fintrack-ai/internal/store"
)

type ModelOutputRow struct {
	OutputID string `bigquery:"output_id"` // REQUIRED
	Task     string `bigquery:"task"`      // REQUIRED
	Provider string `bigquery:"provider"`  // REQUIRED

	ModelName string `bigquery:"model_name"` // REQUIRED
	Attempt   int64  `bigquery:"attempt"`    // REQUIRED

	InputText string `bigquery:"input_text"` // NULLABLE
	RawText   string `bigquery:"raw_text"`   // REQUIRED

	Valid        bool                `bigquery:"valid"`
	ErrorMessage bigquery.NullString `bigquery:"error_message"` // NULLABLE

	TokensInput  int64 `bigquery:"tokens_input"`
	TokensOutput int64 `bigquery:"tokens_output"`

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

func toModelOutputRow(out *store.ModelOutput) *ModelOutputRow {
	return &ModelOutputRow{
		OutputID:     out.ID,
		Task:         out.Task,
		Provider:     out.Provider,
		ModelName:    out.Model,
		Attempt:      int64(out.Attempt),
		InputText:    out.Input,
		RawText:      out.RawText,
		Valid:        out.Valid,
		ErrorMessage: nullString(out.Error),
		TokensInput:  int64(out.InputTokens),
		TokensOutput: int64(out.OutputTokens),
		CreatedTS:    out.CreatedAt,
	}
}
