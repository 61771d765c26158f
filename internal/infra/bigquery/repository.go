package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// Repository implements store.Repository on a BigQuery dataset. It holds a
// shared client so operations do not open a connection each time.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	now       func() time.Time
}

// NewRepository creates a client for projectID and binds it to datasetID.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w", err)
	}
	return &Repository{client: client, projectID: projectID, datasetID: datasetID, now: time.Now}, nil
}

// Close closes the BigQuery client connection.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// table returns the fully qualified, quoted name of a table in the dataset.
func (r *Repository) table(name string) string {
	return qualified(r.projectID, r.datasetID, name)
}

func qualified(projectID, datasetID, name string) string {
	return "`" + projectID + "." + datasetID + "." + name + "`"
}

func (r *Repository) InsertTransactions(ctx context.Context, documentID string, txs []domain.Transaction) ([]store.TransactionRecord, error) {
	now := r.now().UTC()
	recs := store.NewRecords(documentID, txs, now)
	rows := make([]*TransactionRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, toTransactionRow(rec, now))
	}
	if err := InsertTransactionsWithClient(ctx, r.client, r.datasetID, rows); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *Repository) ListTransactions(ctx context.Context, f store.Filter) ([]store.TransactionRecord, error) {
	rows, err := ListTransactionsWithClient(ctx, r.client, r.table(transactionsTable), f)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	recs := make([]store.TransactionRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.toRecord())
	}
	return recs, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (*store.TransactionRecord, error) {
	row, err := GetTransactionWithClient(ctx, r.client, r.table(transactionsTable), id)
	if err != nil {
		return nil, err
	}
	rec := row.toRecord()
	return &rec, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, id string, patch store.TransactionPatch) (*store.TransactionRecord, error) {
	n, err := UpdateTransactionWithClient(ctx, r.client, r.table(transactionsTable), id, patch)
	if err != nil {
		return nil, err
	}
	if n == 0 && !patch.IsEmpty() {
		return nil, store.ErrNotFound
	}
	return r.GetTransaction(ctx, id)
}

func (r *Repository) UpdateCategoryByVendor(ctx context.Context, vendor, category string) (int, error) {
	n, err := UpdateCategoryByVendorWithClient(ctx, r.client, r.table(transactionsTable), vendor, category)
	return int(n), err
}

func (r *Repository) DeleteAllTransactions(ctx context.Context) (int, error) {
	n, err := DeleteAllTransactionsWithClient(ctx, r.client, r.table(transactionsTable))
	return int(n), err
}

func (r *Repository) UpsertBudget(ctx context.Context, b domain.Budget) error {
	return UpsertBudgetWithClient(ctx, r.client, r.table(budgetsTable), b)
}

func (r *Repository) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	return ListBudgetsWithClient(ctx, r.client, r.table(budgetsTable))
}

func (r *Repository) InsertModelOutput(ctx context.Context, out *store.ModelOutput) error {
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = r.now().UTC()
	}
	return InsertModelOutputWithClient(ctx, r.client, r.table(modelOutputsTable), toModelOutputRow(out))
}

var _ store.Repository = (*Repository)(nil)
