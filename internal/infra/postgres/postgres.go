// Package postgres implements store.Repository on PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// schema is applied in order by EnsureSchema. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id                 UUID PRIMARY KEY,
		document_id        TEXT,
		raw_date           TEXT NOT NULL,
		transaction_date   DATE,
		description        TEXT NOT NULL,
		amount             NUMERIC(14,2) NOT NULL,
		type               TEXT NOT NULL,
		category           TEXT NOT NULL DEFAULT '',
		merchant           TEXT NOT NULL DEFAULT '',
		account_name       TEXT NOT NULL,
		is_transfer        BOOLEAN NOT NULL DEFAULT FALSE,
		potential_transfer BOOLEAN NOT NULL DEFAULT FALSE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (transaction_date)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions (LOWER(category))`,

	`CREATE TABLE IF NOT EXISTS budgets (
		category_key  TEXT PRIMARY KEY,
		category      TEXT NOT NULL,
		monthly_limit NUMERIC(14,2) NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS model_outputs (
		id            UUID PRIMARY KEY,
		task          TEXT NOT NULL,
		provider      TEXT NOT NULL,
		model_name    TEXT NOT NULL,
		attempt       INTEGER NOT NULL,
		input_text    TEXT,
		raw_text      TEXT NOT NULL,
		valid         BOOLEAN NOT NULL,
		error_message TEXT,
		tokens_input  INTEGER NOT NULL DEFAULT 0,
		tokens_output INTEGER NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

const transactionColumns = `id, document_id, raw_date, description, amount, type, category,
		merchant, account_name, is_transfer, potential_transfer, created_at`

// Repository is the PostgreSQL store.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to databaseURL, checks the connection and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("Open: opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: pinging database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("EnsureSchema: statement %d: %w", i+1, err)
		}
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *Repository) InsertTransactions(ctx context.Context, documentID string, txs []domain.Transaction) ([]store.TransactionRecord, error) {
	now := r.now().UTC()
	recs := store.NewRecords(documentID, txs, now)
	if len(recs) == 0 {
		return recs, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("InsertTransactions: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("transactions",
		"id", "document_id", "raw_date", "transaction_date", "description", "amount", "type",
		"category", "merchant", "account_name", "is_transfer", "potential_transfer", "created_at"))
	if err != nil {
		return nil, fmt.Errorf("InsertTransactions: prepare copy: %w", err)
	}

	for _, rec := range recs {
		var date sql.NullTime
		if d, ok := domain.ParseDate(rec.Date, now); ok {
			date = sql.NullTime{Time: d, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID, nullIfEmpty(rec.DocumentID), rec.Date, date, rec.Description,
			decimal.NewFromFloat(rec.Amount), rec.Type, rec.Category, rec.Merchant,
			rec.AccountName, rec.IsTransfer, rec.PotentialTransfer, rec.CreatedAt,
		); err != nil {
			stmt.Close()
			return nil, fmt.Errorf("InsertTransactions: copy row %s: %w", rec.ID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return nil, fmt.Errorf("InsertTransactions: flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return nil, fmt.Errorf("InsertTransactions: close copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("InsertTransactions: commit: %w", err)
	}
	return recs, nil
}

// listQuery builds the filtered SELECT with positional arguments.
func listQuery(f store.Filter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if !f.Start.IsZero() {
		where = append(where, "transaction_date >= "+arg(f.Start.Format("2006-01-02")))
	}
	if !f.End.IsZero() {
		where = append(where, "transaction_date <= "+arg(f.End.Format("2006-01-02")))
	}
	if f.Vendor != "" {
		where = append(where, vendorCondition(arg(f.Vendor)))
	}
	if f.Category != "" {
		where = append(where, "LOWER(TRIM(category)) = LOWER(TRIM("+arg(f.Category)+"))")
	}
	if f.TransfersOnly {
		where = append(where, "(is_transfer OR potential_transfer)")
	}

	q := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at, transaction_date"
	return q, args
}

func vendorCondition(placeholder string) string {
	return "(STRPOS(LOWER(merchant), LOWER(" + placeholder + ")) > 0 OR STRPOS(LOWER(description), LOWER(" + placeholder + ")) > 0)"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(s rowScanner) (store.TransactionRecord, error) {
	var (
		rec    store.TransactionRecord
		docID  sql.NullString
		amount decimal.Decimal
	)
	err := s.Scan(&rec.ID, &docID, &rec.Date, &rec.Description, &amount, &rec.Type, &rec.Category,
		&rec.Merchant, &rec.AccountName, &rec.IsTransfer, &rec.PotentialTransfer, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	rec.DocumentID = docID.String
	rec.Amount = amount.InexactFloat64()
	return rec, nil
}

func (r *Repository) ListTransactions(ctx context.Context, f store.Filter) ([]store.TransactionRecord, error) {
	q, args := listQuery(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	recs := []store.TransactionRecord{}
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: rows: %w", err)
	}
	return recs, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (*store.TransactionRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id)
	rec, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return &rec, nil
}

// updateQuery builds the UPDATE for a patch. ok is false for an empty patch.
func updateQuery(id string, patch store.TransactionPatch) (string, []interface{}, bool) {
	if patch.IsEmpty() {
		return "", nil, false
	}
	args := []interface{}{id}
	sets := []string{"updated_at = NOW()"}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Merchant != nil {
		set("merchant", *patch.Merchant)
	}
	if patch.IsTransfer != nil {
		set("is_transfer", *patch.IsTransfer)
	}
	return "UPDATE transactions SET " + strings.Join(sets, ", ") + " WHERE id = $1", args, true
}

func (r *Repository) UpdateTransaction(ctx context.Context, id string, patch store.TransactionPatch) (*store.TransactionRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}
	if q, args, ok := updateQuery(id, patch); ok {
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("UpdateTransaction: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, store.ErrNotFound
		}
	}
	return r.GetTransaction(ctx, id)
}

func (r *Repository) UpdateCategoryByVendor(ctx context.Context, vendor, category string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET category = $2, updated_at = NOW() WHERE "+vendorCondition("$1"),
		vendor, category)
	if err != nil {
		return 0, fmt.Errorf("UpdateCategoryByVendor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("UpdateCategoryByVendor: rows affected: %w", err)
	}
	return int(n), nil
}

func (r *Repository) DeleteAllTransactions(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions")
	if err != nil {
		return 0, fmt.Errorf("DeleteAllTransactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("DeleteAllTransactions: rows affected: %w", err)
	}
	return int(n), nil
}

func (r *Repository) UpsertBudget(ctx context.Context, b domain.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (category_key, category, monthly_limit, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (category_key)
		DO UPDATE SET category = EXCLUDED.category, monthly_limit = EXCLUDED.monthly_limit, updated_at = NOW()`,
		strings.ToLower(strings.TrimSpace(b.Category)), b.Category, decimal.NewFromFloat(b.MonthlyLimit))
	if err != nil {
		return fmt.Errorf("UpsertBudget: %w", err)
	}
	return nil
}

func (r *Repository) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT category, monthly_limit FROM budgets ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: query: %w", err)
	}
	defer rows.Close()

	budgets := []domain.Budget{}
	for rows.Next() {
		var (
			b     domain.Budget
			limit decimal.Decimal
		)
		if err := rows.Scan(&b.Category, &limit); err != nil {
			return nil, fmt.Errorf("ListBudgets: scan: %w", err)
		}
		b.MonthlyLimit = limit.InexactFloat64()
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListBudgets: rows: %w", err)
	}
	return budgets, nil
}

func (r *Repository) InsertModelOutput(ctx context.Context, out *store.ModelOutput) error {
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = r.now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO model_outputs (
			id, task, provider, model_name, attempt, input_text, raw_text,
			valid, error_message, tokens_input, tokens_output, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		out.ID, out.Task, out.Provider, out.Model, out.Attempt, out.Input, out.RawText,
		out.Valid, nullIfEmpty(out.Error), out.InputTokens, out.OutputTokens, out.CreatedAt)
	if err != nil {
		return fmt.Errorf("InsertModelOutput: %w", err)
	}
	return nil
}

var _ store.Repository = (*Repository)(nil)
