package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/store"
	"github.com/dvloznov/fintrack-ai/internal/store/memory"
)

type fakeNotion struct {
	pages    []notionapi.Page
	created  []notionapi.Properties
	deleted  []string
	failFor  string
	pageSize int
}

func (f *fakeNotion) AddPage(_ context.Context, _ string, props notionapi.Properties) (string, error) {
	if tp, ok := props[PropTransactionID].(notionapi.RichTextProperty); ok && plainText(tp.RichText) == f.failFor {
		return "", errors.New("rate limited")
	}
	f.created = append(f.created, props)
	return "page-new", nil
}

func (f *fakeNotion) ListPages(_ context.Context, _ string, cursor notionapi.Cursor) ([]notionapi.Page, notionapi.Cursor, error) {
	size := f.pageSize
	if size == 0 {
		size = len(f.pages)
	}
	start := 0
	if cursor != "" {
		for i, p := range f.pages {
			if notionapi.Cursor(p.ID) == cursor {
				start = i
			}
		}
	}
	end := start + size
	if end >= len(f.pages) {
		return f.pages[start:], "", nil
	}
	return f.pages[start:end], notionapi.Cursor(f.pages[end].ID), nil
}

func (f *fakeNotion) ArchivePage(_ context.Context, pageID string) error {
	f.deleted = append(f.deleted, pageID)
	return nil
}

func pageFor(pageID, txID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			PropTransactionID: &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: txID}}},
		},
	}
}

func TestTransactionToNotionProperties(t *testing.T) {
	rec := store.TransactionRecord{
		ID:         "tx-1",
		DocumentID: "doc-1",
		Transaction: domain.Transaction{
			Date: "2025-03-04", Description: "STARBUCKS #12", Amount: -4.1, Type: domain.TypeExpense,
			Category: "Food", Merchant: "Starbucks", AccountName: "Checking", PotentialTransfer: true,
		},
	}
	props := TransactionToNotionProperties(rec, time.Now())

	title, ok := props[PropDescription].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "STARBUCKS #12", title.Title[0].Text.Content)
	assert.Equal(t, -4.1, props[PropAmount].(notionapi.NumberProperty).Number)
	assert.Equal(t, "Food", props[PropCategory].(notionapi.SelectProperty).Select.Name)
	assert.True(t, props[PropPotentialTransfer].(notionapi.CheckboxProperty).Checkbox)

	date := props[PropDate].(notionapi.DateProperty)
	assert.Equal(t, "2025-03-04", time.Time(*date.Date.Start).Format("2006-01-02"))

	rec.Date = "sometime"
	rec.Category = ""
	props = TransactionToNotionProperties(rec, time.Now())
	assert.NotContains(t, props, PropDate)
	assert.NotContains(t, props, PropCategory)
}

func TestSyncTransactions_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	recs, err := repo.InsertTransactions(ctx, "doc", []domain.Transaction{
		{Date: "2025-03-01", Description: "A", Amount: -1, Type: domain.TypeExpense, Category: "Food", Merchant: "A", AccountName: "X"},
		{Date: "2025-03-02", Description: "B", Amount: -2, Type: domain.TypeExpense, Category: "Food", Merchant: "B", AccountName: "X"},
		{Date: "2025-03-03", Description: "C", Amount: -3, Type: domain.TypeExpense, Category: "Food", Merchant: "C", AccountName: "X"},
	})
	require.NoError(t, err)

	notion := &fakeNotion{
		pages:    []notionapi.Page{pageFor("p1", recs[0].ID), pageFor("p2", "gone"), pageFor("p3", "")},
		pageSize: 1,
		failFor:  recs[2].ID,
	}

	res, err := SyncTransactions(ctx, repo, notion, "db", Options{Prune: true})
	require.NoError(t, err)
	assert.Equal(t, &Result{Created: 1, Skipped: 1, Deleted: 2, Failed: 1}, res)
	assert.ElementsMatch(t, []string{"p2", "p3"}, notion.deleted)
	require.Len(t, notion.created, 1)
}

func TestSyncTransactions_DryRun(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	_, err := repo.InsertTransactions(ctx, "doc", []domain.Transaction{
		{Date: "2025-03-01", Description: "A", Amount: -1, Type: domain.TypeExpense, Category: "Food", Merchant: "A", AccountName: "X"},
	})
	require.NoError(t, err)

	notion := &fakeNotion{pages: []notionapi.Page{pageFor("p9", "stale")}}
	res, err := SyncTransactions(ctx, repo, notion, "db", Options{Prune: true, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Deleted)
	assert.Empty(t, notion.created)
	assert.Empty(t, notion.deleted)
}

func TestSyncTransactions_PruneIgnoresExportFilter(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	recs, err := repo.InsertTransactions(ctx, "doc", []domain.Transaction{
		{Date: "2025-03-01", Description: "UBER TRIP", Amount: -12, Type: domain.TypeExpense, Category: "Transport", Merchant: "Uber", AccountName: "X"},
		{Date: "2025-03-02", Description: "STARBUCKS #12", Amount: -4, Type: domain.TypeExpense, Category: "Food", Merchant: "Starbucks", AccountName: "X"},
	})
	require.NoError(t, err)

	notion := &fakeNotion{pages: []notionapi.Page{
		pageFor("p-uber", recs[0].ID),
		pageFor("p-starbucks", recs[1].ID),
		pageFor("p-stale", "gone"),
	}}

	res, err := SyncTransactions(ctx, repo, notion, "db", Options{Filter: store.Filter{Vendor: "starbucks"}, Prune: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-stale"}, notion.deleted)
	assert.Equal(t, &Result{Skipped: 1, Deleted: 1}, res)
}
