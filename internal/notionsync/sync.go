// Package notionsync exports stored transactions to a Notion database.
package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/fintrack-ai/internal/logger"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// Options controls one export run.
type Options struct {
	Filter store.Filter
	// Prune archives pages whose transaction no longer exists in the store.
	Prune  bool
	DryRun bool
}

// Result counts what a run did (or would do, in dry-run mode).
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// SyncTransactions creates a Notion page for every stored transaction that
// does not have one yet. Pages are matched by their Transaction ID property,
// so repeated runs never duplicate a transaction. Failures on single pages
// are counted and logged; the run carries on.
func SyncTransactions(ctx context.Context, repo store.Repository, notionClient NotionService, notionDBID string, opts Options) (*Result, error) {
	log := logger.Component(logger.FromContext(ctx), "notionsync")
	log.Info().Bool("dry_run", opts.DryRun).Bool("prune", opts.Prune).Msg("Starting transaction sync to Notion")

	transactions, err := repo.ListTransactions(ctx, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("SyncTransactions: list transactions: %w", err)
	}

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return nil, fmt.Errorf("SyncTransactions: %w", err)
	}
	log.Info().Int("transaction_count", len(transactions)).Int("notion_page_count", len(pages)).
		Msg("Loaded transactions and existing pages")

	existing := make(map[string]bool, len(pages))
	for _, page := range pages {
		if id := extractTransactionID(page); id != "" {
			existing[id] = true
		}
	}

	res := &Result{}

	if opts.Prune {
		// The filter narrows what gets exported, not what counts as stale.
		all, err := repo.ListTransactions(ctx, store.Filter{})
		if err != nil {
			return nil, fmt.Errorf("SyncTransactions: list all transactions: %w", err)
		}
		valid := make(map[string]bool, len(all))
		for _, tx := range all {
			valid[tx.ID] = true
		}
		for _, page := range pages {
			txID := extractTransactionID(page)
			if txID != "" && valid[txID] {
				continue
			}
			pageID := string(page.ID)
			if opts.DryRun {
				log.Info().Str("transaction_id", txID).Str("page_id", pageID).Msg("[DRY RUN] Would delete stale Notion page")
				res.Deleted++
				continue
			}
			if err := notionClient.ArchivePage(ctx, pageID); err != nil {
				log.Warn().Err(err).Str("page_id", pageID).Msg("Failed to delete stale Notion page")
				res.Failed++
				continue
			}
			res.Deleted++
		}
	}

	for _, tx := range transactions {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if existing[tx.ID] {
			res.Skipped++
			continue
		}
		if opts.DryRun {
			log.Info().Str("transaction_id", tx.ID).Msg("[DRY RUN] Would create new Notion page")
			res.Created++
			continue
		}

		pageID, err := notionClient.AddPage(ctx, notionDBID, TransactionToNotionProperties(tx, tx.DateRef()))
		if err != nil {
			log.Warn().Err(err).Str("transaction_id", tx.ID).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("transaction_id", tx.ID).Str("page_id", pageID).Msg("Created Notion page")
		existing[tx.ID] = true
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("skipped", res.Skipped).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Msg("Transaction sync completed")
	return res, nil
}

// queryAllNotionPages pages through the whole database.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		pages, next, err := notionClient.ListPages(ctx, databaseID, cursor)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}
		allPages = append(allPages, pages...)

		if next == "" {
			return allPages, nil
		}
		cursor = next
	}
}
