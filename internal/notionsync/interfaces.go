package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService is the subset of the Notion API the exporter needs.
type NotionService interface {
	// AddPage creates a page in the database and returns its ID.
	AddPage(ctx context.Context, databaseID string, properties notionapi.Properties) (string, error)

	// ListPages returns one page of database rows starting at cursor. An empty
	// next cursor means there is nothing left.
	ListPages(ctx context.Context, databaseID string, cursor notionapi.Cursor) (pages []notionapi.Page, next notionapi.Cursor, err error)

	ArchivePage(ctx context.Context, pageID string) error
}
