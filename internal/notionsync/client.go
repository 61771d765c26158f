package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// queryPageSize is the largest page the Notion query endpoint returns.
const queryPageSize = 100

// NotionClient talks to Notion through the jomei/notionapi SDK.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a client authenticated with an integration token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{client: notionapi.NewClient(notionapi.Token(token))}
}

func (n *NotionClient) AddPage(ctx context.Context, databaseID string, properties notionapi.Properties) (string, error) {
	page, err := n.client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return "", fmt.Errorf("AddPage: database %s: %w", databaseID, err)
	}
	return string(page.ID), nil
}

func (n *NotionClient) ListPages(ctx context.Context, databaseID string, cursor notionapi.Cursor) ([]notionapi.Page, notionapi.Cursor, error) {
	resp, err := n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
		StartCursor: cursor,
		PageSize:    queryPageSize,
	})
	if err != nil {
		return nil, "", fmt.Errorf("ListPages: database %s: %w", databaseID, err)
	}
	if !resp.HasMore {
		return resp.Results, "", nil
	}
	return resp.Results, resp.NextCursor, nil
}

// ArchivePage moves a page to the trash; Notion has no hard delete.
func (n *NotionClient) ArchivePage(ctx context.Context, pageID string) error {
	if _, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Archived: true}); err != nil {
		return fmt.Errorf("ArchivePage: %s: %w", pageID, err)
	}
	return nil
}

var _ NotionService = (*NotionClient)(nil)
