package notionsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
)

// queryPageSize is the largest page size the Notion API accepts.
const queryPageSize = 100

// NotionClient implements NotionService on top of the Notion SDK.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a client authenticated with an integration token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		client: notionapi.NewClient(notionapi.Token(token)),
	}
}

// CreateComparisonPage adds a comparison page to the database.
func (n *NotionClient) CreateComparisonPage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}

	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreateComparisonPage: %w", err)
	}
	return page, nil
}

// UpdateComparisonPage overwrites the properties of an existing comparison page.
func (n *NotionClient) UpdateComparisonPage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateComparisonPage: %w", err)
	}
	return page, nil
}

// QueryPagesByKeyPrefix returns every page whose Key title starts with prefix.
func (n *NotionClient) QueryPagesByKeyPrefix(ctx context.Context, databaseID, prefix string) ([]notionapi.Page, error) {
	pages, err := collectPagesByKeyPrefix(ctx, prefix, func(ctx context.Context, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
		return n.client.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	})
	if err != nil {
		return nil, fmt.Errorf("QueryPagesByKeyPrefix: %w", err)
	}
	return pages, nil
}

// ArchivePage archives a page; Notion keeps it in the trash.
func (n *NotionClient) ArchivePage(ctx context.Context, pageID string) error {
	_, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Archived: true,
	})
	if err != nil {
		return fmt.Errorf("ArchivePage: %w", err)
	}
	return nil
}

type queryFunc func(ctx context.Context, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)

// collectPagesByKeyPrefix follows the cursor of a Key-filtered query. The
// prefix is re-checked locally because the API filter is case-insensitive.
func collectPagesByKeyPrefix(ctx context.Context, prefix string, query queryFunc) ([]notionapi.Page, error) {
	var pages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			Filter: &notionapi.PropertyFilter{
				Property: PropKey,
				RichText: &notionapi.TextFilterCondition{StartsWith: prefix},
			},
			PageSize: queryPageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := query(ctx, req)
		if err != nil {
			return nil, err
		}

		for _, page := range resp.Results {
			if strings.HasPrefix(extractKey(page), prefix) {
				pages = append(pages, page)
			}
		}

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return pages, nil
}
