package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService is the subset of the Notion API used to publish comparisons.
type NotionService interface {
	// CreateComparisonPage adds a page to the database.
	CreateComparisonPage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)

	// UpdateComparisonPage overwrites a page's properties.
	UpdateComparisonPage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryPagesByKeyPrefix returns every page whose Key starts with prefix.
	QueryPagesByKeyPrefix(ctx context.Context, databaseID, prefix string) ([]notionapi.Page, error)

	// ArchivePage archives a page.
	ArchivePage(ctx context.Context, pageID string) error
}

var _ NotionService = (*NotionClient)(nil)
