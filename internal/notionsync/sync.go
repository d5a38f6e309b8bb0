package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/logger"
	"github.com/dvloznov/statement-trends/internal/statement"
)

// Comparison is one target's comparison to publish.
type Comparison struct {
	Kind       statement.Kind
	Target     aggregate.Target
	TargetName string
	Rows       []aggregate.Row
}

// SyncOptions tune PublishComparison.
type SyncOptions struct {
	// DryRun logs the changes without calling the API.
	DryRun bool

	// Prune archives pages of the same target whose year is no longer in the comparison.
	Prune bool

	// Now stamps the Updated property; defaults to time.Now.
	Now func() time.Time
}

// SyncResult counts the pages touched by a sync.
type SyncResult struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
}

// PublishComparison writes one Notion page per comparison year. Pages are
// matched by their Key title, so running it again updates in place.
func PublishComparison(ctx context.Context, notionClient NotionService, notionDBID string, c Comparison, opts SyncOptions) (*SyncResult, error) {
	log := logger.FromContext(ctx)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	log.Info().
		Str("kind", string(c.Kind)).
		Str("target", c.Target.String()).
		Int("years", len(c.Rows)).
		Bool("dry_run", opts.DryRun).
		Msg("Starting comparison sync to Notion")

	notionPages, err := notionClient.QueryPagesByKeyPrefix(ctx, notionDBID, keyPrefix(c.Kind, c.Target))
	if err != nil {
		return nil, fmt.Errorf("failed to query Notion pages: %w", err)
	}

	existing := make(map[string]string, len(notionPages))
	for _, page := range notionPages {
		existing[extractKey(page)] = string(page.ID)
	}

	res := &SyncResult{}
	current := make(map[string]bool, len(c.Rows))
	stamp := now()

	for _, row := range c.Rows {
		key := PageKey(c.Kind, c.Target, row.Year)
		current[key] = true
		pageID, found := existing[key]

		if opts.DryRun {
			if found {
				log.Info().Str("key", key).Str("page_id", pageID).Msg("[DRY RUN] Would update existing Notion page")
				res.Updated++
			} else {
				log.Info().Str("key", key).Msg("[DRY RUN] Would create new Notion page")
				res.Created++
			}
			continue
		}

		props := ComparisonRowToNotionProperties(c.Kind, c.Target, c.TargetName, row, stamp)

		if found {
			if _, err := notionClient.UpdateComparisonPage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("key", key).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			log.Debug().Str("key", key).Str("page_id", pageID).Msg("Updated Notion page")
			res.Updated++
			continue
		}

		page, err := notionClient.CreateComparisonPage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("key", key).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	if opts.Prune {
		for key, pageID := range existing {
			if current[key] {
				continue
			}
			if opts.DryRun {
				log.Info().Str("key", key).Str("page_id", pageID).Msg("[DRY RUN] Would archive stale Notion page")
				res.Archived++
				continue
			}
			if err := notionClient.ArchivePage(ctx, pageID); err != nil {
				log.Warn().Err(err).Str("key", key).Str("page_id", pageID).Msg("Failed to archive stale Notion page")
				res.Failed++
				continue
			}
			res.Archived++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("archived", res.Archived).
		Int("failed", res.Failed).
		Msg("Comparison sync completed")

	if res.Failed > 0 {
		return res, fmt.Errorf("%d Notion pages failed to sync", res.Failed)
	}
	return res, nil
}
