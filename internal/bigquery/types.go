package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// Publish run statuses.
const (
	RunStatusRunning    = "RUNNING"
	RunStatusSuccess    = "SUCCESS"
	RunStatusFailed     = "FAILED"
	RunStatusSuperseded = "SUPERSEDED"
)

// PublishRepository provides an interface for warehouse publishing operations.
type PublishRepository interface {
	// StartPublishRun inserts a new publish run with status=RUNNING and returns the publish_run_id.
	StartPublishRun(ctx context.Context, kind string, years []string) (string, error)

	// MarkPublishRunFailed sets status=FAILED, finished_ts and error_message for a publish run.
	MarkPublishRunFailed(ctx context.Context, publishRunID string, publishErr error)

	// MarkPublishRunSucceeded sets status=SUCCESS, finished_ts and row_count for a publish run.
	MarkPublishRunSucceeded(ctx context.Context, publishRunID string, rowCount int) error

	// MarkPublishRunsAsSuperseded marks earlier successful runs of kind as SUPERSEDED.
	MarkPublishRunsAsSuperseded(ctx context.Context, kind, currentRunID string) error

	// InsertStatementRows inserts a batch of StatementRow into the database.
	InsertStatementRows(ctx context.Context, rows []*StatementRow) error

	// InsertComparisonRows inserts a comparison snapshot.
	InsertComparisonRows(ctx context.Context, rows []*ComparisonRow) error

	// QueryAnnualTotals returns the published annual totals of one account,
	// reading only the latest successful run of kind.
	QueryAnnualTotals(ctx context.Context, kind string, accountCode int) ([]*AnnualTotalRow, error)
}

// PublishRunRow represents one publish of a statement kind.
type PublishRunRow struct {
	PublishRunID string `bigquery:"publish_run_id"`
	Kind         string `bigquery:"kind"`

	Years []string `bigquery:"years"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	Status       string             `bigquery:"status"`
	ErrorMessage string             `bigquery:"error_message"`
	RowCount     bigquery.NullInt64 `bigquery:"row_count"`
}

// StatementRow represents one account-year of a statement in BigQuery.
// Monthly holds twelve amounts in fiscal order (April first).
type StatementRow struct {
	RowID        string `bigquery:"row_id"`
	PublishRunID string `bigquery:"publish_run_id"`

	Kind        string     `bigquery:"kind"`
	Year        string     `bigquery:"year"`
	YearOrder   int64      `bigquery:"year_order"`
	FiscalStart civil.Date `bigquery:"fiscal_start"`

	AccountCode int64  `bigquery:"account_code"`
	AccountName string `bigquery:"account_name"`

	Category    bigquery.NullString `bigquery:"category"`
	Subcategory bigquery.NullString `bigquery:"subcategory"`
	FixedCost   bigquery.NullString `bigquery:"fixed_cost"`

	Monthly []*big.Rat `bigquery:"monthly"`
	Total   *big.Rat   `bigquery:"total"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// ComparisonRow represents one year of a saved comparison.
type ComparisonRow struct {
	SnapshotID string `bigquery:"snapshot_id"`

	Kind       string `bigquery:"kind"`
	Target     string `bigquery:"target"`
	TargetName string `bigquery:"target_name"`

	Year    string     `bigquery:"year"`
	Monthly []*big.Rat `bigquery:"monthly"`
	Total   *big.Rat   `bigquery:"total"`

	YoY bigquery.NullFloat64 `bigquery:"yoy"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// AnnualTotalRow is one year of QueryAnnualTotals.
type AnnualTotalRow struct {
	Year  string   `bigquery:"year"`
	Total *big.Rat `bigquery:"total"`
}
