package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/statement-trends/internal/bigquery"
)

// Re-export interface from shared package
type PublishRepository = bq.PublishRepository

const (
	publishRunsTable   = "publish_runs"
	statementRowsTable = "statement_rows"
	comparisonsTable   = "comparison_snapshots"
)

// BigQueryPublishRepository is the concrete implementation of PublishRepository
// that interacts with BigQuery. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQueryPublishRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewBigQueryPublishRepository creates a repository with a shared BigQuery client.
func NewBigQueryPublishRepository(ctx context.Context, projectID, datasetID string) (*BigQueryPublishRepository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewBigQueryPublishRepository: project ID is required")
	}
	if datasetID == "" {
		return nil, fmt.Errorf("NewBigQueryPublishRepository: dataset ID is required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryPublishRepository: creating client: %w", err)
	}
	return &BigQueryPublishRepository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *BigQueryPublishRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// qualifiedTable renders `project.dataset.table` for use in SQL.
func qualifiedTable(projectID, datasetID, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", projectID, datasetID, table)
}

func (r *BigQueryPublishRepository) table(name string) string {
	return qualifiedTable(r.projectID, r.datasetID, name)
}

// runQuery executes a DML statement and waits for it to finish.
func (r *BigQueryPublishRepository) runQuery(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := r.client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

var _ bq.PublishRepository = (*BigQueryPublishRepository)(nil)
