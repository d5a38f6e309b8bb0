package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/statement-trends/internal/bigquery"
	"google.golang.org/api/iterator"
)

// insertBatchSize keeps streaming inserts under the request size limit.
const insertBatchSize = 500

// InsertStatementRows streams rows into statement_rows in batches.
func (r *BigQueryPublishRepository) InsertStatementRows(ctx context.Context, rows []*bq.StatementRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(statementRowsTable).Inserter()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))
		if err := inserter.Put(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("InsertStatementRows: inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// InsertComparisonRows streams a comparison snapshot into comparison_snapshots.
func (r *BigQueryPublishRepository) InsertComparisonRows(ctx context.Context, rows []*bq.ComparisonRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := r.client.DatasetInProject(r.projectID, r.datasetID).Table(comparisonsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertComparisonRows: inserting rows: %w", err)
	}
	return nil
}

// QueryAnnualTotals reads the annual totals of one account from the latest
// successful publish run of kind, ordered by fiscal year.
func (r *BigQueryPublishRepository) QueryAnnualTotals(ctx context.Context, kind string, accountCode int) ([]*bq.AnnualTotalRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			s.year,
			s.total
		FROM %s s
		INNER JOIN %s pr
		  ON s.publish_run_id = pr.publish_run_id
		WHERE s.kind = @kind
		  AND s.account_code = @account_code
		  AND pr.status = @status
		ORDER BY s.year_order
	`, r.table(statementRowsTable), r.table(publishRunsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "kind", Value: kind},
		{Name: "account_code", Value: accountCode},
		{Name: "status", Value: bq.RunStatusSuccess},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryAnnualTotals: query read: %w", err)
	}

	var rows []*bq.AnnualTotalRow
	for {
		var row bq.AnnualTotalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryAnnualTotals: iter next: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
