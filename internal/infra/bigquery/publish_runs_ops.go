package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	bq "github.com/dvloznov/statement-trends/internal/bigquery"
	"github.com/dvloznov/statement-trends/internal/logger"
	"github.com/google/uuid"
)

const maxErrorMessageLen = 2000

// StartPublishRun inserts a new publish_runs row with status=RUNNING
// and returns the generated publish_run_id.
func (r *BigQueryPublishRepository) StartPublishRun(ctx context.Context, kind string, years []string) (string, error) {
	publishRunID := uuid.NewString()
	if years == nil {
		years = []string{}
	}

	err := r.runQuery(ctx, fmt.Sprintf(`
		INSERT %s (
			publish_run_id,
			kind,
			years,
			started_ts,
			status
		)
		VALUES (
			@publish_run_id,
			@kind,
			@years,
			@started_ts,
			@status
		)
	`, r.table(publishRunsTable)), []bigquery.QueryParameter{
		{Name: "publish_run_id", Value: publishRunID},
		{Name: "kind", Value: kind},
		{Name: "years", Value: years},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: bq.RunStatusRunning},
	})
	if err != nil {
		return "", fmt.Errorf("StartPublishRun: %w", err)
	}
	return publishRunID, nil
}

// MarkPublishRunFailed sets status=FAILED, finished_ts and error_message.
// Failures are logged rather than returned so callers can keep the original error.
func (r *BigQueryPublishRepository) MarkPublishRunFailed(ctx context.Context, publishRunID string, publishErr error) {
	log := logger.FromContext(ctx)

	err := r.runQuery(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE publish_run_id = @publish_run_id
	`, r.table(publishRunsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateError(publishErr)},
		{Name: "publish_run_id", Value: publishRunID},
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("publish_run_id", publishRunID).
			Msg("MarkPublishRunFailed: update failed")
	}
}

// MarkPublishRunSucceeded sets status=SUCCESS, finished_ts and row_count, clears error_message.
func (r *BigQueryPublishRepository) MarkPublishRunSucceeded(ctx context.Context, publishRunID string, rowCount int) error {
	err := r.runQuery(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    row_count = @row_count,
		    error_message = ""
		WHERE publish_run_id = @publish_run_id
	`, r.table(publishRunsTable)), []bigquery.QueryParameter{
		{Name: "status", Value: bq.RunStatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "row_count", Value: rowCount},
		{Name: "publish_run_id", Value: publishRunID},
	})
	if err != nil {
		return fmt.Errorf("MarkPublishRunSucceeded: %w", err)
	}
	return nil
}

// MarkPublishRunsAsSuperseded marks every earlier successful run of kind as SUPERSEDED.
func (r *BigQueryPublishRepository) MarkPublishRunsAsSuperseded(ctx context.Context, kind, currentRunID string) error {
	err := r.runQuery(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = @superseded
		WHERE kind = @kind
		  AND status = @success
		  AND publish_run_id != @current_run_id
	`, r.table(publishRunsTable)), []bigquery.QueryParameter{
		{Name: "superseded", Value: bq.RunStatusSuperseded},
		{Name: "kind", Value: kind},
		{Name: "success", Value: bq.RunStatusSuccess},
		{Name: "current_run_id", Value: currentRunID},
	})
	if err != nil {
		return fmt.Errorf("MarkPublishRunsAsSuperseded: %w", err)
	}
	return nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
