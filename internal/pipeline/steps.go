package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/bigquery"
	"github.com/dvloznov/statement-trends/internal/gcs"
	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/present"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PipelineStep represents a single step in the publish pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Kind  statement.Kind
	Years []string

	Table    *statement.Table
	Warnings []statement.Warning
	Master   *master.Master
	Unmapped []int

	PublishRunID string
	Rows         []*bigquery.StatementRow

	Comparison []aggregate.Row
	TargetName string
	SnapshotID string
	ExportURI  string
}

// Step 1: LoadStatementsStep loads the table and keeps only the requested years.
type LoadStatementsStep struct {
	Source StatementSource
}

func (s *LoadStatementsStep) Execute(ctx context.Context, state *PipelineState) error {
	res, err := s.Source.Load(ctx)
	if err != nil {
		return err
	}
	state.Warnings = res.Warnings

	if len(state.Years) == 0 {
		state.Years = res.Years
		state.Table = res.Table
		return nil
	}

	available := make(map[string]bool, len(res.Years))
	for _, y := range res.Years {
		available[y] = true
	}
	wanted := make(map[string]bool, len(state.Years))
	for _, y := range state.Years {
		if !available[y] {
			return fmt.Errorf("year %s has no %s data", y, state.Kind)
		}
		wanted[y] = true
	}

	filtered := &statement.Table{Kind: res.Table.Kind}
	for _, r := range res.Table.Rows {
		if wanted[r.Year] {
			filtered.Rows = append(filtered.Rows, r)
		}
	}
	state.Table = filtered
	return nil
}

// Step 2: LoadMasterStep attaches the account master when one exists.
type LoadMasterStep struct {
	Masters MasterSource
}

func (s *LoadMasterStep) Execute(ctx context.Context, state *PipelineState) error {
	m, err := s.Masters.Get(state.Kind)
	if err != nil {
		return err
	}
	state.Master = m
	return nil
}

// Step 3: ValidateMasterStep records codes the master does not classify.
// Strict validation fails the run instead.
type ValidateMasterStep struct {
	Strict bool
	Log    zerolog.Logger
}

func (s *ValidateMasterStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Master == nil {
		s.Log.Info().Str("kind", string(state.Kind)).Msg("No account master; publishing without classification")
		return nil
	}

	v := NewMasterValidator(state.Master)
	state.Unmapped = v.Unmapped(state.Table)
	if len(state.Unmapped) == 0 {
		return nil
	}
	if s.Strict {
		return v.Validate(state.Table)
	}
	s.Log.Warn().Ints("codes", state.Unmapped).Msg("Accounts missing from master")
	return nil
}

// Step 4: StartPublishRunStep starts a publish run (status=RUNNING).
type StartPublishRunStep struct {
	Repo bigquery.PublishRepository
}

func (s *StartPublishRunStep) Execute(ctx context.Context, state *PipelineState) error {
	id, err := s.Repo.StartPublishRun(ctx, string(state.Kind), state.Years)
	if err != nil {
		return err
	}
	state.PublishRunID = id
	return nil
}

// Step 5: TransformRowsStep converts the table into warehouse rows.
type TransformRowsStep struct {
	Repo bigquery.PublishRepository
	Now  func() time.Time
}

func (s *TransformRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	rows, err := transformTableToStatementRows(state.PublishRunID, state.Table, state.Master, s.Now())
	if err != nil {
		s.Repo.MarkPublishRunFailed(ctx, state.PublishRunID, err)
		return err
	}
	state.Rows = rows
	return nil
}

// Step 6: InsertRowsStep inserts rows into statement_rows.
type InsertRowsStep struct {
	Repo bigquery.PublishRepository
}

func (s *InsertRowsStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Repo.InsertStatementRows(ctx, state.Rows); err != nil {
		s.Repo.MarkPublishRunFailed(ctx, state.PublishRunID, err)
		return err
	}
	return nil
}

// Step 7: MarkSuccessStep marks the run as SUCCESS and supersedes older runs.
type MarkSuccessStep struct {
	Repo bigquery.PublishRepository
}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := s.Repo.MarkPublishRunSucceeded(ctx, state.PublishRunID, len(state.Rows)); err != nil {
		return err
	}
	return s.Repo.MarkPublishRunsAsSuperseded(ctx, string(state.Kind), state.PublishRunID)
}

// CompareStep builds the comparison of Target across the published years.
type CompareStep struct {
	Target aggregate.Target
}

func (s *CompareStep) Execute(ctx context.Context, state *PipelineState) error {
	rows, err := aggregate.Compare(state.Table, state.Master, s.Target, state.Years)
	if err != nil {
		return err
	}
	state.Comparison = rows
	state.TargetName = aggregate.TargetName(state.Master, state.Table, s.Target)
	return nil
}

// SnapshotComparisonStep saves the comparison to comparison_snapshots.
type SnapshotComparisonStep struct {
	Repo   bigquery.PublishRepository
	Target aggregate.Target
	Now    func() time.Time
}

func (s *SnapshotComparisonStep) Execute(ctx context.Context, state *PipelineState) error {
	state.SnapshotID = uuid.NewString()
	rows := transformComparisonToRows(state.SnapshotID, state.Kind, s.Target, state.TargetName, state.Comparison, s.Now())
	return s.Repo.InsertComparisonRows(ctx, rows)
}

// UploadExportStep renders the comparison and uploads it to the bucket.
type UploadExportStep struct {
	Storage StorageService
	Bucket  string
	Prefix  string
	Format  present.Format
}

func (s *UploadExportStep) Execute(ctx context.Context, state *PipelineState) error {
	var buf bytes.Buffer
	if err := present.Export(&buf, s.Format, state.Comparison, present.DefaultSheetName); err != nil {
		return err
	}

	object := gcs.ObjectName(s.Prefix, string(state.Kind)+"/"+present.DownloadFilename(state.TargetName, s.Format))
	if err := s.Storage.UploadBytes(ctx, s.Bucket, object, buf.Bytes(), s.Format.ContentType()); err != nil {
		return err
	}
	state.ExportURI = gcs.URI(s.Bucket, object)
	return nil
}
