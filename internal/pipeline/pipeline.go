package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/bigquery"
	"github.com/dvloznov/statement-trends/internal/present"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/rs/zerolog"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Deps are the collaborators of the publish pipeline. Storage is only
// needed when an export is uploaded.
type Deps struct {
	Statements StatementSource
	Masters    MasterSource
	Repo       bigquery.PublishRepository
	Storage    StorageService
	Log        zerolog.Logger
	Now        func() time.Time
}

// Options tune one publish.
type Options struct {
	// StrictMaster fails the run when accounts are missing from the master.
	StrictMaster bool

	// Target, when set, also snapshots its comparison and uploads an export
	// if Bucket is set.
	Target       *aggregate.Target
	Bucket       string
	ExportPrefix string
	ExportFormat present.Format
}

// NewStatementPublishPipeline builds the publish pipeline:
// load → master → validate → start run → transform → insert → mark success,
// followed by compare → snapshot → upload when a target is given.
func NewStatementPublishPipeline(deps Deps, opts Options) (*Pipeline, error) {
	if deps.Statements == nil || deps.Masters == nil || deps.Repo == nil {
		return nil, errors.New("statements, masters and repository are required")
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	steps := []PipelineStep{
		&LoadStatementsStep{Source: deps.Statements},
		&LoadMasterStep{Masters: deps.Masters},
		&ValidateMasterStep{Strict: opts.StrictMaster, Log: deps.Log},
		&StartPublishRunStep{Repo: deps.Repo},
		&TransformRowsStep{Repo: deps.Repo, Now: now},
		&InsertRowsStep{Repo: deps.Repo},
		&MarkSuccessStep{Repo: deps.Repo},
	}

	if opts.Target != nil {
		steps = append(steps,
			&CompareStep{Target: *opts.Target},
			&SnapshotComparisonStep{Repo: deps.Repo, Target: *opts.Target, Now: now},
		)
		if opts.Bucket != "" {
			if deps.Storage == nil {
				return nil, errors.New("storage is required to upload exports")
			}
			prefix := opts.ExportPrefix
			if prefix == "" {
				prefix = DefaultExportPrefix
			}
			format := opts.ExportFormat
			if format == "" {
				format = DefaultExportFormat
			}
			steps = append(steps, &UploadExportStep{
				Storage: deps.Storage,
				Bucket:  opts.Bucket,
				Prefix:  prefix,
				Format:  format,
			})
		}
	}

	return NewPipeline(steps...), nil
}

// PublishStatements publishes years of kind (all years when empty) to the warehouse.
func PublishStatements(ctx context.Context, deps Deps, opts Options, kind statement.Kind, years []string) (*PipelineState, error) {
	p, err := NewStatementPublishPipeline(deps, opts)
	if err != nil {
		return nil, err
	}

	state := &PipelineState{Kind: kind, Years: years}
	start := time.Now()
	if err := p.Execute(ctx, state); err != nil {
		deps.Log.Error().Err(err).Str("kind", string(kind)).Str("publish_run_id", state.PublishRunID).Msg("Publish failed")
		return state, err
	}

	deps.Log.Info().
		Str("kind", string(kind)).
		Str("publish_run_id", state.PublishRunID).
		Int("rows", len(state.Rows)).
		Strs("years", state.Years).
		Str("export_uri", state.ExportURI).
		Dur("elapsed", time.Since(start)).
		Msg("Publish complete")
	return state, nil
}
