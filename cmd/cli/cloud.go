package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/fiscal"
	"github.com/dvloznov/statement-trends/internal/gcs"
	"github.com/dvloznov/statement-trends/internal/gcsuploader"
	infraBQ "github.com/dvloznov/statement-trends/internal/infra/bigquery"
	"github.com/dvloznov/statement-trends/internal/logger"
	"github.com/dvloznov/statement-trends/internal/notionsync"
	"github.com/dvloznov/statement-trends/internal/pipeline"
	"github.com/dvloznov/statement-trends/internal/present"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/shopspring/decimal"
)

func (e *env) bucket(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if e.cfg.GCS.Bucket == "" {
		e.log.Fatal().Msg("Error: -bucket or gcs.bucket is required")
	}
	return e.cfg.GCS.Bucket
}

func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	what := fs.String("kind", "pl", "What to mirror: pl, bs or master")
	bucketName := fs.String("bucket", "", "GCS bucket name (default gcs.bucket)")
	prefix := fs.String("prefix", "", "Object prefix to list")
	e := setup(fs, args)

	var (
		dir  string
		keep gcs.Filter
	)
	switch *what {
	case "master":
		dir, keep = e.cfg.Data.ConfigDir, gcs.MasterFilter()
	default:
		kind, err := statement.ParseKind(*what)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Invalid -kind")
		}
		dir = e.cfg.Data.PLDir
		if kind == statement.KindBS {
			dir = e.cfg.Data.BSDir
		}
		keep = gcs.StatementFilter(kind)
	}

	svc, err := gcsuploader.NewGCSStorageService(e.ctx)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer svc.Close()

	res, err := gcs.Mirror(e.ctx, svc, e.bucket(*bucketName), *prefix, dir, keep, logger.WithComponent(e.log, "mirror"))
	if err != nil {
		e.log.Fatal().Err(err).Msg("Mirror failed")
	}

	fmt.Printf("Mirrored %d files into %s\n", len(res.Files), dir)
	for _, f := range res.Files {
		fmt.Printf("  %s\n", f)
	}
}

func runUpload(args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "GCS bucket name (default gcs.bucket)")
	prefix := fs.String("prefix", "", "Object prefix")
	objectName := fs.String("object", "", "GCS object name (defaults to prefix + filename)")
	filePath := fs.String("file", "", "Path to local file")
	e := setup(fs, args)

	if *filePath == "" {
		e.log.Fatal().Msg("Usage: cli upload -file PATH [-bucket NAME] [-prefix P] [-object NAME]")
	}
	if *objectName == "" {
		*objectName = gcs.ObjectName(*prefix, filepath.Base(*filePath))
	}
	bucket := e.bucket(*bucketName)

	svc, err := gcsuploader.NewGCSStorageService(e.ctx)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer svc.Close()

	e.log.Info().
		Str("bucket", bucket).
		Str("object", *objectName).
		Str("file", *filePath).
		Msg("Uploading file to GCS")

	if err := svc.UploadFile(e.ctx, bucket, *objectName, *filePath); err != nil {
		e.log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, gcs.URI(bucket, *objectName))
}

func runPublish(args []string) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	kindFlag := fs.String("kind", "pl", "Statement kind: pl or bs")
	yearsFlag := fs.String("years", "", "Comma separated years to publish (default: all)")
	targetFlag := fs.String("target", "", "Also snapshot this comparison target")
	strict := fs.Bool("strict", false, "Fail when accounts are missing from the master")
	bucketName := fs.String("bucket", "", "Upload the comparison export to this bucket (default gcs.bucket)")
	prefix := fs.String("prefix", pipeline.DefaultExportPrefix, "Object prefix for exports")
	formatFlag := fs.String("format", string(pipeline.DefaultExportFormat), "Export format: csv or xlsx")
	e := setup(fs, args)

	kind, err := statement.ParseKind(*kindFlag)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Invalid -kind")
	}
	if e.cfg.GCP.Project == "" {
		e.log.Fatal().Msg("Error: gcp.project is required")
	}

	ctx, cancel := context.WithTimeout(e.ctx, 10*time.Minute)
	defer cancel()

	repo, err := infraBQ.NewBigQueryPublishRepository(ctx, e.cfg.GCP.Project, e.cfg.GCP.Dataset)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	loaders, err := e.cfg.Loaders(e.log)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to create loader")
	}

	deps := pipeline.Deps{
		Statements: loaders[kind],
		Masters:    e.cfg.Masters(e.log),
		Repo:       repo,
		Log:        logger.WithComponent(e.log, "publish"),
	}
	opts := pipeline.Options{StrictMaster: *strict}

	if *targetFlag != "" {
		target, err := aggregate.ParseTarget(*targetFlag)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Invalid -target")
		}
		format, err := present.ParseFormat(*formatFlag)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Invalid -format")
		}
		opts.Target = &target
		opts.ExportPrefix = *prefix
		opts.ExportFormat = format

		if *bucketName != "" || e.cfg.GCS.Bucket != "" {
			svc, err := gcsuploader.NewGCSStorageService(ctx)
			if err != nil {
				e.log.Fatal().Err(err).Msg("Failed to create storage client")
			}
			defer svc.Close()
			deps.Storage = svc
			opts.Bucket = e.bucket(*bucketName)
		}
	}

	state, err := pipeline.PublishStatements(ctx, deps, opts, kind, fiscal.SplitList(*yearsFlag))
	if err != nil {
		e.log.Fatal().Err(err).Msg("Publish failed")
	}

	fmt.Printf("Published %d rows for %v (run %s)\n", len(state.Rows), state.Years, state.PublishRunID)
	if len(state.Unmapped) > 0 {
		fmt.Printf("Accounts missing from the master: %v\n", state.Unmapped)
	}
	if state.SnapshotID != "" {
		fmt.Printf("Snapshot %s: %s (%d years)\n", state.SnapshotID, state.TargetName, len(state.Comparison))
	}
	if state.ExportURI != "" {
		fmt.Printf("Export uploaded to %s\n", state.ExportURI)
	}
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	kindFlag := fs.String("kind", "pl", "Statement kind (pl or bs)")
	code := fs.Int("code", 0, "Account code")
	e := setup(fs, args)

	kind, err := statement.ParseKind(*kindFlag)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Invalid -kind")
	}
	if *code == 0 {
		e.log.Fatal().Msg("Error: -code is required")
	}
	if e.cfg.GCP.Project == "" {
		e.log.Fatal().Msg("Error: gcp.project is required")
	}

	ctx, cancel := context.WithTimeout(e.ctx, 2*time.Minute)
	defer cancel()

	repo, err := infraBQ.NewBigQueryPublishRepository(ctx, e.cfg.GCP.Project, e.cfg.GCP.Dataset)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
	}
	defer repo.Close()

	rows, err := repo.QueryAnnualTotals(ctx, string(kind), *code)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to query annual totals")
	}
	if len(rows) == 0 {
		fmt.Printf("No published rows for %s account %d\n", kind, *code)
		return
	}
	for _, r := range rows {
		total := decimal.Zero
		if r.Total != nil {
			total = decimal.NewFromBigRat(r.Total, 0)
		}
		fmt.Printf("%-4s %s\n", r.Year, present.FormatCurrency(total))
	}
}

func runNotion(args []string) {
	fs := flag.NewFlagSet("notion", flag.ExitOnError)
	f := addComparisonFlags(fs)
	prune := fs.Bool("prune", false, "Archive pages of this target for years no longer compared")
	dryRun := fs.Bool("dry-run", false, "Log changes without calling the Notion API")
	e := setup(fs, args)

	if e.cfg.Notion.Token == "" || e.cfg.Notion.DatabaseID == "" {
		e.log.Fatal().Msg("Error: notion.token and notion.database_id are required")
	}

	c := e.compare(f)
	client := notionsync.NewNotionClient(e.cfg.Notion.Token)

	res, err := notionsync.PublishComparison(e.ctx, client, e.cfg.Notion.DatabaseID, notionsync.Comparison{
		Kind:       c.kind,
		Target:     c.target,
		TargetName: c.name,
		Rows:       c.rows,
	}, notionsync.SyncOptions{DryRun: *dryRun, Prune: *prune})
	if err != nil {
		e.log.Fatal().Err(err).Msg("Notion sync failed")
	}

	fmt.Printf("Notion: %d created, %d updated, %d archived\n", res.Created, res.Updated, res.Archived)
}
