package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/audit"
	"github.com/dvloznov/statement-trends/internal/fiscal"
	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/present"
	"github.com/dvloznov/statement-trends/internal/statement"
)

// load reads every yearly file of kind and its optional master.
func (e *env) load(kindFlag string) (*statement.LoadResult, *master.Master) {
	kind, err := statement.ParseKind(kindFlag)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Invalid -kind")
	}

	loaders, err := e.cfg.Loaders(e.log)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to create loader")
	}

	res, err := loaders[kind].Load(e.ctx)
	if err != nil {
		e.log.Fatal().Err(err).Str("kind", string(kind)).Msg("Failed to load statements")
	}

	m, err := e.cfg.Masters(e.log).Get(kind)
	if err != nil {
		e.log.Fatal().Err(err).Str("kind", string(kind)).Msg("Failed to load account master")
	}
	return res, m
}

// comparisonFlags are shared by compare, export, notion and publish.
type comparisonFlags struct {
	kind   *string
	target *string
	years  *string
}

func addComparisonFlags(fs *flag.FlagSet) comparisonFlags {
	return comparisonFlags{
		kind:   fs.String("kind", "pl", "Statement kind: pl or bs"),
		target: fs.String("target", "", "Target: account code, account:410, category:収益 or subcategory:売上"),
		years:  fs.String("years", "", "Comma separated years, e.g. R5,R6 (default: the two most recent)"),
	}
}

// comparisonResult is a computed comparison ready to print or publish.
type comparisonResult struct {
	kind   statement.Kind
	target aggregate.Target
	name   string
	years  []string
	rows   []aggregate.Row
}

func (e *env) compare(f comparisonFlags) *comparisonResult {
	if *f.target == "" {
		e.log.Fatal().Msg("Error: -target is required")
	}
	target, err := aggregate.ParseTarget(*f.target)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Invalid -target")
	}

	res, m := e.load(*f.kind)

	years := fiscal.SplitList(*f.years)
	if len(years) == 0 {
		years = fiscal.DefaultSelection(res.Years)
	}
	if err := fiscal.ValidateSelection(years, res.Years); err != nil {
		e.log.Fatal().Err(err).Strs("available", res.Years).Msg("Invalid -years")
	}

	rows, err := aggregate.Compare(res.Table, m, target, years)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Comparison failed")
	}

	return &comparisonResult{
		kind:   res.Table.Kind,
		target: target,
		name:   aggregate.TargetName(m, res.Table, target),
		years:  years,
		rows:   rows,
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func runYears(args []string) {
	fs := flag.NewFlagSet("years", flag.ExitOnError)
	kind := fs.String("kind", "pl", "Statement kind: pl or bs")
	e := setup(fs, args)

	res, _ := e.load(*kind)
	for _, w := range res.Warnings {
		e.log.Warn().Str("year", w.Year).Str("file", w.File).Strs("missing", w.Missing).Msg(w.Message)
	}

	fmt.Printf("Available: %v\n", res.Years)
	fmt.Printf("Default:   %v\n", fiscal.DefaultSelection(res.Years))
}

func runAccounts(args []string) {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	kind := fs.String("kind", "pl", "Statement kind: pl or bs")
	asJSON := fs.Bool("json", false, "Print JSON")
	e := setup(fs, args)

	res, m := e.load(*kind)
	options := aggregate.Options(m, res.Table)

	if *asJSON {
		printJSON(options)
		return
	}
	if m == nil {
		fmt.Println("(no account master - listing accounts found in the statements)")
	}
	for _, o := range options {
		fmt.Printf("%-28s %s\n", o.Value, o.Display)
	}
}

func runCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	f := addComparisonFlags(fs)
	asJSON := fs.Bool("json", false, "Print JSON")
	e := setup(fs, args)

	c := e.compare(f)
	summary := aggregate.Summarize(c.rows, c.years)

	if *asJSON {
		printJSON(map[string]interface{}{
			"name":    c.name,
			"years":   c.years,
			"rows":    c.rows,
			"summary": summary,
			"chart":   present.BuildChart(c.name, c.rows),
		})
		return
	}

	fmt.Println(present.ChartTitle(c.name))
	if len(c.rows) == 0 {
		fmt.Println("No data for the selected years.")
		return
	}
	fmt.Println(present.RenderTable(c.rows))

	if summary.LatestTotal != nil {
		fmt.Printf("%s 合計: %s\n", summary.LatestYear, present.FormatCurrency(*summary.LatestTotal))
	}
	if summary.PrevTotal != nil {
		fmt.Printf("%s 合計: %s\n", summary.PrevYear, present.FormatCurrency(*summary.PrevTotal))
	}
	if summary.LatestYoY != nil {
		fmt.Printf("前年比: %s\n", present.FormatPercentage(summary.LatestYoY))
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	f := addComparisonFlags(fs)
	formatFlag := fs.String("format", "xlsx", "Export format: csv or xlsx")
	outDir := fs.String("out", ".", "Output directory")
	e := setup(fs, args)

	format, err := present.ParseFormat(*formatFlag)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Invalid -format")
	}

	c := e.compare(f)
	path := filepath.Join(*outDir, present.DownloadFilename(c.name, format))

	if err := writeExport(path, format, c.rows); err != nil {
		e.log.Fatal().Err(err).Str("path", path).Msg("Export failed")
	}

	fmt.Printf("Wrote %s (%d years)\n", path, len(c.rows))
}

// writeExport renders rows in memory and writes them to path. No file is
// left behind when rendering or writing fails.
func writeExport(path string, format present.Format, rows []aggregate.Row) error {
	var buf bytes.Buffer
	if err := present.Export(&buf, format, rows, present.DefaultSheetName); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func runAudit(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	kind := fs.String("kind", "pl", "Statement kind: pl or bs")
	distance := fs.Int("distance", 2, "Maximum edit distance for similar account names")
	e := setup(fs, args)

	res, m := e.load(*kind)
	printJSON(audit.Run(res.Table, m, *distance))
}
