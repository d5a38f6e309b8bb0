package statement

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dvloznov/statement-trends/internal/fiscal"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many yearly files are parsed at once.
const DefaultConcurrency = 4

// Discover lists the fiscal years that have an extract of kind in dir.
// A missing directory is ErrDirectoryNotFound; a directory without
// matching files yields an empty list.
func Discover(dir string, kind Kind) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrDirectoryNotFound, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	years := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if year, ok := YearFromFilename(e.Name(), kind); ok {
			years = append(years, year)
		}
	}
	return fiscal.Sort(years), nil
}

// YearFromFilename extracts the year label from "{year}_monthly.csv" (P/L)
// or "{year}_monthly_bs.csv" (B/S).
func YearFromFilename(name string, kind Kind) (string, bool) {
	suffix := kind.FileSuffix()
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}
	year := strings.TrimSuffix(name, suffix)
	if year == "" || strings.Contains(year, "_") {
		return "", false
	}
	return year, true
}

// Loader reads every yearly extract of one kind from a directory.
type Loader struct {
	Dir         string
	Kind        Kind
	CodeRanges  CodeRanges
	Concurrency int
	Log         zerolog.Logger
}

// NewLoader creates a loader. Balance sheet loaders default to DefaultBSCodeRanges.
func NewLoader(dir string, kind Kind, log zerolog.Logger) *Loader {
	l := &Loader{
		Dir:         dir,
		Kind:        kind,
		Concurrency: DefaultConcurrency,
		Log:         log,
	}
	if kind == KindBS {
		l.CodeRanges = DefaultBSCodeRanges
	}
	return l
}

type fileResult struct {
	rows    []Row
	warning *Warning
}

// Load parses every yearly file and returns the combined, ordered table.
// Files missing required columns are skipped and reported as warnings.
// It always reads from disk; use Cache for reuse across requests.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	years, err := Discover(l.Dir, l.Kind)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", ErrNoLoadableFiles, l.Kind.FileSuffix(), l.Dir)
	}

	results := make([]fileResult, len(years))

	g, gctx := errgroup.WithContext(ctx)
	limit := l.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g.SetLimit(limit)

	for i, year := range years {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.loadYear(year)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &LoadResult{Table: &Table{Kind: l.Kind}}
	for i, fr := range results {
		if fr.warning != nil {
			res.Warnings = append(res.Warnings, *fr.warning)
			l.Log.Warn().
				Str("kind", string(l.Kind)).
				Str("year", fr.warning.Year).
				Str("file", fr.warning.File).
				Strs("missing", fr.warning.Missing).
				Msg(fr.warning.Message)
			continue
		}
		res.Years = append(res.Years, years[i])
		res.Table.Rows = append(res.Table.Rows, fr.rows...)
	}

	if len(res.Years) == 0 {
		return nil, fmt.Errorf("%w: %d %s files in %s, none parsed", ErrNoLoadableFiles, len(years), l.Kind, l.Dir)
	}

	sortRows(res.Table.Rows)

	l.Log.Debug().
		Str("kind", string(l.Kind)).
		Int("years", len(res.Years)).
		Int("rows", len(res.Table.Rows)).
		Int("skipped", len(res.Warnings)).
		Msg("Statements loaded")

	return res, nil
}

func (l *Loader) loadYear(year string) fileResult {
	path := filepath.Join(l.Dir, l.Kind.Filename(year))

	f, err := os.Open(path)
	if err != nil {
		return fileResult{warning: &Warning{Year: year, File: path, Message: fmt.Sprintf("open failed: %v", err)}}
	}
	defer f.Close()

	rows, err := Parse(f, ParseOptions{Kind: l.Kind, Year: year, CodeRanges: l.CodeRanges})
	if err != nil {
		w := &Warning{Year: year, File: path, Message: err.Error()}
		var mce *MissingColumnsError
		if errors.As(err, &mce) {
			w.Message = "missing required columns"
			if mce.Detail != "" {
				w.Message += " (" + mce.Detail + ")"
			}
			w.Missing = mce.Missing
		}
		return fileResult{warning: w}
	}

	return fileResult{rows: rows}
}
