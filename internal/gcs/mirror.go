package gcs

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/rs/zerolog"
)

// Filter decides whether an object's base name should be mirrored.
type Filter func(name string) bool

// StatementFilter keeps yearly extracts of kind.
func StatementFilter(kind statement.Kind) Filter {
	return func(name string) bool {
		_, ok := statement.YearFromFilename(name, kind)
		return ok
	}
}

// MasterFilter keeps the account master files of both statement kinds.
func MasterFilter() Filter {
	pl := filepath.Base(master.Path("", statement.KindPL))
	bs := filepath.Base(master.Path("", statement.KindBS))
	return func(name string) bool {
		return name == pl || name == bs
	}
}

// MirrorResult lists the files written by Mirror.
type MirrorResult struct {
	Files   []string `json:"files"`
	Skipped []string `json:"skipped,omitempty"`
}

// Mirror downloads every object under prefix accepted by keep into dir,
// overwriting local copies. Objects in nested "folders" are ignored.
func Mirror(ctx context.Context, svc StorageService, bucketName, prefix, dir string, keep Filter, log zerolog.Logger) (*MirrorResult, error) {
	names, err := svc.ListObjects(ctx, bucketName, prefix)
	if err != nil {
		return nil, fmt.Errorf("list gs://%s/%s: %w", bucketName, prefix, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	res := &MirrorResult{Files: []string{}}
	for _, name := range names {
		base := path.Base(name)
		if path.Dir(name) != path.Dir(ObjectName(prefix, base)) || !keep(base) {
			res.Skipped = append(res.Skipped, name)
			continue
		}

		data, err := svc.FetchFromGCS(ctx, URI(bucketName, name))
		if err != nil {
			return res, err
		}
		dst := filepath.Join(dir, base)
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", dst, err)
		}
		log.Debug().Str("object", name).Str("file", dst).Int("bytes", len(data)).Msg("Mirrored object")
		res.Files = append(res.Files, base)
	}

	log.Info().
		Str("bucket", bucketName).
		Str("prefix", prefix).
		Int("files", len(res.Files)).
		Int("skipped", len(res.Skipped)).
		Msg("Mirror complete")
	return res, nil
}
