package assistant

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/statement"
)

// Layout locates the data the assistant may read.
type Layout struct {
	PLDir       string
	BSDir       string
	ConfigDir   string
	UploadedDir string
}

// Files lists the data files available to generated code.
type Files struct {
	PL       []string `json:"pl"`
	BS       []string `json:"bs"`
	Masters  []string `json:"masters"`
	Uploaded []string `json:"uploaded"`
}

// ListAvailableFiles scans the layout. Missing directories yield empty lists.
func ListAvailableFiles(l Layout) (Files, error) {
	var f Files
	var err error

	if f.PL, err = listStatements(l.PLDir, statement.KindPL); err != nil {
		return Files{}, err
	}
	if f.BS, err = listStatements(l.BSDir, statement.KindBS); err != nil {
		return Files{}, err
	}

	f.Masters = []string{}
	if dirExists(l.ConfigDir) {
		for _, kind := range []statement.Kind{statement.KindPL, statement.KindBS} {
			if _, err := os.Stat(master.Path(l.ConfigDir, kind)); err == nil {
				f.Masters = append(f.Masters, filepath.Base(master.Path(l.ConfigDir, kind)))
			}
		}
	}

	f.Uploaded = []string{}
	if dirExists(l.UploadedDir) {
		entries, err := os.ReadDir(l.UploadedDir)
		if err != nil {
			return Files{}, fmt.Errorf("read %s: %w", l.UploadedDir, err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() {
				f.Uploaded = append(f.Uploaded, e.Name())
			}
		}
		sort.Strings(f.Uploaded)
	}

	return f, nil
}

func listStatements(dir string, kind statement.Kind) ([]string, error) {
	years, err := statement.Discover(dir, kind)
	if errors.Is(err, statement.ErrDirectoryNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(years))
	for _, y := range years {
		out = append(out, kind.Filename(y))
	}
	return out, nil
}

func dirExists(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
