package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/present"
	"github.com/shopspring/decimal"
)

func exportRows() []aggregate.Row {
	return []aggregate.Row{
		{Year: "R5", Total: decimal.NewFromInt(1000)},
		{Year: "R6", Total: decimal.NewFromInt(1100)},
	}
}

func TestWriteExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), present.DownloadFilename("売上高", present.FormatCSV))

	if err := writeExport(path, present.FormatCSV, exportRows()); err != nil {
		t.Fatalf("writeExport() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(got, []byte("\xef\xbb\xbf")) {
		t.Errorf("CSV export missing UTF-8 BOM: %q", got[:min(len(got), 8)])
	}
}

func TestWriteExport_FailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		path   string
		format present.Format
	}{
		{name: "unknown format", path: filepath.Join(dir, "out.pdf"), format: present.Format("pdf")},
		{name: "missing directory", path: filepath.Join(dir, "missing", "out.csv"), format: present.FormatCSV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := writeExport(tt.path, tt.format, exportRows()); err == nil {
				t.Fatal("writeExport() expected error")
			}
			if _, err := os.Stat(tt.path); !os.IsNotExist(err) {
				t.Errorf("file %s left behind (stat error = %v)", tt.path, err)
			}
		})
	}
}
