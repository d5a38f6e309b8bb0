package bigquery

import (
	"errors"
	"strings"
	"testing"
)

func TestQualifiedTable(t *testing.T) {
	got := qualifiedTable("proj", "trends", statementRowsTable)
	if got != "`proj.trends.statement_rows`" {
		t.Errorf("qualifiedTable() = %s", got)
	}
}

func TestTruncateError(t *testing.T) {
	if got := truncateError(nil); got != "" {
		t.Errorf("truncateError(nil) = %q", got)
	}
	if got := truncateError(errors.New("boom")); got != "boom" {
		t.Errorf("truncateError() = %q", got)
	}
	long := errors.New(strings.Repeat("x", maxErrorMessageLen+10))
	if got := truncateError(long); len(got) != maxErrorMessageLen {
		t.Errorf("truncateError() length = %d, want %d", len(got), maxErrorMessageLen)
	}
}
