package pipeline

import (
	"fmt"
	"math/big"
	"time"

	bigquerylib "cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/bigquery"
	"github.com/dvloznov/statement-trends/internal/fiscal"
	"github.com/dvloznov/statement-trends/internal/master"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// transformTableToStatementRows converts a loaded table into warehouse rows.
// Master classification is attached when m is non-nil and knows the code.
func transformTableToStatementRows(
	publishRunID string,
	table *statement.Table,
	m *master.Master,
	now time.Time,
) ([]*bigquery.StatementRow, error) {
	if table == nil {
		return nil, fmt.Errorf("transformTableToStatementRows: nil table")
	}

	out := make([]*bigquery.StatementRow, 0, len(table.Rows))
	for i, r := range table.Rows {
		y, err := fiscal.Parse(r.Year)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		row := &bigquery.StatementRow{
			RowID:        uuid.NewString(),
			PublishRunID: publishRunID,
			Kind:         string(table.Kind),
			Year:         r.Year,
			YearOrder:    int64(y.Ordinal()),
			FiscalStart:  civil.Date{Year: y.Gregorian(), Month: time.April, Day: 1},
			AccountCode:  int64(r.Code),
			AccountName:  r.Name,
			Monthly:      monthlyToRats(r.Monthly),
			Total:        r.Total.Rat(),
			CreatedTS:    now,
		}
		if m != nil {
			if e, ok := m.Lookup(r.Code); ok {
				row.Category = nullString(e.Category)
				row.Subcategory = nullString(e.Subcategory)
				row.FixedCost = nullString(e.FixedCost)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// transformComparisonToRows converts a comparison into a snapshot sharing one id.
func transformComparisonToRows(
	snapshotID string,
	kind statement.Kind,
	target aggregate.Target,
	targetName string,
	rows []aggregate.Row,
	now time.Time,
) []*bigquery.ComparisonRow {
	out := make([]*bigquery.ComparisonRow, 0, len(rows))
	for _, r := range rows {
		row := &bigquery.ComparisonRow{
			SnapshotID: snapshotID,
			Kind:       string(kind),
			Target:     target.String(),
			TargetName: targetName,
			Year:       r.Year,
			Monthly:    monthlyToRats(r.Monthly),
			Total:      r.Total.Rat(),
			CreatedTS:  now,
		}
		if r.YoY != nil {
			row.YoY = bigquerylib.NullFloat64{Float64: *r.YoY, Valid: true}
		}
		out = append(out, row)
	}
	return out
}

func monthlyToRats(monthly [12]decimal.Decimal) []*big.Rat {
	out := make([]*big.Rat, len(monthly))
	for i, v := range monthly {
		out[i] = v.Rat()
	}
	return out
}

func nullString(s string) bigquerylib.NullString {
	return bigquerylib.NullString{StringVal: s, Valid: s != ""}
}
