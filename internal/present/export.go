package present

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/tealeg/xlsx"
)

// DefaultSheetName is used when WriteXLSX is given an empty name.
const DefaultSheetName = "月次推移"

const (
	maxSheetName   = 31
	maxColumnWidth = 20

	amountFormat = "#,##0"
	yoyFormat    = `0.0"%"`

	headerFill    = "FFC6E0B4"
	increaseColor = "FF00B050"
	decreaseColor = "FFFF0000"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the comparison as UTF-8 CSV with a BOM so spreadsheet
// applications detect the encoding. A nil YoY is an empty cell.
func WriteCSV(w io.Writer, rows []aggregate.Row) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Headers()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := make([]string, 0, 15)
		rec = append(rec, r.Year)
		for _, v := range r.Monthly {
			rec = append(rec, v.String())
		}
		rec = append(rec, r.Total.String())
		if r.YoY != nil {
			rec = append(rec, strconv.FormatFloat(*r.YoY, 'f', -1, 64))
		} else {
			rec = append(rec, "")
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s: %w", r.Year, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellStyle(bold bool, fontColor string, header bool) *xlsx.Style {
	s := xlsx.NewStyle()
	s.Border = *xlsx.NewBorder("thin", "thin", "thin", "thin")
	s.ApplyBorder = true

	s.Font.Size = 11
	s.Font.Name = "Calibri"
	s.Font.Bold = bold
	if fontColor != "" {
		s.Font.Color = fontColor
	}
	s.ApplyFont = true

	if header {
		s.Fill = *xlsx.NewFill("solid", headerFill, headerFill)
		s.ApplyFill = true
		s.Alignment.Horizontal = "center"
	} else {
		s.Alignment.Horizontal = "right"
	}
	s.Alignment.Vertical = "center"
	s.ApplyAlignment = true
	return s
}

// WriteXLSX writes the comparison as a formatted workbook: styled header,
// thousands-separated amounts, colored YoY and a bold totals column.
func WriteXLSX(w io.Writer, rows []aggregate.Row, sheetName string) error {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if utf8.RuneCountInString(sheetName) > maxSheetName {
		sheetName = string([]rune(sheetName)[:maxSheetName])
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	headers := Headers()
	totalCol := len(headers) - 2
	yoyCol := len(headers) - 1
	widths := make([]int, len(headers))

	track := func(col int, text string) {
		if n := utf8.RuneCountInString(text); n > widths[col] {
			widths[col] = n
		}
	}

	hr := sheet.AddRow()
	for i, h := range headers {
		c := hr.AddCell()
		c.SetString(h)
		c.SetStyle(cellStyle(true, "", true))
		track(i, h)
	}

	for _, r := range rows {
		xr := sheet.AddRow()

		c := xr.AddCell()
		c.SetString(r.Year)
		c.SetStyle(cellStyle(false, "", false))
		track(0, r.Year)

		for i, v := range r.Monthly {
			c := xr.AddCell()
			c.SetFloatWithFormat(v.InexactFloat64(), amountFormat)
			c.SetStyle(cellStyle(false, "", false))
			track(i+1, v.String())
		}

		c = xr.AddCell()
		c.SetFloatWithFormat(r.Total.InexactFloat64(), amountFormat)
		c.SetStyle(cellStyle(true, "", false))
		track(totalCol, r.Total.String())

		c = xr.AddCell()
		if r.YoY == nil {
			c.SetString("")
			c.SetStyle(cellStyle(false, "", false))
			continue
		}
		color := ""
		switch {
		case *r.YoY > 0:
			color = increaseColor
		case *r.YoY < 0:
			color = decreaseColor
		}
		c.SetFloatWithFormat(*r.YoY, yoyFormat)
		c.SetStyle(cellStyle(false, color, false))
		track(yoyCol, strconv.FormatFloat(*r.YoY, 'f', -1, 64))
	}

	for i, n := range widths {
		width := n + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := sheet.SetColWidth(i, i, float64(width)); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Export writes rows in the requested format.
func Export(w io.Writer, format Format, rows []aggregate.Row, sheetName string) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, rows, sheetName)
	case FormatCSV:
		return WriteCSV(w, rows)
	default:
		return fmt.Errorf("unknown export format: %q", format)
	}
}
