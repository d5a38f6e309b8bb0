package notionsync

import (
	"strings"
	"time"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/jomei/notionapi"
)

// Notion database property names.
const (
	PropKey     = "Key"
	PropName    = "Name"
	PropKind    = "Kind"
	PropYear    = "Year"
	PropTotal   = "Total"
	PropYoY     = "YoY"
	PropUpdated = "Updated"
)

// PageKey identifies the page of one comparison year, e.g. "pl|category:収益|R6".
func PageKey(kind statement.Kind, target aggregate.Target, year string) string {
	return keyPrefix(kind, target) + year
}

func keyPrefix(kind statement.Kind, target aggregate.Target) string {
	return string(kind) + "|" + target.String() + "|"
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

// ComparisonRowToNotionProperties converts one comparison year to Notion
// properties. Each fiscal month gets a number property named after it.
func ComparisonRowToNotionProperties(
	kind statement.Kind,
	target aggregate.Target,
	targetName string,
	row aggregate.Row,
	updated time.Time,
) notionapi.Properties {
	props := notionapi.Properties{
		PropKey: notionapi.TitleProperty{
			Title: richText(PageKey(kind, target, row.Year)),
		},
		PropName: notionapi.RichTextProperty{
			RichText: richText(targetName),
		},
		PropKind: notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: kind.Label(),
			},
		},
		PropYear: notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: row.Year,
			},
		},
		PropTotal: notionapi.NumberProperty{
			Number: row.Total.InexactFloat64(),
		},
		PropUpdated: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(updated)
					return &d
				}(),
			},
		},
	}

	for i, month := range statement.Months {
		props[month] = notionapi.NumberProperty{
			Number: row.Monthly[i].InexactFloat64(),
		}
	}

	// YoY is left empty for the first year and zero previous totals
	if row.YoY != nil {
		props[PropYoY] = notionapi.NumberProperty{
			Number: *row.YoY,
		}
	}

	return props
}

// extractKey extracts the page key from a Notion page's title property.
// Returns empty string if not found.
func extractKey(page notionapi.Page) string {
	prop, ok := page.Properties[PropKey]
	if !ok {
		return ""
	}
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		return plainText(p.Title)
	case notionapi.TitleProperty:
		return plainText(p.Title)
	}
	return ""
}

func plainText(rt []notionapi.RichText) string {
	var b strings.Builder
	for _, t := range rt {
		switch {
		case t.PlainText != "":
			b.WriteString(t.PlainText)
		case t.Text != nil:
			b.WriteString(t.Text.Content)
		}
	}
	return b.String()
}
