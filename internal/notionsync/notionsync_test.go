package notionsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/dvloznov/statement-trends/internal/aggregate"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/google/go-cmp/cmp"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// mockNotion is an in-memory database that serves pages two at a time
// and ignores the query filter.
type mockNotion struct {
	pages     map[string]string // page ID -> key
	props     map[string]notionapi.Properties
	archived  []string
	nextID    int
	queries   int
	filters   []notionapi.Filter
	createErr error
}

func newMockNotion(keys ...string) *mockNotion {
	m := &mockNotion{pages: map[string]string{}, props: map[string]notionapi.Properties{}}
	for _, k := range keys {
		m.nextID++
		m.pages["page-"+strconv.Itoa(m.nextID)] = k
	}
	return m
}

func (m *mockNotion) CreateComparisonPage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	id := "page-" + strconv.Itoa(m.nextID)
	title := properties[PropKey].(notionapi.TitleProperty)
	m.pages[id] = plainText(title.Title)
	m.props[id] = properties
	return &notionapi.Page{ID: notionapi.ObjectID(id)}, nil
}

func (m *mockNotion) UpdateComparisonPage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if _, ok := m.pages[pageID]; !ok {
		return nil, fmt.Errorf("page %s not found", pageID)
	}
	m.props[pageID] = properties
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *mockNotion) QueryPagesByKeyPrefix(ctx context.Context, databaseID, prefix string) ([]notionapi.Page, error) {
	return collectPagesByKeyPrefix(ctx, prefix, m.query)
}

func (m *mockNotion) query(ctx context.Context, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	m.queries++
	m.filters = append(m.filters, req.Filter)
	ids := make([]string, 0, len(m.pages))
	for id := range m.pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := 0
	if req.StartCursor != "" {
		start, _ = strconv.Atoi(string(req.StartCursor))
	}
	end := start + 2
	if end > len(ids) {
		end = len(ids)
	}

	resp := &notionapi.DatabaseQueryResponse{}
	for _, id := range ids[start:end] {
		resp.Results = append(resp.Results, notionapi.Page{
			ID: notionapi.ObjectID(id),
			Properties: notionapi.Properties{
				PropKey: &notionapi.TitleProperty{
					Title: []notionapi.RichText{{PlainText: m.pages[id]}},
				},
			},
		})
	}
	if end < len(ids) {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor(strconv.Itoa(end))
	}
	return resp, nil
}

func (m *mockNotion) ArchivePage(ctx context.Context, pageID string) error {
	delete(m.pages, pageID)
	m.archived = append(m.archived, pageID)
	return nil
}

func (m *mockNotion) keys() []string {
	var out []string
	for _, k := range m.pages {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func comparison() Comparison {
	yoy := 10.0
	return Comparison{
		Kind:       statement.KindPL,
		Target:     aggregate.CategoryFilter("収益"),
		TargetName: "大分類：収益（合算）",
		Rows: []aggregate.Row{
			{Year: "R5", Total: decimal.NewFromInt(1000)},
			{Year: "R6", Total: decimal.NewFromInt(1100), YoY: &yoy},
		},
	}
}

func TestPageKey(t *testing.T) {
	got := PageKey(statement.KindBS, aggregate.SingleAccount(111), "R6")
	if got != "bs|account:111|R6" {
		t.Errorf("PageKey() = %q", got)
	}
}

func TestComparisonRowToNotionProperties(t *testing.T) {
	yoy := -5.5
	row := aggregate.Row{Year: "R6", Total: decimal.RequireFromString("1234.5"), YoY: &yoy}
	row.Monthly[0] = decimal.NewFromInt(100)
	row.Monthly[11] = decimal.NewFromInt(-20)

	props := ComparisonRowToNotionProperties(statement.KindPL, aggregate.SingleAccount(411), "売上高", row, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	title := props[PropKey].(notionapi.TitleProperty)
	if got := plainText(title.Title); got != "pl|account:411|R6" {
		t.Errorf("Key = %q", got)
	}
	if got := props[PropKind].(notionapi.SelectProperty).Select.Name; got != "損益計算書" {
		t.Errorf("Kind = %q", got)
	}
	if got := props[PropTotal].(notionapi.NumberProperty).Number; got != 1234.5 {
		t.Errorf("Total = %v", got)
	}
	if got := props[PropYoY].(notionapi.NumberProperty).Number; got != -5.5 {
		t.Errorf("YoY = %v", got)
	}
	if got := props["4月"].(notionapi.NumberProperty).Number; got != 100 {
		t.Errorf("4月 = %v", got)
	}
	if got := props["3月"].(notionapi.NumberProperty).Number; got != -20 {
		t.Errorf("3月 = %v", got)
	}

	row.YoY = nil
	props = ComparisonRowToNotionProperties(statement.KindPL, aggregate.SingleAccount(411), "売上高", row, time.Now())
	if _, ok := props[PropYoY]; ok {
		t.Error("YoY property set for a row without YoY")
	}
}

func TestPublishComparison_CreatesThenUpdates(t *testing.T) {
	svc := newMockNotion("bs|account:111|R6")
	c := comparison()

	res, err := PublishComparison(context.Background(), svc, "db", c, SyncOptions{})
	if err != nil {
		t.Fatalf("PublishComparison() error = %v", err)
	}
	if diff := cmp.Diff(&SyncResult{Created: 2}, res); diff != "" {
		t.Errorf("first sync mismatch (-want +got):\n%s", diff)
	}

	res, err = PublishComparison(context.Background(), svc, "db", c, SyncOptions{})
	if err != nil {
		t.Fatalf("PublishComparison() error = %v", err)
	}
	if diff := cmp.Diff(&SyncResult{Updated: 2}, res); diff != "" {
		t.Errorf("second sync mismatch (-want +got):\n%s", diff)
	}

	want := []string{"bs|account:111|R6", "pl|category:収益|R5", "pl|category:収益|R6"}
	if diff := cmp.Diff(want, svc.keys()); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishComparison_Prune(t *testing.T) {
	svc := newMockNotion("pl|category:収益|R3", "pl|category:収益|R4", "pl|category:収益|R5", "bs|account:111|R3")
	c := comparison()

	res, err := PublishComparison(context.Background(), svc, "db", c, SyncOptions{Prune: true})
	if err != nil {
		t.Fatalf("PublishComparison() error = %v", err)
	}
	if diff := cmp.Diff(&SyncResult{Created: 1, Updated: 1, Archived: 2}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if svc.queries < 2 {
		t.Errorf("expected paginated queries, got %d", svc.queries)
	}

	want := []string{"bs|account:111|R3", "pl|category:収益|R5", "pl|category:収益|R6"}
	if diff := cmp.Diff(want, svc.keys()); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectPagesByKeyPrefix(t *testing.T) {
	svc := newMockNotion("pl|category:収益|R4", "PL|category:収益|R5", "pl|category:収益|R6", "pl|category:費用|R6", "bs|account:111|R6")

	pages, err := collectPagesByKeyPrefix(context.Background(), "pl|category:収益|", svc.query)
	if err != nil {
		t.Fatalf("collectPagesByKeyPrefix() error = %v", err)
	}

	var keys []string
	for _, p := range pages {
		keys = append(keys, extractKey(p))
	}
	if diff := cmp.Diff([]string{"pl|category:収益|R4", "pl|category:収益|R6"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if svc.queries != 3 {
		t.Errorf("queries = %d, want 3", svc.queries)
	}

	f, ok := svc.filters[0].(*notionapi.PropertyFilter)
	if !ok || f.Property != PropKey || f.RichText == nil || f.RichText.StartsWith != "pl|category:収益|" {
		t.Errorf("filter = %#v", svc.filters[0])
	}
}

func TestCollectPagesByKeyPrefix_Error(t *testing.T) {
	query := func(ctx context.Context, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
		return nil, errors.New("unauthorized")
	}
	if _, err := collectPagesByKeyPrefix(context.Background(), "pl|", query); err == nil {
		t.Error("collectPagesByKeyPrefix() expected error")
	}
}

func TestPublishComparison_DryRun(t *testing.T) {
	svc := newMockNotion("pl|category:収益|R5", "pl|category:収益|R2")

	res, err := PublishComparison(context.Background(), svc, "db", comparison(), SyncOptions{DryRun: true, Prune: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&SyncResult{Created: 1, Updated: 1, Archived: 1}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if len(svc.pages) != 2 || len(svc.archived) != 0 || len(svc.props) != 0 {
		t.Error("dry run modified the database")
	}
}

func TestPublishComparison_Failures(t *testing.T) {
	svc := newMockNotion()
	svc.createErr = errors.New("rate limited")

	res, err := PublishComparison(context.Background(), svc, "db", comparison(), SyncOptions{})
	if err == nil {
		t.Fatal("PublishComparison() expected error")
	}
	if res == nil || res.Failed != 2 {
		t.Errorf("result = %+v, want 2 failures", res)
	}
}
