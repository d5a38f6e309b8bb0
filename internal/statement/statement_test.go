package statement

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const plHeader = "タイトル,科目コード,科目名称,当月迄累計金額,当月迄累計構成比,4月,5月,6月,7月,8月,9月,10月,11月,12月,1月,2月,3月"

const bsHeader = "コード,科目名称,4月(当月残高),5月(当月残高),6月(当月残高),7月(当月残高),8月(当月残高),9月(当月残高),10月(当月残高),11月(当月残高),12月(当月残高),1月(当月残高),2月(当月残高),3月(当月残高)"

// writeSJIS writes lines as a Shift-JIS encoded file.
func writeSJIS(t *testing.T, path string, lines ...string) {
	t.Helper()
	b, err := EncodeShiftJIS(strings.Join(lines, "\r\n") + "\r\n")
	if err != nil {
		t.Fatalf("EncodeShiftJIS: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sumOf(r Row) decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.Monthly {
		total = total.Add(v)
	}
	return total
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"R6_monthly.csv", "H27_monthly.csv", "R5_monthly.csv", "R6_monthly_bs.csv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	pl, err := Discover(dir, KindPL)
	if err != nil {
		t.Fatalf("Discover(pl) error = %v", err)
	}
	if diff := cmp.Diff([]string{"H27", "R5", "R6"}, pl); diff != "" {
		t.Errorf("Discover(pl) mismatch (-want +got):\n%s", diff)
	}

	bs, err := Discover(dir, KindBS)
	if err != nil {
		t.Fatalf("Discover(bs) error = %v", err)
	}
	if diff := cmp.Diff([]string{"R6"}, bs); diff != "" {
		t.Errorf("Discover(bs) mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_MissingDirectory(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), KindPL)
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Errorf("Discover() error = %v, want ErrDirectoryNotFound", err)
	}
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	years, err := Discover(t.TempDir(), KindPL)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(years) != 0 {
		t.Errorf("Discover() = %v, want empty", years)
	}
}

func TestLoader_ProfitLoss(t *testing.T) {
	dir := t.TempDir()
	writeSJIS(t, filepath.Join(dir, "R6_monthly.csv"),
		plHeader,
		"売上,410,売上高,999999,100%,100,200,300,,x,0,0,0,0,0,0,1000",
		"売上,abc,不明,0,0%,1,1,1,1,1,1,1,1,1,1,1,1",
		"費用,610,役員報酬,0,0%,10,10,10,10,10,10,10,10,10,10,10,10",
	)
	writeSJIS(t, filepath.Join(dir, "R5_monthly.csv"),
		plHeader,
		"費用,610,役員報酬,0,0%,5,5,5,5,5,5,5,5,5,5,5,5",
		"売上,410,売上高,0,0%,\"1,000\",0,0,0,0,0,0,0,0,0,0,0",
	)

	res, err := NewLoader(dir, KindPL, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff([]string{"R5", "R6"}, res.Years); diff != "" {
		t.Errorf("Years mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}

	type key struct {
		Year string
		Code int
	}
	var got []key
	for _, r := range res.Table.Rows {
		got = append(got, key{r.Year, r.Code})
		if !r.Total.Equal(sumOf(r)) {
			t.Errorf("row %s/%d total = %s, want sum of months %s", r.Year, r.Code, r.Total, sumOf(r))
		}
	}
	want := []key{{"R5", 410}, {"R5", 610}, {"R6", 410}, {"R6", 610}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("row order mismatch (-want +got):\n%s", diff)
	}

	sales := res.Table.Rows[2]
	if sales.Name != "売上高" {
		t.Errorf("Name = %q, want 売上高", sales.Name)
	}
	// The source cumulative column (999999) is never used.
	if !sales.Total.Equal(dec("1600")) {
		t.Errorf("Total = %s, want 1600", sales.Total)
	}
	if !sales.Monthly[3].IsZero() || !sales.Monthly[4].IsZero() {
		t.Errorf("blank and non-numeric months should be zero, got %s and %s", sales.Monthly[3], sales.Monthly[4])
	}

	if !res.Table.Rows[0].Total.Equal(dec("1000")) {
		t.Errorf("thousands separator: Total = %s, want 1000", res.Table.Rows[0].Total)
	}
}

func TestLoader_SkipsFileWithMissingColumns(t *testing.T) {
	dir := t.TempDir()
	writeSJIS(t, filepath.Join(dir, "R6_monthly.csv"),
		plHeader,
		"費用,610,役員報酬,0,0%,1,1,1,1,1,1,1,1,1,1,1,1",
	)
	writeSJIS(t, filepath.Join(dir, "R5_monthly.csv"),
		"科目コード,科目名称,4月,5月",
		"610,役員報酬,1,1",
	)

	res, err := NewLoader(dir, KindPL, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"R6"}, res.Years); diff != "" {
		t.Errorf("Years mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want exactly one", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Year != "R5" {
		t.Errorf("Warning.Year = %q, want R5", w.Year)
	}
	if len(w.Missing) != 10 {
		t.Errorf("Warning.Missing = %v, want the ten absent months", w.Missing)
	}
}

func TestLoader_NoLoadableFiles(t *testing.T) {
	dir := t.TempDir()
	writeSJIS(t, filepath.Join(dir, "R6_monthly.csv"), "科目コード,科目名称", "610,役員報酬")

	_, err := NewLoader(dir, KindPL, zerolog.Nop()).Load(context.Background())
	if !errors.Is(err, ErrNoLoadableFiles) {
		t.Errorf("Load() error = %v, want ErrNoLoadableFiles", err)
	}
	if errors.Is(err, ErrDirectoryNotFound) {
		t.Errorf("Load() error = %v, must be distinct from ErrDirectoryNotFound", err)
	}
}

func TestLoader_MissingDirectory(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing"), KindPL, zerolog.Nop()).Load(context.Background())
	if !errors.Is(err, ErrDirectoryNotFound) {
		t.Errorf("Load() error = %v, want ErrDirectoryNotFound", err)
	}
}

func TestLoader_BalanceSheet(t *testing.T) {
	dir := t.TempDir()
	writeSJIS(t, filepath.Join(dir, "R6_monthly_bs.csv"),
		bsHeader,
		"111,現金,1,1,1,1,1,1,1,1,1,1,1,1",
		"399,資本金,2,2,2,2,2,2,2,2,2,2,2,2",
		"410,売上高,9,9,9,9,9,9,9,9,9,9,9,9",
		"920,繰越利益,3,3,3,3,3,3,3,3,3,3,3,3",
		"9500,合計,100,100,100,100,100,100,100,100,100,100,100,100",
	)

	res, err := NewLoader(dir, KindBS, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var codes []int
	for _, r := range res.Table.Rows {
		codes = append(codes, r.Code)
	}
	if diff := cmp.Diff([]int{111, 399, 920}, codes); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
	if !res.Table.Rows[0].Total.Equal(dec("12")) {
		t.Errorf("Total = %s, want 12", res.Table.Rows[0].Total)
	}
}

func TestLoader_BalanceSheetCustomRanges(t *testing.T) {
	dir := t.TempDir()
	writeSJIS(t, filepath.Join(dir, "R6_monthly_bs.csv"),
		bsHeader,
		"111,現金,1,1,1,1,1,1,1,1,1,1,1,1",
		"500,その他,1,1,1,1,1,1,1,1,1,1,1,1",
	)

	l := NewLoader(dir, KindBS, zerolog.Nop())
	l.CodeRanges = CodeRanges{{Min: 500, Max: 599}}

	res, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Table.Len() != 1 || res.Table.Rows[0].Code != 500 {
		t.Errorf("rows = %+v, want only code 500", res.Table.Rows)
	}
}

func TestLoader_BalanceSheetMissingMonths(t *testing.T) {
	dir := t.TempDir()
	writeSJIS(t, filepath.Join(dir, "R6_monthly_bs.csv"),
		"コード,科目名称,4月(当月残高),5月(当月残高)",
		"111,現金,1,1",
	)
	writeSJIS(t, filepath.Join(dir, "R5_monthly_bs.csv"),
		bsHeader,
		"111,現金,1,1,1,1,1,1,1,1,1,1,1,1",
	)

	res, err := NewLoader(dir, KindBS, zerolog.Nop()).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff([]string{"R5"}, res.Years); diff != "" {
		t.Errorf("Years mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Year != "R6" {
		t.Errorf("Warnings = %v, want one for R6", res.Warnings)
	}
}

func TestResolveBalanceColumns(t *testing.T) {
	header := []string{
		"コード", "科目名称",
		"前期残高",
		"10月（当月残高）", "11月（当月残高）", "12月（当月残高）",
		"1月（当月残高）", "2月（当月残高）", "3月（当月残高）",
		"4月（当月残高）", "5月（当月残高）", "6月（当月残高）",
		"7月（当月残高）", "8月（当月残高）", "9月（当月残高）",
		"4月（借方）",
	}

	got, err := ResolveBalanceColumns(header)
	if err != nil {
		t.Fatalf("ResolveBalanceColumns() error = %v", err)
	}

	for m, month := range Months {
		h := header[got[m]]
		if !strings.HasPrefix(h, month) {
			t.Errorf("month %s resolved to %q", month, h)
		}
	}
}

func TestResolveBalanceColumns_Missing(t *testing.T) {
	_, err := ResolveBalanceColumns([]string{"コード", "科目名称", "4月(当月残高)"})
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("error = %v, want ErrMissingColumns", err)
	}
	var mce *MissingColumnsError
	if !errors.As(err, &mce) || len(mce.Missing) != 11 {
		t.Errorf("Missing = %v, want 11 entries", mce)
	}
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"410", 410, true},
		{" 610 ", 610, true},
		{"410.0", 410, true},
		{"410.5", 0, false},
		{"", 0, false},
		{"合計", 0, false},
		{"-1", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCode(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseCode(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234", "1234"},
		{"1,234,567", "1234567"},
		{"-50.5", "-50.5"},
		{"", "0"},
		{"abc", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseAmount(tt.in); !got.Equal(dec(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCodeRanges(t *testing.T) {
	got, err := ParseCodeRanges("111-399, 920")
	if err != nil {
		t.Fatalf("ParseCodeRanges() error = %v", err)
	}
	if diff := cmp.Diff(DefaultBSCodeRanges, got); diff != "" {
		t.Errorf("ParseCodeRanges() mismatch (-want +got):\n%s", diff)
	}
	if got.String() != "111-399,920" {
		t.Errorf("String() = %q", got.String())
	}

	for _, bad := range []string{"abc", "399-111", "1-x"} {
		if _, err := ParseCodeRanges(bad); err == nil {
			t.Errorf("ParseCodeRanges(%q) expected error", bad)
		}
	}

	none, err := ParseCodeRanges("")
	if err != nil || none != nil {
		t.Errorf("ParseCodeRanges(\"\") = %v, %v, want nil, nil", none, err)
	}
	if !none.Contains(12345) {
		t.Error("nil ranges should accept every code")
	}
}

func TestTable_Accounts(t *testing.T) {
	table := &Table{Rows: []Row{
		{Year: "R5", Code: 610, Name: "役員報酬"},
		{Year: "R5", Code: 410, Name: "売上高"},
		{Year: "R6", Code: 410, Name: "売上高"},
		{Year: "R6", Code: 410, Name: "製品売上高"},
	}}

	want := []Account{{410, "売上高"}, {410, "製品売上高"}, {610, "役員報酬"}}
	if diff := cmp.Diff(want, table.Accounts()); diff != "" {
		t.Errorf("Accounts() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"R5", "R6"}, table.Years()); diff != "" {
		t.Errorf("Years() mismatch (-want +got):\n%s", diff)
	}
}

// countingSource counts loads and blocks until release is closed.
type countingSource struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (s *countingSource) Load(ctx context.Context) (*LoadResult, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return &LoadResult{Table: &Table{Kind: KindPL}, Years: []string{"R6"}}, nil
}

func TestCache_ConcurrentFirstLoad(t *testing.T) {
	src := &countingSource{release: make(chan struct{})}
	cache := NewCache(src)

	const callers = 16
	results := make([]*LoadResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := cache.Load(context.Background())
			if err != nil {
				t.Errorf("Load() error = %v", err)
				return
			}
			results[i] = res
		}()
	}

	close(src.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		if results[i] == nil || results[i].Table == nil {
			t.Fatalf("caller %d observed an incomplete result", i)
		}
	}
	if !cache.Cached() {
		t.Error("Cached() = false after load")
	}

	before := src.calls.Load()
	if _, err := cache.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.calls.Load() != before {
		t.Error("cached Load() hit the source again")
	}
}

// blockingSource fails with the context error if its context is cancelled
// while the load is in progress.
type blockingSource struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (s *blockingSource) Load(ctx context.Context) (*LoadResult, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
	}
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &LoadResult{Table: &Table{Kind: KindPL}, Years: []string{"R6"}}, nil
}

func TestCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	cache := NewCache(src)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cache.Load(ctxA)
		errA <- err
	}()
	<-src.started

	errB := make(chan error, 1)
	resB := make(chan *LoadResult, 1)
	go func() {
		res, err := cache.Load(context.Background())
		resB <- res
		errB <- err
	}()

	cancelA()
	close(src.release)

	if err := <-errA; err != nil {
		t.Errorf("Load() with cancelled context error = %v, want nil", err)
	}
	if err := <-errB; err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if res := <-resB; res == nil || res.Table == nil {
		t.Fatal("Load() returned an incomplete result")
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
	if !cache.Cached() {
		t.Error("Cached() = false after load")
	}
}

func TestCache_Invalidate(t *testing.T) {
	src := &countingSource{}
	cache := NewCache(src)
	ctx := context.Background()

	if _, err := cache.Load(ctx); err != nil {
		t.Fatal(err)
	}
	cache.Invalidate()
	if cache.Cached() {
		t.Error("Cached() = true after Invalidate")
	}
	if _, err := cache.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	src := &countingSource{err: ErrNoLoadableFiles}
	cache := NewCache(src)

	for i := 0; i < 2; i++ {
		if _, err := cache.Load(context.Background()); !errors.Is(err, ErrNoLoadableFiles) {
			t.Fatalf("Load() error = %v, want ErrNoLoadableFiles", err)
		}
	}
	if got := src.calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(map[Kind]Source{KindBS: &countingSource{}, KindPL: &countingSource{}})
	if diff := cmp.Diff([]Kind{KindPL, KindBS}, reg.Kinds()); diff != "" {
		t.Errorf("Kinds() mismatch (-want +got):\n%s", diff)
	}
	if reg.Cache(Kind("xx")) != nil {
		t.Error("Cache() for unknown kind should be nil")
	}

	if _, err := reg.Cache(KindPL).Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	reg.InvalidateAll()
	if reg.Cache(KindPL).Cached() {
		t.Error("InvalidateAll() left a cached result")
	}
}
