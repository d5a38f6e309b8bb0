package chatlog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fixedStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	s.now = func() time.Time { return time.Date(2025, 12, 11, 14, 30, 22, 0, time.Local) }
	return s
}

func TestNewSessionID(t *testing.T) {
	now := time.Date(2025, 12, 11, 14, 30, 22, 0, time.UTC)
	tests := []struct {
		theme string
		want  string
	}{
		{"借入返済額検討", "20251211_143022_借入返済額検討"},
		{"キャッシュフロー 分析!", "20251211_143022_キャッシュフロー分析"},
		{"a/b\\c..d", "20251211_143022_abcd"},
		{"R6_売上", "20251211_143022_R6_売上"},
	}
	for _, tt := range tests {
		t.Run(tt.theme, func(t *testing.T) {
			if got := NewSessionID(now, tt.theme); got != tt.want {
				t.Errorf("NewSessionID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTheme(t *testing.T) {
	if got := Theme("20251211_143022_借入返済額検討"); got != "借入返済額検討" {
		t.Errorf("Theme() = %q", got)
	}
	if got := Theme("20251211_143022_R6_売上"); got != "R6_売上" {
		t.Errorf("Theme() = %q", got)
	}
	if got := Theme("plain"); got != defaultTheme {
		t.Errorf("Theme() = %q", got)
	}
}

func TestStore_AppendAndHistory(t *testing.T) {
	s := fixedStore(t)

	id, err := s.Create("")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "20251211_143022_一般" {
		t.Errorf("Create() = %q", id)
	}

	secs := 1.5
	tokens := 321
	msgs := []Message{
		{Role: RoleUser, Content: "R6の売上は？"},
		{Role: RoleAssistant, Content: "売上は増加しています。", ModelName: "gemini-2.5-flash",
			ProcessingTime: &secs, TokensUsed: &tokens, Code: "print(1)",
			GraphPaths: map[string]string{"png_path": "notebooks/chat_logs/x/graph_01.png"}},
	}
	for _, m := range msgs {
		if err := s.Append(id, m); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := s.History(id)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	want := []Turn{{RoleUser, "R6の売上は？"}, {RoleAssistant, "売上は増加しています。"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("History() mismatch (-want +got):\n%s", diff)
	}

	all, err := s.Messages(id)
	if err != nil {
		t.Fatal(err)
	}
	if all[1].TokensUsed == nil || *all[1].TokensUsed != 321 || all[1].Timestamp.IsZero() {
		t.Errorf("Messages()[1] = %+v", all[1])
	}

	raw, err := os.ReadFile(filepath.Join(s.Root, id, "conversation.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{`"timestamp"`, `"role"`, `"content"`, `"processing_time"`, `"tokens_used"`, `"has_error"`, `"code"`, `"graph_paths"`} {
		if !strings.Contains(string(raw), field) {
			t.Errorf("log missing field %s", field)
		}
	}
	if strings.Count(string(raw), "\n") != 2 {
		t.Errorf("log has %d lines, want 2", strings.Count(string(raw), "\n"))
	}
}

func TestStore_HistoryUnknownSession(t *testing.T) {
	s := fixedStore(t)
	got, err := s.History("20250101_000000_none")
	if err != nil || len(got) != 0 {
		t.Errorf("History() = %v, %v, want empty", got, err)
	}
}

func TestStore_InvalidSession(t *testing.T) {
	s := fixedStore(t)
	for _, id := range []string{"", "..", "../etc", `a\b`} {
		if err := s.Append(id, Message{Role: RoleUser}); !errors.Is(err, ErrInvalidSession) {
			t.Errorf("Append(%q) error = %v, want ErrInvalidSession", id, err)
		}
	}
}

func TestStore_ExportMarkdown(t *testing.T) {
	s := fixedStore(t)
	id, _ := s.Create("借入返済額検討")

	ts := time.Date(2025, 12, 11, 14, 31, 0, 0, time.Local)
	_ = s.Append(id, Message{Timestamp: ts, Role: RoleUser, Content: "返済額は？"})
	_ = s.Append(id, Message{Timestamp: ts, Role: RoleAssistant, Content: "月10万円です。", Code: "x = 1",
		GraphPaths: map[string]string{"png_path": "/abs/graph_01.png", "html_path": "/abs/graph_01.html"}})

	path, err := s.ExportMarkdown(id, "Gemini 2.5 Flash")
	if err != nil {
		t.Fatalf("ExportMarkdown() error = %v", err)
	}
	if filepath.Base(path) != "conversation.md" {
		t.Errorf("path = %q", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	md := string(b)

	for _, want := range []string{
		"# 借入返済額検討\n",
		"**日時**: 2025-12-11T14:31:00  \n",
		"**モデル**: Gemini 2.5 Flash\n",
		"## ユーザー\n\n返済額は？\n",
		"## アシスタント\n\n月10万円です。\n",
		"### 生成されたコード\n\n```python\nx = 1\n```\n",
		"![グラフ](graph_01.png)",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "graph_01.html") {
		t.Error("only png graphs are embedded")
	}
}

func TestStore_ExportMarkdownUnknownSession(t *testing.T) {
	s := fixedStore(t)
	if _, err := s.ExportMarkdown("20250101_000000_none", "m"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ExportMarkdown() error = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_RenderHTML(t *testing.T) {
	s := fixedStore(t)
	id, _ := s.Create("分析")
	_ = s.Append(id, Message{Role: RoleAssistant, Content: "| 年度 | 売上 |\n|---|---|\n| R6 | 100 |", Code: "print(1)"})

	html, err := s.RenderHTML(id, "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	for _, want := range []string{"<h1>分析</h1>", "<table>", `<code class="language-python">`} {
		if !strings.Contains(string(html), want) {
			t.Errorf("html missing %q:\n%s", want, html)
		}
	}
}
