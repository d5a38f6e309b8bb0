package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/statement-trends/internal/assistant"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DataConfig{
		PLDir:        "data/monthly_pl",
		BSDir:        "data/monthly_bs",
		ConfigDir:    "config",
		UploadedDir:  "data/uploaded",
		BSCodeRanges: "111-399,920",
	}
	if diff := cmp.Diff(want, c.Data); diff != "" {
		t.Errorf("Data mismatch (-want +got):\n%s", diff)
	}
	if c.Server.Port != "8080" || c.Log.Level != "info" || c.Gemini.Model != assistant.DefaultModelName {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if c.Server.Workers != 2 || c.Server.AuthToken != "" {
		t.Errorf("Server = %+v", c.Server)
	}
	if c.Chatlog.Root != "notebooks/chat_logs" {
		t.Errorf("Chatlog.Root = %q", c.Chatlog.Root)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRENDS_DATA_PL_DIR", "/srv/pl")
	t.Setenv("TRENDS_SERVER_PORT", "9090")
	t.Setenv("TRENDS_NOTION_DATABASE_ID", "db-123")
	t.Setenv("TRENDS_GEMINI_API_KEY", "secret")

	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Data.PLDir != "/srv/pl" {
		t.Errorf("PLDir = %q", c.Data.PLDir)
	}
	if c.Addr() != ":9090" {
		t.Errorf("Addr() = %q", c.Addr())
	}
	if c.Notion.DatabaseID != "db-123" {
		t.Errorf("DatabaseID = %q", c.Notion.DatabaseID)
	}
	if c.Gemini.APIKey != "secret" {
		t.Errorf("APIKey = %q", c.Gemini.APIKey)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	yaml := "data:\n  bs_dir: exports/bs\n  bs_code_ranges: \"100-199\"\nlog:\n  level: debug\ngcs:\n  bucket: trends-mirror\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Data.BSDir != "exports/bs" || c.Log.Level != "debug" || c.GCS.Bucket != "trends-mirror" {
		t.Errorf("file values not applied: %+v", c)
	}
	if c.Data.PLDir != "data/monthly_pl" {
		t.Errorf("PLDir default lost: %q", c.Data.PLDir)
	}

	ranges, err := c.CodeRanges()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(statement.CodeRanges{{Min: 100, Max: 199}}, ranges); diff != "" {
		t.Errorf("CodeRanges() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("data: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Load() expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Data:    DataConfig{PLDir: "pl", BSDir: "bs", ConfigDir: "config", BSCodeRanges: "111-399,920"},
			Server:  ServerConfig{Port: "8080"},
			Log:     LogConfig{Level: "info", Format: "console"},
			Chatlog: ChatlogConfig{Root: "logs"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = "http" }, wantErr: []string{"server.port"}},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = "70000" }, wantErr: []string{"server.port"}},
		{name: "bad ranges", mutate: func(c *Config) { c.Data.BSCodeRanges = "399-111" }, wantErr: []string{"data.bs_code_ranges"}},
		{name: "negative workers", mutate: func(c *Config) { c.Server.Workers = -1 }, wantErr: []string{"server.workers"}},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: []string{"log level"}},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: []string{"log.format"}},
		{
			name: "several problems",
			mutate: func(c *Config) {
				c.Data.PLDir = ""
				c.Chatlog.Root = ""
				c.Server.Port = "0"
			},
			wantErr: []string{"data.pl_dir", "chatlog.root", "server.port"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q missing %q", err, want)
				}
			}
		})
	}
}

func TestLayout(t *testing.T) {
	c := Config{Data: DataConfig{PLDir: "a", BSDir: "b", ConfigDir: "c", UploadedDir: "d"}}
	want := assistant.Layout{PLDir: "a", BSDir: "b", ConfigDir: "c", UploadedDir: "d"}
	if diff := cmp.Diff(want, c.Layout()); diff != "" {
		t.Errorf("Layout() mismatch (-want +got):\n%s", diff)
	}
}

func TestCodeRanges_Empty(t *testing.T) {
	got, err := Config{}.CodeRanges()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(statement.DefaultBSCodeRanges, got); diff != "" {
		t.Errorf("CodeRanges() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaders(t *testing.T) {
	c := Config{Data: DataConfig{PLDir: "pl", BSDir: "bs", BSCodeRanges: "100-199"}}
	loaders, err := c.Loaders(zerolog.Nop())
	if err != nil {
		t.Fatalf("Loaders() error = %v", err)
	}
	if loaders[statement.KindPL].Dir != "pl" || loaders[statement.KindBS].Dir != "bs" {
		t.Errorf("unexpected dirs: %+v", loaders)
	}
	if diff := cmp.Diff(statement.CodeRanges{{Min: 100, Max: 199}}, loaders[statement.KindBS].CodeRanges); diff != "" {
		t.Errorf("BS code ranges mismatch (-want +got):\n%s", diff)
	}
	if loaders[statement.KindPL].CodeRanges != nil {
		t.Errorf("PL loader filters codes: %v", loaders[statement.KindPL].CodeRanges)
	}

	c.Data.BSCodeRanges = "oops"
	if _, err := c.Loaders(zerolog.Nop()); err == nil {
		t.Error("Loaders() expected error for bad code ranges")
	}
}

func TestRegistry(t *testing.T) {
	c := Config{Data: DataConfig{PLDir: "pl", BSDir: "bs"}}
	r, err := c.Registry(zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]statement.Kind{statement.KindPL, statement.KindBS}, r.Kinds()); diff != "" {
		t.Errorf("Kinds() mismatch (-want +got):\n%s", diff)
	}
}
