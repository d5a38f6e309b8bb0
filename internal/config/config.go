package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/statement-trends/internal/assistant"
	"github.com/dvloznov/statement-trends/internal/logger"
	"github.com/dvloznov/statement-trends/internal/statement"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TRENDS_DATA_PL_DIR.
const EnvPrefix = "TRENDS"

// Config holds application configuration.
type Config struct {
	Data    DataConfig
	Server  ServerConfig
	Log     LogConfig
	Gemini  GeminiConfig
	Chatlog ChatlogConfig
	GCP     GCPConfig
	GCS     GCSConfig
	Notion  NotionConfig
}

// DataConfig locates the statement exports and master files.
type DataConfig struct {
	PLDir        string `mapstructure:"pl_dir"`
	BSDir        string `mapstructure:"bs_dir"`
	ConfigDir    string `mapstructure:"config_dir"`
	UploadedDir  string `mapstructure:"uploaded_dir"`
	BSCodeRanges string `mapstructure:"bs_code_ranges"`
}

// ServerConfig holds HTTP settings. An empty AuthToken leaves the API open.
type ServerConfig struct {
	Port      string
	AuthToken string `mapstructure:"auth_token"`
	Workers   int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// GeminiConfig holds model settings. An empty APIKey lets the SDK read the
// environment.
type GeminiConfig struct {
	Model  string
	APIKey string `mapstructure:"api_key"`
}

// ChatlogConfig locates conversation logs.
type ChatlogConfig struct {
	Root string
}

// GCPConfig identifies the BigQuery project and dataset.
type GCPConfig struct {
	Project string
	Dataset string
}

// GCSConfig names the bucket used for mirroring exports.
type GCSConfig struct {
	Bucket string
}

// NotionConfig holds the integration token and target database.
type NotionConfig struct {
	Token      string
	DatabaseID string `mapstructure:"database_id"`
}

// Load reads configuration from defaults, an optional config.yaml in the
// given paths (or the working directory) and TRENDS_ environment variables.
func Load(paths ...string) (Config, error) {
	v := viper.New()

	v.SetDefault("data.pl_dir", "data/monthly_pl")
	v.SetDefault("data.bs_dir", "data/monthly_bs")
	v.SetDefault("data.config_dir", "config")
	v.SetDefault("data.uploaded_dir", "data/uploaded")
	v.SetDefault("data.bs_code_ranges", statement.DefaultBSCodeRanges.String())
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.auth_token", "")
	v.SetDefault("server.workers", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logger.FormatConsole)
	v.SetDefault("gemini.model", assistant.DefaultModelName)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("chatlog.root", "notebooks/chat_logs")
	v.SetDefault("gcp.project", "")
	v.SetDefault("gcp.dataset", "statement_trends")
	v.SetDefault("gcs.bucket", "")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Validate checks that the configuration is usable and reports every problem
// at once.
func (c Config) Validate() error {
	var problems []string

	if c.Data.PLDir == "" {
		problems = append(problems, "data.pl_dir is required")
	}
	if c.Data.BSDir == "" {
		problems = append(problems, "data.bs_dir is required")
	}
	if c.Data.ConfigDir == "" {
		problems = append(problems, "data.config_dir is required")
	}
	if _, err := statement.ParseCodeRanges(c.Data.BSCodeRanges); err != nil {
		problems = append(problems, fmt.Sprintf("data.bs_code_ranges: %v", err))
	}

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port must be between 1 and 65535, got %q", c.Server.Port))
	}

	if c.Server.Workers < 0 {
		problems = append(problems, fmt.Sprintf("server.workers must not be negative, got %d", c.Server.Workers))
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		problems = append(problems, fmt.Sprintf("log.format must be %q or %q, got %q", logger.FormatConsole, logger.FormatJSON, c.Log.Format))
	}

	if c.Chatlog.Root == "" {
		problems = append(problems, "chatlog.root is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// CodeRanges returns the balance-sheet code ranges, falling back to the
// defaults when the configured value is empty.
func (c Config) CodeRanges() (statement.CodeRanges, error) {
	if strings.TrimSpace(c.Data.BSCodeRanges) == "" {
		return statement.DefaultBSCodeRanges, nil
	}
	return statement.ParseCodeRanges(c.Data.BSCodeRanges)
}

// Layout returns the directory layout shown to the assistant.
func (c Config) Layout() assistant.Layout {
	return assistant.Layout{
		PLDir:       c.Data.PLDir,
		BSDir:       c.Data.BSDir,
		ConfigDir:   c.Data.ConfigDir,
		UploadedDir: c.Data.UploadedDir,
	}
}

// Addr returns the HTTP listen address.
func (c Config) Addr() string {
	return ":" + c.Server.Port
}
