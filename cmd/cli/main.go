package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dvloznov/statement-trends/internal/config"
	"github.com/dvloznov/statement-trends/internal/logger"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type command struct {
	name  string
	usage string
	run   func(args []string)
}

var commands = []command{
	{"years", "List the fiscal years available for a statement kind", runYears},
	{"accounts", "List the selectable comparison targets", runAccounts},
	{"compare", "Print a multi-year monthly comparison", runCompare},
	{"export", "Write a comparison to CSV or Excel", runExport},
	{"audit", "Cross-check the account master against the statements", runAudit},
	{"fetch", "Mirror statement or master files from GCS into the data directories", runFetch},
	{"upload", "Upload a local file to GCS", runUpload},
	{"publish", "Publish statement rows (and optionally a comparison) to BigQuery", runPublish},
	{"history", "Print the published annual totals of one account", runHistory},
	{"notion", "Publish a comparison to the Notion database", runNotion},
	{"ask", "Ask the assistant for analysis code", runAsk},
	{"chatlog", "Print or export an assistant conversation", runChatlog},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch name := os.Args[1]; name {
	case "help", "-h", "--help":
		printUsage()
	default:
		for _, c := range commands {
			if c.name == name {
				c.run(os.Args[2:])
				return
			}
		}
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Trends CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	for _, c := range commands {
		fmt.Printf("  %-9s %s\n", c.name, c.usage)
	}
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// env is the configuration, logger and context shared by every command.
type env struct {
	cfg config.Config
	log zerolog.Logger
	ctx context.Context
}

// setup registers -config on fs, parses args and loads the configuration.
// Problems are fatal.
func setup(fs *flag.FlagSet, args []string) *env {
	configDir := fs.String("config", ".", "Directory containing config.yaml")
	fs.Parse(args)

	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load(*configDir)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}

	log, err := cfg.Logger()
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to create logger")
	}

	return &env{
		cfg: cfg,
		log: log,
		ctx: logger.WithContext(context.Background(), log),
	}
}
