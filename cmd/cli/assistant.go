package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/statement-trends/internal/assistant"
	"github.com/dvloznov/statement-trends/internal/logger"
)

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	sessionID := fs.String("session", "", "Session to continue (default: start a new one)")
	theme := fs.String("theme", "", "Theme of a new session")
	question := fs.String("q", "", "Question to ask")
	e := setup(fs, args)

	if *question == "" {
		e.log.Fatal().Msg("Error: -q is required")
	}

	ctx, cancel := context.WithTimeout(e.ctx, 2*time.Minute)
	defer cancel()

	gen, err := assistant.NewGeminiGenerator(ctx, e.cfg.Gemini.APIKey, e.cfg.Gemini.Model)
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	svc := assistant.NewService(gen, e.cfg.Layout(), e.cfg.Chatlogs(), logger.WithComponent(e.log, "assistant"))
	ans, err := svc.Ask(ctx, assistant.Request{SessionID: *sessionID, Theme: *theme, Question: *question})
	if err != nil {
		e.log.Fatal().Err(err).Msg("Assistant request failed")
	}

	fmt.Printf("Session: %s\n", ans.SessionID)
	fmt.Printf("Model:   %s (%d tokens, %.1fs)\n\n", ans.ModelName, ans.TokensUsed, ans.ProcessingTime)
	fmt.Println(ans.Code)
	if !ans.Valid {
		fmt.Fprintf(os.Stderr, "\nThe generated code was rejected: %s\n", ans.ValidationError)
		os.Exit(2)
	}
}

func runChatlog(args []string) {
	fs := flag.NewFlagSet("chatlog", flag.ExitOnError)
	sessionID := fs.String("session", "", "Session ID")
	format := fs.String("format", "md", "Output format: md or html")
	export := fs.Bool("export", false, "Write conversation.md into the session directory")
	e := setup(fs, args)

	if *sessionID == "" {
		e.log.Fatal().Msg("Error: -session is required")
	}
	logs := e.cfg.Chatlogs()

	if *export {
		path, err := logs.ExportMarkdown(*sessionID, e.cfg.Gemini.Model)
		if err != nil {
			e.log.Fatal().Err(err).Msg("Export failed")
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	var (
		out []byte
		err error
	)
	switch *format {
	case "md":
		out, err = logs.Markdown(*sessionID, e.cfg.Gemini.Model)
	case "html":
		out, err = logs.RenderHTML(*sessionID, e.cfg.Gemini.Model)
	default:
		e.log.Fatal().Str("format", *format).Msg("Unknown -format")
	}
	if err != nil {
		e.log.Fatal().Err(err).Msg("Failed to read session")
	}
	os.Stdout.Write(out)
}
