package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/comigor/meditranslate-go/internal/config"
	"github.com/comigor/meditranslate-go/internal/logger"
)

const usage = `usage: meditranslate [command] [flags]

commands:
  serve        run the HTTP API (default)
  transcript   print the conversation (-q keyword, -w width, --raw)
  summarize    print a clinical summary of the conversation
  models       list the models available to the configured API key
  clear        delete the conversation history
  mcp          serve the conversation tools over MCP on stdio
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}
	if command == "mcp" {
		logger.SetOutput(os.Stderr)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.L.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	if err := run(ctx, cfg, command, args); err != nil {
		logger.L.Error("command failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, args []string) error {
	switch command {
	case "serve":
		return runServe(ctx, cfg)
	case "transcript":
		return runTranscript(ctx, cfg, args)
	case "summarize":
		return runSummarize(ctx, cfg)
	case "models":
		return runModels(ctx, cfg)
	case "clear":
		return runClear(ctx, cfg)
	case "mcp":
		return runMCP(ctx, cfg)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
