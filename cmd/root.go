package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const usage = `chatbridge dispatches chat conversations to OpenAI, Anthropic, Google or Ollama.

Usage:
  chatbridge [--log-level <level>] <command> [flags]

Commands:
  serve      Start the HTTP server
  chat       Send one conversation from the command line
  providers  List supported providers and their defaults
  version    Print build information

Flags:
  --log-level string  debug, info, warn or error (default "info")
  -h, --help          Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("chatbridge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
	}

	var logLevel string
	fs.StringVar(&logLevel, "log-level", "info", "log level")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse flags: %w", err)
	}

	if err := setupLogging(stderr, logLevel); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return printUsage(stdout)
	}

	switch rest[0] {
	case "serve":
		return serve(ctx, rest[1:])
	case "chat":
		return chat(ctx, rest[1:], stdout, stderr)
	case "providers":
		return providers(rest[1:], stdout, stderr)
	case "version":
		return printVersion(rest[1:], stdout, stderr)
	case "help":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", rest[0], usage)
	}
}

func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, strings.TrimSpace(usage))
	return nil
}
