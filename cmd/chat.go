package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"chatbridge/internal/models"
	providerfactory "chatbridge/internal/provider/factory"
	"chatbridge/internal/router"
)

const chatUsage = `Usage:
  chatbridge chat --provider <name> [flags] [prompt...]

Flags:
  --provider     string   openai, anthropic, google or ollama (required)
  --model        string   Model identifier (provider default when omitted)
  --base-url     string   Override the provider endpoint root
  --api-key      string   Credential (falls back to config, then the provider's env var)
  --temperature  float    Sampling temperature
  --max-tokens   uint     Completion token limit
  --system       string   Prepend a system message
  --messages     string   Path to a JSON array of {"role","content"} messages
  --config       string   Path to YAML configuration file
  --env-file     string   Load environment variables from this file (default ".env" when present)
  --json                  Print the full response as JSON`

type chatOptions struct {
	cfg          models.Config
	system       string
	messagesPath string
	configPath   string
	envFile      string
	asJSON       bool
}

func chat(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("chat", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, chatUsage)
	}

	var opts chatOptions
	var temperature float64
	var maxTokens uint
	flags.StringVar(&opts.cfg.Provider, "provider", "", "provider name")
	flags.StringVar(&opts.cfg.Model, "model", "", "model identifier")
	flags.StringVar(&opts.cfg.BaseURL, "base-url", "", "endpoint root")
	flags.StringVar(&opts.cfg.APIKey, "api-key", "", "credential")
	flags.Float64Var(&temperature, "temperature", 0, "sampling temperature")
	flags.UintVar(&maxTokens, "max-tokens", 0, "completion token limit")
	flags.StringVar(&opts.system, "system", "", "system message")
	flags.StringVar(&opts.messagesPath, "messages", "", "path to messages JSON")
	flags.StringVar(&opts.configPath, "config", "", "path to configuration file")
	flags.StringVar(&opts.envFile, "env-file", "", "path to env file")
	flags.BoolVar(&opts.asJSON, "json", false, "print JSON")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse chat flags: %w", err)
	}

	// Only explicitly set flags count; zero is a valid temperature.
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "temperature":
			opts.cfg.Temperature = models.Float64(temperature)
		case "max-tokens":
			opts.cfg.MaxTokens = models.Uint32(uint32(maxTokens))
		}
	})

	if opts.cfg.Provider == "" {
		return errors.New("chat command requires --provider <name>")
	}
	if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return fmt.Errorf("--temperature must be a finite number, got %v", temperature)
	}
	if maxTokens > 1<<32-1 {
		return fmt.Errorf("--max-tokens %d exceeds the 32-bit limit", maxTokens)
	}

	if err := loadEnv(opts.envFile); err != nil {
		return err
	}

	messages, err := buildMessages(opts, flags.Args())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	rt, err := providerfactory.NewRouter(cfg)
	if err != nil {
		return err
	}

	req := resolveCredential(rt, cfg.Apply(opts.cfg))

	resp, err := rt.Dispatch(ctx, req, messages)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintln(stdout, resp.Content)
	if resp.Model != "" {
		fmt.Fprintf(stderr, "model: %s\n", resp.Model)
	}
	if resp.Usage != nil {
		fmt.Fprintf(stderr, "tokens: prompt=%d completion=%d total=%d\n",
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	}
	return nil
}

// loadEnv loads path, or .env from the working directory when path is empty
// and the file exists. Variables already set in the environment win.
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %q: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func buildMessages(opts chatOptions, prompt []string) ([]models.Message, error) {
	var messages []models.Message
	if opts.system != "" {
		messages = append(messages, models.Message{Role: models.RoleSystem, Content: opts.system})
	}

	if opts.messagesPath != "" {
		data, err := os.ReadFile(opts.messagesPath)
		if err != nil {
			return nil, fmt.Errorf("read messages file: %w", err)
		}
		var fromFile []models.Message
		if err := json.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("decode messages file %q: %w", opts.messagesPath, err)
		}
		messages = append(messages, fromFile...)
	}

	if text := strings.TrimSpace(strings.Join(prompt, " ")); text != "" {
		messages = append(messages, models.Message{Role: models.RoleUser, Content: text})
	}

	if len(messages) == 0 {
		return nil, errors.New("chat command requires a prompt or --messages <path>")
	}
	return messages, nil
}

// resolveCredential falls back to the provider's conventional environment
// variable when neither the flag nor the config supplied a key.
func resolveCredential(rt *router.Router, cfg models.Config) models.Config {
	if cfg.APIKey != "" {
		return cfg
	}
	info, err := rt.Lookup(cfg.Provider)
	if err != nil || info.APIKeyEnv == "" {
		return cfg
	}
	cfg.APIKey = os.Getenv(info.APIKeyEnv)
	return cfg
}
