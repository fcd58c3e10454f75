package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"chatbridge/internal/config"
	providerfactory "chatbridge/internal/provider/factory"
	"chatbridge/internal/server"
)

const serveUsage = `Usage:
  chatbridge serve [--config <path>] [--port <port>]

Flags:
  --config string   Path to YAML configuration file (built-in defaults when omitted)
  --port   int      Override server port from configuration`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override server port")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	if overridePort != 0 {
		if overridePort < 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}

	rt, err := providerfactory.NewRouter(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, rt)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
