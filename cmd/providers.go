package cmd

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/gosuri/uitable"

	"chatbridge/internal/config"
	"chatbridge/internal/provider"
	providerfactory "chatbridge/internal/provider/factory"
)

func providers(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var asJSON bool
	fs.BoolVar(&asJSON, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse providers flags: %w", err)
	}

	rt, err := providerfactory.NewRouter(config.Default())
	if err != nil {
		return err
	}
	infos := rt.Providers()

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	fmt.Fprintln(stdout, providerTable(infos))
	return nil
}

func providerTable(infos []provider.Info) string {
	table := uitable.New()
	table.MaxColWidth = 60
	table.AddRow("NAME", "DEFAULT MODEL", "BASE URL", "API KEY")
	for _, info := range infos {
		key := "-"
		if info.RequiresAPIKey {
			key = info.APIKeyEnv
		}
		table.AddRow(info.Name, info.DefaultModel, info.DefaultBaseURL, key)
	}
	return table.String()
}
