package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"chatbridge/internal/version"
)

func printVersion(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var asJSON bool
	fs.BoolVar(&asJSON, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse version flags: %w", err)
	}

	info := version.Get()
	if !asJSON {
		fmt.Fprintln(stdout, info.Text())
		return nil
	}

	out, err := info.ToJSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}
