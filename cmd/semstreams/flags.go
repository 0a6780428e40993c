package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds the parsed command-line invocation: a single positional
// config path plus the --help flag (SPEC_FULL.md section 6's process
// surface).
type CLIConfig struct {
	ConfigPath string
	ShowHelp   bool
}

func parseFlags(args []string) (*CLIConfig, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cfg := &CLIConfig{}
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.Usage = func() { printHelp(fs) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ShowHelp {
		return cfg, nil
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one positional argument: path to the INI config file")
	}
	cfg.ConfigPath = fs.Arg(0)
	return cfg, nil
}

func printHelp(fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(os.Stderr, `%s - seismic telemetry relay and sanitizer

Usage: %s [options] <config.ini>

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Example:
  %s /etc/quakerelay/quakerelay.ini

Version: %s
Build: %s
`, appName, Version, BuildTime)
}
