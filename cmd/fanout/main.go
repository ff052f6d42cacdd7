// Package main is the entry point for fanout, a command-line driver that
// replays a scripted editing session against fixture language servers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		// Failures reported by a command were already printed.
		if errors.Is(err, errCommandFailed) {
			return 1
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(out, errs io.Writer) *cobra.Command {
	opts := &options{out: out, errs: errs}

	root := &cobra.Command{
		Use:           "fanout",
		Short:         "Run language-server requests against a fixture session",
		Long:          "fanout opens the document described by a fixture file, attaches its scripted\nlanguage servers and runs one editor command against them.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errs)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.fixturePath, "fixture", "f", "", "Path to the session fixture (YAML)")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to the configuration file (TOML)")
	flags.IntVar(&opts.width, "width", 0, "Display width for symbol labels (default: terminal width)")
	_ = root.MarkPersistentFlagRequired("fixture")

	root.AddCommand(
		newSymbolsCmd(opts),
		newWorkspaceSymbolsCmd(opts),
		newActionsCmd(opts),
		newGotoCmd(opts),
		newHighlightCmd(opts),
		newRenameCmd(opts),
		newHintsCmd(opts),
		newDiagnosticsCmd(opts),
		newMetricsCmd(opts),
	)
	return root
}
