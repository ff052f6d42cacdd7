package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/fanout/internal/commands"
	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/navigation"
	"github.com/dshills/fanout/internal/telemetry"
)

var gotoCommands = map[navigation.Target]string{
	navigation.Definition:     commands.CommandGotoDefinition,
	navigation.Declaration:    commands.CommandGotoDeclaration,
	navigation.TypeDefinition: commands.CommandGotoTypeDefinition,
	navigation.Implementation: commands.CommandGotoImplementation,
	navigation.References:     commands.CommandFindReferences,
}

// withSession opens the session for the duration of fn.
func withSession(opts *options, fn func(ctx context.Context, c *cli) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		c, err := opts.open(ctx)
		if err != nil {
			return err
		}
		defer c.close()
		return fn(ctx, c)
	}
}

func newSymbolsCmd(opts *options) *cobra.Command {
	var tree bool
	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "List the document's symbols from every capable server",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "Print nested symbols as an indented tree")
	cmd.RunE = withSession(opts, func(ctx context.Context, c *cli) error {
		c.sink.tree = tree
		return c.exec(ctx, commands.CommandDocumentSymbols, commands.Args{})
	})
	return cmd
}

func newWorkspaceSymbolsCmd(opts *options) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "workspace-symbols QUERY",
		Short: "Search workspace symbols on every capable server",
		Args:  cobra.MaximumNArgs(1),
		PreRun: func(_ *cobra.Command, args []string) {
			if len(args) == 1 {
				query = args[0]
			}
		},
	}
	cmd.RunE = withSession(opts, func(ctx context.Context, c *cli) error {
		return c.exec(ctx, commands.CommandWorkspaceSymbols, commands.Args{Query: query})
	})
	return cmd
}

func newActionsCmd(opts *options) *cobra.Command {
	var apply int
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List code actions for the selection, optionally applying one",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().IntVar(&apply, "apply", 0, "Apply the Nth listed action and print the document")
	cmd.RunE = withSession(opts, func(ctx context.Context, c *cli) error {
		if err := c.exec(ctx, commands.CommandCodeAction, commands.Args{}); err != nil {
			return err
		}
		if apply == 0 {
			return nil
		}
		if apply < 0 || apply > len(c.sink.actions) {
			return fmt.Errorf("--apply %d: %d action(s) listed", apply, len(c.sink.actions))
		}
		c.handler.ApplyCodeAction(ctx, c.sink.actions[apply-1])
		if err := c.settle(ctx); err != nil {
			return err
		}
		c.sink.document(c.session.Document)
		return nil
	})
	return cmd
}

func newGotoCmd(opts *options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:       "goto definition|declaration|type-definition|implementation|references",
		Short:     "Jump to, or list, the locations of the symbol under the cursor",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"definition", "declaration", "type-definition", "implementation", "references"},
		PreRunE: func(_ *cobra.Command, args []string) error {
			target, err := navigation.ParseTarget(args[0])
			if err != nil {
				return err
			}
			name = gotoCommands[target]
			return nil
		},
	}
	cmd.RunE = withSession(opts, func(ctx context.Context, c *cli) error {
		return c.exec(ctx, name, commands.Args{})
	})
	return cmd
}

func newHighlightCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "highlight",
		Short: "Select every occurrence of the symbol under the cursor",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withSession(opts, func(ctx context.Context, c *cli) error {
		return c.exec(ctx, commands.CommandDocumentHighlight, commands.Args{})
	})
	return cmd
}

func newRenameCmd(opts *options) *cobra.Command {
	var newName string
	cmd := &cobra.Command{
		Use:   "rename [NEW_NAME]",
		Short: "Rename the symbol under the cursor, or show the suggested name",
		Args:  cobra.MaximumNArgs(1),
		PreRun: func(_ *cobra.Command, args []string) {
			if len(args) == 1 {
				newName = args[0]
			}
		},
	}
	cmd.RunE = withSession(opts, func(ctx context.Context, c *cli) error {
		before := c.session.Document.Version()
		if err := c.exec(ctx, commands.CommandRename, commands.Args{NewName: newName}); err != nil {
			return err
		}
		if c.session.Document.Version() != before {
			c.sink.document(c.session.Document)
		}
		return nil
	})
	return cmd
}

func newHintsCmd(opts *options) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "hints",
		Short: "Show the inlay hints of the visible window",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Recompute the hints whenever the configuration file changes")
	cmd.RunE = withSession(opts, func(ctx context.Context, c *cli) error {
		if err := c.hints(ctx); err != nil {
			return err
		}
		if !watch {
			return nil
		}
		if opts.configPath == "" {
			return errors.New("--watch needs --config")
		}
		return c.watchHints(ctx, opts.configPath)
	})
	return cmd
}

// hints computes and prints the hints of the session's view.
func (c *cli) hints(ctx context.Context) error {
	if err := c.exec(ctx, commands.CommandInlayHints, commands.Args{}); err != nil {
		return err
	}
	hints, _ := c.session.Editor.InlayHints(c.session.View.ID())
	c.sink.showHints(c.session.Document, hints)
	return nil
}

type reload struct {
	cfg config.Config
	err error
}

// watchHints recomputes the hints after each configuration change until ctx
// is cancelled. Reload errors are reported and the previous configuration
// stays in effect.
func (c *cli) watchHints(ctx context.Context, path string) error {
	reloads := make(chan reload)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- config.Watch(ctx, path, config.DefaultDebounce, func(cfg config.Config, err error) {
			select {
			case reloads <- reload{cfg: cfg, err: err}:
			case <-ctx.Done():
			}
		})
	}()

	for {
		select {
		case r := <-reloads:
			if r.err != nil {
				c.session.Editor.Status().Report(r.err)
				c.sink.failed = false
				continue
			}
			c.logger.Info("configuration reloaded", "path", path)
			c.cfg = r.cfg
			c.session.Editor.SetConfig(r.cfg)
			if err := c.hints(ctx); err != nil && !errors.Is(err, errCommandFailed) {
				return err
			}
			c.sink.failed = false
		case err := <-watchErr:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

func newDiagnosticsCmd(opts *options) *cobra.Command {
	var workspace bool
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "List the document's diagnostics with the publishing server",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&workspace, "workspace", false, "List the diagnostics of every open document with its path")
	cmd.RunE = withSession(opts, func(ctx context.Context, c *cli) error {
		name := commands.CommandDiagnostics
		if workspace {
			name = commands.CommandWorkspaceDiagnostics
		}
		return c.exec(ctx, name, commands.Args{})
	})
	return cmd
}

func newMetricsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Run every fan-out request once and print the collected metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := opts.openWith(ctx, newPrintSink(io.Discard, io.Discard))
			if err != nil {
				return err
			}
			defer c.close()

			for _, name := range []string{
				commands.CommandDocumentSymbols,
				commands.CommandCodeAction,
				commands.CommandDocumentHighlight,
				commands.CommandInlayHints,
			} {
				if err := c.exec(ctx, name, commands.Args{}); err != nil && !errors.Is(err, errCommandFailed) {
					return err
				}
				c.sink.failed = false
			}
			return telemetry.WriteText(opts.out)
		},
	}
}
