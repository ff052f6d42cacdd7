package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/dshills/fanout/internal/commands"
	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/logging"
)

// errCommandFailed is returned when a command reported an error on the
// status line. The message has already been printed.
var errCommandFailed = errors.New("command failed")

const defaultWidth = 80

type options struct {
	fixturePath string
	configPath  string
	width       int

	out  io.Writer
	errs io.Writer
}

// cli is one command invocation: a configured editor session and the
// handler that drives it.
type cli struct {
	cfg     config.Config
	logger  *slog.Logger
	session *Session
	sink    *printSink
	handler *commands.Handler
}

// loadConfig reads the configuration file, or returns the defaults when no
// path was given.
func (o *options) loadConfig() (config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

// open builds the session with results printed to the option writers.
func (o *options) open(ctx context.Context) (*cli, error) {
	return o.openWith(ctx, newPrintSink(o.out, o.errs))
}

func (o *options) openWith(ctx context.Context, sink *printSink) (*cli, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(o.errs, cfg.Log)
	slog.SetDefault(logger)

	fx, err := LoadFixture(o.fixturePath)
	if err != nil {
		return nil, err
	}
	s, err := fx.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	s.Editor.Status().OnMessage(sink.status)

	width := o.width
	if width <= 0 {
		width = terminalWidth(o.out)
	}
	logger.Debug("session opened",
		"document", fx.Document.URI,
		"servers", len(s.Servers),
		"width", width)

	return &cli{
		cfg:     cfg,
		logger:  logger,
		session: s,
		sink:    sink,
		handler: commands.NewHandler(s.Editor, sink, commands.WithDisplayWidth(width)),
	}, nil
}

// terminalWidth returns the width of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// exec runs a command and waits for every request it started.
func (c *cli) exec(ctx context.Context, name string, args commands.Args) error {
	if err := c.handler.Execute(ctx, name, args); err != nil {
		return err
	}
	return c.settle(ctx)
}

// settle waits for outstanding jobs and reports whether any failed.
func (c *cli) settle(ctx context.Context) error {
	if err := c.session.Editor.RunUntilIdle(ctx); err != nil {
		return err
	}
	if c.sink.failed {
		return errCommandFailed
	}
	return nil
}

func (c *cli) close() {
	c.session.Close()
}
