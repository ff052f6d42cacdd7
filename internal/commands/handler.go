// Package commands implements the editor commands that fan requests out to
// language servers: each one selects the capable servers, runs the request
// as an editor job and hands the result to a display Sink.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dshills/fanout/internal/aggregate"
	"github.com/dshills/fanout/internal/editor"
	"github.com/dshills/fanout/internal/lsp"
)

// Command names.
const (
	// Symbols
	CommandDocumentSymbols  = "lsp.documentSymbols"
	CommandWorkspaceSymbols = "lsp.workspaceSymbols"

	// Code actions
	CommandCodeAction = "lsp.codeAction"

	// Navigation
	CommandGotoDeclaration    = "lsp.gotoDeclaration"
	CommandGotoDefinition     = "lsp.gotoDefinition"
	CommandGotoTypeDefinition = "lsp.gotoTypeDefinition"
	CommandGotoImplementation = "lsp.gotoImplementation"
	CommandFindReferences     = "lsp.findReferences"
	CommandDocumentHighlight  = "lsp.documentHighlight"

	// Refactoring
	CommandRename = "lsp.rename"

	// Annotations
	CommandInlayHints = "lsp.inlayHints"

	// Diagnostics
	CommandDiagnostics          = "lsp.diagnostics"
	CommandWorkspaceDiagnostics = "lsp.workspaceDiagnostics"
)

// ErrUnknownCommand indicates a command name with no handler.
var ErrUnknownCommand = errors.New("unknown command")

// Args are the arguments of one command invocation.
type Args struct {
	// View is the view the command acts on. Zero means the first open view.
	View uint64

	// Query is the workspace symbol query.
	Query string

	// NewName is the rename target. Empty asks the sink for one.
	NewName string
}

type commandFunc func(ctx context.Context, args Args) error

// Handler runs named commands against an editor.
//
// Handler is NOT safe for concurrent use; like the editor it must only be
// used from the coordinating goroutine.
type Handler struct {
	editor       *editor.Editor
	sink         Sink
	displayWidth int

	// Commands registered by name (immutable after construction)
	commands map[string]commandFunc
}

// HandlerOption configures the handler.
type HandlerOption func(*Handler)

// WithDisplayWidth sets the display width used for symbol labels when the
// configuration leaves it unset.
func WithDisplayWidth(n int) HandlerOption {
	return func(h *Handler) {
		h.displayWidth = n
	}
}

// NewHandler creates a handler that reports results to sink.
func NewHandler(e *editor.Editor, sink Sink, opts ...HandlerOption) *Handler {
	h := &Handler{
		editor:       e,
		sink:         sink,
		displayWidth: 80,
		commands:     make(map[string]commandFunc),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.registerCommands()
	return h
}

func (h *Handler) registerCommands() {
	// Symbols
	h.commands[CommandDocumentSymbols] = h.documentSymbols
	h.commands[CommandWorkspaceSymbols] = h.workspaceSymbols

	// Code actions
	h.commands[CommandCodeAction] = h.codeAction

	// Navigation
	h.commands[CommandGotoDeclaration] = h.gotoCommand(CommandGotoDeclaration)
	h.commands[CommandGotoDefinition] = h.gotoCommand(CommandGotoDefinition)
	h.commands[CommandGotoTypeDefinition] = h.gotoCommand(CommandGotoTypeDefinition)
	h.commands[CommandGotoImplementation] = h.gotoCommand(CommandGotoImplementation)
	h.commands[CommandFindReferences] = h.gotoCommand(CommandFindReferences)
	h.commands[CommandDocumentHighlight] = h.documentHighlight

	// Refactoring
	h.commands[CommandRename] = h.rename

	// Annotations
	h.commands[CommandInlayHints] = h.inlayHints

	// Diagnostics
	h.commands[CommandDiagnostics] = h.diagnostics
	h.commands[CommandWorkspaceDiagnostics] = h.workspaceDiagnostics
}

// Names returns the registered command names, sorted.
func (h *Handler) Names() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CanHandle reports whether name is a registered command.
func (h *Handler) CanHandle(name string) bool {
	_, ok := h.commands[name]
	return ok
}

// Execute runs a command. Requests are issued as editor jobs; their results
// reach the sink or the status line once the editor applies the callbacks.
// The returned error covers only problems found before any request was
// sent, such as an unknown command or view.
func (h *Handler) Execute(ctx context.Context, name string, args Args) error {
	fn, ok := h.commands[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return fn(ctx, args)
}

// target resolves the view and document a command acts on.
func (h *Handler) target(args Args) (*editor.View, *editor.Document, error) {
	var v *editor.View
	if args.View == 0 {
		views := h.editor.Views()
		if len(views) == 0 {
			return nil, nil, editor.ErrViewNotFound
		}
		v = views[0]
	} else {
		var ok bool
		if v, ok = h.editor.View(args.View); !ok {
			return nil, nil, fmt.Errorf("view %d: %w", args.View, editor.ErrViewNotFound)
		}
	}
	doc, ok := h.editor.Document(v.DocumentID())
	if !ok {
		return nil, nil, fmt.Errorf("view %d: %w", v.ID(), editor.ErrDocumentNotFound)
	}
	return v, doc, nil
}

// noServer reports that nothing attached to doc supports c.
func (h *Handler) noServer(c lsp.Capability) {
	h.editor.Status().Error(lsp.NoServerMessage(c))
}

// settle turns a fan-out error into the error a callback returns. Failures
// of individual servers under the partial policy are shown and the
// surviving results are used.
func settle(e *editor.Editor, err error) error {
	if fs, ok := aggregate.AsFailures(err); ok {
		e.Status().Error(fmt.Sprintf("%d language server(s) failed: %v", len(fs), fs))
		return nil
	}
	return err
}

func (h *Handler) inlayHints(ctx context.Context, _ Args) error {
	h.editor.ComputeInlayHints(ctx)
	return nil
}
