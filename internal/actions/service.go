package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dshills/fanout/internal/aggregate"
	"github.com/dshills/fanout/internal/lsp"
)

// Request describes where code actions are asked for. The selection and
// diagnostics are in rune offsets; each server receives them in its own
// encoding.
type Request struct {
	Document    lsp.TextDocumentIdentifier
	Text        *lsp.PositionConverter
	Start, End  int
	Diagnostics []lsp.OffsetDiagnostic
}

// Service fans code action requests out to servers and resolves the chosen
// action before it is applied.
type Service struct {
	agg    *aggregate.Aggregator
	logger *slog.Logger
}

// NewService creates a code action service.
func NewService(agg *aggregate.Aggregator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{agg: agg, logger: logger}
}

// List requests code actions from every server and returns the ranked,
// merged list. Under the partial aggregation policy the returned error may be
// aggregate.Failures alongside a usable list.
func (s *Service) List(ctx context.Context, servers []lsp.Client, req Request) ([]Item, error) {
	jobs := aggregate.Jobs(servers,
		func(c lsp.Client) lsp.Call {
			enc := c.OffsetEncoding()
			rng := req.Text.ToServerRange(req.Start, req.End, enc)
			return c.CodeActions(req.Document, rng, lsp.CodeActionContext{
				Diagnostics: lsp.DiagnosticsInRange(req.Text, req.Diagnostics, req.Start, req.End, enc),
				TriggerKind: lsp.CodeActionTriggerKindInvoked,
			})
		},
		lsp.DecodeCodeActions)

	batches, err := aggregate.Collect(ctx, s.agg, lsp.CapabilityCodeAction, jobs)
	if _, partial := aggregate.AsFailures(err); err != nil && !partial {
		return nil, err
	}

	var merged []Item
	for _, b := range batches {
		for _, a := range b.Items {
			merged = append(merged, Item{CodeActionOrCommand: a, Origin: b.Origin, Server: b.Name})
		}
	}
	return Rank(merged), err
}

// Resolve fills in a chosen action's edit and command when the server left
// them out and supports codeAction/resolve. A failed resolution falls back to
// the action as listed. The returned client is the one that produced item.
func (s *Service) Resolve(ctx context.Context, reg *lsp.Registry, item Item) (Item, lsp.Client, error) {
	client, ok := reg.Get(item.Origin.Server)
	if !ok {
		return item, nil, lsp.ErrServerGone
	}
	if item.Action == nil || (item.Action.Edit != nil && item.Action.Command != nil) {
		return item, client, nil
	}

	call := client.ResolveCodeAction(*item.Action)
	if call == nil {
		return item, client, nil
	}
	raw, err := call(ctx)
	if err == nil {
		var resolved *lsp.CodeAction
		if resolved, err = lsp.DecodeCodeAction(raw); err == nil {
			item.Action = resolved
			return item, client, nil
		}
	}
	s.logger.Warn("code action resolve failed, using unresolved action",
		"server", client.Name(), "title", item.Title(), "error", err)
	return item, client, nil
}

// Execute runs cmd on the server through workspace/executeCommand.
func (s *Service) Execute(ctx context.Context, client lsp.Client, cmd lsp.Command) error {
	call := client.ExecuteCommand(cmd)
	if call == nil {
		return fmt.Errorf("executing %q: %w", cmd.Command, lsp.ErrNotSupported)
	}
	if _, err := call(ctx); err != nil {
		return fmt.Errorf("executing %q: %w", cmd.Command, err)
	}
	return nil
}

// Plan splits a resolved item into the edit to apply and the command to run
// afterwards. Either may be nil.
func Plan(item Item) (*lsp.WorkspaceEdit, *lsp.Command) {
	if item.Command != nil {
		return nil, item.Command
	}
	if item.Action == nil {
		return nil, nil
	}
	return item.Action.Edit, item.Action.Command
}

// Describe renders a workspace edit as one line per change, for display sinks
// that only print.
func Describe(edit *lsp.WorkspaceEdit) []string {
	if edit == nil {
		return nil
	}
	var out []string
	for uri, edits := range edit.Changes {
		for _, e := range edits {
			out = append(out, fmt.Sprintf("%s %d:%d-%d:%d %s", uri,
				e.Range.Start.Line+1, e.Range.Start.Character+1,
				e.Range.End.Line+1, e.Range.End.Character+1,
				quote(e.NewText)))
		}
	}
	for _, dc := range edit.DocumentChanges {
		for _, e := range dc.Edits {
			out = append(out, fmt.Sprintf("%s %d:%d-%d:%d %s", dc.TextDocument.URI,
				e.Range.Start.Line+1, e.Range.Start.Character+1,
				e.Range.End.Line+1, e.Range.End.Character+1,
				quote(e.NewText)))
		}
	}
	sort.Strings(out)
	return out
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
