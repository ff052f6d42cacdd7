package commands

import (
	"context"

	"github.com/dshills/fanout/internal/editor"
	"github.com/dshills/fanout/internal/lsp"
	"github.com/dshills/fanout/internal/symbols"
)

func (h *Handler) labelWidth() int {
	if w := h.editor.Config().Symbols.LabelWidth; w > 0 {
		return w
	}
	return h.displayWidth
}

func (h *Handler) documentSymbols(ctx context.Context, args Args) error {
	_, doc, err := h.target(args)
	if err != nil {
		return err
	}
	servers := lsp.Select(h.editor.Servers(doc), lsp.CapabilityDocumentSymbols)
	if len(servers) == 0 {
		h.noServer(lsp.CapabilityDocumentSymbols)
		return nil
	}

	svc := symbols.NewService(h.editor.Aggregator(), h.editor.Logger())
	ident := doc.Identifier()
	width := h.labelWidth()

	h.editor.Spawn(ctx, func(ctx context.Context) (editor.Callback, error) {
		syms, err := svc.Document(ctx, servers, ident)
		return func(e *editor.Editor) error {
			if err := settle(e, err); err != nil {
				return err
			}
			h.sink.ShowSymbols(symbols.Labelled(syms, width))
			return nil
		}, nil
	})
	return nil
}

func (h *Handler) workspaceSymbols(ctx context.Context, args Args) error {
	_, doc, err := h.target(args)
	if err != nil {
		return err
	}
	servers := lsp.Select(h.editor.Servers(doc), lsp.CapabilityWorkspaceSymbols)
	if len(servers) == 0 {
		h.noServer(lsp.CapabilityWorkspaceSymbols)
		return nil
	}

	svc := symbols.NewService(h.editor.Aggregator(), h.editor.Logger())
	query := args.Query

	h.editor.Spawn(ctx, func(ctx context.Context) (editor.Callback, error) {
		syms, err := svc.Workspace(ctx, servers, query)
		return func(e *editor.Editor) error {
			if err := settle(e, err); err != nil {
				return err
			}
			h.sink.ShowSymbols(syms)
			return nil
		}, nil
	})
	return nil
}
