package commands

import (
	"context"

	"github.com/dshills/fanout/internal/actions"
	"github.com/dshills/fanout/internal/editor"
	"github.com/dshills/fanout/internal/lsp"
)

// NoCodeActionsMessage is shown when no server offered an applicable action.
const NoCodeActionsMessage = "No code actions available"

func (h *Handler) codeAction(ctx context.Context, args Args) error {
	_, doc, err := h.target(args)
	if err != nil {
		return err
	}
	servers := lsp.Select(h.editor.Servers(doc), lsp.CapabilityCodeAction)
	if len(servers) == 0 {
		h.noServer(lsp.CapabilityCodeAction)
		return nil
	}

	sel := doc.Selection().PrimaryRange()
	req := actions.Request{
		Document:    doc.Identifier(),
		Text:        doc.Text(),
		Start:       sel.Start,
		End:         sel.End,
		Diagnostics: doc.Diagnostics(),
	}
	svc := actions.NewService(h.editor.Aggregator(), h.editor.Logger())

	h.editor.Spawn(ctx, func(ctx context.Context) (editor.Callback, error) {
		items, err := svc.List(ctx, servers, req)
		return func(e *editor.Editor) error {
			if err := settle(e, err); err != nil {
				return err
			}
			if len(items) == 0 {
				e.Status().Error(NoCodeActionsMessage)
				return nil
			}
			h.sink.ShowCodeActions(items)
			return nil
		}, nil
	})
	return nil
}

// ApplyCodeAction applies an item chosen from a code action list. The item
// is resolved first when its server left the edit or command out. The edit
// is applied in the producing server's encoding, then the command runs.
func (h *Handler) ApplyCodeAction(ctx context.Context, item actions.Item) {
	svc := actions.NewService(h.editor.Aggregator(), h.editor.Logger())
	reg := h.editor.Registry()

	h.editor.Spawn(ctx, func(ctx context.Context) (editor.Callback, error) {
		resolved, client, err := svc.Resolve(ctx, reg, item)
		if err != nil {
			return nil, err
		}
		edit, cmd := actions.Plan(resolved)

		return func(e *editor.Editor) error {
			if edit != nil {
				if err := e.ApplyWorkspaceEdit(edit, client.OffsetEncoding()); err != nil {
					return err
				}
				h.sink.ShowEdit(edit)
			}
			if cmd != nil {
				h.executeCommand(ctx, svc, client, *cmd)
			}
			return nil
		}, nil
	})
}

func (h *Handler) executeCommand(ctx context.Context, svc *actions.Service, client lsp.Client, cmd lsp.Command) {
	h.editor.Spawn(ctx, func(ctx context.Context) (editor.Callback, error) {
		return nil, svc.Execute(ctx, client, cmd)
	})
}
