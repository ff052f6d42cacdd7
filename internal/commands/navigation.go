package commands

import (
	"context"

	"github.com/dshills/fanout/internal/editor"
	"github.com/dshills/fanout/internal/lsp"
	"github.com/dshills/fanout/internal/navigation"
	"github.com/dshills/fanout/internal/telemetry"
)

var gotoTargets = map[string]navigation.Target{
	CommandGotoDeclaration:    navigation.Declaration,
	CommandGotoDefinition:     navigation.Definition,
	CommandGotoTypeDefinition: navigation.TypeDefinition,
	CommandGotoImplementation: navigation.Implementation,
	CommandFindReferences:     navigation.References,
}

func (h *Handler) navService() *navigation.Service {
	svc := navigation.NewService(h.editor.Aggregator(), h.editor.Logger())
	svc.IncludeDeclaration = h.editor.Config().LSP.GotoReferenceIncludeDeclaration
	return svc
}

func (h *Handler) gotoCommand(name string) commandFunc {
	target := gotoTargets[name]
	return func(ctx context.Context, args Args) error {
		_, doc, err := h.target(args)
		if err != nil {
			return err
		}
		server, ok := lsp.First(h.editor.Servers(doc), target.Capability())
		if !ok {
			h.noServer(target.Capability())
			return nil
		}

		svc := h.navService()
		ident, pc, cursor := doc.Identifier(), doc.Text(), doc.Cursor()

		h.editor.Spawn(ctx, func(ctx context.Context) (editor.Callback, error) {
			locs, err := svc.Goto(ctx, server, target, ident, pc, cursor)
			if err != nil {
				return nil, err
			}
			return func(e *editor.Editor) error {
				switch len(locs.Items) {
				case 0:
					e.Status().Error(target.EmptyMessage())
				case 1:
					h.jump(e, locs.Items[0], locs.Origin.Encoding, target.Capability())
				default:
					h.sink.ShowLocations(locs.Items)
				}
				return nil
			}, nil
		})
		return nil
	}
}

// jump moves the cursor when the location is in an open document, then
// tells the sink.
func (h *Handler) jump(e *editor.Editor, loc lsp.Location, enc lsp.OffsetEncoding, c lsp.Capability) {
	if doc, ok := e.DocumentByURI(loc.URI); ok {
		if off, ok := doc.Text().ToDocumentOffset(loc.Range.Start, enc); ok {
			doc.SetCursor(off)
			doc.SetSelection(editor.Point(off))
		} else {
			telemetry.RecordDropped(c.String(), 1)
		}
	}
	h.sink.JumpTo(loc)
}

func (h *Handler) documentHighlight(ctx context.Context, args Args) error {
	_, doc, err := h.target(args)
	if err != nil {
		return err
	}
	server, ok := lsp.First(h.editor.Servers(doc), lsp.CapabilityDocumentHighlight)
	if !ok {
		h.noServer(lsp.CapabilityDocumentHighlight)
		return nil
	}

	svc := h.navService()
	docID := doc.ID()
	ident, pc, cursor := doc.Identifier(), doc.Text(), doc.Cursor()

	h.editor.Spawn(ctx, func(ctx context.Context) (editor.Callback, error) {
		hl, err := svc.Highlight(ctx, server, ident, pc, cursor)
		if err != nil {
			return nil, err
		}
		return func(e *editor.Editor) error {
			doc, ok := e.Document(docID)
			if !ok {
				return nil
			}
			spans, primary, dropped := hl.Selection(doc.Text(), doc.Cursor())
			telemetry.RecordDropped(lsp.CapabilityDocumentHighlight.String(), dropped)
			if len(spans) == 0 {
				return nil
			}

			sel := editor.Selection{Ranges: make([]editor.Range, len(spans)), Primary: primary}
			for i, s := range spans {
				sel.Ranges[i] = editor.Range{Start: s.Start, End: s.End}
			}
			doc.SetSelection(sel)
			h.sink.ShowSelection(doc)
			return nil
		}, nil
	})
	return nil
}

// rename asks for a new name when args.NewName is empty, otherwise renames
// the symbol under the cursor and applies the returned edit.
func (h *Handler) rename(ctx context.Context, args Args) error {
	_, doc, err := h.target(args)
	if err != nil {
		return err
	}
	server, prepare, ok := navigation.RenameServer(h.editor.Servers(doc))
	if !ok {
		h.noServer(lsp.CapabilityRenameSymbol)
		return nil
	}

	svc := h.navService()
	ident, pc, cursor := doc.Identifier(), doc.Text(), doc.Cursor()
	sel := doc.Selection().PrimaryRange()

	if args.NewName == "" {
		h.editor.Spawn(ctx, func(ctx context.Context) (editor.Callback, error) {
			var res *lsp.PrepareRenameResult
			if prepare {
				var err error
				if res, err = svc.PrepareRename(ctx, server, ident, pc, cursor); err != nil {
					return nil, err
				}
			}
			prefill, err := navigation.Prefill(res, prepare, pc, server.OffsetEncoding(), sel.Start, sel.End, cursor)
			if err != nil {
				return nil, err
			}
			return func(*editor.Editor) error {
				h.sink.PromptRename(prefill)
				return nil
			}, nil
		})
		return nil
	}

	newName := args.NewName
	h.editor.Spawn(ctx, func(ctx context.Context) (editor.Callback, error) {
		edit, origin, err := svc.Rename(ctx, server, ident, pc, cursor, newName)
		if err != nil {
			return nil, err
		}
		return func(e *editor.Editor) error {
			if edit == nil {
				return nil
			}
			if err := e.ApplyWorkspaceEdit(edit, origin.Encoding); err != nil {
				return err
			}
			h.sink.ShowEdit(edit)
			return nil
		}, nil
	})
	return nil
}
