package editor

import (
	"context"

	"github.com/dshills/fanout/internal/aggregate"
	"github.com/dshills/fanout/internal/inlay"
	"github.com/dshills/fanout/internal/lsp"
	"github.com/dshills/fanout/internal/telemetry"
)

// InlayHints returns the hints installed for a view, if any.
func (e *Editor) InlayHints(viewID uint64) (*inlay.Hints, bool) {
	v, ok := e.views[viewID]
	if !ok {
		return nil, false
	}
	return e.hints.Hints(inlay.Key{View: viewID, Document: v.doc})
}

// InlayOutdated reports whether a document's hints are marked outdated.
func (e *Editor) InlayOutdated(docID uint64) bool {
	return e.hints.Outdated(docID)
}

// ComputeInlayHints requests inlay hints for every view whose target window
// or document changed since its hints were last installed. It does nothing
// while inlay hints are turned off.
func (e *Editor) ComputeInlayHints(ctx context.Context) {
	if !e.cfg.LSP.DisplayInlayHints {
		return
	}
	for _, v := range e.Views() {
		e.computeViewHints(ctx, v)
	}
}

func (e *Editor) computeViewHints(ctx context.Context, v *View) {
	doc, ok := e.docs[v.doc]
	if !ok {
		return
	}
	server, ok := lsp.First(e.Servers(doc), lsp.CapabilityInlayHints)
	if !ok {
		return
	}

	pc := doc.Text()
	target := v.TargetWindow(pc.LineCount())
	ticket, ok := e.hints.Plan(inlay.Key{View: v.id, Document: doc.id}, target)
	if !ok {
		telemetry.RecordInlay(telemetry.InlaySkipped)
		return
	}
	telemetry.RecordInlay(telemetry.InlayFetched)

	enc := server.OffsetEncoding()
	ident := doc.Identifier()
	rng := pc.ToServerRange(pc.LineToOffset(target.First), pc.LineEndOffset(target.Last), enc)
	agg := e.agg

	e.Spawn(ctx, func(ctx context.Context) (Callback, error) {
		ctx, span := telemetry.StartInlayFetch(ctx, string(ident.URI), target.First, target.Last)
		batch, err := aggregate.One(ctx, agg, lsp.CapabilityInlayHints, server,
			func(c lsp.Client) lsp.Call { return c.InlayHints(ident, rng) },
			lsp.DecodeInlayHints)
		telemetry.EndSpan(span, err)

		return func(e *Editor) error {
			e.installHints(ticket, batch, err)
			return nil
		}, nil
	})
}

// installHints applies a finished fetch. Failures are logged rather than
// shown: hints are ambient and the next trigger retries.
func (e *Editor) installHints(t inlay.Ticket, batch aggregate.Batch[[]lsp.InlayHint], err error) {
	discard := func(reason string) {
		e.hints.Abandon(t)
		telemetry.RecordInlay(telemetry.InlayDiscarded)
		e.logger.Debug("discarding inlay hints", "reason", reason,
			"view", t.Key.View, "document", t.Key.Document, "window", t.Window.String())
	}

	if !e.cfg.LSP.DisplayInlayHints {
		discard("disabled")
		return
	}
	v, vok := e.views[t.Key.View]
	doc, dok := e.docs[t.Key.Document]
	if !vok || !dok {
		discard("closed")
		return
	}
	if err != nil {
		e.hints.Abandon(t)
		e.logger.Warn("inlay hint request failed", "document", doc.uri, "error", err)
		return
	}

	pc := doc.Text()
	hints, dropped := inlay.Build(t.Window, batch.Items, pc, batch.Origin.Encoding)
	if dropped > 0 {
		telemetry.RecordDropped(lsp.CapabilityInlayHints.String(), dropped)
		e.logger.Debug("dropped unmappable inlay hints", "document", doc.uri, "count", dropped)
	}

	switch e.hints.Install(t, hints, v.TargetWindow(pc.LineCount())) {
	case inlay.Installed:
		if hints.Len() == 0 {
			telemetry.RecordInlay(telemetry.InlayCleared)
		} else {
			telemetry.RecordInlay(telemetry.InlayInstalled)
		}
	case inlay.Moved:
		telemetry.RecordInlay(telemetry.InlayDiscarded)
		e.logger.Debug("discarding inlay hints", "reason", "moved", "window", t.Window.String())
	case inlay.Vanished:
		telemetry.RecordInlay(telemetry.InlayDiscarded)
	}
}
