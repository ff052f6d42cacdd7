package navigation

import (
	"context"

	"github.com/dshills/fanout/internal/aggregate"
	"github.com/dshills/fanout/internal/lsp"
)

// Span is a half-open range of rune offsets.
type Span struct {
	Start, End int
}

// Contains reports whether offset lies in [Start, End).
func (s Span) Contains(offset int) bool {
	return s.Start <= offset && offset < s.End
}

// Highlights is a document highlight response. Ranges are in Origin.Encoding
// and are mapped against the text current when the response is applied.
type Highlights struct {
	Origin lsp.Origin
	Items  []lsp.DocumentHighlight
}

// Highlight asks server for the occurrences of the symbol under the cursor.
func (s *Service) Highlight(ctx context.Context, server lsp.Client, doc lsp.TextDocumentIdentifier, pc *lsp.PositionConverter, cursor int) (Highlights, error) {
	pos := pc.ToServerPosition(cursor, server.OffsetEncoding())
	batch, err := aggregate.One(ctx, s.agg, lsp.CapabilityDocumentHighlight, server,
		func(c lsp.Client) lsp.Call { return c.DocumentHighlight(doc, pos) },
		lsp.DecodeDocumentHighlights)
	if err != nil {
		return Highlights{}, err
	}
	return Highlights{Origin: batch.Origin, Items: batch.Items}, nil
}

// Selection maps highlights into spans. Ranges that do not map are dropped.
// primary is the index of the last span containing cursor, or 0.
func (h Highlights) Selection(pc *lsp.PositionConverter, cursor int) (spans []Span, primary int, dropped int) {
	for _, hl := range h.Items {
		start, end, ok := pc.ToDocumentRange(hl.Range, h.Origin.Encoding)
		if !ok {
			dropped++
			continue
		}
		span := Span{Start: start, End: end}
		if span.Contains(cursor) {
			primary = len(spans)
		}
		spans = append(spans, span)
	}
	return spans, primary, dropped
}
