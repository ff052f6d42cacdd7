package inlay

import (
	"sort"

	"github.com/dshills/fanout/internal/lsp"
)

// Annotation is virtual text inserted before the character at Offset.
type Annotation struct {
	Offset int
	Text   string
}

// Hints is the installed annotation set for one (view, document) pair. The
// five buckets are always replaced together.
type Hints struct {
	Window Window

	Type          []Annotation
	Parameter     []Annotation
	Other         []Annotation
	PaddingBefore []Annotation
	PaddingAfter  []Annotation
}

// Empty returns a hint set with no annotations for w.
func Empty(w Window) *Hints {
	return &Hints{Window: w}
}

// Len returns the number of hint annotations, not counting padding.
func (h *Hints) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Type) + len(h.Parameter) + len(h.Other)
}

// Build converts a server response into annotations. Hints are sorted by
// position first since servers need not sort them. A hint whose position does
// not map into the document is dropped; dropped reports how many were.
func Build(w Window, hints []lsp.InlayHint, pc *lsp.PositionConverter, enc lsp.OffsetEncoding) (h *Hints, dropped int) {
	h = Empty(w)
	if len(hints) == 0 {
		return h, 0
	}

	sorted := make([]lsp.InlayHint, len(hints))
	copy(sorted, hints)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lsp.IsPositionBefore(sorted[i].Position, sorted[j].Position)
	})

	for _, hint := range sorted {
		off, ok := pc.ToDocumentOffset(hint.Position, enc)
		if !ok {
			dropped++
			continue
		}

		if hint.PaddingLeft {
			h.PaddingBefore = append(h.PaddingBefore, Annotation{Offset: off, Text: " "})
		}

		ann := Annotation{Offset: off, Text: hint.Label}
		switch hint.Kind {
		case lsp.InlayHintKindType:
			h.Type = append(h.Type, ann)
		case lsp.InlayHintKindParameter:
			h.Parameter = append(h.Parameter, ann)
		default:
			h.Other = append(h.Other, ann)
		}

		if hint.PaddingRight {
			h.PaddingAfter = append(h.PaddingAfter, Annotation{Offset: off, Text: " "})
		}
	}
	return h, dropped
}
