package editor

import (
	"slices"

	"github.com/dshills/fanout/internal/lsp"
)

// Range is a span of rune offsets, End exclusive.
type Range struct {
	Start int
	End   int
}

// Contains reports whether offset lies inside the range. An empty range
// contains its own start.
func (r Range) Contains(offset int) bool {
	if r.Start == r.End {
		return offset == r.Start
	}
	return offset >= r.Start && offset < r.End
}

// Selection is a set of ranges with one primary range.
type Selection struct {
	Ranges  []Range
	Primary int
}

// Point returns a selection holding one empty range at offset.
func Point(offset int) Selection {
	return Selection{Ranges: []Range{{Start: offset, End: offset}}}
}

// PrimaryRange returns the primary range, or an empty range at zero for an
// empty selection.
func (s Selection) PrimaryRange() Range {
	if s.Primary < 0 || s.Primary >= len(s.Ranges) {
		return Range{}
	}
	return s.Ranges[s.Primary]
}

// Document is an open text document. Documents are owned by the Editor and
// must only be touched on its coordinating goroutine.
type Document struct {
	id          uint64
	uri         lsp.DocumentURI
	text        *lsp.PositionConverter
	version     int
	servers     []lsp.ServerID
	diagnostics []lsp.OffsetDiagnostic
	selection   Selection
	cursor      int
}

// ID returns the document identity.
func (d *Document) ID() uint64 { return d.id }

// URI returns the document URI.
func (d *Document) URI() lsp.DocumentURI { return d.uri }

// Identifier returns the protocol identifier for the document.
func (d *Document) Identifier() lsp.TextDocumentIdentifier {
	return lsp.TextDocumentIdentifier{URI: d.uri}
}

// Text returns the current text with its line index.
func (d *Document) Text() *lsp.PositionConverter { return d.text }

// Version increases with every change to the text.
func (d *Document) Version() int { return d.version }

// ServerIDs returns the attached servers in attachment order.
func (d *Document) ServerIDs() []lsp.ServerID {
	return slices.Clone(d.servers)
}

// Attach attaches a server. Attaching the same server twice has no effect.
func (d *Document) Attach(id lsp.ServerID) {
	if !slices.Contains(d.servers, id) {
		d.servers = append(d.servers, id)
	}
}

// Detach detaches a server.
func (d *Document) Detach(id lsp.ServerID) {
	d.servers = slices.DeleteFunc(d.servers, func(s lsp.ServerID) bool { return s == id })
}

// Diagnostics returns the document's diagnostics in rune offsets.
func (d *Document) Diagnostics() []lsp.OffsetDiagnostic { return d.diagnostics }

// SetDiagnostics replaces the document's diagnostics.
func (d *Document) SetDiagnostics(diags []lsp.OffsetDiagnostic) {
	d.diagnostics = diags
}

// Selection returns the current selection.
func (d *Document) Selection() Selection { return d.selection }

// SetSelection replaces the selection.
func (d *Document) SetSelection(sel Selection) {
	d.selection = d.clampSelection(sel)
}

// Cursor returns the cursor offset.
func (d *Document) Cursor() int { return d.cursor }

// SetCursor moves the cursor, clamped to the text.
func (d *Document) SetCursor(offset int) {
	d.cursor = d.clamp(offset)
}

func (d *Document) setText(text string) {
	d.text = lsp.NewPositionConverter(text)
	d.version++
	d.cursor = d.clamp(d.cursor)
	d.selection = d.clampSelection(d.selection)
}

func (d *Document) clamp(offset int) int {
	return max(0, min(offset, d.text.Len()))
}

func (d *Document) clampSelection(sel Selection) Selection {
	out := Selection{Ranges: make([]Range, len(sel.Ranges)), Primary: sel.Primary}
	for i, r := range sel.Ranges {
		out.Ranges[i] = Range{Start: d.clamp(r.Start), End: d.clamp(r.End)}
	}
	if out.Primary < 0 || out.Primary >= len(out.Ranges) {
		out.Primary = 0
	}
	return out
}
