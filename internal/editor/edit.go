package editor

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/dshills/fanout/internal/lsp"
)

type change struct {
	start, end int
	text       string
}

// ApplyWorkspaceEdit applies edit, whose positions are in enc, to the open
// documents it names. Nothing is applied unless every change maps onto the
// current text and no two changes to a document overlap.
func (e *Editor) ApplyWorkspaceEdit(edit *lsp.WorkspaceEdit, enc lsp.OffsetEncoding) error {
	if edit == nil {
		return nil
	}

	byURI := make(map[lsp.DocumentURI][]lsp.TextEdit)
	for uri, edits := range edit.Changes {
		byURI[uri] = append(byURI[uri], edits...)
	}
	for _, dc := range edit.DocumentChanges {
		byURI[dc.TextDocument.URI] = append(byURI[dc.TextDocument.URI], dc.Edits...)
	}

	uris := make([]lsp.DocumentURI, 0, len(byURI))
	for uri := range byURI {
		uris = append(uris, uri)
	}
	slices.Sort(uris)

	type plan struct {
		doc     *Document
		changes []change
	}
	plans := make([]plan, 0, len(uris))
	for _, uri := range uris {
		doc, ok := e.DocumentByURI(uri)
		if !ok {
			return fmt.Errorf("applying edit to %s: %w", uri, ErrDocumentNotFound)
		}
		changes, err := mapEdits(doc.Text(), byURI[uri], enc)
		if err != nil {
			return fmt.Errorf("applying edit to %s: %w", uri, err)
		}
		plans = append(plans, plan{doc: doc, changes: changes})
	}

	for _, p := range plans {
		if err := e.Edit(p.doc.id, splice(p.doc.Text(), p.changes)); err != nil {
			return err
		}
	}
	return nil
}

func mapEdits(pc *lsp.PositionConverter, edits []lsp.TextEdit, enc lsp.OffsetEncoding) ([]change, error) {
	changes := make([]change, 0, len(edits))
	for _, te := range edits {
		start, end, ok := pc.ToDocumentRange(te.Range, enc)
		if !ok || start > end {
			return nil, fmt.Errorf("range %d:%d-%d:%d: %w",
				te.Range.Start.Line, te.Range.Start.Character,
				te.Range.End.Line, te.Range.End.Character, ErrInvalidEdit)
		}
		changes = append(changes, change{start: start, end: end, text: te.NewText})
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].start < changes[j].start
	})
	for i := 1; i < len(changes); i++ {
		if changes[i].start < changes[i-1].end {
			return nil, fmt.Errorf("overlapping changes at offset %d: %w", changes[i].start, ErrInvalidEdit)
		}
	}
	return changes, nil
}

func splice(pc *lsp.PositionConverter, changes []change) string {
	var sb strings.Builder
	prev := 0
	for _, c := range changes {
		sb.WriteString(pc.Slice(prev, c.start))
		sb.WriteString(c.text)
		prev = c.end
	}
	sb.WriteString(pc.Slice(prev, pc.Len()))
	return sb.String()
}
