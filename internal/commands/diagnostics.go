package commands

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/dshills/fanout/internal/editor"
	"github.com/dshills/fanout/internal/lsp"
)

// NoDiagnosticsMessage is shown when a diagnostics listing is empty.
const NoDiagnosticsMessage = "No diagnostics"

// Diagnostic is one entry of a diagnostics listing. Range is expressed in
// the publishing server's encoding.
type Diagnostic struct {
	URI      lsp.DocumentURI
	Path     string // set by the workspace listing
	Range    lsp.Range
	Encoding lsp.OffsetEncoding
	Server   string
	Severity lsp.DiagnosticSeverity
	Code     string
	Source   string
	Message  string

	offset int
}

func (h *Handler) diagnostics(_ context.Context, args Args) error {
	_, doc, err := h.target(args)
	if err != nil {
		return err
	}
	h.showDiagnostics(h.collectDiagnostics(doc, false))
	return nil
}

func (h *Handler) workspaceDiagnostics(_ context.Context, _ Args) error {
	var list []Diagnostic
	for _, doc := range h.editor.Documents() {
		list = append(list, h.collectDiagnostics(doc, true)...)
	}
	slices.SortStableFunc(list, func(a, b Diagnostic) int {
		return cmp.Or(cmp.Compare(a.URI, b.URI), cmp.Compare(a.offset, b.offset))
	})
	h.showDiagnostics(list)
	return nil
}

func (h *Handler) showDiagnostics(list []Diagnostic) {
	if len(list) == 0 {
		h.editor.Status().Set(NoDiagnosticsMessage)
		return
	}
	h.sink.ShowDiagnostics(list)
}

// collectDiagnostics flattens doc's diagnostics, each re-encoded for the
// server that published it. Diagnostics of servers no longer registered are
// skipped.
func (h *Handler) collectDiagnostics(doc *editor.Document, withPath bool) []Diagnostic {
	reg := h.editor.Registry()
	pc := doc.Text()

	var out []Diagnostic
	skipped := 0
	for _, d := range doc.Diagnostics() {
		client, ok := reg.Get(d.Server)
		if !ok {
			skipped++
			continue
		}
		enc := client.OffsetEncoding()
		sd := d.ToServer(pc, enc)
		entry := Diagnostic{
			URI:      doc.URI(),
			Range:    sd.Range,
			Encoding: enc,
			Server:   client.Name(),
			Severity: sd.Severity,
			Code:     diagnosticCode(sd.Code),
			Source:   sd.Source,
			Message:  sd.Message,
			offset:   d.Start,
		}
		if withPath {
			entry.Path = lsp.URIToFilePath(doc.URI())
		}
		out = append(out, entry)
	}
	if skipped > 0 {
		h.editor.Logger().Debug("diagnostics of departed servers skipped",
			"document", doc.URI(),
			"count", skipped)
	}
	slices.SortStableFunc(out, func(a, b Diagnostic) int { return cmp.Compare(a.offset, b.offset) })
	return out
}

// diagnosticCode renders a code that is a string or a number.
func diagnosticCode(code any) string {
	switch c := code.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return fmt.Sprintf("%g", c)
	default:
		return fmt.Sprint(c)
	}
}
