package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/fanout/internal/actions"
	"github.com/dshills/fanout/internal/commands"
	"github.com/dshills/fanout/internal/editor"
	"github.com/dshills/fanout/internal/inlay"
	"github.com/dshills/fanout/internal/lsp"
	"github.com/dshills/fanout/internal/navigation"
	"github.com/dshills/fanout/internal/symbols"
)

// printSink writes every result as plain lines.
type printSink struct {
	out  io.Writer
	errs io.Writer

	// tree prints depth-labelled symbols instead of one location per line.
	tree bool

	actions []actions.Item
	failed  bool
}

func newPrintSink(out, errs io.Writer) *printSink {
	return &printSink{out: out, errs: errs}
}

// status prints a status line message.
func (p *printSink) status(msg editor.Message) {
	if msg.Severity == editor.SeverityError {
		p.failed = true
		fmt.Fprintf(p.errs, "error: %s\n", msg.Text)
		return
	}
	fmt.Fprintln(p.out, msg.Text)
}

func (p *printSink) ShowSymbols(syms []symbols.Symbol) {
	for _, s := range syms {
		if p.tree && s.Label != "" {
			fmt.Fprintln(p.out, s.Label)
			continue
		}
		fmt.Fprintf(p.out, "%s %s %s\n", symbols.KindAbbrev(s.Kind), s.Name, navigation.FormatLocation(s.Location))
	}
}

func (p *printSink) ShowCodeActions(items []actions.Item) {
	p.actions = items
	for i, item := range items {
		fmt.Fprintf(p.out, "%d. %s  <%s>\n", i+1, item.Label(), item.Server)
	}
}

func (p *printSink) ShowLocations(locs []lsp.Location) {
	for _, loc := range locs {
		fmt.Fprintln(p.out, navigation.FormatLocation(loc))
	}
}

func (p *printSink) JumpTo(loc lsp.Location) {
	fmt.Fprintf(p.out, "jump %s\n", navigation.FormatLocation(loc))
}

func (p *printSink) ShowSelection(doc *editor.Document) {
	sel := doc.Selection()
	pc := doc.Text()
	for i, r := range sel.Ranges {
		marker := " "
		if i == sel.Primary {
			marker = "*"
		}
		line := pc.OffsetToLine(r.Start)
		col := r.Start - pc.LineToOffset(line)
		fmt.Fprintf(p.out, "%s %d:%d %q\n", marker, line+1, col+1, pc.Slice(r.Start, r.End))
	}
}

func (p *printSink) PromptRename(prefill string) {
	fmt.Fprintf(p.out, "rename-to: %s\n", prefill)
}

func (p *printSink) ShowEdit(edit *lsp.WorkspaceEdit) {
	for _, line := range actions.Describe(edit) {
		fmt.Fprintf(p.out, "edit %s\n", line)
	}
}

// ShowDiagnostics prints one diagnostic per line with its start position in
// the publishing server's encoding.
func (p *printSink) ShowDiagnostics(diags []commands.Diagnostic) {
	for _, d := range diags {
		where := fmt.Sprintf("%d:%d", d.Range.Start.Line+1, d.Range.Start.Character+1)
		if d.Path != "" {
			where = d.Path + ":" + where
		}
		code := ""
		if d.Code != "" {
			code = " [" + d.Code + "]"
		}
		fmt.Fprintf(p.out, "%-7s %s%s %s  <%s %s>\n", severityName(d.Severity), where, code, d.Message, d.Server, d.Encoding)
	}
}

func severityName(s lsp.DiagnosticSeverity) string {
	switch s {
	case lsp.DiagnosticSeverityError:
		return "error"
	case lsp.DiagnosticSeverityWarning:
		return "warning"
	case lsp.DiagnosticSeverityInformation:
		return "info"
	case lsp.DiagnosticSeverityHint:
		return "hint"
	default:
		return "-"
	}
}

// showHints prints the installed annotations of a view, one per line, in
// document order within each bucket.
func (p *printSink) showHints(doc *editor.Document, hints *inlay.Hints) {
	if hints == nil {
		fmt.Fprintln(p.out, "no inlay hints")
		return
	}
	fmt.Fprintf(p.out, "window %s\n", hints.Window)
	pc := doc.Text()
	emit := func(bucket string, anns []inlay.Annotation) {
		for _, a := range anns {
			line := pc.OffsetToLine(a.Offset)
			col := a.Offset - pc.LineToOffset(line)
			fmt.Fprintf(p.out, "%-9s %d:%d %q\n", bucket, line+1, col+1, a.Text)
		}
	}
	emit("type", hints.Type)
	emit("parameter", hints.Parameter)
	emit("other", hints.Other)
}

// document prints the document text, for commands that edit it.
func (p *printSink) document(doc *editor.Document) {
	fmt.Fprintf(p.out, "--- %s (version %d)\n", doc.URI(), doc.Version())
	fmt.Fprint(p.out, doc.Text().Content())
	if !strings.HasSuffix(doc.Text().Content(), "\n") {
		fmt.Fprintln(p.out)
	}
}
