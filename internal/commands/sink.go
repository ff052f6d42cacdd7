package commands

import (
	"github.com/dshills/fanout/internal/actions"
	"github.com/dshills/fanout/internal/editor"
	"github.com/dshills/fanout/internal/lsp"
	"github.com/dshills/fanout/internal/symbols"
)

// Sink displays finished results. It owns rendering, filtering and choice;
// commands never ask it for state. Every method is called on the editor's
// coordinating goroutine.
type Sink interface {
	// ShowSymbols presents a symbol list. Labels are set for document
	// symbols; workspace symbols carry their bare name as label.
	ShowSymbols(syms []symbols.Symbol)

	// ShowCodeActions presents a ranked, non-empty action list. A chosen
	// item is applied with Handler.ApplyCodeAction.
	ShowCodeActions(items []actions.Item)

	// ShowLocations presents several goto results.
	ShowLocations(locs []lsp.Location)

	// JumpTo moves to a single goto result.
	JumpTo(loc lsp.Location)

	// ShowSelection is called after a command replaced doc's selection.
	ShowSelection(doc *editor.Document)

	// PromptRename asks for a new name, starting from prefill. The answer
	// is passed back through the rename command's NewName argument.
	PromptRename(prefill string)

	// ShowEdit is called after a workspace edit was applied.
	ShowEdit(edit *lsp.WorkspaceEdit)

	// ShowDiagnostics presents a non-empty diagnostics listing.
	ShowDiagnostics(diags []Diagnostic)
}
