package lsptest

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/fanout/internal/lsp"
)

// The builders below produce JSON fragments for scripted responses. They
// panic on malformed input since they only ever run inside tests and
// fixtures.

func set(json, path string, value any) string {
	out, err := sjson.Set(json, path, value)
	if err != nil {
		panic(err)
	}
	return out
}

func setRaw(json, path, raw string) string {
	out, err := sjson.SetRaw(json, path, raw)
	if err != nil {
		panic(err)
	}
	return out
}

// Array joins fragments into a JSON array.
func Array(items ...string) string {
	return "[" + strings.Join(items, ",") + "]"
}

// Rng builds a single-line range.
func Rng(line, startChar, endChar int) lsp.Range {
	return lsp.Range{
		Start: lsp.Position{Line: line, Character: startChar},
		End:   lsp.Position{Line: line, Character: endChar},
	}
}

// Symbol builds a nested DocumentSymbol with the given children fragments.
func Symbol(name string, kind lsp.SymbolKind, selection lsp.Range, children ...string) string {
	out := set("{}", "name", name)
	out = set(out, "kind", int(kind))
	out = set(out, "range", selection)
	out = set(out, "selectionRange", selection)
	if len(children) > 0 {
		out = setRaw(out, "children", Array(children...))
	}
	return out
}

// FlatSymbol builds a SymbolInformation.
func FlatSymbol(name string, kind lsp.SymbolKind, uri lsp.DocumentURI, rng lsp.Range) string {
	out := set("{}", "name", name)
	out = set(out, "kind", int(kind))
	out = set(out, "location", lsp.Location{URI: uri, Range: rng})
	return out
}

// ActionOption decorates a code action fragment.
type ActionOption func(string) string

// Preferred marks the action as preferred.
func Preferred() ActionOption {
	return func(s string) string { return set(s, "isPreferred", true) }
}

// Fixes attaches a diagnostic the action resolves.
func Fixes(message string, rng lsp.Range) ActionOption {
	return func(s string) string {
		if !gjson.Get(s, "diagnostics").Exists() {
			s = setRaw(s, "diagnostics", "[]")
		}
		return set(s, "diagnostics.-1", lsp.Diagnostic{Range: rng, Message: message})
	}
}

// Disabled marks the action disabled with a reason.
func Disabled(reason string) ActionOption {
	return func(s string) string { return set(s, "disabled.reason", reason) }
}

// WithEdit attaches a workspace edit replacing rng in uri.
func WithEdit(uri lsp.DocumentURI, rng lsp.Range, text string) ActionOption {
	return func(s string) string {
		edit := lsp.WorkspaceEdit{Changes: map[lsp.DocumentURI][]lsp.TextEdit{
			uri: {{Range: rng, NewText: text}},
		}}
		return set(s, "edit", edit)
	}
}

// WithCommand attaches a command to the action.
func WithCommand(title, command string) ActionOption {
	return func(s string) string {
		return set(s, "command", lsp.Command{Title: title, Command: command})
	}
}

// Action builds a CodeAction. An empty kind is omitted.
func Action(title string, kind lsp.CodeActionKind, opts ...ActionOption) string {
	out := set("{}", "title", title)
	if kind != "" {
		out = set(out, "kind", string(kind))
	}
	for _, opt := range opts {
		out = opt(out)
	}
	return out
}

// Command builds a bare Command as returned in a code action list.
func Command(title, command string) string {
	out := set("{}", "title", title)
	return set(out, "command", command)
}

// HintOption decorates an inlay hint fragment.
type HintOption func(string) string

// PadLeft sets paddingLeft.
func PadLeft() HintOption {
	return func(s string) string { return set(s, "paddingLeft", true) }
}

// PadRight sets paddingRight.
func PadRight() HintOption {
	return func(s string) string { return set(s, "paddingRight", true) }
}

// Hint builds an InlayHint. A zero kind is omitted.
func Hint(pos lsp.Position, label string, kind lsp.InlayHintKind, opts ...HintOption) string {
	out := set("{}", "position", pos)
	out = set(out, "label", label)
	if kind != 0 {
		out = set(out, "kind", int(kind))
	}
	for _, opt := range opts {
		out = opt(out)
	}
	return out
}

// Location builds a Location.
func Location(uri lsp.DocumentURI, rng lsp.Range) string {
	out := set("{}", "uri", string(uri))
	return set(out, "range", rng)
}

// Highlight builds a DocumentHighlight.
func Highlight(rng lsp.Range, kind lsp.DocumentHighlightKind) string {
	out := set("{}", "range", rng)
	return set(out, "kind", int(kind))
}
