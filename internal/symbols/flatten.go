// Package symbols turns document and workspace symbol responses into flat,
// order-preserving lists for a picker.
package symbols

import (
	"math"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/dshills/fanout/internal/lsp"
)

// Symbol is one flat entry. Location is in Origin.Encoding.
type Symbol struct {
	Name      string
	Kind      lsp.SymbolKind
	Location  lsp.Location
	Container string
	Depth     int
	Origin    lsp.Origin

	// Label is the display text. It never affects identity or navigation.
	Label string
}

// Flatten walks a nested symbol tree in pre-order, parent before children.
// Each symbol's location is the owning document plus its selection range.
func Flatten(uri lsp.DocumentURI, tree []lsp.DocumentSymbol, origin lsp.Origin) []Symbol {
	var out []Symbol
	for i := range tree {
		out = flattenNode(out, uri, &tree[i], origin, 0)
	}
	return out
}

func flattenNode(out []Symbol, uri lsp.DocumentURI, sym *lsp.DocumentSymbol, origin lsp.Origin, depth int) []Symbol {
	out = append(out, Symbol{
		Name:     sym.Name,
		Kind:     sym.Kind,
		Location: lsp.Location{URI: uri, Range: sym.SelectionRange},
		Depth:    depth,
		Origin:   origin,
		Label:    sym.Name,
	})
	for i := range sym.Children {
		out = flattenNode(out, uri, &sym.Children[i], origin, depth+1)
	}
	return out
}

// FromInformation wraps flat SymbolInformation results.
func FromInformation(infos []lsp.SymbolInformation, origin lsp.Origin) []Symbol {
	out := make([]Symbol, 0, len(infos))
	for _, info := range infos {
		out = append(out, Symbol{
			Name:      info.Name,
			Kind:      info.Kind,
			Location:  info.Location,
			Container: info.ContainerName,
			Origin:    origin,
			Label:     info.Name,
		})
	}
	return out
}

// LabelWidth returns the label budget for a display of the given width.
// Wider displays spend a slightly larger share on the label.
func LabelWidth(displayWidth int) int {
	if displayWidth <= 0 {
		return 0
	}
	factor := 0.42
	switch {
	case displayWidth <= 80:
		factor = 0.38
	case displayWidth <= 110:
		factor = 0.40
	}
	return int(math.Floor(float64(displayWidth) * factor))
}

// Label builds a fixed-width label: an indent of depth*2 spaces and a dash
// for nested symbols, the name, and the kind abbreviation right-aligned to
// fill width. When name and indent already fill width the abbreviation is
// left out.
func Label(name string, kind lsp.SymbolKind, depth, width int) string {
	prefix := ""
	if depth > 0 {
		prefix = strings.Repeat(" ", depth*2) + "-"
	}

	used := len(prefix) + uniseg.StringWidth(name)
	if used >= width {
		return prefix + name
	}

	suffix := KindAbbrev(kind)
	if pad := width - used - len(suffix); pad > 0 {
		suffix = strings.Repeat(" ", pad) + suffix
	}
	return prefix + name + suffix
}

// Labelled returns a copy of syms with depth-aware labels for the given
// display width.
func Labelled(syms []Symbol, displayWidth int) []Symbol {
	width := LabelWidth(displayWidth)
	out := make([]Symbol, len(syms))
	for i, s := range syms {
		s.Label = Label(s.Name, s.Kind, s.Depth, width)
		out[i] = s
	}
	return out
}

var kindAbbrevs = map[lsp.SymbolKind]string{
	lsp.SymbolKindFile:          "file",
	lsp.SymbolKindModule:        "mod",
	lsp.SymbolKindNamespace:     "ns",
	lsp.SymbolKindPackage:       "pkg",
	lsp.SymbolKindClass:         "class",
	lsp.SymbolKindMethod:        "method",
	lsp.SymbolKindProperty:      "prop",
	lsp.SymbolKindField:         "field",
	lsp.SymbolKindConstructor:   "ctor",
	lsp.SymbolKindEnum:          "enum",
	lsp.SymbolKindInterface:     "iface",
	lsp.SymbolKindFunction:      "func",
	lsp.SymbolKindVariable:      "var",
	lsp.SymbolKindConstant:      "const",
	lsp.SymbolKindString:        "str",
	lsp.SymbolKindNumber:        "num",
	lsp.SymbolKindBoolean:       "bool",
	lsp.SymbolKindArray:         "array",
	lsp.SymbolKindObject:        "object",
	lsp.SymbolKindKey:           "key",
	lsp.SymbolKindNull:          "null",
	lsp.SymbolKindEnumMember:    "enum_var",
	lsp.SymbolKindStruct:        "struct",
	lsp.SymbolKindEvent:         "event",
	lsp.SymbolKindOperator:      "op",
	lsp.SymbolKindTypeParameter: "type_param",
}

// KindAbbrev returns the bracketed short name of a symbol kind.
func KindAbbrev(kind lsp.SymbolKind) string {
	if s, ok := kindAbbrevs[kind]; ok {
		return "[" + s + "]"
	}
	return "[??]"
}
