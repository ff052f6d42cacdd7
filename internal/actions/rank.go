package actions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/fanout/internal/lsp"
)

// Item is one entry of a merged code action list, tagged with the server
// that produced it.
type Item struct {
	lsp.CodeActionOrCommand
	Origin lsp.Origin
	Server string
}

// Kind returns the action kind, or "" for a bare command.
func (i Item) Kind() lsp.CodeActionKind {
	if i.Action != nil {
		return i.Action.Kind
	}
	return ""
}

// Disabled reports whether the producing server disabled the action.
// Commands are never disabled.
func (i Item) Disabled() bool {
	return i.Action != nil && i.Action.Disabled != nil
}

// FixesDiagnostic reports whether the action names a diagnostic it resolves.
func (i Item) FixesDiagnostic() bool {
	return i.Action != nil && len(i.Action.Diagnostics) > 0
}

// Preferred reports whether the producing server marked the action preferred.
func (i Item) Preferred() bool {
	return i.Action != nil && i.Action.IsPreferred
}

// Label formats the item for a menu.
func (i Item) Label() string {
	label := fmt.Sprintf("[%s] %s", KindName(i.Kind()), i.Title())
	if i.Preferred() {
		label += " (preferred)"
	}
	return label
}

// Category orders action kinds. Lower sorts first:
//
//	quickfix               0
//	refactor.extract       1
//	refactor.inline        2
//	refactor.rewrite       3
//	refactor.move          4
//	refactor.surround      5
//	source                 6
//	other refactor, other  7
func Category(kind lsp.CodeActionKind) int {
	parts := strings.Split(string(kind), ".")
	switch parts[0] {
	case "quickfix":
		return 0
	case "refactor":
		if len(parts) < 2 {
			return 7
		}
		switch parts[1] {
		case "extract":
			return 1
		case "inline":
			return 2
		case "rewrite":
			return 3
		case "move":
			return 4
		case "surround":
			return 5
		default:
			return 7
		}
	case "source":
		return 6
	default:
		return 7
	}
}

// Rank drops disabled actions and stable-sorts the rest by category, then
// diagnostic fixes first, then preferred first. Items equal on all three
// keep their merged order.
func Rank(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if !it.Disabled() {
			out = append(out, it)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ca, cb := Category(a.Kind()), Category(b.Kind()); ca != cb {
			return ca < cb
		}
		if a.FixesDiagnostic() != b.FixesDiagnostic() {
			return a.FixesDiagnostic()
		}
		if a.Preferred() != b.Preferred() {
			return a.Preferred()
		}
		return false
	})
	return out
}

// KindName returns a human-readable name for a code action kind.
func KindName(kind lsp.CodeActionKind) string {
	switch kind {
	case lsp.CodeActionKindQuickFix:
		return "Quick Fix"
	case lsp.CodeActionKindRefactor:
		return "Refactor"
	case lsp.CodeActionKindRefactorExtract:
		return "Extract"
	case lsp.CodeActionKindRefactorInline:
		return "Inline"
	case lsp.CodeActionKindRefactorRewrite:
		return "Rewrite"
	case lsp.CodeActionKindRefactorMove:
		return "Move"
	case lsp.CodeActionKindRefactorSurround:
		return "Surround"
	case lsp.CodeActionKindSource:
		return "Source"
	case lsp.CodeActionKindSourceOrganizeImports:
		return "Organize Imports"
	case lsp.CodeActionKindSourceFixAll:
		return "Fix All"
	default:
		if kind == "" {
			return "Action"
		}
		return string(kind)
	}
}
