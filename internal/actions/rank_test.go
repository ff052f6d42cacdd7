package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/fanout/internal/lsp"
)

func action(title string, kind lsp.CodeActionKind, fixes, preferred bool) Item {
	a := &lsp.CodeAction{Title: title, Kind: kind, IsPreferred: preferred}
	if fixes {
		a.Diagnostics = []lsp.Diagnostic{{Message: "unused variable"}}
	}
	return Item{CodeActionOrCommand: lsp.CodeActionOrCommand{Action: a}}
}

func titles(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title()
	}
	return out
}

func TestCategory(t *testing.T) {
	tests := map[lsp.CodeActionKind]int{
		"quickfix":               0,
		"quickfix.foo":           0,
		"refactor.extract":       1,
		"refactor.extract.bar":   1,
		"refactor.inline":        2,
		"refactor.rewrite":       3,
		"refactor.move":          4,
		"refactor.surround":      5,
		"source":                 6,
		"source.organizeImports": 6,
		"refactor":               7,
		"refactor.other":         7,
		"":                       7,
		"custom.kind":            7,
		"quickfixes":             7,
	}
	for kind, want := range tests {
		assert.Equal(t, want, Category(kind), "kind %q", kind)
	}
}

func TestRank_ByCategory(t *testing.T) {
	items := []Item{
		action("source.organizeImports", "source.organizeImports", false, false),
		action("quickfix.foo", "quickfix.foo", false, false),
		action("refactor.extract.bar", "refactor.extract.bar", false, false),
	}
	got := Rank(items)
	assert.Equal(t, []string{"quickfix.foo", "refactor.extract.bar", "source.organizeImports"}, titles(got))
}

func TestRank_FixesBeatPreferred(t *testing.T) {
	items := []Item{
		action("preferred", "quickfix", false, true),
		action("fixes", "quickfix", true, false),
	}
	assert.Equal(t, []string{"fixes", "preferred"}, titles(Rank(items)))
}

func TestRank_PreferredWithinFixStatus(t *testing.T) {
	items := []Item{
		action("plain", "refactor.inline", false, false),
		action("preferred", "refactor.inline", false, true),
	}
	assert.Equal(t, []string{"preferred", "plain"}, titles(Rank(items)))
}

func TestRank_StableAndCommandsLast(t *testing.T) {
	cmd := Item{CodeActionOrCommand: lsp.CodeActionOrCommand{Command: &lsp.Command{Title: "cmd", Command: "run"}}}
	items := []Item{
		action("no kind 1", "", false, false),
		cmd,
		action("no kind 2", "", false, false),
		action("fix", "quickfix", false, false),
	}
	assert.Equal(t, []string{"fix", "no kind 1", "cmd", "no kind 2"}, titles(Rank(items)))
}

func TestRank_DropsDisabled(t *testing.T) {
	disabled := action("disabled", "quickfix", true, true)
	disabled.Action.Disabled = &lsp.CodeActionDisabled{Reason: "not applicable"}

	got := Rank([]Item{disabled, action("ok", "source", false, false)})
	assert.Equal(t, []string{"ok"}, titles(got))
}

func TestItem_Label(t *testing.T) {
	assert.Equal(t, "[Quick Fix] Remove (preferred)", action("Remove", "quickfix", false, true).Label())
	cmd := Item{CodeActionOrCommand: lsp.CodeActionOrCommand{Command: &lsp.Command{Title: "Run tests"}}}
	assert.Equal(t, "[Action] Run tests", cmd.Label())
}
