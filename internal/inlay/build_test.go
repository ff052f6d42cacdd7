package inlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fanout/internal/lsp"
)

func hint(line, char int, label string, kind lsp.InlayHintKind) lsp.InlayHint {
	return lsp.InlayHint{Position: lsp.Position{Line: line, Character: char}, Label: label, Kind: kind}
}

func TestBuild_DropsUnmappableOnly(t *testing.T) {
	pc := lsp.NewPositionConverter("let x = 1;\nlet y = 2;\n")
	w := Window{0, 2}

	h, dropped := Build(w, []lsp.InlayHint{
		hint(0, 5, ": i32", lsp.InlayHintKindType),
		hint(7, 0, "lost", lsp.InlayHintKindType),
		hint(1, 5, ": i32", lsp.InlayHintKindType),
	}, pc, lsp.EncodingUTF16)

	assert.Equal(t, 1, dropped)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []Annotation{{Offset: 5, Text: ": i32"}, {Offset: 16, Text: ": i32"}}, h.Type)
	assert.Equal(t, w, h.Window)
}

func TestBuild_SortsAndBuckets(t *testing.T) {
	pc := lsp.NewPositionConverter("foo(a, b)\nbar(c)\n")

	padded := hint(0, 4, "x:", lsp.InlayHintKindParameter)
	padded.PaddingRight = true
	typed := hint(1, 0, "unit", 0)
	typed.PaddingLeft = true

	h, dropped := Build(Window{0, 2}, []lsp.InlayHint{
		typed,
		hint(0, 7, "y:", lsp.InlayHintKindParameter),
		padded,
	}, pc, lsp.EncodingUTF8)

	require.Zero(t, dropped)
	assert.Equal(t, []Annotation{{4, "x:"}, {7, "y:"}}, h.Parameter)
	assert.Equal(t, []Annotation{{10, "unit"}}, h.Other)
	assert.Empty(t, h.Type)
	assert.Equal(t, []Annotation{{10, " "}}, h.PaddingBefore)
	assert.Equal(t, []Annotation{{4, " "}}, h.PaddingAfter)
}

func TestBuild_UsesServerEncoding(t *testing.T) {
	// "日" is 3 UTF-8 bytes and 1 UTF-16 unit.
	pc := lsp.NewPositionConverter("日x")

	h8, _ := Build(Window{}, []lsp.InlayHint{hint(0, 3, "a", 0)}, pc, lsp.EncodingUTF8)
	h16, _ := Build(Window{}, []lsp.InlayHint{hint(0, 1, "a", 0)}, pc, lsp.EncodingUTF16)
	assert.Equal(t, h8.Other, h16.Other)
	assert.Equal(t, 1, h8.Other[0].Offset)
}

func TestBuild_Empty(t *testing.T) {
	h, dropped := Build(Window{3, 9}, nil, lsp.NewPositionConverter(""), lsp.EncodingUTF16)
	assert.Zero(t, dropped)
	assert.Zero(t, h.Len())
	assert.Equal(t, Window{3, 9}, h.Window)

	var none *Hints
	assert.Zero(t, none.Len())
}
