package lsptest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fanout/internal/lsp"
)

func TestTransport_ScriptedQueue(t *testing.T) {
	tr := NewTransport()
	tr.Reply("workspace/symbol", "[]")
	tr.On("workspace/symbol", Response{Err: errors.New("down")})

	raw, err := tr.Call(context.Background(), "workspace/symbol", nil)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(raw))

	for range 2 {
		_, err = tr.Call(context.Background(), "workspace/symbol", nil)
		assert.EqualError(t, err, "down")
	}

	raw, err = tr.Call(context.Background(), "textDocument/hover", "p")
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	assert.Equal(t, 3, tr.Calls("workspace/symbol"))
	params, ok := tr.LastParams("textDocument/hover")
	require.True(t, ok)
	assert.Equal(t, "p", params)
	assert.Len(t, tr.Invocations(), 4)
}

func TestTransport_DelayHonoursContext(t *testing.T) {
	tr := NewTransport().On("m", Response{Delay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := tr.Call(ctx, "m", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPayloads_Decode(t *testing.T) {
	uri := lsp.DocumentURI("file:///a.go")

	nested, _, err := lsp.DecodeDocumentSymbols(json.RawMessage(Array(
		Symbol("A", lsp.SymbolKindClass, Rng(0, 0, 1),
			Symbol("B", lsp.SymbolKindMethod, Rng(1, 0, 1))),
	)))
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, "B", nested[0].Children[0].Name)

	actions, err := lsp.DecodeCodeActions(json.RawMessage(Array(
		Action("fix", lsp.CodeActionKindQuickFix, Preferred(), Fixes("unused", Rng(2, 0, 4)), Fixes("shadow", Rng(2, 0, 4))),
		Action("later", "", Disabled("not yet")),
		Command("run", "tool.run"),
	)))
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.True(t, actions[0].Action.IsPreferred)
	assert.Len(t, actions[0].Action.Diagnostics, 2)
	assert.NotNil(t, actions[1].Action.Disabled)
	assert.Equal(t, "tool.run", actions[2].Command.Command)

	hints, err := lsp.DecodeInlayHints(json.RawMessage(Array(
		Hint(lsp.Position{Line: 1, Character: 2}, ": int", lsp.InlayHintKindType, PadLeft()),
	)))
	require.NoError(t, err)
	require.Len(t, hints, 1)
	assert.True(t, hints[0].PaddingLeft)

	locs, err := lsp.DecodeLocations(json.RawMessage(Location(uri, Rng(4, 1, 2))))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, uri, locs[0].URI)
}

func TestNewServer(t *testing.T) {
	s := NewServer("gopls", lsp.EncodingUTF8, AllCapabilities())
	assert.Equal(t, lsp.ServerID("gopls"), s.ID())
	assert.Equal(t, lsp.EncodingUTF8, s.OffsetEncoding())
	assert.NotNil(t, s.PrepareRename(lsp.TextDocumentIdentifier{}, lsp.Position{}))
}

func TestStreamServer_RoundTrip(t *testing.T) {
	s := NewStreamServer(t.Context(), "gopls", lsp.EncodingUTF16, AllCapabilities())
	defer s.Close()
	s.Transport.Reply("textDocument/definition", `{"uri":"file:///a.go","range":{"start":{"line":1,"character":2},"end":{"line":1,"character":5}}}`)
	s.Transport.On("textDocument/references", Response{Err: errors.New("index not ready")})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	raw, err := s.GotoDefinition(lsp.TextDocumentIdentifier{URI: "file:///a.go"}, lsp.Position{Line: 1, Character: 3})(ctx)
	require.NoError(t, err)
	locs, err := lsp.DecodeLocations(raw)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, 2, locs[0].Range.Start.Character)

	_, err = s.References(lsp.TextDocumentIdentifier{URI: "file:///a.go"}, lsp.Position{}, true)(ctx)
	var rpcErr *lsp.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "index not ready", rpcErr.Message)

	assert.Equal(t, 1, s.Transport.Calls("textDocument/definition"))
}
