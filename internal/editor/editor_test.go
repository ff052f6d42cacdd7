package editor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/inlay"
	"github.com/dshills/fanout/internal/lsp"
	"github.com/dshills/fanout/internal/lsptest"
)

const uri = lsp.DocumentURI("file:///main.go")

func newEditor(t *testing.T, servers ...*lsptest.Server) (*Editor, *Document) {
	t.Helper()
	reg := lsp.NewRegistry()
	e := New(reg)
	t.Cleanup(e.Shutdown)

	doc := e.Open(uri, strings.Repeat("x := 1\n", 100))
	for _, s := range servers {
		require.NoError(t, reg.Register(s))
		doc.Attach(s.ID())
	}
	return e, doc
}

func run(t *testing.T, e *Editor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.RunUntilIdle(ctx))
}

func hintServer() *lsptest.Server {
	s := lsptest.NewServer("hints", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityInlayHints))
	s.Transport.Reply("textDocument/inlayHint", lsptest.Array(
		lsptest.Hint(lsp.Position{Line: 2, Character: 0}, "b", lsp.InlayHintKindParameter),
		lsptest.Hint(lsp.Position{Line: 500, Character: 0}, "gone", lsp.InlayHintKindType),
		lsptest.Hint(lsp.Position{Line: 1, Character: 1}, ": int", lsp.InlayHintKindType, lsptest.PadLeft()),
	))
	return s
}

func TestDocumentAttachDetach(t *testing.T) {
	e, doc := newEditor(t)
	doc.Attach("a")
	doc.Attach("b")
	doc.Attach("a")
	assert.Equal(t, []lsp.ServerID{"a", "b"}, doc.ServerIDs())

	doc.Detach("a")
	assert.Equal(t, []lsp.ServerID{"b"}, doc.ServerIDs())
	assert.Empty(t, e.Servers(doc), "unregistered servers are not resolved")
}

func TestDocumentSelectionClamped(t *testing.T) {
	e := New(lsp.NewRegistry())
	doc := e.Open(uri, "abc")

	doc.SetSelection(Selection{Ranges: []Range{{1, 2}, {2, 99}}, Primary: 5})
	sel := doc.Selection()
	assert.Equal(t, Range{2, 3}, sel.Ranges[1])
	assert.Equal(t, 0, sel.Primary)

	doc.SetCursor(-4)
	assert.Equal(t, 0, doc.Cursor())
}

func TestCloseDropsViews(t *testing.T) {
	e, doc := newEditor(t)
	v, err := e.OpenView(doc.ID(), 0, 10)
	require.NoError(t, err)

	require.NoError(t, e.Close(doc.ID()))
	_, ok := e.View(v.ID())
	assert.False(t, ok)
	assert.ErrorIs(t, e.Close(doc.ID()), ErrDocumentNotFound)
	_, err = e.OpenView(doc.ID(), 0, 1)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestApplyWorkspaceEdit(t *testing.T) {
	e := New(lsp.NewRegistry())
	doc := e.Open(uri, "héllo wörld\nbye\n")
	other := e.Open("file:///other.go", "package other\n")

	edit := &lsp.WorkspaceEdit{
		Changes: map[lsp.DocumentURI][]lsp.TextEdit{
			uri: {
				{Range: lsptest.Rng(1, 0, 3), NewText: "hi"},
				{Range: lsptest.Rng(0, 6, 11), NewText: "there"},
			},
		},
		DocumentChanges: []lsp.TextDocumentEdit{{
			TextDocument: lsp.TextDocumentIdentifier{URI: "file:///other.go"},
			Edits:        []lsp.TextEdit{{Range: lsptest.Rng(0, 8, 13), NewText: "main"}},
		}},
	}
	require.NoError(t, e.ApplyWorkspaceEdit(edit, lsp.EncodingUTF16))

	assert.Equal(t, "héllo there\nhi\n", doc.Text().Content())
	assert.Equal(t, "package main\n", other.Text().Content())
	assert.Equal(t, 1, doc.Version())
	assert.True(t, e.InlayOutdated(doc.ID()))
}

func TestApplyWorkspaceEditUTF8(t *testing.T) {
	e := New(lsp.NewRegistry())
	doc := e.Open(uri, "é = 1\n")

	// "é" is two bytes, so the '=' sits at UTF-8 column 3.
	edit := &lsp.WorkspaceEdit{Changes: map[lsp.DocumentURI][]lsp.TextEdit{
		uri: {{Range: lsptest.Rng(0, 3, 4), NewText: ":="}},
	}}
	require.NoError(t, e.ApplyWorkspaceEdit(edit, lsp.EncodingUTF8))
	assert.Equal(t, "é := 1\n", doc.Text().Content())
}

func TestApplyWorkspaceEditRejected(t *testing.T) {
	e := New(lsp.NewRegistry())
	doc := e.Open(uri, "abcdef\n")

	overlap := &lsp.WorkspaceEdit{Changes: map[lsp.DocumentURI][]lsp.TextEdit{
		uri: {
			{Range: lsptest.Rng(0, 0, 3), NewText: "x"},
			{Range: lsptest.Rng(0, 2, 4), NewText: "y"},
		},
	}}
	assert.ErrorIs(t, e.ApplyWorkspaceEdit(overlap, lsp.EncodingUTF16), ErrInvalidEdit)

	outside := &lsp.WorkspaceEdit{Changes: map[lsp.DocumentURI][]lsp.TextEdit{
		uri: {{Range: lsptest.Rng(9, 0, 1), NewText: "x"}},
	}}
	assert.ErrorIs(t, e.ApplyWorkspaceEdit(outside, lsp.EncodingUTF16), ErrInvalidEdit)

	unknown := &lsp.WorkspaceEdit{Changes: map[lsp.DocumentURI][]lsp.TextEdit{
		uri:                 {{Range: lsptest.Rng(0, 0, 1), NewText: "z"}},
		"file:///absent.go": {{Range: lsptest.Rng(0, 0, 0), NewText: "x"}},
	}}
	assert.ErrorIs(t, e.ApplyWorkspaceEdit(unknown, lsp.EncodingUTF16), ErrDocumentNotFound)

	assert.Equal(t, "abcdef\n", doc.Text().Content(), "rejected edits change nothing")
	assert.Equal(t, 0, doc.Version())
}

func TestSpawnErrorReachesStatus(t *testing.T) {
	e, _ := newEditor(t)
	e.Spawn(context.Background(), func(context.Context) (Callback, error) {
		return nil, errors.New("transport closed")
	})
	run(t, e)

	msg, ok := e.Status().Last()
	require.True(t, ok)
	assert.Equal(t, Message{Text: "transport closed", Severity: SeverityError}, msg)
}

func TestStatusServerGone(t *testing.T) {
	var seen []Message
	var s Status
	s.OnMessage(func(m Message) { seen = append(seen, m) })

	s.Report(lsp.ErrServerGone)
	s.Set("ok")
	s.Report(nil)

	require.Len(t, seen, 2)
	assert.Equal(t, "Language Server disappeared", seen[0].Text)
	assert.Equal(t, SeverityInfo, seen[1].Severity)
}

func TestDispatchFromOtherGoroutine(t *testing.T) {
	e, doc := newEditor(t)
	go e.Dispatch(func(e *Editor) error {
		return e.Edit(doc.ID(), "changed")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for doc.Text().Content() != "changed" {
		select {
		case cb := <-e.callbacks:
			e.apply(cb)
		case <-ctx.Done():
			t.Fatal("dispatched callback never ran")
		}
	}
	assert.Equal(t, 0, e.Pending())
}

func TestInlayHintsInstalled(t *testing.T) {
	s := hintServer()
	e, doc := newEditor(t, s)
	v, err := e.OpenView(doc.ID(), 0, 10)
	require.NoError(t, err)

	e.ComputeInlayHints(context.Background())
	run(t, e)

	hints, ok := e.InlayHints(v.ID())
	require.True(t, ok)
	assert.Equal(t, inlay.Window{First: 0, Last: 29}, hints.Window)
	assert.Equal(t, 2, hints.Len(), "the unmappable hint is dropped, the others kept")
	assert.Equal(t, []inlay.Annotation{{Offset: 8, Text: ": int"}}, hints.Type)
	assert.Equal(t, []inlay.Annotation{{Offset: 14, Text: "b"}}, hints.Parameter)
	assert.Equal(t, []inlay.Annotation{{Offset: 8, Text: " "}}, hints.PaddingBefore)
	assert.False(t, e.InlayOutdated(doc.ID()))

	raw, _ := s.Transport.LastParams("textDocument/inlayHint")
	params := raw.(lsp.InlayHintParams)
	assert.Equal(t, lsp.Range{Start: lsp.Position{Line: 0}, End: lsp.Position{Line: 29, Character: 6}}, params.Range)

	// Same window, document unchanged: nothing to do.
	e.ComputeInlayHints(context.Background())
	run(t, e)
	assert.Equal(t, 1, s.Transport.Calls("textDocument/inlayHint"))

	// An edit marks the document outdated and forces a fetch.
	require.NoError(t, e.Edit(doc.ID(), doc.Text().Content()+"y\n"))
	e.ComputeInlayHints(context.Background())
	run(t, e)
	assert.Equal(t, 2, s.Transport.Calls("textDocument/inlayHint"))
	assert.False(t, e.InlayOutdated(doc.ID()))
}

func TestInlayHintsEmptyResponseClears(t *testing.T) {
	s := hintServer()
	s.Transport.Reply("textDocument/inlayHint", "null")
	e, doc := newEditor(t, s)
	v, _ := e.OpenView(doc.ID(), 0, 10)

	e.ComputeInlayHints(context.Background())
	run(t, e)
	hints, _ := e.InlayHints(v.ID())
	require.Equal(t, 2, hints.Len())

	require.NoError(t, e.Edit(doc.ID(), doc.Text().Content()))
	e.ComputeInlayHints(context.Background())
	run(t, e)

	hints, ok := e.InlayHints(v.ID())
	require.True(t, ok)
	assert.Zero(t, hints.Len())
}

func TestInlayHintsClosedViewDiscarded(t *testing.T) {
	s := hintServer()
	e, doc := newEditor(t, s)
	v, _ := e.OpenView(doc.ID(), 0, 10)

	e.ComputeInlayHints(context.Background())
	require.NoError(t, e.CloseView(v.ID()))
	run(t, e)

	_, ok := e.InlayHints(v.ID())
	assert.False(t, ok)
	assert.Zero(t, e.hints.Len())
}

func TestInlayHintsScrolledDuringFetch(t *testing.T) {
	s := hintServer()
	e, doc := newEditor(t, s)
	v, _ := e.OpenView(doc.ID(), 0, 10)

	e.ComputeInlayHints(context.Background())
	require.NoError(t, e.Scroll(v.ID(), 60))
	run(t, e)

	_, ok := e.InlayHints(v.ID())
	assert.False(t, ok, "hints for the old window are not installed")

	e.ComputeInlayHints(context.Background())
	run(t, e)
	hints, ok := e.InlayHints(v.ID())
	require.True(t, ok)
	assert.Equal(t, inlay.Window{First: 50, Last: 89}, hints.Window)
	assert.Equal(t, 2, s.Transport.Calls("textDocument/inlayHint"))
}

func TestInlayHintsDisabled(t *testing.T) {
	s := hintServer()
	e, doc := newEditor(t, s)
	v, _ := e.OpenView(doc.ID(), 0, 10)

	cfg := config.Default()
	cfg.LSP.DisplayInlayHints = false
	e.SetConfig(cfg)

	e.ComputeInlayHints(context.Background())
	run(t, e)
	assert.Zero(t, s.Transport.Calls("textDocument/inlayHint"))

	// Turning hints off while a request is in flight discards the answer.
	e.SetConfig(config.Default())
	e.ComputeInlayHints(context.Background())
	e.SetConfig(cfg)
	run(t, e)
	_, ok := e.InlayHints(v.ID())
	assert.False(t, ok)
}

func TestInlayHintsRequestFailureLeavesOutdated(t *testing.T) {
	s := lsptest.NewServer("hints", lsp.EncodingUTF16, lsp.NewCapabilities(lsp.CapabilityInlayHints))
	s.Transport.On("textDocument/inlayHint", lsptest.Response{Err: errors.New("boom")})
	e, doc := newEditor(t, s)
	_, _ = e.OpenView(doc.ID(), 0, 10)
	require.NoError(t, e.Edit(doc.ID(), doc.Text().Content()))

	e.ComputeInlayHints(context.Background())
	run(t, e)

	assert.True(t, e.InlayOutdated(doc.ID()))
	_, shown := e.Status().Last()
	assert.False(t, shown, "inlay failures are logged, not shown")

	e.ComputeInlayHints(context.Background())
	run(t, e)
	assert.Equal(t, 2, s.Transport.Calls("textDocument/inlayHint"), "an abandoned fetch does not block a retry")
}

func TestShutdownReleasesPending(t *testing.T) {
	e, _ := newEditor(t)
	release := make(chan struct{})
	e.Spawn(context.Background(), func(context.Context) (Callback, error) {
		<-release
		return nil, nil
	})
	e.Dispatch(func(*Editor) error { return nil })
	require.Equal(t, 2, e.Pending())

	e.Shutdown()
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.RunUntilIdle(ctx))
	assert.Eventually(t, func() bool { return e.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, e.RunUntilIdle(ctx))
}

func TestDispatchAfterShutdownDropped(t *testing.T) {
	e, doc := newEditor(t)
	e.Shutdown()

	e.Dispatch(func(e *Editor) error {
		return e.Edit(doc.ID(), "changed")
	})
	assert.Equal(t, 0, e.Pending())
	assert.Equal(t, 0, e.Poll())
	assert.NotEqual(t, "changed", doc.Text().Content())
}
