package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/lsp"
)

func TestLoadFixtureOpensSession(t *testing.T) {
	fx, err := LoadFixture(sessionFixture)
	require.NoError(t, err)
	require.Len(t, fx.Servers, 2)

	s, err := fx.Open(t.Context(), config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, lsp.DocumentURI("file:///work/main.go"), s.Document.URI())
	assert.Equal(t, 80, s.Document.Cursor())
	diags := s.Document.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, lsp.ServerID("lint"), diags[0].Server)
	assert.Equal(t, "println", diags[0].Diagnostic.Code)
	assert.Equal(t, 40, s.View.Height())

	servers := s.Editor.Servers(s.Document)
	require.Len(t, servers, 2)
	assert.Equal(t, "gopls", servers[0].Name())
	assert.Equal(t, lsp.EncodingUTF16, servers[0].OffsetEncoding())
	assert.Equal(t, lsp.EncodingUTF8, servers[1].OffsetEncoding())
}

func TestFixtureValidate(t *testing.T) {
	fx := &Fixture{
		Document: FixtureDocument{
			URI:         "not a uri",
			Diagnostics: []FixtureDiagnostic{{Server: "a"}, {Server: "missing"}},
		},
		Servers: []FixtureServer{
			{Name: "a", Encoding: "utf-16", Capabilities: []string{"hover"}},
			{Name: "a", Encoding: "latin-1"},
			{},
		},
	}
	err := fx.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		`document.uri: invalid uri "not a uri"`,
		`servers[0]: unknown capability "hover"`,
		`servers[1]: duplicate name "a"`,
		`servers[1]: unknown encoding "latin-1"`,
		`servers[2]: name is required`,
		`document.diagnostics[1]: unknown server "missing"`,
	} {
		assert.Contains(t, msg, want)
	}
	assert.NotContains(t, msg, "document.diagnostics[0]")
}

func TestLoadFixtureRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("document: [\n"), 0o644))

	_, err := LoadFixture(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing fixture")
}

func TestFixtureErrorResponse(t *testing.T) {
	fx := &Fixture{
		Document: FixtureDocument{URI: "file:///a.go", Text: "package a\n"},
		Servers: []FixtureServer{{
			Name:         "broken",
			Capabilities: []string{"document-symbols"},
			Responses: map[string]FixtureResponse{
				"textDocument/documentSymbol": {Error: "server crashed"},
			},
		}},
	}
	require.NoError(t, fx.Validate())

	s, err := fx.Open(t.Context(), config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer s.Close()

	raw, err := s.Servers[0].Transport.Call(t.Context(), "textDocument/documentSymbol", nil)
	assert.Nil(t, raw)
	assert.EqualError(t, err, "server crashed")
}
