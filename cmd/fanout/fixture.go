package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/editor"
	"github.com/dshills/fanout/internal/lsp"
	"github.com/dshills/fanout/internal/lsptest"
)

// Fixture describes a scripted editing session: one document shown in one
// view, with scripted language servers attached.
type Fixture struct {
	Document FixtureDocument `yaml:"document"`
	View     FixtureView     `yaml:"view"`
	Servers  []FixtureServer `yaml:"servers"`
}

// FixtureDocument is the open document. Offsets count runes.
type FixtureDocument struct {
	URI         string              `yaml:"uri"`
	Text        string              `yaml:"text"`
	Cursor      int                 `yaml:"cursor"`
	Selection   *FixtureRange       `yaml:"selection"`
	Diagnostics []FixtureDiagnostic `yaml:"diagnostics"`
}

// FixtureRange is a span of rune offsets.
type FixtureRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// FixtureDiagnostic is a diagnostic on the document, published by the named
// server.
type FixtureDiagnostic struct {
	Start    int    `yaml:"start"`
	End      int    `yaml:"end"`
	Server   string `yaml:"server"`
	Message  string `yaml:"message"`
	Severity int    `yaml:"severity"`
	Code     string `yaml:"code"`
	Source   string `yaml:"source"`
}

// FixtureView is the viewport.
type FixtureView struct {
	FirstLine int `yaml:"first_line"`
	Height    int `yaml:"height"`
}

// FixtureServer is one scripted language server.
type FixtureServer struct {
	Name              string                     `yaml:"name"`
	Encoding          string                     `yaml:"encoding"`
	Capabilities      []string                   `yaml:"capabilities"`
	PrepareRename     bool                       `yaml:"prepare_rename"`
	ResolveCodeAction bool                       `yaml:"resolve_code_action"`
	ExecuteCommand    bool                       `yaml:"execute_command"`
	Responses         map[string]FixtureResponse `yaml:"responses"`

	// Stream sends requests through JSON-RPC framing instead of calling the
	// script directly.
	Stream bool `yaml:"stream"`
}

// FixtureResponse scripts the answer to one method. Result is any YAML
// value and is sent as its JSON equivalent.
type FixtureResponse struct {
	Latency time.Duration `yaml:"latency"`
	Result  any           `yaml:"result"`
	Error   string        `yaml:"error"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks the fixture for values the session cannot use.
func (f *Fixture) Validate() error {
	var errs []error
	if !lsp.ValidURI(lsp.DocumentURI(f.Document.URI)) {
		errs = append(errs, fmt.Errorf("document.uri: invalid uri %q", f.Document.URI))
	}
	seen := make(map[string]bool)
	for i, s := range f.Servers {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("servers[%d]: name is required", i))
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("servers[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
		if _, ok := lsp.ParseOffsetEncoding(s.Encoding); !ok {
			errs = append(errs, fmt.Errorf("servers[%d]: unknown encoding %q", i, s.Encoding))
		}
		for _, c := range s.Capabilities {
			if _, ok := lsp.ParseCapability(c); !ok {
				errs = append(errs, fmt.Errorf("servers[%d]: unknown capability %q", i, c))
			}
		}
	}
	for i, d := range f.Document.Diagnostics {
		if d.Server == "" || !seen[d.Server] {
			errs = append(errs, fmt.Errorf("document.diagnostics[%d]: unknown server %q", i, d.Server))
		}
	}
	return errors.Join(errs...)
}

// Session is an editor loaded from a fixture.
type Session struct {
	Editor   *editor.Editor
	Document *editor.Document
	View     *editor.View
	Servers  []*lsptest.Server
}

// Close shuts the editor down and stops the servers.
func (s *Session) Close() {
	s.Editor.Shutdown()
	for _, server := range s.Servers {
		_ = server.Close()
	}
}

// Open builds the editor session the fixture describes. Stream servers run
// until ctx is done or the session is closed.
func (f *Fixture) Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Session, error) {
	reg := lsp.NewRegistry()
	e := editor.New(reg, editor.WithConfig(cfg), editor.WithLogger(logger))

	doc := e.Open(lsp.DocumentURI(f.Document.URI), f.Document.Text)
	doc.SetCursor(f.Document.Cursor)
	if sel := f.Document.Selection; sel != nil {
		doc.SetSelection(editor.Selection{Ranges: []editor.Range{{Start: sel.Start, End: sel.End}}})
	} else {
		doc.SetSelection(editor.Point(doc.Cursor()))
	}

	diags := make([]lsp.OffsetDiagnostic, 0, len(f.Document.Diagnostics))
	for _, d := range f.Document.Diagnostics {
		diag := lsp.OffsetDiagnostic{
			Start:  d.Start,
			End:    d.End,
			Server: lsp.ServerID(d.Server),
			Diagnostic: lsp.Diagnostic{
				Severity: lsp.DiagnosticSeverity(d.Severity),
				Source:   d.Source,
				Message:  d.Message,
			},
		}
		if d.Code != "" {
			diag.Diagnostic.Code = d.Code
		}
		diags = append(diags, diag)
	}
	doc.SetDiagnostics(diags)

	s := &Session{Editor: e, Document: doc}
	for _, fs := range f.Servers {
		server, err := fs.build(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Servers = append(s.Servers, server)
		if err := reg.Register(server); err != nil {
			s.Close()
			return nil, err
		}
		doc.Attach(server.ID())
		logger.Debug("server attached", "server", fs.Name, "encoding", fs.encoding(), "stream", fs.Stream)
	}

	height := f.View.Height
	if height <= 0 {
		height = 40
	}
	v, err := e.OpenView(doc.ID(), f.View.FirstLine, height)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.View = v
	return s, nil
}

func (fs FixtureServer) encoding() lsp.OffsetEncoding {
	e, _ := lsp.ParseOffsetEncoding(fs.Encoding)
	return e
}

func (fs FixtureServer) build(ctx context.Context) (*lsptest.Server, error) {
	var features []lsp.Capability
	for _, name := range fs.Capabilities {
		c, _ := lsp.ParseCapability(name)
		features = append(features, c)
	}
	caps := lsp.NewCapabilities(features...)
	caps.PrepareRename = fs.PrepareRename
	caps.ResolveCodeAction = fs.ResolveCodeAction
	caps.ExecuteCommand = fs.ExecuteCommand

	var server *lsptest.Server
	if fs.Stream {
		server = lsptest.NewStreamServer(ctx, fs.Name, fs.encoding(), caps)
	} else {
		server = lsptest.NewServer(fs.Name, fs.encoding(), caps)
	}
	for method, r := range fs.Responses {
		resp := lsptest.Response{Delay: r.Latency}
		if r.Error != "" {
			resp.Err = errors.New(r.Error)
		} else {
			raw, err := json.Marshal(r.Result)
			if err != nil {
				_ = server.Close()
				return nil, fmt.Errorf("server %s: %s result: %w", fs.Name, method, err)
			}
			resp.Result = raw
		}
		server.Transport.On(method, resp)
	}
	return server, nil
}
