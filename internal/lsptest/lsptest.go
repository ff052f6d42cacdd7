// Package lsptest provides scripted in-memory language servers.
//
// A Transport answers each method with a canned payload after an optional
// delay, recording every call it receives. Server pairs a Transport with a
// real lsp.RPCClient so tests exercise the same request factories the editor
// uses against live servers.
package lsptest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dshills/fanout/internal/lsp"
)

// Response is the scripted answer to one method.
type Response struct {
	Result json.RawMessage
	Err    error
	Delay  time.Duration
}

// Invocation records one call received by a Transport.
type Invocation struct {
	Method string
	Params any
}

// Transport is a scripted lsp.Transport. Methods without a script answer
// with a JSON null.
type Transport struct {
	mu        sync.Mutex
	responses map[string][]Response
	calls     []Invocation
}

// NewTransport creates an empty scripted transport.
func NewTransport() *Transport {
	return &Transport{responses: make(map[string][]Response)}
}

// On scripts the answer for method. Repeated calls queue answers; the last
// one is reused once the queue is down to a single entry.
func (t *Transport) On(method string, resp Response) *Transport {
	t.mu.Lock()
	t.responses[method] = append(t.responses[method], resp)
	t.mu.Unlock()
	return t
}

// Reply is On with a successful raw result.
func (t *Transport) Reply(method string, result string) *Transport {
	return t.On(method, Response{Result: json.RawMessage(result)})
}

// Call implements lsp.Transport.
func (t *Transport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	t.mu.Lock()
	t.calls = append(t.calls, Invocation{Method: method, Params: params})
	resp := Response{Result: json.RawMessage("null")}
	if queue := t.responses[method]; len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			t.responses[method] = queue[1:]
		}
	}
	t.mu.Unlock()

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return resp.Result, nil
}

// Calls returns how many times method was called.
func (t *Transport) Calls(method string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Invocations returns a copy of every recorded call.
func (t *Transport) Invocations() []Invocation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Invocation(nil), t.calls...)
}

// LastParams returns the params of the most recent call to method.
func (t *Transport) LastParams(method string) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.calls) - 1; i >= 0; i-- {
		if t.calls[i].Method == method {
			return t.calls[i].Params, true
		}
	}
	return nil, false
}

// Server is a scripted language server.
type Server struct {
	*lsp.RPCClient
	Transport *Transport

	stream *lsp.StreamTransport
}

// NewServer creates a scripted server whose ID equals its name, which keeps
// test assertions readable.
func NewServer(name string, enc lsp.OffsetEncoding, caps lsp.Capabilities) *Server {
	tr := NewTransport()
	return &Server{
		RPCClient: lsp.NewRPCClient(name, caps, tr,
			lsp.WithServerID(lsp.ServerID(name)),
			lsp.WithOffsetEncoding(enc)),
		Transport: tr,
	}
}

// AllCapabilities returns a capability set advertising every feature and
// sub-capability.
func AllCapabilities() lsp.Capabilities {
	caps := lsp.NewCapabilities(
		lsp.CapabilityDocumentSymbols,
		lsp.CapabilityWorkspaceSymbols,
		lsp.CapabilityCodeAction,
		lsp.CapabilityGotoDeclaration,
		lsp.CapabilityGotoDefinition,
		lsp.CapabilityGotoTypeDefinition,
		lsp.CapabilityGotoImplementation,
		lsp.CapabilityGotoReference,
		lsp.CapabilityRenameSymbol,
		lsp.CapabilityDocumentHighlight,
		lsp.CapabilityInlayHints,
	)
	caps.PrepareRename = true
	caps.ResolveCodeAction = true
	caps.ExecuteCommand = true
	return caps
}
