package lsp

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// ServerID identifies a connected language server.
type ServerID string

// NewServerID allocates a fresh server identity.
func NewServerID() ServerID {
	return ServerID(uuid.NewString())
}

// Call is a pending request. Invoking it issues the request and blocks until
// the transport returns the raw result or fails.
type Call func(ctx context.Context) (json.RawMessage, error)

// Client is a connected language server seen through its request factories.
// Every factory returns nil when the server lacks the specific capability the
// request needs, even if it advertises the broader feature.
type Client interface {
	ID() ServerID
	Name() string
	OffsetEncoding() OffsetEncoding
	Supports(c Capability) bool

	DocumentSymbols(doc TextDocumentIdentifier) Call
	WorkspaceSymbols(query string) Call
	CodeActions(doc TextDocumentIdentifier, rng Range, actx CodeActionContext) Call
	ResolveCodeAction(action CodeAction) Call
	ExecuteCommand(cmd Command) Call
	GotoDeclaration(doc TextDocumentIdentifier, pos Position) Call
	GotoDefinition(doc TextDocumentIdentifier, pos Position) Call
	GotoTypeDefinition(doc TextDocumentIdentifier, pos Position) Call
	GotoImplementation(doc TextDocumentIdentifier, pos Position) Call
	References(doc TextDocumentIdentifier, pos Position, includeDeclaration bool) Call
	DocumentHighlight(doc TextDocumentIdentifier, pos Position) Call
	PrepareRename(doc TextDocumentIdentifier, pos Position) Call
	Rename(doc TextDocumentIdentifier, pos Position, newName string) Call
	InlayHints(doc TextDocumentIdentifier, rng Range) Call
}

// Transport sends a request and returns the raw result. Framing, timeouts
// and process management belong to the transport.
type Transport interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// RPCClient implements Client on top of a Transport and a fixed capability set.
type RPCClient struct {
	id        ServerID
	name      string
	encoding  OffsetEncoding
	caps      Capabilities
	transport Transport
}

// ClientOption configures an RPCClient.
type ClientOption func(*RPCClient)

// WithOffsetEncoding sets the negotiated position encoding.
func WithOffsetEncoding(enc OffsetEncoding) ClientOption {
	return func(c *RPCClient) {
		c.encoding = enc
	}
}

// WithServerID overrides the generated server identity.
func WithServerID(id ServerID) ClientOption {
	return func(c *RPCClient) {
		c.id = id
	}
}

// NewRPCClient creates a client for an already-initialized server.
func NewRPCClient(name string, caps Capabilities, transport Transport, opts ...ClientOption) *RPCClient {
	c := &RPCClient{
		id:        NewServerID(),
		name:      name,
		encoding:  EncodingUTF16,
		caps:      caps,
		transport: transport,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the server identity.
func (c *RPCClient) ID() ServerID { return c.id }

// Name returns the configured server name.
func (c *RPCClient) Name() string { return c.name }

// OffsetEncoding returns the negotiated position encoding.
func (c *RPCClient) OffsetEncoding() OffsetEncoding { return c.encoding }

// Supports reports whether the server advertises the capability.
func (c *RPCClient) Supports(capability Capability) bool { return c.caps.Has(capability) }

// call builds a pending request, or nil when the gate is closed.
func (c *RPCClient) call(gate bool, method string, params any) Call {
	if !gate {
		return nil
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		raw, err := c.transport.Call(ctx, method, params)
		if err != nil {
			return nil, &ServerError{Server: c.name, Method: method, Err: err}
		}
		return raw, nil
	}
}

func positionParams(doc TextDocumentIdentifier, pos Position) TextDocumentPositionParams {
	return TextDocumentPositionParams{TextDocument: doc, Position: pos}
}

// DocumentSymbols requests textDocument/documentSymbol.
func (c *RPCClient) DocumentSymbols(doc TextDocumentIdentifier) Call {
	return c.call(c.caps.Has(CapabilityDocumentSymbols), "textDocument/documentSymbol",
		DocumentSymbolParams{TextDocument: doc})
}

// WorkspaceSymbols requests workspace/symbol.
func (c *RPCClient) WorkspaceSymbols(query string) Call {
	return c.call(c.caps.Has(CapabilityWorkspaceSymbols), "workspace/symbol",
		WorkspaceSymbolParams{Query: query})
}

// CodeActions requests textDocument/codeAction.
func (c *RPCClient) CodeActions(doc TextDocumentIdentifier, rng Range, actx CodeActionContext) Call {
	if actx.Diagnostics == nil {
		actx.Diagnostics = []Diagnostic{}
	}
	return c.call(c.caps.Has(CapabilityCodeAction), "textDocument/codeAction",
		CodeActionParams{TextDocument: doc, Range: rng, Context: actx})
}

// ResolveCodeAction requests codeAction/resolve.
func (c *RPCClient) ResolveCodeAction(action CodeAction) Call {
	return c.call(c.caps.ResolveCodeAction, "codeAction/resolve", action)
}

// ExecuteCommand requests workspace/executeCommand.
func (c *RPCClient) ExecuteCommand(cmd Command) Call {
	return c.call(c.caps.ExecuteCommand, "workspace/executeCommand",
		ExecuteCommandParams{Command: cmd.Command, Arguments: cmd.Arguments})
}

// GotoDeclaration requests textDocument/declaration.
func (c *RPCClient) GotoDeclaration(doc TextDocumentIdentifier, pos Position) Call {
	return c.call(c.caps.Has(CapabilityGotoDeclaration), "textDocument/declaration", positionParams(doc, pos))
}

// GotoDefinition requests textDocument/definition.
func (c *RPCClient) GotoDefinition(doc TextDocumentIdentifier, pos Position) Call {
	return c.call(c.caps.Has(CapabilityGotoDefinition), "textDocument/definition", positionParams(doc, pos))
}

// GotoTypeDefinition requests textDocument/typeDefinition.
func (c *RPCClient) GotoTypeDefinition(doc TextDocumentIdentifier, pos Position) Call {
	return c.call(c.caps.Has(CapabilityGotoTypeDefinition), "textDocument/typeDefinition", positionParams(doc, pos))
}

// GotoImplementation requests textDocument/implementation.
func (c *RPCClient) GotoImplementation(doc TextDocumentIdentifier, pos Position) Call {
	return c.call(c.caps.Has(CapabilityGotoImplementation), "textDocument/implementation", positionParams(doc, pos))
}

// References requests textDocument/references.
func (c *RPCClient) References(doc TextDocumentIdentifier, pos Position, includeDeclaration bool) Call {
	return c.call(c.caps.Has(CapabilityGotoReference), "textDocument/references", ReferenceParams{
		TextDocumentPositionParams: positionParams(doc, pos),
		Context:                    ReferenceContext{IncludeDeclaration: includeDeclaration},
	})
}

// DocumentHighlight requests textDocument/documentHighlight.
func (c *RPCClient) DocumentHighlight(doc TextDocumentIdentifier, pos Position) Call {
	return c.call(c.caps.Has(CapabilityDocumentHighlight), "textDocument/documentHighlight", positionParams(doc, pos))
}

// PrepareRename requests textDocument/prepareRename.
func (c *RPCClient) PrepareRename(doc TextDocumentIdentifier, pos Position) Call {
	return c.call(c.caps.Has(CapabilityRenameSymbol) && c.caps.PrepareRename,
		"textDocument/prepareRename", positionParams(doc, pos))
}

// Rename requests textDocument/rename.
func (c *RPCClient) Rename(doc TextDocumentIdentifier, pos Position, newName string) Call {
	return c.call(c.caps.Has(CapabilityRenameSymbol), "textDocument/rename", RenameParams{
		TextDocumentPositionParams: positionParams(doc, pos),
		NewName:                    newName,
	})
}

// InlayHints requests textDocument/inlayHint.
func (c *RPCClient) InlayHints(doc TextDocumentIdentifier, rng Range) Call {
	return c.call(c.caps.Has(CapabilityInlayHints), "textDocument/inlayHint",
		InlayHintParams{TextDocument: doc, Range: rng})
}
