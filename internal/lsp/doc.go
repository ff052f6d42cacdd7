// Package lsp holds the language-server side of the fan-out engine.
//
// Servers are seen through the Client interface: a fixed identity, a
// negotiated OffsetEncoding, and one request factory per feature. A factory
// returns nil when the server lacks the sub-capability the request needs, so
// callers can skip it without knowing how capabilities were negotiated.
//
// # Selection
//
// Select filters the servers attached to a document down to the distinct ones
// advertising a Capability, keeping attachment order:
//
//	servers := lsp.Select(doc.Servers(), lsp.CapabilityCodeAction)
//	if len(servers) == 0 {
//	    status.Error(lsp.NoServerMessage(lsp.CapabilityCodeAction))
//	    return
//	}
//
// # Positions
//
// PositionConverter maps server positions to rune offsets and back. Every
// conversion names the encoding of the server the position came from; a
// position outside the document maps to nothing rather than being clamped.
//
//	pc := lsp.NewPositionConverter(text)
//	off, ok := pc.ToDocumentOffset(pos, client.OffsetEncoding())
//
// # Decoding
//
// Responses are raw JSON. The Decode functions turn them into protocol types,
// resolving the union shapes the protocol allows (nested or flat symbols,
// actions or bare commands, locations or links). A null result decodes to an
// empty value.
//
// # Transport
//
// RPCClient sends each request through a Transport. StreamTransport is the
// JSON-RPC implementation with Content-Length framing over a server's
// standard streams:
//
//	tr := lsp.NewStreamTransport(stdout, stdin, stdin)
//	tr.Start(ctx)
//	client := lsp.NewRPCClient("gopls", caps, tr, lsp.WithOffsetEncoding(enc))
package lsp
