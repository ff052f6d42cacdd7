package lsptest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/dshills/fanout/internal/lsp"
)

// Serve answers framed JSON-RPC requests read from r with the scripts of t
// and writes the responses to w. Each request is answered on its own
// goroutine, so scripted delays overlap the way they do in memory. Serve
// returns when r ends.
func Serve(ctx context.Context, t *Transport, r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	for {
		msg, err := lsp.ReadMessage(br)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
		var req struct {
			ID     *int64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(msg, &req); err != nil || req.ID == nil {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := lsp.Response{JSONRPC: "2.0", ID: *req.ID}
			result, err := t.Call(ctx, req.Method, req.Params)
			if err != nil {
				resp.Error = &lsp.RPCError{Code: lsp.CodeRequestFailed, Message: err.Error()}
			} else {
				resp.Result = result
			}
			writeMu.Lock()
			_ = lsp.WriteMessage(w, &resp)
			writeMu.Unlock()
		}()
	}
}

// NewStreamServer is NewServer with the client talking to the script over
// in-memory pipes through lsp.StreamTransport. Close the server to stop it.
func NewStreamServer(ctx context.Context, name string, enc lsp.OffsetEncoding, caps lsp.Capabilities) *Server {
	toServer, fromClient := io.Pipe()
	toClient, fromServer := io.Pipe()

	tr := NewTransport()
	stream := lsp.NewStreamTransport(toClient, fromClient, closers{fromClient, toClient})
	stream.Start(ctx)
	go func() {
		_ = Serve(ctx, tr, toServer, fromServer)
		fromServer.Close()
	}()

	return &Server{
		RPCClient: lsp.NewRPCClient(name, caps, stream,
			lsp.WithServerID(lsp.ServerID(name)),
			lsp.WithOffsetEncoding(enc)),
		Transport: tr,
		stream:    stream,
	}
}

// Close stops a stream server. It does nothing for in-memory servers.
func (s *Server) Close() error {
	if s.stream == nil {
		return nil
	}
	return s.stream.Close()
}

type closers []io.Closer

func (cs closers) Close() error {
	var errs []error
	for _, c := range cs {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
