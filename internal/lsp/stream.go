package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// ErrTransportClosed is returned by calls on a closed StreamTransport.
var ErrTransportClosed = errors.New("transport closed")

// StreamTransport speaks JSON-RPC 2.0 with Content-Length framing over a
// pair of streams, typically a server process's stdout and stdin.
// Notifications and server-to-client requests are read and ignored.
type StreamTransport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  atomic.Int64
	pending map[int64]chan *Response

	closed  atomic.Bool
	done    chan struct{}
	readErr atomic.Pointer[error]
}

// Request is a JSON-RPC request. ID is zero for notifications.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is a JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// NewStreamTransport creates a transport reading responses from r and
// writing requests to w. c, if not nil, is closed by Close. Call Start
// before issuing requests.
func NewStreamTransport(r io.Reader, w io.Writer, c io.Closer) *StreamTransport {
	return &StreamTransport{
		reader:  bufio.NewReaderSize(r, 64*1024),
		writer:  w,
		closer:  c,
		pending: make(map[int64]chan *Response),
		done:    make(chan struct{}),
	}
}

// Start begins reading messages until ctx is done or the transport is
// closed. A read error closes the transport.
func (t *StreamTransport) Start(ctx context.Context) {
	go t.readLoop(ctx)
}

// Close releases the transport. Calls waiting for a response return
// ErrTransportClosed.
func (t *StreamTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)

	// Waiting callers observe done; the channels themselves stay open so a
	// late response cannot send on a closed channel.
	t.mu.Lock()
	t.pending = make(map[int64]chan *Response)
	t.mu.Unlock()

	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Call implements Transport.
func (t *StreamTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if t.closed.Load() {
		return nil, t.closedErr()
	}

	id := t.nextID.Add(1)
	ch := make(chan *Response, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	t.writeMu.Lock()
	err := WriteMessage(t.writer, &Request{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	t.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, t.closedErr()
	case resp := <-ch:
		if resp.Error != nil {
			return nil, resp.Error
		}
		if len(resp.Result) == 0 {
			return json.RawMessage("null"), nil
		}
		return resp.Result, nil
	}
}

func (t *StreamTransport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		msg, err := ReadMessage(t.reader)
		if err != nil {
			// A broken frame leaves the stream unsynchronized, so every read
			// error ends the transport.
			if !t.closed.Load() {
				t.readErr.Store(&err)
				t.Close()
			}
			return
		}
		t.dispatch(msg)
	}
}

// closedErr returns ErrTransportClosed, wrapping the read error that ended
// the stream if there was one.
func (t *StreamTransport) closedErr() error {
	if err := t.readErr.Load(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportClosed, *err)
	}
	return ErrTransportClosed
}

// dispatch routes a response to its waiting caller.
func (t *StreamTransport) dispatch(data json.RawMessage) {
	var env struct {
		ID     *int64          `json:"id"`
		Method string          `json:"method"`
		Error  *RPCError       `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}
	// Requests from the server carry a method; only responses are routed.
	if env.ID == nil || env.Method != "" {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[*env.ID]
	if ok {
		delete(t.pending, *env.ID)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	select {
	case ch <- &Response{JSONRPC: "2.0", ID: *env.ID, Result: env.Result, Error: env.Error}:
	default:
	}
}

// WriteMessage writes one message with its Content-Length header.
func WriteMessage(w io.Writer, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// ReadMessage reads one framed message body. Headers other than
// Content-Length are ignored.
func ReadMessage(r *bufio.Reader) (json.RawMessage, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length %q", strings.TrimSpace(value))
		}
		contentLength = n
	}
	if contentLength < 0 {
		return nil, errors.New("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
