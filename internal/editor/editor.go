// Package editor is the coordinating side of the engine: it owns documents,
// views and their inlay hint cache, and applies the results of asynchronous
// language-server requests.
//
// An Editor is not safe for concurrent use. All of its methods must be called
// from one coordinating goroutine. Work that blocks on a server runs as a job
// on its own goroutine and hands its result back as a Callback, which the
// coordinating goroutine applies from Run, RunUntilIdle or Poll.
package editor

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/dshills/fanout/internal/aggregate"
	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/inlay"
	"github.com/dshills/fanout/internal/lsp"
)

// Callback applies a job's result on the coordinating goroutine. A returned
// error is shown on the status line.
type Callback func(e *Editor) error

// Job runs off the coordinating goroutine. It must not touch the Editor; it
// returns a Callback to do that instead. A nil Callback is allowed.
type Job func(ctx context.Context) (Callback, error)

// Editor owns the documents and views.
type Editor struct {
	reg    *lsp.Registry
	cfg    config.Config
	agg    *aggregate.Aggregator
	logger *slog.Logger
	status Status
	hints  *inlay.Store

	docs   map[uint64]*Document
	views  map[uint64]*View
	nextID uint64

	callbacks chan Callback
	pending   atomic.Int64
	done      chan struct{}
	closed    bool
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = l
	}
}

// WithConfig sets the initial configuration.
func WithConfig(cfg config.Config) Option {
	return func(e *Editor) {
		e.cfg = cfg
	}
}

// New creates an editor over the servers in reg.
func New(reg *lsp.Registry, opts ...Option) *Editor {
	e := &Editor{
		reg:       reg,
		cfg:       config.Default(),
		hints:     inlay.NewStore(),
		docs:      make(map[uint64]*Document),
		views:     make(map[uint64]*View),
		callbacks: make(chan Callback, 64),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.agg = e.newAggregator()
	return e
}

func (e *Editor) newAggregator() *aggregate.Aggregator {
	opts := append(e.cfg.AggregatorOptions(), aggregate.WithLogger(e.logger))
	return aggregate.New(opts...)
}

// Registry returns the server registry.
func (e *Editor) Registry() *lsp.Registry { return e.reg }

// Aggregator returns the aggregator configured for the current settings.
func (e *Editor) Aggregator() *aggregate.Aggregator { return e.agg }

// Logger returns the editor's logger.
func (e *Editor) Logger() *slog.Logger { return e.logger }

// Status returns the status line.
func (e *Editor) Status() *Status { return &e.status }

// Config returns the current configuration.
func (e *Editor) Config() config.Config { return e.cfg }

// SetConfig installs a new configuration. Every document's inlay hints are
// marked outdated; turning hints off drops the ones shown.
func (e *Editor) SetConfig(cfg config.Config) {
	e.cfg = cfg
	e.agg = e.newAggregator()
	if !cfg.LSP.DisplayInlayHints {
		e.hints = inlay.NewStore()
		return
	}
	for id := range e.docs {
		e.hints.MarkOutdated(id)
	}
}

func (e *Editor) allocID() uint64 {
	e.nextID++
	return e.nextID
}

// Open opens a document with the given text.
func (e *Editor) Open(uri lsp.DocumentURI, text string) *Document {
	d := &Document{
		id:   e.allocID(),
		uri:  uri,
		text: lsp.NewPositionConverter(text),
	}
	d.selection = Point(0)
	e.docs[d.id] = d
	return d
}

// Close closes a document and every view showing it.
func (e *Editor) Close(docID uint64) error {
	if _, ok := e.docs[docID]; !ok {
		return fmt.Errorf("closing document %d: %w", docID, ErrDocumentNotFound)
	}
	for id, v := range e.views {
		if v.doc == docID {
			delete(e.views, id)
		}
	}
	delete(e.docs, docID)
	e.hints.DropDocument(docID)
	return nil
}

// Document returns a document by identity.
func (e *Editor) Document(id uint64) (*Document, bool) {
	d, ok := e.docs[id]
	return d, ok
}

// DocumentByURI returns the open document with the given URI.
func (e *Editor) DocumentByURI(uri lsp.DocumentURI) (*Document, bool) {
	for _, d := range e.docs {
		if d.uri == uri {
			return d, true
		}
	}
	return nil, false
}

// Documents returns the open documents ordered by identity.
func (e *Editor) Documents() []*Document {
	out := make([]*Document, 0, len(e.docs))
	for _, d := range e.docs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b *Document) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Edit replaces a document's text and marks its inlay hints outdated.
func (e *Editor) Edit(docID uint64, text string) error {
	d, ok := e.docs[docID]
	if !ok {
		return fmt.Errorf("editing document %d: %w", docID, ErrDocumentNotFound)
	}
	d.setText(text)
	e.hints.MarkOutdated(docID)
	return nil
}

// Servers returns the registered servers attached to d, in attachment order.
func (e *Editor) Servers(d *Document) []lsp.Client {
	return e.reg.Resolve(d.servers)
}

// OpenView opens a view of height lines onto a document.
func (e *Editor) OpenView(docID uint64, firstLine, height int) (*View, error) {
	if _, ok := e.docs[docID]; !ok {
		return nil, fmt.Errorf("opening view: %w", ErrDocumentNotFound)
	}
	v := &View{id: e.allocID(), doc: docID, firstLine: max(firstLine, 0), height: max(height, 1)}
	e.views[v.id] = v
	return v, nil
}

// CloseView closes a view.
func (e *Editor) CloseView(id uint64) error {
	if _, ok := e.views[id]; !ok {
		return fmt.Errorf("closing view %d: %w", id, ErrViewNotFound)
	}
	delete(e.views, id)
	e.hints.DropView(id)
	return nil
}

// View returns a view by identity.
func (e *Editor) View(id uint64) (*View, bool) {
	v, ok := e.views[id]
	return v, ok
}

// Views returns the open views ordered by identity.
func (e *Editor) Views() []*View {
	out := make([]*View, 0, len(e.views))
	for _, v := range e.views {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b *View) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return out
}

// Scroll moves a view so firstLine is the first visible line.
func (e *Editor) Scroll(viewID uint64, firstLine int) error {
	v, ok := e.views[viewID]
	if !ok {
		return fmt.Errorf("scrolling view %d: %w", viewID, ErrViewNotFound)
	}
	v.firstLine = max(firstLine, 0)
	return nil
}

// Spawn runs job on its own goroutine. Its callback, or its error, is
// applied by the coordinating goroutine.
func (e *Editor) Spawn(ctx context.Context, job Job) {
	if e.closed {
		e.status.Report(ErrClosed)
		return
	}
	e.pending.Add(1)
	go func() {
		cb, err := job(ctx)
		if err != nil {
			cb = func(*Editor) error { return err }
		}
		if cb == nil {
			cb = func(*Editor) error { return nil }
		}
		e.deliver(cb)
	}()
}

// Dispatch queues cb to run on the coordinating goroutine. It is the one
// Editor method safe to call from other goroutines. After Shutdown cb is
// dropped.
func (e *Editor) Dispatch(cb Callback) {
	select {
	case <-e.done:
		return
	default:
	}
	e.pending.Add(1)
	go e.deliver(cb)
}

// deliver hands cb to the coordinating goroutine, or drops it once the
// editor has shut down.
func (e *Editor) deliver(cb Callback) {
	select {
	case <-e.done:
		e.pending.Add(-1)
		return
	default:
	}
	select {
	case e.callbacks <- cb:
	case <-e.done:
		e.pending.Add(-1)
	}
}

// drop discards queued callbacks.
func (e *Editor) drop() {
	for {
		select {
		case <-e.callbacks:
			e.pending.Add(-1)
		default:
			return
		}
	}
}

// Pending returns the number of callbacks not yet applied.
func (e *Editor) Pending() int {
	return int(e.pending.Load())
}

func (e *Editor) apply(cb Callback) {
	e.pending.Add(-1)
	if err := cb(e); err != nil {
		e.status.Report(err)
	}
}

// RunUntilIdle applies callbacks until none are pending or the editor shuts
// down.
func (e *Editor) RunUntilIdle(ctx context.Context) error {
	for e.pending.Load() > 0 {
		select {
		case cb := <-e.callbacks:
			e.apply(cb)
		case <-e.done:
			e.drop()
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Run applies callbacks until ctx is cancelled.
func (e *Editor) Run(ctx context.Context) error {
	for {
		select {
		case cb := <-e.callbacks:
			e.apply(cb)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Poll applies the callbacks that are ready without blocking and reports
// how many ran.
func (e *Editor) Poll() int {
	n := 0
	for {
		select {
		case cb := <-e.callbacks:
			e.apply(cb)
			n++
		default:
			return n
		}
	}
}

// Shutdown stops accepting jobs. Callbacks of jobs still running are
// dropped.
func (e *Editor) Shutdown() {
	if e.closed {
		return
	}
	e.closed = true
	close(e.done)
	e.drop()
}
