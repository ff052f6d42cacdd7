package inlay

// Key identifies a cache entry.
type Key struct {
	View     uint64
	Document uint64
}

// Ticket authorises one fetch. It is returned by Plan and handed back to
// Install or Abandon once the response arrives.
type Ticket struct {
	Key    Key
	Window Window
	gen    uint64
}

// Outcome is the result of handing a response back to the Store.
type Outcome int

const (
	// Installed means the hints replaced the entry's previous set.
	Installed Outcome = iota
	// Vanished means the view or document was dropped while the fetch was
	// in flight.
	Vanished
	// Moved means the view now targets a different window.
	Moved
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case Installed:
		return "installed"
	case Vanished:
		return "vanished"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

type pending struct {
	window Window
	gen    uint64
}

type entry struct {
	hints   *Hints
	pending *pending
}

type docState struct {
	outdated bool
	gen      uint64
}

// Store holds at most one hint set per (view, document) pair. It is owned by
// the coordinating goroutine and is not safe for concurrent use.
type Store struct {
	entries map[Key]*entry
	docs    map[uint64]*docState
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[Key]*entry),
		docs:    make(map[uint64]*docState),
	}
}

func (s *Store) doc(id uint64) *docState {
	d, ok := s.docs[id]
	if !ok {
		d = &docState{}
		s.docs[id] = d
	}
	return d
}

// Hints returns the installed hints for k.
func (s *Store) Hints(k Key) (*Hints, bool) {
	e, ok := s.entries[k]
	if !ok || e.hints == nil {
		return nil, false
	}
	return e.hints, true
}

// MarkOutdated flags every entry of the document for recomputation, for
// example after an edit or a configuration change.
func (s *Store) MarkOutdated(doc uint64) {
	d := s.doc(doc)
	d.outdated = true
	d.gen++
}

// MarkAllOutdated flags every known document.
func (s *Store) MarkAllOutdated() {
	for id := range s.docs {
		s.MarkOutdated(id)
	}
}

// Outdated reports whether the document is flagged for recomputation.
func (s *Store) Outdated(doc uint64) bool {
	d, ok := s.docs[doc]
	return ok && d.outdated
}

// Plan decides whether k needs a fetch for target. It returns false when the
// cached window already equals target and the document is current, or when
// an identical fetch is in flight.
func (s *Store) Plan(k Key, target Window) (Ticket, bool) {
	d := s.doc(k.Document)
	e, ok := s.entries[k]
	if !ok {
		e = &entry{}
		s.entries[k] = e
	}

	if !d.outdated && e.hints != nil && e.hints.Window == target {
		return Ticket{}, false
	}
	if p := e.pending; p != nil && p.window == target && p.gen == d.gen {
		return Ticket{}, false
	}

	e.pending = &pending{window: target, gen: d.gen}
	return Ticket{Key: k, Window: target, gen: d.gen}, true
}

// Install applies a response for t. current is the window the view targets
// now; a response for any other window is discarded. The document's outdated
// flag is cleared only if nothing marked it outdated after t was planned.
func (s *Store) Install(t Ticket, hints *Hints, current Window) Outcome {
	e, ok := s.entries[t.Key]
	if !ok {
		return Vanished
	}
	s.settle(e, t)
	if t.Window != current {
		return Moved
	}

	if hints == nil {
		hints = Empty(t.Window)
	}
	hints.Window = t.Window
	e.hints = hints

	if d := s.doc(t.Key.Document); d.gen == t.gen {
		d.outdated = false
	}
	return Installed
}

// Abandon releases t after a failed fetch so the next trigger can retry.
func (s *Store) Abandon(t Ticket) {
	if e, ok := s.entries[t.Key]; ok {
		s.settle(e, t)
	}
}

func (s *Store) settle(e *entry, t Ticket) {
	if p := e.pending; p != nil && p.window == t.Window && p.gen == t.gen {
		e.pending = nil
	}
}

// DropView removes every entry of a closed view.
func (s *Store) DropView(view uint64) {
	for k := range s.entries {
		if k.View == view {
			delete(s.entries, k)
		}
	}
}

// DropDocument removes every entry of a closed document.
func (s *Store) DropDocument(doc uint64) {
	for k := range s.entries {
		if k.Document == doc {
			delete(s.entries, k)
		}
	}
	delete(s.docs, doc)
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}
