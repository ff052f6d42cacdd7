// Package inlay caches inlay hints per (view, document) pair for a window of
// lines around the viewport.
//
// The Store is an arena of single-entry memo tables. A recompute trigger asks
// the Store to Plan a fetch for the view's target window; the Store answers
// with a Ticket only when the cached window differs, the document is
// outdated, and no identical fetch is already in flight. The response is
// later turned into annotations with Build and handed back to Install, which
// rejects it when the entry vanished or the view has since moved to another
// window.
package inlay

import "fmt"

// Window is an inclusive range of document lines. It is the sole cache key
// for a (view, document) entry.
type Window struct {
	First int
	Last  int
}

// String formats the window for logs.
func (w Window) String() string {
	return fmt.Sprintf("%d..%d", w.First, w.Last)
}

// TargetWindow returns the lines to fetch hints for: one view height above
// the first visible line down to two view heights below the last visible
// line, clamped to the document.
func TargetWindow(firstVisible, height, lineCount int) Window {
	if lineCount <= 0 {
		return Window{}
	}
	if height < 1 {
		height = 1
	}
	if firstVisible < 0 {
		firstVisible = 0
	}
	if firstVisible > lineCount-1 {
		firstVisible = lineCount - 1
	}

	lastVisible := min(firstVisible+height-1, lineCount-1)
	return Window{
		First: max(firstVisible-height, 0),
		Last:  min(lastVisible+2*height, lineCount-1),
	}
}
