package editor

import "github.com/dshills/fanout/internal/inlay"

// View is a viewport onto one document.
type View struct {
	id        uint64
	doc       uint64
	firstLine int
	height    int
}

// ID returns the view identity.
func (v *View) ID() uint64 { return v.id }

// DocumentID returns the identity of the document shown in the view.
func (v *View) DocumentID() uint64 { return v.doc }

// FirstLine returns the first visible line.
func (v *View) FirstLine() int { return v.firstLine }

// Height returns the number of visible lines.
func (v *View) Height() int { return v.height }

// TargetWindow returns the inlay hint window for the view over a document of
// lineCount lines.
func (v *View) TargetWindow(lineCount int) inlay.Window {
	return inlay.TargetWindow(v.firstLine, v.height, lineCount)
}
