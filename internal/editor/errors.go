package editor

import "errors"

// Editor errors.
var (
	// ErrDocumentNotFound indicates a document was not found.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrViewNotFound indicates a view was not found.
	ErrViewNotFound = errors.New("view not found")

	// ErrInvalidEdit indicates a workspace edit that cannot be applied to
	// the current text.
	ErrInvalidEdit = errors.New("invalid edit")

	// ErrClosed indicates the editor no longer accepts jobs.
	ErrClosed = errors.New("editor closed")
)
