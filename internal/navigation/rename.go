package navigation

import (
	"context"
	"errors"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"github.com/dshills/fanout/internal/aggregate"
	"github.com/dshills/fanout/internal/lsp"
)

// Rename errors shown to the user.
var (
	ErrNoPrepareResponse  = errors.New("lsp did not respond to prepare rename request")
	ErrInvalidRenameRange = errors.New("lsp sent invalid selection range for rename")
)

// RenameServer picks the server for a rename: the first capable server that
// supports prepareRename, otherwise the first capable server. prepare
// reports which case applied.
func RenameServer(servers []lsp.Client) (server lsp.Client, prepare bool, ok bool) {
	for _, c := range servers {
		if c.Supports(lsp.CapabilityRenameSymbol) && c.PrepareRename(lsp.TextDocumentIdentifier{}, lsp.Position{}) != nil {
			return c, true, true
		}
	}
	c, ok := lsp.First(servers, lsp.CapabilityRenameSymbol)
	return c, false, ok
}

// PrepareRename asks server whether the symbol at the cursor can be renamed.
func (s *Service) PrepareRename(ctx context.Context, server lsp.Client, doc lsp.TextDocumentIdentifier, pc *lsp.PositionConverter, cursor int) (*lsp.PrepareRenameResult, error) {
	pos := pc.ToServerPosition(cursor, server.OffsetEncoding())
	batch, err := aggregate.One(ctx, s.agg, lsp.CapabilityRenameSymbol, server,
		func(c lsp.Client) lsp.Call { return c.PrepareRename(doc, pos) },
		lsp.DecodePrepareRename)
	if err != nil {
		return nil, err
	}
	return batch.Items, nil
}

// Prefill computes the text a rename prompt starts with. With no prepare
// result (res nil and prepared false) or a default-behaviour answer it is the
// selection, or the word under the cursor when the selection is at most one
// character.
func Prefill(res *lsp.PrepareRenameResult, prepared bool, pc *lsp.PositionConverter, enc lsp.OffsetEncoding, selStart, selEnd, cursor int) (string, error) {
	switch {
	case prepared && res == nil:
		return "", ErrNoPrepareResponse
	case res != nil && res.Placeholder != "":
		return res.Placeholder, nil
	case res != nil && res.Range != nil:
		start, end, ok := pc.ToDocumentRange(*res.Range, enc)
		if !ok {
			return "", ErrInvalidRenameRange
		}
		return pc.Slice(start, end), nil
	}

	if selEnd-selStart > 1 {
		return pc.Slice(selStart, selEnd), nil
	}
	return WordAt(pc.Content(), cursor), nil
}

// WordAt returns the word containing the rune offset, using Unicode word
// boundaries. It returns "" when the offset is on whitespace or punctuation.
func WordAt(text string, offset int) string {
	state := -1
	pos := 0
	for len(text) > 0 {
		var word string
		word, text, state = uniseg.FirstWordInString(text, state)
		n := utf8.RuneCountInString(word)
		if offset >= pos && offset < pos+n {
			if isWord(word) {
				return word
			}
			return ""
		}
		pos += n
	}
	return ""
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return true
		}
	}
	return false
}

// Rename asks server for the edit renaming the symbol at the cursor.
func (s *Service) Rename(ctx context.Context, server lsp.Client, doc lsp.TextDocumentIdentifier, pc *lsp.PositionConverter, cursor int, newName string) (*lsp.WorkspaceEdit, lsp.Origin, error) {
	pos := pc.ToServerPosition(cursor, server.OffsetEncoding())
	batch, err := aggregate.One(ctx, s.agg, lsp.CapabilityRenameSymbol, server,
		func(c lsp.Client) lsp.Call { return c.Rename(doc, pos, newName) },
		lsp.DecodeWorkspaceEdit)
	if err != nil {
		return nil, lsp.Origin{}, err
	}
	return batch.Items, batch.Origin, nil
}
