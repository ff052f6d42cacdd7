package lsp

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Response payloads arrive as raw JSON. Several results are unions in the
// protocol; gjson is used to inspect the shape before unmarshalling into the
// concrete type. A JSON null (or empty payload) is never an error and decodes
// to an empty result.

// parseResult validates raw and returns its parsed form. ok is false for null.
func parseResult(raw json.RawMessage, what string) (gjson.Result, bool, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return gjson.Result{}, false, nil
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, false, &DecodeError{What: what}
	}
	res := gjson.ParseBytes(raw)
	if res.Type == gjson.Null {
		return res, false, nil
	}
	return res, true, nil
}

// parseArray is parseResult for results that must be arrays.
func parseArray(raw json.RawMessage, what string) ([]gjson.Result, error) {
	res, ok, err := parseResult(raw, what)
	if err != nil || !ok {
		return nil, err
	}
	if !res.IsArray() {
		return nil, &DecodeError{What: what}
	}
	return res.Array(), nil
}

func unmarshal(raw, what string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &DecodeError{What: what, Err: err}
	}
	return nil
}

// DecodeDocumentSymbols decodes a textDocument/documentSymbol response. The
// server answers either with nested DocumentSymbols or flat SymbolInformation;
// exactly one of the returned slices is non-nil for a non-empty response.
func DecodeDocumentSymbols(raw json.RawMessage) (nested []DocumentSymbol, flat []SymbolInformation, err error) {
	items, err := parseArray(raw, "document symbols")
	if err != nil || len(items) == 0 {
		return nil, nil, err
	}

	// Flat symbols carry a location; nested ones carry ranges.
	if items[0].Get("location").Exists() {
		if err := unmarshal(string(raw), "document symbols", &flat); err != nil {
			return nil, nil, err
		}
		return nil, flat, nil
	}
	if err := unmarshal(string(raw), "document symbols", &nested); err != nil {
		return nil, nil, err
	}
	return nested, nil, nil
}

// DecodeWorkspaceSymbols decodes a workspace/symbol response.
func DecodeWorkspaceSymbols(raw json.RawMessage) ([]SymbolInformation, error) {
	items, err := parseArray(raw, "workspace symbols")
	if err != nil || len(items) == 0 {
		return nil, err
	}
	var symbols []SymbolInformation
	if err := unmarshal(string(raw), "workspace symbols", &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// DecodeCodeActions decodes a textDocument/codeAction response. Elements whose
// "command" member is a string are Commands; everything else is a CodeAction.
func DecodeCodeActions(raw json.RawMessage) ([]CodeActionOrCommand, error) {
	items, err := parseArray(raw, "code actions")
	if err != nil {
		return nil, err
	}

	out := make([]CodeActionOrCommand, 0, len(items))
	for _, item := range items {
		if !item.IsObject() {
			return nil, &DecodeError{What: "code action"}
		}
		if item.Get("command").Type == gjson.String {
			var cmd Command
			if err := unmarshal(item.Raw, "command", &cmd); err != nil {
				return nil, err
			}
			out = append(out, CodeActionOrCommand{Command: &cmd})
			continue
		}
		var action CodeAction
		if err := unmarshal(item.Raw, "code action", &action); err != nil {
			return nil, err
		}
		out = append(out, CodeActionOrCommand{Action: &action})
	}
	return out, nil
}

// DecodeCodeAction decodes a codeAction/resolve response.
func DecodeCodeAction(raw json.RawMessage) (*CodeAction, error) {
	res, ok, err := parseResult(raw, "code action")
	if err != nil {
		return nil, err
	}
	if !ok || !res.IsObject() {
		return nil, &DecodeError{What: "code action"}
	}
	var action CodeAction
	if err := unmarshal(res.Raw, "code action", &action); err != nil {
		return nil, err
	}
	return &action, nil
}

// DecodeLocations decodes a goto response, which may be a single Location,
// an array of Locations, or an array of LocationLinks. Links are reduced to
// their target URI and target range.
func DecodeLocations(raw json.RawMessage) ([]Location, error) {
	res, ok, err := parseResult(raw, "locations")
	if err != nil || !ok {
		return nil, err
	}

	if res.IsObject() {
		var loc Location
		if err := unmarshal(res.Raw, "location", &loc); err != nil {
			return nil, err
		}
		return []Location{loc}, nil
	}
	if !res.IsArray() {
		return nil, &DecodeError{What: "locations"}
	}

	items := res.Array()
	if len(items) == 0 {
		return nil, nil
	}

	if items[0].Get("targetUri").Exists() {
		var links []LocationLink
		if err := unmarshal(res.Raw, "location links", &links); err != nil {
			return nil, err
		}
		locs := make([]Location, 0, len(links))
		for _, link := range links {
			locs = append(locs, Location{URI: link.TargetURI, Range: link.TargetRange})
		}
		return locs, nil
	}

	var locs []Location
	if err := unmarshal(res.Raw, "locations", &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// DecodeDocumentHighlights decodes a textDocument/documentHighlight response.
func DecodeDocumentHighlights(raw json.RawMessage) ([]DocumentHighlight, error) {
	items, err := parseArray(raw, "document highlights")
	if err != nil || len(items) == 0 {
		return nil, err
	}
	var highlights []DocumentHighlight
	if err := unmarshal(string(raw), "document highlights", &highlights); err != nil {
		return nil, err
	}
	return highlights, nil
}

// DecodeInlayHints decodes a textDocument/inlayHint response. Labels given as
// parts are joined into one string.
func DecodeInlayHints(raw json.RawMessage) ([]InlayHint, error) {
	items, err := parseArray(raw, "inlay hints")
	if err != nil {
		return nil, err
	}

	hints := make([]InlayHint, 0, len(items))
	for _, item := range items {
		line := item.Get("position.line")
		char := item.Get("position.character")
		if line.Type != gjson.Number || char.Type != gjson.Number {
			return nil, &DecodeError{What: "inlay hint position"}
		}

		hint := InlayHint{
			Position:     Position{Line: int(line.Int()), Character: int(char.Int())},
			Kind:         InlayHintKind(item.Get("kind").Int()),
			PaddingLeft:  item.Get("paddingLeft").Bool(),
			PaddingRight: item.Get("paddingRight").Bool(),
		}

		label := item.Get("label")
		switch {
		case label.Type == gjson.String:
			hint.Label = label.Str
		case label.IsArray():
			var sb strings.Builder
			for _, part := range label.Array() {
				sb.WriteString(part.Get("value").String())
			}
			hint.Label = sb.String()
		default:
			return nil, &DecodeError{What: "inlay hint label"}
		}

		hints = append(hints, hint)
	}
	return hints, nil
}

// DecodeWorkspaceEdit decodes a textDocument/rename response.
func DecodeWorkspaceEdit(raw json.RawMessage) (*WorkspaceEdit, error) {
	res, ok, err := parseResult(raw, "workspace edit")
	if err != nil || !ok {
		return nil, err
	}
	var edit WorkspaceEdit
	if err := unmarshal(res.Raw, "workspace edit", &edit); err != nil {
		return nil, err
	}
	return &edit, nil
}

// DecodePrepareRename decodes a textDocument/prepareRename response. A nil
// result means the server declined to rename at the position.
func DecodePrepareRename(raw json.RawMessage) (*PrepareRenameResult, error) {
	res, ok, err := parseResult(raw, "prepare rename")
	if err != nil || !ok {
		return nil, err
	}
	if !res.IsObject() {
		return nil, &DecodeError{What: "prepare rename"}
	}

	switch {
	case res.Get("defaultBehavior").Exists():
		return &PrepareRenameResult{DefaultBehavior: true}, nil
	case res.Get("placeholder").Exists():
		var rng Range
		if err := unmarshal(res.Get("range").Raw, "prepare rename range", &rng); err != nil {
			return nil, err
		}
		return &PrepareRenameResult{Range: &rng, Placeholder: res.Get("placeholder").String()}, nil
	default:
		var rng Range
		if err := unmarshal(res.Raw, "prepare rename range", &rng); err != nil {
			return nil, err
		}
		return &PrepareRenameResult{Range: &rng}, nil
	}
}
