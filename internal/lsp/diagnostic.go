package lsp

// OffsetDiagnostic is a diagnostic held by a document. Its span is in rune
// offsets so it can be re-encoded for any server. Server is the server that
// published it.
type OffsetDiagnostic struct {
	Start, End int
	Server     ServerID
	Diagnostic Diagnostic
}

// ToServer returns the diagnostic with its range expressed in enc.
func (d OffsetDiagnostic) ToServer(pc *PositionConverter, enc OffsetEncoding) Diagnostic {
	out := d.Diagnostic
	out.Range = pc.ToServerRange(d.Start, d.End, enc)
	return out
}

// DiagnosticsInRange returns the diagnostics overlapping [start, end],
// re-encoded for a server. The result is never nil.
func DiagnosticsInRange(pc *PositionConverter, diags []OffsetDiagnostic, start, end int, enc OffsetEncoding) []Diagnostic {
	out := []Diagnostic{}
	for _, d := range diags {
		if RangesOverlap(d.Start, d.End, start, end) {
			out = append(out, d.ToServer(pc, enc))
		}
	}
	return out
}
