package lsp

import (
	"sort"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// OffsetEncoding is the unit a server uses for the Character field of a Position.
// The zero value is UTF-16, the protocol default.
type OffsetEncoding int

const (
	EncodingUTF16 OffsetEncoding = iota
	EncodingUTF8
	EncodingUTF32
)

// String returns the protocol name of the encoding.
func (e OffsetEncoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf-8"
	case EncodingUTF32:
		return "utf-32"
	default:
		return "utf-16"
	}
}

// ParseOffsetEncoding parses a protocol encoding name.
func ParseOffsetEncoding(s string) (OffsetEncoding, bool) {
	switch strings.ToLower(s) {
	case "utf-8", "utf8":
		return EncodingUTF8, true
	case "utf-16", "utf16", "":
		return EncodingUTF16, true
	case "utf-32", "utf32":
		return EncodingUTF32, true
	default:
		return EncodingUTF16, false
	}
}

// units returns how many encoding units r occupies. size is the width of r
// in the source text, which differs from utf8.RuneLen for invalid bytes.
func (e OffsetEncoding) units(r rune, size int) int {
	switch e {
	case EncodingUTF8:
		return size
	case EncodingUTF32:
		return 1
	default:
		if n := utf16.RuneLen(r); n > 0 {
			return n
		}
		return 1
	}
}

// PositionConverter maps between server positions and document offsets.
// Document offsets count runes from the start of the text. Lines end at '\n'
// or "\r\n"; neither terminator is part of the line's mappable columns.
type PositionConverter struct {
	content   string
	lines     []lineInfo
	runeCount int
}

// lineInfo stores information about a line for efficient position conversion.
type lineInfo struct {
	byteOffset int // Byte offset of line start
	runeOffset int // Rune offset of line start
	byteLen    int // Length in bytes, excluding the terminator
	runeLen    int // Length in runes, excluding the terminator
}

// NewPositionConverter creates a new converter for the given content.
func NewPositionConverter(content string) *PositionConverter {
	pc := &PositionConverter{
		content: content,
	}
	pc.buildLineIndex()
	return pc
}

// buildLineIndex creates an index of all lines for fast position lookup.
func (pc *PositionConverter) buildLineIndex() {
	pc.lines = nil

	runeOffset := 0
	lineStart := 0
	runeLineStart := 0

	for i, r := range pc.content {
		if r == '\n' {
			cr := 0
			if i > lineStart && pc.content[i-1] == '\r' {
				cr = 1
			}
			pc.lines = append(pc.lines, lineInfo{
				byteOffset: lineStart,
				runeOffset: runeLineStart,
				byteLen:    i - lineStart - cr,
				runeLen:    runeOffset - runeLineStart - cr,
			})
			lineStart = i + 1
			runeLineStart = runeOffset + 1
		}
		runeOffset++
	}

	// Last line (may not end with newline, may be empty)
	pc.lines = append(pc.lines, lineInfo{
		byteOffset: lineStart,
		runeOffset: runeLineStart,
		byteLen:    len(pc.content) - lineStart,
		runeLen:    runeOffset - runeLineStart,
	})
	pc.runeCount = runeOffset
}

// Content returns the text the converter was built from.
func (pc *PositionConverter) Content() string {
	return pc.content
}

// LineCount returns the number of lines.
func (pc *PositionConverter) LineCount() int {
	return len(pc.lines)
}

// Len returns the document length in runes.
func (pc *PositionConverter) Len() int {
	return pc.runeCount
}

// ToDocumentOffset converts a server position in the given encoding to a rune
// offset. It returns false when the line does not exist or the character lies
// past the end of the line; such positions are never clamped. A character that
// falls inside a multi-unit rune resolves to the start of that rune.
func (pc *PositionConverter) ToDocumentOffset(pos Position, enc OffsetEncoding) (int, bool) {
	if pos.Line < 0 || pos.Line >= len(pc.lines) || pos.Character < 0 {
		return 0, false
	}

	line := pc.lines[pos.Line]
	if pos.Character == 0 {
		return line.runeOffset, true
	}

	units := 0
	runeIdx := 0
	for text := pc.lineContent(line); text != ""; {
		r, size := utf8.DecodeRuneInString(text)
		text = text[size:]
		n := enc.units(r, size)
		if units+n > pos.Character {
			// Inside this rune
			return line.runeOffset + runeIdx, true
		}
		units += n
		runeIdx++
		if units == pos.Character {
			return line.runeOffset + runeIdx, true
		}
	}
	return 0, false
}

// ToServerPosition converts a rune offset to a position in the given encoding.
// Offsets outside the document are clamped to its bounds, and an offset inside
// a "\r\n" terminator maps to the end of its line.
func (pc *PositionConverter) ToServerPosition(offset int, enc OffsetEncoding) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > pc.runeCount {
		offset = pc.runeCount
	}

	lineNum := pc.OffsetToLine(offset)
	line := pc.lines[lineNum]

	want := offset - line.runeOffset
	units := 0
	runeIdx := 0
	for text := pc.lineContent(line); text != "" && runeIdx < want; {
		r, size := utf8.DecodeRuneInString(text)
		text = text[size:]
		units += enc.units(r, size)
		runeIdx++
	}

	return Position{Line: lineNum, Character: units}
}

// ToDocumentRange converts a server range into rune offsets.
func (pc *PositionConverter) ToDocumentRange(rng Range, enc OffsetEncoding) (start, end int, ok bool) {
	start, ok = pc.ToDocumentOffset(rng.Start, enc)
	if !ok {
		return 0, 0, false
	}
	end, ok = pc.ToDocumentOffset(rng.End, enc)
	if !ok {
		return 0, 0, false
	}
	return start, end, true
}

// ToServerRange converts rune offsets into a server range.
func (pc *PositionConverter) ToServerRange(start, end int, enc OffsetEncoding) Range {
	return Range{
		Start: pc.ToServerPosition(start, enc),
		End:   pc.ToServerPosition(end, enc),
	}
}

// OffsetToLine returns the line containing the rune offset. Offsets are
// clamped to the document.
func (pc *PositionConverter) OffsetToLine(offset int) int {
	if offset <= 0 {
		return 0
	}
	// First line starting after offset, minus one
	idx := sort.Search(len(pc.lines), func(i int) bool {
		return pc.lines[i].runeOffset > offset
	})
	if idx == 0 {
		return 0
	}
	return idx - 1
}

// LineToOffset returns the rune offset of the start of a line. Lines past the
// end resolve to the document length.
func (pc *PositionConverter) LineToOffset(line int) int {
	if line <= 0 {
		return 0
	}
	if line >= len(pc.lines) {
		return pc.runeCount
	}
	return pc.lines[line].runeOffset
}

// LineEndOffset returns the rune offset just past the last character of a
// line, excluding the newline.
func (pc *PositionConverter) LineEndOffset(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(pc.lines) {
		return pc.runeCount
	}
	l := pc.lines[line]
	return l.runeOffset + l.runeLen
}

// LineContent returns the content of a line (excluding newline).
func (pc *PositionConverter) LineContent(lineNum int) string {
	if lineNum < 0 || lineNum >= len(pc.lines) {
		return ""
	}
	return pc.lineContent(pc.lines[lineNum])
}

func (pc *PositionConverter) lineContent(line lineInfo) string {
	return pc.content[line.byteOffset : line.byteOffset+line.byteLen]
}

// Slice returns the text between two rune offsets.
func (pc *PositionConverter) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > pc.runeCount {
		end = pc.runeCount
	}
	if start >= end {
		return ""
	}
	return pc.content[pc.byteOffset(start):pc.byteOffset(end)]
}

// byteOffset converts a rune offset to a byte offset.
func (pc *PositionConverter) byteOffset(offset int) int {
	line := pc.lines[pc.OffsetToLine(offset)]
	b := line.byteOffset
	for n := offset - line.runeOffset; n > 0 && b < len(pc.content); n-- {
		_, size := utf8.DecodeRuneInString(pc.content[b:])
		b += size
	}
	return b
}

// IsPositionBefore returns true if a is before b.
func IsPositionBefore(a, b Position) bool {
	return ComparePositions(a, b) < 0
}

// ComparePositions returns -1 if a < b, 0 if a == b, 1 if a > b.
func ComparePositions(a, b Position) int {
	if a.Line < b.Line {
		return -1
	}
	if a.Line > b.Line {
		return 1
	}
	if a.Character < b.Character {
		return -1
	}
	if a.Character > b.Character {
		return 1
	}
	return 0
}

// RangesOverlap reports whether two offset spans overlap. Empty spans overlap
// a span that contains them, including at its end.
func RangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	if aStart == aEnd {
		return bStart <= aStart && aStart <= bEnd
	}
	if bStart == bEnd {
		return aStart <= bStart && bStart <= aEnd
	}
	return aStart < bEnd && bStart < aEnd
}
