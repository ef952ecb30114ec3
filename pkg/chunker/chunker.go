// Package chunker splits model replies into Telegram-sized MarkdownV2
// segments without breaking fenced code blocks or escaping rules.
package chunker

import (
	"strings"
)

// DefaultSegmentLimit is Telegram's maximum message length.
const DefaultSegmentLimit = 4096

const fenceMarker = "```"

// escapeSet lists every character MarkdownV2 treats as reserved outside of
// fenced regions.
const escapeSet = "_*[]()~`>#+-=|{}.!"

// Escape backslash-escapes all MarkdownV2 reserved characters in text.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text) * 2)
	for _, r := range text {
		if strings.ContainsRune(escapeSet, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isFenceLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

// Split breaks message into ordered segments of at most maxLen bytes.
//
// The message is walked line by line. A line whose trimmed form starts with
// ``` or ~~~ toggles fenced mode and is normalized to a bare ``` marker.
// Lines outside a fence are escaped for MarkdownV2; lines inside pass
// through untouched. When a segment would overflow, an open fence is closed
// before the cut and reopened at the top of the next segment, so every
// segment is independently valid MarkdownV2. Concatenating the segments,
// minus the injected fence markers, reproduces the input text.
func Split(message string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultSegmentLimit
	}
	sp := newSplitter(maxLen)
	for _, line := range strings.Split(message, "\n") {
		sp.addLine(line)
	}
	return sp.finish()
}

type splitter struct {
	maxLen      int
	segments    []string
	current     strings.Builder
	insideFence bool
}

func newSplitter(maxLen int) *splitter {
	return &splitter{maxLen: maxLen}
}

func (sp *splitter) writeLine(s string) {
	sp.current.WriteString(s)
	sp.current.WriteByte('\n')
}

func (sp *splitter) flush() {
	seg := strings.TrimRight(sp.current.String(), "\n")
	sp.current.Reset()
	if strings.TrimSpace(seg) != "" {
		sp.segments = append(sp.segments, seg)
	}
}

// closeReserve is the room kept free for the closing fence that has to fit
// into the current segment while a literal region is open.
func (sp *splitter) closeReserve() int {
	if sp.insideFence {
		return len(fenceMarker) + 1
	}
	return 0
}

func (sp *splitter) fits(line string) bool {
	return sp.current.Len()+len(line)+1+sp.closeReserve() <= sp.maxLen
}

func (sp *splitter) addLine(line string) {
	openBefore := sp.insideFence
	closingFence := false
	var processed string
	switch {
	case isFenceLine(line):
		closingFence = openBefore
		sp.insideFence = !openBefore
		processed = fenceMarker
	case sp.insideFence:
		processed = line
	default:
		processed = Escape(line)
	}

	if sp.fits(processed) {
		sp.writeLine(processed)
		return
	}

	// Segment is full: close any open literal region, cut, and reopen it
	// in the next segment.
	if openBefore {
		sp.writeLine(fenceMarker)
		sp.flush()
		if closingFence {
			// The overflowing line was the closing fence; the injected
			// close already ended the region.
			return
		}
		sp.writeLine(fenceMarker)
	} else {
		sp.flush()
	}

	if sp.fits(processed) {
		sp.writeLine(processed)
		return
	}

	// A single line can exceed a whole segment; cut it at safe byte
	// boundaries, fencing every intermediate segment when needed.
	budget := sp.maxLen - sp.current.Len() - sp.closeReserve() - 1
	for i, piece := range hardSplit(processed, budget) {
		if i > 0 {
			if sp.insideFence {
				sp.writeLine(fenceMarker)
			}
			sp.flush()
			if sp.insideFence {
				sp.writeLine(fenceMarker)
			}
		}
		sp.writeLine(piece)
	}
}

func (sp *splitter) finish() []string {
	if sp.insideFence && strings.TrimSpace(sp.current.String()) != "" {
		sp.writeLine(fenceMarker)
	}
	sp.flush()
	return sp.segments
}

// hardSplit cuts s into pieces of at most limit bytes without separating an
// escape backslash from the character it protects and without cutting a
// multi-byte rune in half.
func hardSplit(s string, limit int) []string {
	if limit < 2 {
		limit = 2
	}
	var pieces []string
	for len(s) > limit {
		cut := limit
		for cut > 0 && !isCutSafe(s, cut) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		pieces = append(pieces, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		pieces = append(pieces, s)
	}
	return pieces
}

func isCutSafe(s string, i int) bool {
	if i <= 0 || i >= len(s) {
		return true
	}
	if s[i]&0xC0 == 0x80 { // UTF-8 continuation byte
		return false
	}
	if s[i-1] == '\\' { // escape pair
		return false
	}
	return true
}
