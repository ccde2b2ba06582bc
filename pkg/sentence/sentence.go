package sentence

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/pkg/layout"
)

// boundary marks a sentence break: terminal punctuation, whitespace, then a
// character that plausibly opens a sentence. The two capture groups stand in
// for lookahead, which RE2 does not support; group 2 is the start of the next
// sentence and is not consumed from it.
var boundary = regexp.MustCompile(`([.!?])\s+([A-Z("'\x{201C}])`)

var whitespace = regexp.MustCompile(`\s+`)

var lastToken = regexp.MustCompile(`[A-Za-z.]+$`)

// Abbreviations whose trailing period does not end a sentence. Compared
// case-insensitively after stripping the final dot.
var Abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {},
	"sr": {}, "jr": {}, "st": {}, "mt": {}, "vs": {},
	"no": {}, "inc": {}, "ltd": {}, "fig": {}, "eq": {}, "ref": {},
	"i.e": {}, "e.g": {}, "cf": {},
	"ph.d": {}, "m.sc": {}, "u.s": {}, "u.k": {},
}

// abbreviationWindow is how far back from a period the guard searches for the
// token the period terminates.
const abbreviationWindow = 25

// Normalize canonicalizes text for hashing: NFKC, whitespace collapsed to
// single spaces, trimmed, lowercased.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// Hash16 is the first 16 hex characters of the SHA-1 of the normalized text.
// It identifies a sentence across runs independent of position.
func Hash16(s string) string {
	sum := sha1.Sum([]byte(Normalize(s)))
	return hex.EncodeToString(sum[:])[:16]
}

// LineSpan records where one line's text landed in an assembled page string.
type LineSpan struct {
	Start int
	End   int
	BBox  models.BBox
}

// PageText flattens a page into a single string, one line per row joined by
// newlines, in reading order. The returned spans map byte ranges of the
// string back to line geometry.
func PageText(p models.Page, lcfg layout.Config) (string, []LineSpan) {
	lay := layout.Resolve(p, lcfg)

	var sb strings.Builder
	var spans []LineSpan
	for _, b := range layout.Order(p, lay) {
		for _, ln := range b.Lines {
			t := ln.Text()
			if t == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			start := sb.Len()
			sb.WriteString(t)
			spans = append(spans, LineSpan{Start: start, End: sb.Len(), BBox: ln.BBox()})
		}
	}
	return sb.String(), spans
}

// SplitOffsets returns the [start, end) byte ranges of the sentences in text.
// Ranges cover the raw text including any leading whitespace left by the
// previous boundary; callers trim for display.
func SplitOffsets(text string) [][2]int {
	var out [][2]int
	start := 0
	for _, m := range boundary.FindAllStringSubmatchIndex(text, -1) {
		punctStart, punctEnd := m[2], m[3]
		nextStart := m[4]
		if text[punctStart] == '.' && isAbbreviation(text, punctStart) {
			continue
		}
		out = append(out, [2]int{start, punctEnd})
		start = nextStart
	}
	if start < len(text) {
		out = append(out, [2]int{start, len(text)})
	}
	return out
}

func isAbbreviation(text string, punctPos int) bool {
	lo := punctPos - abbreviationWindow
	if lo < 0 {
		lo = 0
	}
	window := text[lo : punctPos+1]
	tok := lastToken.FindString(window)
	if tok == "" {
		return false
	}
	// Inner dots stay, so "e.g." compares as "e.g" and "Ph.D." as "ph.d".
	tok = strings.ToLower(strings.TrimSuffix(tok, "."))
	_, ok := Abbreviations[tok]
	return ok
}

// Index assembles every page's text and splits it into sentence records with
// stable ids, page-local and document-global character offsets, geometry, and
// content hashes. Document-global offsets treat each page as followed by a
// two-character break.
func Index(pages []models.Page, lcfg layout.Config) []models.SentenceRecord {
	var records []models.SentenceRecord
	globalBase := 0

	for _, p := range pages {
		text, lines := PageText(p, lcfg)
		idx := 1
		for _, span := range SplitOffsets(text) {
			raw := text[span[0]:span[1]]
			trimmed := strings.TrimSpace(raw)
			if trimmed == "" {
				continue
			}

			bb := coverBBox(lines, span[0], span[1])
			records = append(records, models.SentenceRecord{
				ID:              fmt.Sprintf("S%03d-%05d", p.Number, idx),
				Page:            p.Number,
				Text:            trimmed,
				BBox:            [4]float64{bb.X0, bb.Y0, bb.X1, bb.Y1},
				PageCharStart:   span[0],
				PageCharEnd:     span[1],
				GlobalCharStart: globalBase + span[0],
				GlobalCharEnd:   globalBase + span[1],
				Hash16:          Hash16(trimmed),
			})
			idx++
		}
		globalBase += len(text) + 2
	}
	return records
}

// coverBBox unions the boxes of every line overlapping [start, end).
func coverBBox(lines []LineSpan, start, end int) models.BBox {
	var bb models.BBox
	for _, ls := range lines {
		if ls.Start < end && start < ls.End {
			bb = bb.Union(ls.BBox)
		}
	}
	return bb
}
