package section

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/pkg/layout"
)

// FallbackTitle names the single section produced when no headings are found.
const FallbackTitle = "DOCUMENT"

const (
	// A span must be this much larger than the page average to count as
	// visually prominent on size alone.
	sizeRatio     = 1.2
	maxTitleChars = 120
	maxTitleWords = 10
	minAlphaShare = 0.6
)

var titleCasePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9 ,\x{2013}\x{2014}\-:;()]+$`)

// DetectHeadings scans every line of every page and keeps the ones that look
// like section titles: visually prominent (oversized or bold) and shaped like
// a title rather than body text. Consecutive duplicates from overlapping
// spans are collapsed. Results come back ordered by page and vertical
// position.
func DetectHeadings(pages []models.Page) []models.Heading {
	var headings []models.Heading
	for _, p := range pages {
		avg := avgSpanSize(p)
		for _, b := range p.Blocks {
			for _, ln := range b.Lines {
				h, ok := classify(ln, p.Number, avg)
				if !ok {
					continue
				}
				if n := len(headings); n > 0 {
					prev := headings[n-1]
					if prev.Title == h.Title && prev.Page == h.Page && abs(prev.Y0-h.Y0) < 2 {
						continue
					}
				}
				headings = append(headings, h)
			}
		}
	}

	sort.SliceStable(headings, func(i, j int) bool {
		if headings[i].Page != headings[j].Page {
			return headings[i].Page < headings[j].Page
		}
		return headings[i].Y0 < headings[j].Y0
	})
	return headings
}

func classify(ln models.Line, page int, avgSize float64) (models.Heading, bool) {
	text := ln.Text()
	if text == "" {
		return models.Heading{}, false
	}

	prominent := false
	for _, sp := range ln.Spans {
		if avgSize > 0 && sp.Size >= sizeRatio*avgSize {
			prominent = true
			break
		}
		if strings.Contains(sp.Font, "Bold") || strings.Contains(sp.Font, "Semibold") {
			prominent = true
			break
		}
	}
	if !prominent {
		return models.Heading{}, false
	}

	if len(text) > maxTitleChars {
		return models.Heading{}, false
	}
	if len(strings.Fields(text)) > maxTitleWords {
		return models.Heading{}, false
	}

	compact := []rune(strings.ReplaceAll(text, " ", ""))
	alpha := 0
	for _, r := range compact {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if len(compact) == 0 || float64(alpha) < minAlphaShare*float64(len(compact)) {
		return models.Heading{}, false
	}

	if !isAllCaps(text) && !titleCasePattern.MatchString(text) {
		return models.Heading{}, false
	}

	bb := ln.BBox()
	return models.Heading{Title: text, Page: page, Y0: bb.Y0, Y1: bb.Y1}, true
}

// Segment splits the document into titled sections. Each section's content is
// every line in reading order between its heading and the next, with the
// heading lines themselves excluded by vertical position. A document with no
// headings collapses into one section holding all of its text.
func Segment(pages []models.Page, headings []models.Heading, lcfg layout.Config) []models.Section {
	lines := make(map[int][]models.Line, len(pages))
	for _, p := range pages {
		lay := layout.Resolve(p, lcfg)
		for _, b := range layout.Order(p, lay) {
			lines[p.Number] = append(lines[p.Number], b.Lines...)
		}
	}

	if len(headings) == 0 {
		var parts []string
		for _, p := range pages {
			for _, ln := range lines[p.Number] {
				if t := ln.Text(); t != "" {
					parts = append(parts, t)
				}
			}
		}
		return []models.Section{{Title: FallbackTitle, Content: strings.Join(parts, "\n")}}
	}

	sections := make([]models.Section, 0, len(headings))
	for i, h := range headings {
		var next *models.Heading
		if i+1 < len(headings) {
			next = &headings[i+1]
		}

		var parts []string
		for _, p := range pages {
			if p.Number < h.Page {
				continue
			}
			if next != nil && p.Number > next.Page {
				break
			}
			for _, ln := range lines[p.Number] {
				y0 := ln.BBox().Y0
				if p.Number == h.Page && y0 <= h.Y1 {
					continue
				}
				if next != nil && p.Number == next.Page && y0 >= next.Y0 {
					continue
				}
				if t := ln.Text(); t != "" {
					parts = append(parts, t)
				}
			}
		}
		sections = append(sections, models.Section{Title: h.Title, Content: strings.Join(parts, "\n")})
	}
	return sections
}

func avgSpanSize(p models.Page) float64 {
	var sum float64
	var n int
	for _, b := range p.Blocks {
		for _, ln := range b.Lines {
			for _, sp := range ln.Spans {
				if sp.Size > 0 {
					sum += sp.Size
					n++
				}
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
