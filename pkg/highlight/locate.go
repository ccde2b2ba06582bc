package highlight

import (
	"strings"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/pkg/layout"
	"github.com/xhad/ackaudit/pkg/sentence"
)

// Locate finds every occurrence of the record's text on its page and returns
// one box per line the match crosses. Horizontal extents are interpolated
// from character position within the line, so boxes tighten to the matched
// text rather than covering whole lines. Returns nil when the text no longer
// appears on the page.
func Locate(pages []models.Page, rec models.SentenceRecord, lcfg layout.Config) []models.BBox {
	var page *models.Page
	for i := range pages {
		if pages[i].Number == rec.Page {
			page = &pages[i]
			break
		}
	}
	if page == nil || rec.Text == "" {
		return nil
	}

	text, lines := sentence.PageText(*page, lcfg)

	var boxes []models.BBox
	for from := 0; ; {
		i := strings.Index(text[from:], rec.Text)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(rec.Text)
		boxes = append(boxes, sliceBoxes(lines, start, end)...)
		from = end
	}
	return boxes
}

// sliceBoxes clips the match range [start, end) against each line span.
func sliceBoxes(lines []sentence.LineSpan, start, end int) []models.BBox {
	var boxes []models.BBox
	for _, ls := range lines {
		if ls.Start >= end || start >= ls.End {
			continue
		}
		lo := max(start, ls.Start)
		hi := min(end, ls.End)
		n := ls.End - ls.Start
		if n == 0 {
			continue
		}

		width := ls.BBox.Width()
		x0 := ls.BBox.X0 + width*float64(lo-ls.Start)/float64(n)
		x1 := ls.BBox.X0 + width*float64(hi-ls.Start)/float64(n)
		boxes = append(boxes, models.BBox{X0: x0, Y0: ls.BBox.Y0, X1: x1, Y1: ls.BBox.Y1})
	}
	return boxes
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
