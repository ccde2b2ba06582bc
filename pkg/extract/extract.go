package extract

import (
	"errors"
	"log/slog"
	"os"
	"sort"

	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/text"

	"github.com/xhad/ackaudit/internal/models"
)

// Extractor turns raw PDF bytes into pages of positioned text blocks.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Document parses the PDF and returns its pages in order. Page numbers are
// 1-based. A PDF that cannot be opened, or that contains no pages, is an
// error; a single page whose content stream cannot be decoded is logged and
// returned empty so the rest of the document still processes.
func (e *Extractor) Document(data []byte) ([]models.Page, error) {
	if len(data) == 0 {
		return nil, &ExtractionError{Stage: "open", Err: errors.New("empty input")}
	}

	// The reader seeks within a file, so spool the bytes to a temp file.
	tmp, err := os.CreateTemp("", "ackaudit-*.pdf")
	if err != nil {
		return nil, &ExtractionError{Stage: "open", Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, &ExtractionError{Stage: "open", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &ExtractionError{Stage: "open", Err: err}
	}

	r, err := reader.Open(tmp.Name())
	if err != nil {
		return nil, &ExtractionError{Stage: "open", Err: err}
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		return nil, &ExtractionError{Stage: "pages", Err: err}
	}
	if count == 0 {
		return nil, &ExtractionError{Stage: "pages", Err: errors.New("document has no pages")}
	}

	result := make([]models.Page, 0, count)
	for i := 0; i < count; i++ {
		page, err := r.GetPage(i)
		if err != nil {
			return nil, &ExtractionError{Stage: "pages", Err: err}
		}

		width, err := page.Width()
		if err != nil {
			return nil, &ExtractionError{Stage: "pages", Err: err}
		}
		height, err := page.Height()
		if err != nil {
			return nil, &ExtractionError{Stage: "pages", Err: err}
		}

		frags, err := r.ExtractTextFragments(page)
		if err != nil {
			e.logger.Warn("failed to decode page content, leaving page empty",
				"page", i+1, "error", err)
			frags = nil
		}

		result = append(result, BuildPage(i+1, width, height, frags))
	}

	return result, nil
}

// BuildPage assembles fragments into a Page with lines grouped into blocks.
// Fragment coordinates arrive with a bottom-left origin and are converted to
// a top-left origin so that y grows downward everywhere else.
func BuildPage(number int, width, height float64, frags []text.TextFragment) models.Page {
	spans := make([]models.Span, 0, len(frags))
	for _, f := range frags {
		if f.Text == "" {
			continue
		}
		spans = append(spans, models.Span{
			Text: f.Text,
			BBox: models.BBox{
				X0: f.X,
				Y0: height - (f.Y + f.Height),
				X1: f.X + f.Width,
				Y1: height - f.Y,
			},
			Font: f.FontName,
			Size: f.FontSize,
		})
	}

	lines := groupLines(spans)
	blocks := groupBlocks(lines)

	return models.Page{
		Number: number,
		Width:  width,
		Height: height,
		Blocks: blocks,
	}
}

// groupLines buckets spans that share a baseline band into lines, then orders
// spans within each line left to right.
func groupLines(spans []models.Span) []models.Line {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].BBox.Y0 != spans[j].BBox.Y0 {
			return spans[i].BBox.Y0 < spans[j].BBox.Y0
		}
		return spans[i].BBox.X0 < spans[j].BBox.X0
	})

	var lines []models.Line
	for _, sp := range spans {
		placed := false
		if n := len(lines); n > 0 {
			last := &lines[n-1]
			lb := last.BBox()
			mid := (sp.BBox.Y0 + sp.BBox.Y1) / 2
			if mid >= lb.Y0 && mid <= lb.Y1 {
				last.Spans = append(last.Spans, sp)
				placed = true
			}
		}
		if !placed {
			lines = append(lines, models.Line{Spans: []models.Span{sp}})
		}
	}

	for i := range lines {
		sort.SliceStable(lines[i].Spans, func(a, b int) bool {
			return lines[i].Spans[a].BBox.X0 < lines[i].Spans[b].BBox.X0
		})
	}
	return lines
}

// groupBlocks merges vertically adjacent, horizontally overlapping lines into
// blocks. Requiring horizontal overlap keeps side-by-side columns apart.
func groupBlocks(lines []models.Line) []models.TextBlock {
	var blocks []models.TextBlock
	for _, ln := range lines {
		if ln.Text() == "" {
			continue
		}
		lb := ln.BBox()
		merged := false
		for i := range blocks {
			b := &blocks[i]
			gap := lb.Y0 - b.BBox.Y1
			if gap < 0 {
				gap = 0
			}
			if gap <= 1.6*lb.Height() && overlapsX(b.BBox, lb) {
				b.Lines = append(b.Lines, ln)
				b.BBox = b.BBox.Union(lb)
				merged = true
				break
			}
		}
		if !merged {
			blocks = append(blocks, models.TextBlock{Lines: []models.Line{ln}, BBox: lb})
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].BBox.Y0 != blocks[j].BBox.Y0 {
			return blocks[i].BBox.Y0 < blocks[j].BBox.Y0
		}
		return blocks[i].BBox.X0 < blocks[j].BBox.X0
	})
	return blocks
}

func overlapsX(a, b models.BBox) bool {
	return a.X0 < b.X1 && b.X0 < a.X1
}
