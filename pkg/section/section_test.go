package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/pkg/layout"
)

func lineOf(text, font string, size, x0, y0, x1, y1 float64) models.Line {
	return models.Line{Spans: []models.Span{{
		Text: text,
		BBox: models.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1},
		Font: font,
		Size: size,
	}}}
}

func pageOf(number int, lines ...models.Line) models.Page {
	p := models.Page{Number: number, Width: 612, Height: 792}
	for _, ln := range lines {
		p.Blocks = append(p.Blocks, models.TextBlock{Lines: []models.Line{ln}, BBox: ln.BBox()})
	}
	return p
}

func TestDetectHeadingsBoldTitle(t *testing.T) {
	p := pageOf(1,
		lineOf("Acknowledgements", "Times-Bold", 10, 72, 100, 200, 112),
		lineOf("We thank the facility staff for their support.", "Times-Roman", 10, 72, 120, 500, 132),
		lineOf("More body text continues here on the page.", "Times-Roman", 10, 72, 140, 500, 152),
	)

	headings := DetectHeadings([]models.Page{p})
	require.Len(t, headings, 1)
	assert.Equal(t, "Acknowledgements", headings[0].Title)
	assert.Equal(t, 1, headings[0].Page)
	assert.InDelta(t, 100, headings[0].Y0, 0.001)
}

func TestDetectHeadingsOversizedAllCaps(t *testing.T) {
	p := pageOf(1,
		lineOf("METHODS", "Times-Roman", 14, 72, 100, 160, 114),
		lineOf("Samples were imaged on a scanning electron microscope.", "Times-Roman", 10, 72, 130, 520, 142),
		lineOf("Further descriptive text keeps the page average small.", "Times-Roman", 10, 72, 150, 520, 162),
	)

	headings := DetectHeadings([]models.Page{p})
	require.Len(t, headings, 1)
	assert.Equal(t, "METHODS", headings[0].Title)
}

func TestDetectHeadingsRejectsBodyText(t *testing.T) {
	long := "This bold sentence is far too long and wordy to possibly be treated as a section heading by anyone"
	p := pageOf(1,
		lineOf(long, "Times-Bold", 10, 72, 100, 540, 112),
		lineOf("lowercase bold", "Times-Bold", 10, 72, 130, 200, 142),
		lineOf("1234 5678", "Times-Bold", 10, 72, 160, 200, 172),
	)

	assert.Empty(t, DetectHeadings([]models.Page{p}))
}

func TestDetectHeadingsDeduplicatesOverlap(t *testing.T) {
	// The same title rendered twice at nearly the same position, as happens
	// with shadowed or doubled spans.
	p := pageOf(1,
		lineOf("Results", "Times-Bold", 10, 72, 100, 150, 112),
		lineOf("Results", "Times-Bold", 10, 72, 100.5, 150, 112.5),
		lineOf("Body text here keeps the average font size in check.", "Times-Roman", 10, 72, 130, 500, 142),
	)

	headings := DetectHeadings([]models.Page{p})
	assert.Len(t, headings, 1)
}

func TestSegmentSplitsAtHeadings(t *testing.T) {
	p := pageOf(1,
		lineOf("Introduction", "Times-Bold", 10, 72, 100, 200, 112),
		lineOf("intro body line one", "Times-Roman", 10, 72, 120, 400, 132),
		lineOf("intro body line two", "Times-Roman", 10, 72, 140, 400, 152),
		lineOf("Acknowledgements", "Times-Bold", 10, 72, 200, 260, 212),
		lineOf("We thank CMCA at UWA.", "Times-Roman", 10, 72, 220, 400, 232),
	)

	headings := DetectHeadings([]models.Page{p})
	require.Len(t, headings, 2)

	sections := Segment([]models.Page{p}, headings, layout.Config{})
	require.Len(t, sections, 2)
	assert.Equal(t, "Introduction", sections[0].Title)
	assert.Equal(t, "intro body line one\nintro body line two", sections[0].Content)
	assert.Equal(t, "Acknowledgements", sections[1].Title)
	assert.Equal(t, "We thank CMCA at UWA.", sections[1].Content)
}

func TestSegmentSpansPages(t *testing.T) {
	p1 := pageOf(1,
		lineOf("Discussion", "Times-Bold", 10, 72, 600, 200, 612),
		lineOf("starts on page one", "Times-Roman", 10, 72, 640, 400, 652),
	)
	p2 := pageOf(2,
		lineOf("continues on page two", "Times-Roman", 10, 72, 100, 400, 112),
	)

	headings := DetectHeadings([]models.Page{p1, p2})
	require.Len(t, headings, 1)

	sections := Segment([]models.Page{p1, p2}, headings, layout.Config{})
	require.Len(t, sections, 1)
	assert.Equal(t, "starts on page one\ncontinues on page two", sections[0].Content)
}

func TestSegmentFallbackSection(t *testing.T) {
	p := pageOf(1,
		lineOf("plain text only", "Times-Roman", 10, 72, 100, 300, 112),
		lineOf("nothing looks like a title", "Times-Roman", 10, 72, 130, 300, 142),
	)

	sections := Segment([]models.Page{p}, nil, layout.Config{})
	require.Len(t, sections, 1)
	assert.Equal(t, FallbackTitle, sections[0].Title)
	assert.Equal(t, "plain text only\nnothing looks like a title", sections[0].Content)
}
