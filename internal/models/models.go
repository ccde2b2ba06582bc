package models

import "strings"

// BBox is an axis-aligned rectangle in page space. The origin is the top-left
// corner of the page and y grows downward, so Y0 is the top edge.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Union returns the smallest box covering both b and o.
func (b BBox) Union(o BBox) BBox {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	r := b
	if o.X0 < r.X0 {
		r.X0 = o.X0
	}
	if o.Y0 < r.Y0 {
		r.Y0 = o.Y0
	}
	if o.X1 > r.X1 {
		r.X1 = o.X1
	}
	if o.Y1 > r.Y1 {
		r.Y1 = o.Y1
	}
	return r
}

func (b BBox) Empty() bool {
	return b.X0 == 0 && b.Y0 == 0 && b.X1 == 0 && b.Y1 == 0
}

func (b BBox) Width() float64  { return b.X1 - b.X0 }
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// CenterX returns the horizontal midpoint of the box.
func (b BBox) CenterX() float64 { return (b.X0 + b.X1) / 2 }

// Span is a run of text rendered with a single font at a single size.
type Span struct {
	Text string
	BBox BBox
	Font string
	Size float64
}

// Line is a horizontal band of spans sharing a baseline.
type Line struct {
	Spans []Span
}

// Text concatenates the span texts and trims surrounding whitespace.
func (l Line) Text() string {
	var s string
	for _, sp := range l.Spans {
		s += sp.Text
	}
	return strings.TrimSpace(s)
}

// BBox returns the union of the span boxes.
func (l Line) BBox() BBox {
	var b BBox
	for _, sp := range l.Spans {
		b = b.Union(sp.BBox)
	}
	return b
}

// TextBlock groups adjacent lines, roughly a paragraph or caption.
// Produced once per extraction pass and never mutated.
type TextBlock struct {
	Lines []Line
	BBox  BBox
}

// Text joins the line texts with newlines.
func (tb TextBlock) Text() string {
	var s string
	for i, ln := range tb.Lines {
		if i > 0 {
			s += "\n"
		}
		s += ln.Text()
	}
	return s
}

// Page holds everything extracted from a single PDF page.
// Number is 1-based. Immutable once extracted.
type Page struct {
	Number int
	Width  float64
	Height float64
	Blocks []TextBlock
}

// ColumnLayout describes the inferred column structure of one page.
type ColumnLayout struct {
	TwoColumn bool
	// Centers holds one or two column center x-coordinates.
	Centers []float64
	// SplitX is the boundary between columns when TwoColumn is true.
	SplitX float64
}

// Heading is a visually distinct line classified as a section title.
type Heading struct {
	Title string
	Page  int
	Y0    float64
	Y1    float64
}

// Section is the text between one heading and the next.
type Section struct {
	Title   string
	Content string
}

// SentenceRecord is one indexed sentence with stable identity and geometry.
// IDs take the form S{page:03d}-{index:05d}; the index is dense per page and
// starts at 1.
type SentenceRecord struct {
	ID              string     `json:"id"`
	Page            int        `json:"page"`
	Text            string     `json:"text"`
	BBox            [4]float64 `json:"bbox"`
	PageCharStart   int        `json:"page_char_start"`
	PageCharEnd     int        `json:"page_char_end"`
	GlobalCharStart int        `json:"global_char_start"`
	GlobalCharEnd   int        `json:"global_char_end"`
	Hash16          string     `json:"hash16"`
}

// SimilarityMatch pairs a stored reference phrase with its cosine similarity
// to a query sentence.
type SimilarityMatch struct {
	Phrase     string
	Similarity float64
}

// VerificationRecord is the outcome of adjudicating a single sentence.
type VerificationRecord struct {
	SentenceID string  `json:"sentence_id"`
	Page       int     `json:"page"`
	Similarity float64 `json:"similarity_score"`
	Response   string  `json:"llm_response"`
}

// DocumentVerdict is the aggregate result of one ingestion run.
// Result is "Yes" or "No"; Confidence is the maximum similarity among the
// ranked candidates, 0.0 when no sentence cleared the threshold.
type DocumentVerdict struct {
	Result        string               `json:"cmca_result"`
	Confidence    float64              `json:"cosine_similarity"`
	Verifications []VerificationRecord `json:"sentence_verifications"`
}

// Metadata is best-effort bibliographic information, independent of the
// verification pipeline.
type Metadata struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	DOI         string   `json:"doi"`
	Year        string   `json:"year"`
	Instruments []string `json:"instruments"`
	Pages       int      `json:"pages"`
}
