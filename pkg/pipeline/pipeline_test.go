package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/pkg/pipeline"
)

type fakeExtractor struct {
	pages []models.Page
	err   error
}

func (f *fakeExtractor) Document(_ []byte) ([]models.Page, error) {
	return f.pages, f.err
}

type fakeVerifier struct {
	verdict models.DocumentVerdict
	err     error
	got     []models.SentenceRecord
}

func (f *fakeVerifier) Run(_ context.Context, sentences []models.SentenceRecord) (models.DocumentVerdict, error) {
	f.got = sentences
	return f.verdict, f.err
}

type fakeHighlighter struct {
	out   []byte
	ids   []string
	calls int
}

func (f *fakeHighlighter) Apply(original []byte, _ []models.Page, _ []models.SentenceRecord, ids []string) []byte {
	f.calls++
	f.ids = ids
	if f.out != nil {
		return f.out
	}
	return original
}

func docPage(lines ...string) models.Page {
	p := models.Page{Number: 1, Width: 612, Height: 792}
	for i, t := range lines {
		y := float64(100 + i*20)
		bb := models.BBox{X0: 72, Y0: y, X1: 500, Y1: y + 12}
		p.Blocks = append(p.Blocks, models.TextBlock{
			Lines: []models.Line{{Spans: []models.Span{{Text: t, BBox: bb, Size: 10}}}},
			BBox:  bb,
		})
	}
	return p
}

func TestIngestAffirmedDocumentGetsHighlighted(t *testing.T) {
	page := docPage("We thank CMCA for access.")
	annotated := []byte("annotated pdf")
	verifier := &fakeVerifier{verdict: models.DocumentVerdict{
		Result:     "Yes",
		Confidence: 0.93,
		Verifications: []models.VerificationRecord{{
			SentenceID: "S001-00001",
			Page:       1,
			Similarity: 0.93,
			Response:   "Answer: Yes\nReason: credits the facility.",
		}},
	}}
	hl := &fakeHighlighter{out: annotated}

	p := pipeline.New(pipeline.Config{}, &fakeExtractor{pages: []models.Page{page}}, verifier, hl, nil)
	result, err := p.Ingest(context.Background(), []byte("%PDF"))

	require.NoError(t, err)
	assert.Equal(t, "Yes", result.Verdict.Result)
	assert.Equal(t, annotated, result.AnnotatedPDF)
	assert.Equal(t, 1, hl.calls)
	assert.Equal(t, []string{"S001-00001"}, hl.ids)
	require.Len(t, result.Sentences, 1)
	assert.Equal(t, "S001-00001", result.Sentences[0].ID)
	assert.Equal(t, result.Sentences, verifier.got)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "DOCUMENT", result.Sections[0].Title)
	assert.Equal(t, 1, result.Metadata.Pages)
}

func TestIngestNegativeVerdictSkipsHighlighter(t *testing.T) {
	page := docPage("Nothing relevant here.")
	verifier := &fakeVerifier{verdict: models.DocumentVerdict{Result: "No"}}
	hl := &fakeHighlighter{}
	original := []byte("%PDF original")

	p := pipeline.New(pipeline.Config{}, &fakeExtractor{pages: []models.Page{page}}, verifier, hl, nil)
	result, err := p.Ingest(context.Background(), original)

	require.NoError(t, err)
	assert.Equal(t, original, result.AnnotatedPDF)
	assert.Zero(t, hl.calls)
}

func TestIngestExtractionFailure(t *testing.T) {
	p := pipeline.New(pipeline.Config{}, &fakeExtractor{err: errors.New("bad pdf")}, &fakeVerifier{}, &fakeHighlighter{}, nil)
	_, err := p.Ingest(context.Background(), []byte("junk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")
}

func TestIngestVerificationFailure(t *testing.T) {
	page := docPage("We thank CMCA for access.")
	verifier := &fakeVerifier{err: errors.New("model down")}

	p := pipeline.New(pipeline.Config{}, &fakeExtractor{pages: []models.Page{page}}, verifier, &fakeHighlighter{}, nil)
	_, err := p.Ingest(context.Background(), []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification failed")
}
