package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/internal/types"
	"github.com/xhad/ackaudit/pkg/layout"
	"github.com/xhad/ackaudit/pkg/metadata"
	"github.com/xhad/ackaudit/pkg/section"
	"github.com/xhad/ackaudit/pkg/sentence"
	"github.com/xhad/ackaudit/pkg/verify"
)

// DocumentExtractor parses PDF bytes into positioned pages.
type DocumentExtractor interface {
	Document(data []byte) ([]models.Page, error)
}

// Highlighter stamps annotations over the named sentences.
type Highlighter interface {
	Apply(original []byte, pages []models.Page, records []models.SentenceRecord, ids []string) []byte
}

type Config struct {
	Layout layout.Config
}

// Pipeline runs a document end to end: extraction, segmentation, sentence
// indexing, verification, and highlighting.
type Pipeline struct {
	config      Config
	extractor   DocumentExtractor
	verifier    types.Verifier
	highlighter Highlighter
	logger      *slog.Logger
}

// IngestResult is everything one run produces.
type IngestResult struct {
	Metadata     models.Metadata
	Headings     []models.Heading
	Sections     []models.Section
	Sentences    []models.SentenceRecord
	Verdict      models.DocumentVerdict
	AnnotatedPDF []byte
}

func New(config Config, extractor DocumentExtractor, verifier types.Verifier, highlighter Highlighter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		config:      config,
		extractor:   extractor,
		verifier:    verifier,
		highlighter: highlighter,
		logger:      logger,
	}
}

// Ingest processes one PDF. The returned AnnotatedPDF equals the input when
// no sentence was affirmed or annotation failed.
func (p *Pipeline) Ingest(ctx context.Context, pdf []byte) (*IngestResult, error) {
	pages, err := p.extractor.Document(pdf)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	p.logger.Info("document extracted", "pages", len(pages))

	headings := section.DetectHeadings(pages)
	sections := section.Segment(pages, headings, p.config.Layout)
	sentences := sentence.Index(pages, p.config.Layout)
	meta := metadata.Extract(pages)

	p.logger.Info("document segmented",
		"headings", len(headings),
		"sections", len(sections),
		"sentences", len(sentences))

	verdict, err := p.verifier.Run(ctx, sentences)
	if err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}

	result := &IngestResult{
		Metadata:     meta,
		Headings:     headings,
		Sections:     sections,
		Sentences:    sentences,
		Verdict:      verdict,
		AnnotatedPDF: pdf,
	}

	var yesIDs []string
	for _, v := range verdict.Verifications {
		if verify.IsYes(v.Response) {
			yesIDs = append(yesIDs, v.SentenceID)
		}
	}
	if len(yesIDs) > 0 && p.highlighter != nil {
		result.AnnotatedPDF = p.highlighter.Apply(pdf, pages, sentences, yesIDs)
	}

	p.logger.Info("document adjudicated",
		"result", verdict.Result,
		"confidence", verdict.Confidence,
		"highlighted", len(yesIDs))

	return result, nil
}
