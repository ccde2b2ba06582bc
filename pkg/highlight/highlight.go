package highlight

import (
	"log/slog"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/pkg/layout"
)

// Service stamps yellow highlight annotations over verified sentences.
type Service struct {
	logger *slog.Logger
	layout layout.Config
}

func New(logger *slog.Logger, lcfg layout.Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, layout: lcfg}
}

// Apply highlights the sentences named by ids and returns the annotated PDF.
// Unknown ids and sentences whose text no longer appears on their page are
// skipped with a warning. Any write failure returns the original bytes
// unchanged, so the caller always holds a valid document.
func (s *Service) Apply(original []byte, pages []models.Page, records []models.SentenceRecord, ids []string) []byte {
	byID := make(map[string]models.SentenceRecord, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec
	}

	heights := make(map[int]float64, len(pages))
	for _, p := range pages {
		heights[p.Number] = p.Height
	}

	byPage := make(map[int][]pdfRect)
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			s.logger.Warn("sentence id not found, skipping highlight", "id", id)
			continue
		}

		boxes := Locate(pages, rec, s.layout)
		if len(boxes) == 0 {
			s.logger.Warn("sentence text not found on page, skipping highlight",
				"id", id, "page", rec.Page)
			continue
		}

		h := heights[rec.Page]
		for _, b := range boxes {
			byPage[rec.Page] = append(byPage[rec.Page], pdfRect{
				LLX: b.X0,
				LLY: h - b.Y1,
				URX: b.X1,
				URY: h - b.Y0,
			})
		}
	}

	if len(byPage) == 0 {
		return original
	}

	annotated, err := annotate(original, byPage)
	if err != nil {
		s.logger.Warn("failed to write annotations, returning original document", "error", err)
		return original
	}
	return annotated
}
