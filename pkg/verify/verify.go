package verify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/xhad/ackaudit/internal/models"
	"github.com/xhad/ackaudit/internal/types"
	"github.com/xhad/ackaudit/pkg/llm"
)

type Config struct {
	// Collection is the vector index collection holding reference phrases.
	Collection string
	// Threshold is the minimum cosine similarity for a sentence to reach
	// adjudication.
	Threshold float64
	// TopK is how many reference phrases to retrieve per sentence.
	TopK int
	// MaxSentences caps how many candidates are adjudicated per document.
	MaxSentences int
}

// Service embeds a document's sentences, retrieves the closest reference
// phrases, and asks the judge about every candidate above the threshold.
type Service struct {
	config   Config
	embedder types.Embedder
	index    types.VectorIndex
	judge    types.Judge
	logger   *slog.Logger
}

var _ types.Verifier = (*Service)(nil)

func NewWithConfig(config Config, embedder types.Embedder, index types.VectorIndex, judge types.Judge, logger *slog.Logger) *Service {
	if config.Collection == "" {
		config.Collection = "reference_phrases"
	}
	if config.Threshold == 0 {
		config.Threshold = 0.70
	}
	if config.TopK == 0 {
		config.TopK = 3
	}
	if config.MaxSentences == 0 {
		config.MaxSentences = 7
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:   config,
		embedder: embedder,
		index:    index,
		judge:    judge,
		logger:   logger,
	}
}

type candidate struct {
	sentence   models.SentenceRecord
	bestPhrase string
	similarity float64
}

// Run produces the document verdict. A document with no sentence above the
// threshold is "No" with zero confidence and no judge calls. Every selected
// candidate is adjudicated, strongest first, and the verdict is Yes when any
// answer affirms.
func (s *Service) Run(ctx context.Context, sentences []models.SentenceRecord) (models.DocumentVerdict, error) {
	verdict := models.DocumentVerdict{Result: "No", Confidence: 0.0}

	candidates, err := s.rank(ctx, sentences)
	if err != nil {
		return verdict, err
	}
	if len(candidates) == 0 {
		s.logger.Info("no sentences cleared the similarity threshold",
			"sentences", len(sentences), "threshold", s.config.Threshold)
		return verdict, nil
	}

	verdict.Confidence = round4(candidates[0].similarity)

	for _, c := range candidates {
		prompt := llm.BuildPrompt(c.sentence.Text, c.bestPhrase, c.similarity)
		answer, err := s.judge.Adjudicate(ctx, prompt)
		if err != nil {
			return verdict, fmt.Errorf("adjudication failed for %s: %w", c.sentence.ID, err)
		}

		verdict.Verifications = append(verdict.Verifications, models.VerificationRecord{
			SentenceID: c.sentence.ID,
			Page:       c.sentence.Page,
			Similarity: round4(c.similarity),
			Response:   answer,
		})

		if IsYes(answer) {
			verdict.Result = "Yes"
		}
	}

	return verdict, nil
}

// rank embeds every sentence, queries the index, and keeps the ones whose
// best match clears the threshold, strongest first, capped at MaxSentences.
func (s *Service) rank(ctx context.Context, sentences []models.SentenceRecord) ([]candidate, error) {
	if len(sentences) == 0 {
		return nil, nil
	}

	texts := make([]string, len(sentences))
	for i, rec := range sentences {
		texts[i] = rec.Text
	}

	vectors, err := s.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed sentences: %w", err)
	}

	var candidates []candidate
	for i, rec := range sentences {
		results, err := s.index.Query(ctx, s.config.Collection, vectors[i], s.config.TopK, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to query index for %s: %w", rec.ID, err)
		}
		if len(results) == 0 {
			continue
		}

		best := results[0]
		if best.Similarity < s.config.Threshold {
			continue
		}
		candidates = append(candidates, candidate{
			sentence:   rec,
			bestPhrase: best.Document,
			similarity: best.Similarity,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if len(candidates) > s.config.MaxSentences {
		candidates = candidates[:s.config.MaxSentences]
	}
	return candidates, nil
}

// IsYes reports whether a judge answer affirms the acknowledgement. Only an
// answer opening with "Answer: Yes" counts; a Yes buried later in the text
// does not.
func IsYes(answer string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "answer: yes")
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
