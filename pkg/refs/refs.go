package refs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/xhad/ackaudit/internal/types"
	"github.com/xhad/ackaudit/pkg/sentence"
)

// Reference phrases are known-good acknowledgement wordings. The vector
// index is seeded with them; incoming sentences are compared against them.

// LoadFile reads one phrase per line, skipping blanks and # comments.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open phrase file: %w", err)
	}
	defer f.Close()

	var phrases []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read phrase file: %w", err)
	}
	return phrases, nil
}

type ScraperConfig struct {
	RateLimit float64 // requests per second
	Timeout   time.Duration
}

// Scraper pulls suggested acknowledgement wordings from a facility guidance
// page.
type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewScraperWithConfig(config ScraperConfig) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// ScrapePhrases fetches the page and extracts candidate phrases from
// paragraph, list item, and blockquote elements. Only sentences naming an
// acknowledgement are kept.
func (s *Scraper) ScrapePhrases(ctx context.Context, pageURL string) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}

	return ExtractPhrases(resp.Body)
}

// ExtractPhrases parses HTML and returns acknowledgement-like phrases.
func ExtractPhrases(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var phrases []string
	seen := make(map[string]struct{})

	doc.Find("p, li, blockquote").Each(func(_ int, sel *goquery.Selection) {
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" || !looksLikeAcknowledgement(text) {
			return
		}
		key := sentence.Normalize(text)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		phrases = append(phrases, text)
	})

	return phrases, nil
}

func looksLikeAcknowledgement(text string) bool {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "acknowledg") && !strings.Contains(lower, "thank") {
		return false
	}
	words := len(strings.Fields(text))
	return words >= 5 && words <= 120
}

// Seed embeds the phrases and upserts them into the collection. Record ids
// are content hashes, so re-seeding the same phrases is idempotent.
func Seed(ctx context.Context, embedder types.Embedder, index types.VectorIndex, collection string, phrases []string, source string) (int, error) {
	if len(phrases) == 0 {
		return 0, nil
	}

	if err := index.CreateCollection(ctx, collection); err != nil {
		return 0, fmt.Errorf("failed to create collection: %w", err)
	}

	vectors, err := embedder.CreateEmbedding(ctx, phrases)
	if err != nil {
		return 0, fmt.Errorf("failed to embed phrases: %w", err)
	}

	ids := make([]string, len(phrases))
	metadatas := make([]map[string]any, len(phrases))
	for i, p := range phrases {
		ids[i] = sentence.Hash16(p)
		metadatas[i] = map[string]any{"source": source}
	}

	if err := index.Add(ctx, collection, ids, vectors, phrases, metadatas); err != nil {
		return 0, fmt.Errorf("failed to store phrases: %w", err)
	}
	return len(phrases), nil
}
