package refs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/ackaudit/pkg/refs"
	"github.com/xhad/ackaudit/pkg/sentence"
	"github.com/xhad/ackaudit/pkg/store"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.txt")
	content := `# facility wordings
The authors acknowledge the facilities of CMCA at UWA.

We thank Microscopy Australia for instrument access.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	phrases, err := refs.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"The authors acknowledge the facilities of CMCA at UWA.",
		"We thank Microscopy Australia for instrument access.",
	}, phrases)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := refs.LoadFile(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestExtractPhrases(t *testing.T) {
	html := `<html><body>
		<p>Welcome to the facility guidance page.</p>
		<p>The authors acknowledge the facilities, and the scientific and technical
		assistance, of Microscopy Australia at CMCA, UWA.</p>
		<li>We thank the Centre for Microscopy, Characterisation and Analysis for SEM access.</li>
		<blockquote>This work was supported by NCRIS; we acknowledge that support.</blockquote>
		<p>Short thanks.</p>
	</body></html>`

	phrases, err := refs.ExtractPhrases(strings.NewReader(html))
	require.NoError(t, err)
	require.Len(t, phrases, 3)
	for _, p := range phrases {
		lower := strings.ToLower(p)
		assert.True(t, strings.Contains(lower, "acknowledg") || strings.Contains(lower, "thank"))
	}
}

func TestExtractPhrasesDeduplicates(t *testing.T) {
	html := `<html><body>
		<p>We thank CMCA for access to its instruments and staff.</p>
		<li>We  thank CMCA for access to its  instruments and staff.</li>
	</body></html>`

	phrases, err := refs.ExtractPhrases(strings.NewReader(html))
	require.NoError(t, err)
	assert.Len(t, phrases, 1)
}

type fixedEmbedder struct{}

func (fixedEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestSeedIdempotent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(3)
	phrases := []string{
		"The authors acknowledge the facilities of CMCA at UWA.",
		"We thank Microscopy Australia for instrument access.",
	}

	n, err := refs.Seed(ctx, fixedEmbedder{}, s, "reference_phrases", phrases, "file")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Seeding again must not grow the collection.
	_, err = refs.Seed(ctx, fixedEmbedder{}, s, "reference_phrases", phrases, "file")
	require.NoError(t, err)

	count, err := s.Count(ctx, "reference_phrases")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := s.Query(ctx, "reference_phrases", []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, sentence.Hash16(results[0].Document), results[0].ID)
	assert.Equal(t, "file", results[0].Metadata["source"])
}

func TestSeedEmpty(t *testing.T) {
	n, err := refs.Seed(context.Background(), fixedEmbedder{}, store.NewMemoryStore(3), "reference_phrases", nil, "file")
	require.NoError(t, err)
	assert.Zero(t, n)
}
