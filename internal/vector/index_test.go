package vector

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pa-workflow-server/internal/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return NewIndex(&domain.VectorConfig{CollectionName: "test_policies", Dimensions: 128}, logger)
}

func seedPolicies(t *testing.T, idx *Index) {
	t.Helper()
	docs := []domain.PolicyDocument{
		{
			ID:   "aetna_ozempic",
			Text: "Ozempic semaglutide requires documented Type 2 Diabetes diagnosis, HbA1c above 7.0, and prior metformin trial of at least 3 months.",
			Metadata: domain.PolicyMetadata{
				Plan:     "Aetna Gold PPO",
				Drug:     "Ozempic",
				Criteria: "T2DM diagnosis; HbA1c > 7.0; metformin trial >= 3 months",
			},
		},
		{
			ID:   "bluecross_trulicity",
			Text: "Trulicity dulaglutide coverage requires Type 2 Diabetes and step therapy through metformin and sulfonylurea.",
			Metadata: domain.PolicyMetadata{
				Plan:     "BlueCross Silver HMO",
				Drug:     "Trulicity",
				Criteria: "T2DM diagnosis; step therapy required",
			},
		},
		{
			ID:   "united_jardiance",
			Text: "Jardiance empagliflozin approval criteria include Type 2 Diabetes with established cardiovascular disease.",
			Metadata: domain.PolicyMetadata{
				Plan:     "United Bronze",
				Drug:     "Jardiance",
				Criteria: "T2DM with cardiovascular disease",
			},
		},
	}
	require.NoError(t, idx.AddDocuments(context.Background(), docs))
}

func TestIndexSearch_EmptyIndex(t *testing.T) {
	idx := newTestIndex(t)

	chunks, err := idx.Search(context.Background(), "Ozempic", 3, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestIndexSearch_OrderedBySimilarity(t *testing.T) {
	idx := newTestIndex(t)
	seedPolicies(t, idx)

	chunks, err := idx.Search(context.Background(), "Ozempic semaglutide HbA1c metformin", 3, 0)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i := 1; i < len(chunks); i++ {
		assert.GreaterOrEqual(t, chunks[i-1].Similarity, chunks[i].Similarity,
			"results must be ordered by descending similarity")
	}
	assert.Equal(t, "aetna_ozempic", chunks[0].ID)
}

func TestIndexSearch_ThresholdOne_MatchesOnlyIdenticalText(t *testing.T) {
	idx := newTestIndex(t)
	seedPolicies(t, idx)

	chunks, err := idx.Search(context.Background(), "completely unrelated query text", 3, 1.0)
	require.NoError(t, err)
	assert.Empty(t, chunks, "threshold 1.0 must exclude non-identical matches")
}

func TestIndexSearch_ThresholdZero_ReturnsUpToTopK(t *testing.T) {
	idx := newTestIndex(t)
	seedPolicies(t, idx)

	chunks, err := idx.Search(context.Background(), "diabetes", 2, 0)
	require.NoError(t, err)
	assert.Len(t, chunks, 2, "threshold 0 must return exactly topK when enough documents exist")
}

func TestIndexSearch_SimilarityRounding(t *testing.T) {
	idx := newTestIndex(t)
	seedPolicies(t, idx)

	chunks, err := idx.Search(context.Background(), "Type 2 Diabetes", 3, 0)
	require.NoError(t, err)

	for _, c := range chunks {
		assert.InDelta(t, c.Similarity, round4(c.Similarity), 1e-12)
		assert.InDelta(t, 1-c.Similarity, c.Distance, 1e-4)
	}
}

func TestIndexAddDocuments_ReplacesExistingID(t *testing.T) {
	idx := newTestIndex(t)
	seedPolicies(t, idx)

	err := idx.AddDocuments(context.Background(), []domain.PolicyDocument{
		{ID: "aetna_ozempic", Text: "Replacement text", Metadata: domain.PolicyMetadata{Drug: "Ozempic"}},
	})
	require.NoError(t, err)

	stats, err := idx.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentCount, "re-adding an existing ID must not grow the index")
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"Identical", []float64{1, 0, 1}, []float64{1, 0, 1}, 1},
		{"Orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"Zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"Mismatched widths", []float64{1}, []float64{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestEmbedder_Deterministic(t *testing.T) {
	e := NewEmbedder(64)
	a := e.Embed("Ozempic for Type 2 Diabetes")
	b := e.Embed("Ozempic for Type 2 Diabetes")
	assert.Equal(t, a, b)
}

func TestChunkDocument(t *testing.T) {
	t.Run("Short text yields one chunk", func(t *testing.T) {
		chunks := ChunkDocument("short policy text", 500, 100)
		assert.Len(t, chunks, 1)
	})

	t.Run("Long text yields multiple chunks", func(t *testing.T) {
		var text string
		for i := 0; i < 40; i++ {
			text += "This sentence describes a coverage criterion in detail. "
		}
		chunks := ChunkDocument(text, 500, 100)
		assert.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.NotEmpty(t, c)
		}
	})

	t.Run("Empty text yields no chunks", func(t *testing.T) {
		assert.Empty(t, ChunkDocument("", 500, 100))
	})

	t.Run("Overlap exceeding sentence-shortened chunk still advances", func(t *testing.T) {
		// The sentence break at offset 55 shortens the first chunk below the
		// overlap of 60, so an unclamped next start would go negative.
		text := strings.Repeat("a", 55) + ". " + strings.Repeat("b", 300)
		chunks := ChunkDocument(text, 100, 60)

		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.NotEmpty(t, c)
		}
		assert.Contains(t, chunks[0], "a")
		assert.Contains(t, chunks[len(chunks)-1], "b", "chunking must reach the end of the text")
	})
}
