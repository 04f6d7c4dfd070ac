package vector

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder maps text to fixed-width vectors using hashed term frequencies
// with L2 normalization. Deterministic by construction: the same text always
// produces the same vector, which keeps similarity scores reproducible.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates an embedder with the given vector width.
func NewEmbedder(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &Embedder{dimensions: dimensions}
}

// Embed converts text into a normalized term-frequency vector.
func (e *Embedder) Embed(text string) []float64 {
	vec := make([]float64, e.dimensions)

	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[int(h.Sum32())%e.dimensions]++
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec
}

// CosineSimilarity computes the cosine similarity of two equal-width vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
