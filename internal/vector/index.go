// Package vector implements the policy index: an embedding-based semantic
// search over indexed insurance policy documents.
package vector

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

type indexedDocument struct {
	id       string
	text     string
	metadata domain.PolicyMetadata
	vec      []float64
}

// Index is an in-memory cosine-similarity index over policy documents.
// Safe for concurrent use by independent workflow instances.
type Index struct {
	logger   *logrus.Logger
	name     string
	embedder *Embedder

	mu   sync.RWMutex
	docs []indexedDocument
	byID map[string]int
}

// NewIndex creates a policy index with the configured collection name and
// embedding width.
func NewIndex(cfg *domain.VectorConfig, logger *logrus.Logger) *Index {
	name := cfg.CollectionName
	if name == "" {
		name = "pa_policies"
	}

	idx := &Index{
		logger:   logger,
		name:     name,
		embedder: NewEmbedder(cfg.Dimensions),
		byID:     make(map[string]int),
	}

	logger.WithField("collection", name).Info("Policy index initialized")
	return idx
}

// AddDocuments indexes a batch of policy documents. Re-adding an existing ID
// replaces the stored document.
func (idx *Index) AddDocuments(ctx context.Context, docs []domain.PolicyDocument) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, doc := range docs {
		entry := indexedDocument{
			id:       doc.ID,
			text:     doc.Text,
			metadata: doc.Metadata,
			vec:      idx.embedder.Embed(doc.Text),
		}
		if pos, ok := idx.byID[doc.ID]; ok {
			idx.docs[pos] = entry
			continue
		}
		idx.byID[doc.ID] = len(idx.docs)
		idx.docs = append(idx.docs, entry)
	}

	idx.logger.WithFields(logrus.Fields{
		"collection": idx.name,
		"added":      len(docs),
		"total":      len(idx.docs),
	}).Info("Documents added to policy index")

	return nil
}

// Search returns up to topK chunks ordered by descending similarity, with
// similarity = 1 - cosine distance rounded to 4 decimals. The index is
// queried for topK first and threshold-filtered afterwards, so a high
// threshold with a low topK can return fewer results than exist beyond topK.
// An empty index returns an empty list, never an error.
func (idx *Index) Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]domain.PolicyChunk, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.docs) == 0 || topK <= 0 {
		return []domain.PolicyChunk{}, nil
	}

	queryVec := idx.embedder.Embed(query)

	candidates := make([]domain.PolicyChunk, 0, len(idx.docs))
	for _, doc := range idx.docs {
		similarity := CosineSimilarity(queryVec, doc.vec)
		distance := 1 - similarity
		candidates = append(candidates, domain.PolicyChunk{
			ID:         doc.id,
			Text:       doc.text,
			Metadata:   doc.metadata,
			Similarity: round4(similarity),
			Distance:   round4(distance),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	matches := make([]domain.PolicyChunk, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity >= minSimilarity {
			matches = append(matches, c)
		}
	}

	idx.logger.WithFields(logrus.Fields{
		"query":   query,
		"matches": len(matches),
	}).Debug("Policy index search completed")

	return matches, nil
}

// Stats reports the state of the index.
func (idx *Index) Stats(ctx context.Context) (*domain.IndexStats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return &domain.IndexStats{
		CollectionName: idx.name,
		DocumentCount:  len(idx.docs),
	}, nil
}

// ChunkDocument splits text into overlapping chunks, preferring sentence or
// line boundaries near the chunk edge.
func ChunkDocument(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + chunkSize

		if end < len(text) {
			lastBreak := strings.LastIndex(text[start:end], "\n")
			if p := strings.LastIndex(text[start:end], ". "); p > lastBreak {
				lastBreak = p
			}
			if lastBreak > chunkSize/2 {
				end = start + lastBreak + 1
			}
		} else {
			end = len(text)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(text) {
			break
		}
		// A sentence break can shorten the chunk below the overlap; the next
		// start must still strictly advance.
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
