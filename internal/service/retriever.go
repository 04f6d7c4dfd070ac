package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
	"github.com/pa-workflow-server/internal/vector"
)

// Drug-name searches use the workflow defaults: top 3 chunks, no similarity
// floor. Threshold filtering happens after top-k selection.
const (
	defaultTopK          = 3
	defaultMinSimilarity = 0.0
)

// PolicyRetriever finds policy text relevant to a drug request and distills
// eligibility criteria from the matches.
type PolicyRetriever struct {
	index domain.PolicyIndex
	log   *logrus.Logger
}

// NewPolicyRetriever creates the policy retrieval service.
func NewPolicyRetriever(index domain.PolicyIndex, logger *logrus.Logger) *PolicyRetriever {
	return &PolicyRetriever{
		index: index,
		log:   logger,
	}
}

// Search returns up to topK policy chunks for a query, ordered by descending
// similarity and filtered by the minimum similarity threshold.
func (r *PolicyRetriever) Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]domain.PolicyChunk, error) {
	return r.index.Search(ctx, query, topK, minSimilarity)
}

// SearchByDrug retrieves policy chunks for a drug using workflow defaults.
func (r *PolicyRetriever) SearchByDrug(ctx context.Context, drug string) ([]domain.PolicyChunk, error) {
	chunks, err := r.index.Search(ctx, drug, defaultTopK, defaultMinSimilarity)
	if err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"drug":    drug,
		"matches": len(chunks),
	}).Info("Policy search completed")

	return chunks, nil
}

// ExtractCriteria distills eligibility criteria from retrieved chunks by
// joining the criteria of up to three chunk metadata entries. Empty results
// fall back to the generic criteria string.
func (r *PolicyRetriever) ExtractCriteria(chunks []domain.PolicyChunk) string {
	var criteria []string
	for i, chunk := range chunks {
		if i >= 3 {
			break
		}
		if chunk.Metadata.Criteria != "" {
			criteria = append(criteria, chunk.Metadata.Criteria)
		}
	}

	if len(criteria) == 0 {
		return "Standard medical necessity criteria"
	}
	return strings.Join(criteria, "; ")
}

// IndexPolicyDocument chunks a policy document's text and indexes each chunk
// with the document metadata. Chunk IDs derive from the document ID.
func (r *PolicyRetriever) IndexPolicyDocument(ctx context.Context, doc domain.PolicyDocument, chunkSize, overlap int) error {
	pieces := vector.ChunkDocument(doc.Text, chunkSize, overlap)
	if len(pieces) == 0 {
		return nil
	}

	batch := make([]domain.PolicyDocument, 0, len(pieces))
	for i, text := range pieces {
		batch = append(batch, domain.PolicyDocument{
			ID:       fmt.Sprintf("%s_chunk%d", doc.ID, i),
			Text:     text,
			Metadata: doc.Metadata,
		})
	}

	if err := r.index.AddDocuments(ctx, batch); err != nil {
		return fmt.Errorf("indexing policy document %s: %w", doc.ID, err)
	}

	r.log.WithFields(logrus.Fields{
		"document": doc.ID,
		"chunks":   len(batch),
	}).Info("Policy document indexed")

	return nil
}

// Stats reports the state of the underlying index.
func (r *PolicyRetriever) Stats(ctx context.Context) (*domain.IndexStats, error) {
	return r.index.Stats(ctx)
}
