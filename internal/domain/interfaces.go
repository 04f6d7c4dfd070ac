package domain

import (
	"context"
)

// PatientStore provides access to patient records. A missing patient is
// reported via ErrNotFound, distinct from infrastructure failures.
type PatientStore interface {
	GetPatient(ctx context.Context, patientID string) (*Patient, error)
}

// CoverageStore provides access to the immutable (plan, drug) coverage
// reference data.
type CoverageStore interface {
	GetCoverage(ctx context.Context, plan, drug string) (*CoverageRecord, error)
	ListPlans(ctx context.Context) ([]string, error)
	ListDrugs(ctx context.Context, plan string) ([]string, error)
	ListCoveredAlternatives(ctx context.Context, plan string, limit int) ([]CoveredAlternative, error)
}

// PolicyIndex is the semantic search capability over indexed policy documents.
// Search never fails for "no matches": an empty index yields an empty list.
type PolicyIndex interface {
	Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]PolicyChunk, error)
	AddDocuments(ctx context.Context, docs []PolicyDocument) error
	Stats(ctx context.Context) (*IndexStats, error)
}

// Message is a single chat message in a model exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the provider-independent model call shape.
type CompletionRequest struct {
	Messages       []Message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	MaxTokens      int       `json:"max_tokens"`
	ResponseFormat string    `json:"response_format,omitempty"`
}

// CompletionResponse carries the model output plus call accounting.
type CompletionResponse struct {
	Content    string     `json:"content"`
	Model      string     `json:"model"`
	LatencyMS  float64    `json:"latency_ms"`
	TokensUsed TokenUsage `json:"tokens_used"`
	Cost       float64    `json:"cost"`
}

// LanguageModel is the single seam to the model endpoint. Transport failures
// surface as errors; an empty/low-quality reply is a successful response with
// ErrEmptyContent raised by the provider, distinct from transport errors.
type LanguageModel interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
