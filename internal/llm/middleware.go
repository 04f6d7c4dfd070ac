package llm

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

// InstrumentedModel wraps a LanguageModel and logs per-call telemetry:
// model, token usage, latency and estimated cost.
type InstrumentedModel struct {
	inner  domain.LanguageModel
	logger *logrus.Logger
}

// NewInstrumentedModel wraps a model with call telemetry.
func NewInstrumentedModel(inner domain.LanguageModel, logger *logrus.Logger) *InstrumentedModel {
	return &InstrumentedModel{inner: inner, logger: logger}
}

// Complete delegates to the wrapped model and logs the outcome.
func (m *InstrumentedModel) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	resp, err := m.inner.Complete(ctx, req)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"messages": len(req.Messages),
			"error":    err,
		}).Error("LLM completion failed")
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"model":         resp.Model,
		"input_tokens":  resp.TokensUsed.Input,
		"output_tokens": resp.TokensUsed.Output,
		"latency_ms":    resp.LatencyMS,
		"cost_usd":      resp.Cost,
	}).Info("LLM completion succeeded")

	return resp, nil
}
