package llm

import (
	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

// Per-1K-token prices for commonly routed models. Unknown models report a
// zero cost rather than failing the call.
var openRouterPricing = map[string]Pricing{
	"openai/gpt-4o":                     {Input: 0.005, Output: 0.015},
	"openai/gpt-4o-mini":                {Input: 0.00015, Output: 0.0006},
	"anthropic/claude-3.5-sonnet":       {Input: 0.003, Output: 0.015},
	"meta-llama/llama-3.1-70b-instruct": {Input: 0.00052, Output: 0.00075},
}

// NewOpenRouterClient creates a client for the OpenRouter gateway.
func NewOpenRouterClient(cfg *domain.LLMConfig, logger *logrus.Logger) domain.LanguageModel {
	return newAPIClient("openrouter", cfg.OpenRouter, cfg, openRouterPricing, logger)
}
