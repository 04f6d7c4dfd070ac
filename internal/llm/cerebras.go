package llm

import (
	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

// Cerebras models are served at no charge on the free tier; the pricing table
// is empty so call cost reports as zero.
var cerebrasPricing = map[string]Pricing{}

// NewCerebrasClient creates a client for the Cerebras inference API.
func NewCerebrasClient(cfg *domain.LLMConfig, logger *logrus.Logger) domain.LanguageModel {
	return newAPIClient("cerebras", cfg.Cerebras, cfg, cerebrasPricing, logger)
}
