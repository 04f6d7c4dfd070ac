package llm

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

// Factory builds and caches provider clients. Each provider gets one client
// so its rate limiter and circuit breaker state are shared across callers.
type Factory struct {
	cfg    *domain.LLMConfig
	logger *logrus.Logger

	mu      sync.Mutex
	clients map[string]domain.LanguageModel
}

// NewFactory creates an LLM client factory.
func NewFactory(cfg *domain.LLMConfig, logger *logrus.Logger) *Factory {
	return &Factory{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]domain.LanguageModel),
	}
}

// Client returns the client for the named provider, creating it on first use.
func (f *Factory) Client(provider string) (domain.LanguageModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if client, ok := f.clients[provider]; ok {
		return client, nil
	}

	var client domain.LanguageModel
	switch provider {
	case "cerebras":
		client = NewCerebrasClient(f.cfg, f.logger)
	case "openrouter":
		client = NewOpenRouterClient(f.cfg, f.logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}

	f.clients[provider] = client
	return client, nil
}

// Default returns the client for the configured default provider.
func (f *Factory) Default() (domain.LanguageModel, error) {
	return f.Client(f.cfg.Provider)
}
