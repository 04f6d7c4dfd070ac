// Package llm implements the language-model capability: OpenAI-compatible
// chat-completion providers (Cerebras, OpenRouter) behind the single
// domain.LanguageModel interface, with bounded retry, circuit breaking,
// rate limiting and call telemetry.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pa-workflow-server/internal/domain"
)

// Pricing is the per-1K-token cost for a model.
type Pricing struct {
	Input  float64
	Output float64
}

// Wire types for the OpenAI-compatible chat completions endpoint.

type chatRequest struct {
	Model          string           `json:"model"`
	Messages       []domain.Message `json:"messages"`
	Temperature    float64          `json:"temperature"`
	MaxTokens      int              `json:"max_tokens"`
	ResponseFormat *responseFormat  `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// statusError marks HTTP-level failures so the retry loop can distinguish
// transient from permanent ones.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

func (e *statusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// apiClient is the shared transport for OpenAI-compatible providers.
type apiClient struct {
	provider   string
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	pricing    map[string]Pricing

	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

func newAPIClient(provider string, providerCfg domain.ProviderConfig, llmCfg *domain.LLMConfig, pricing map[string]Pricing, logger *logrus.Logger) *apiClient {
	maxRetries := llmCfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	limit := rate.Limit(llmCfg.RateLimit)
	if llmCfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := llmCfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    provider,
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"provider": name,
				"from":     from.String(),
				"to":       to.String(),
			}).Warn("LLM circuit breaker state changed")
		},
	})

	timeout := providerCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &apiClient{
		provider:   provider,
		baseURL:    providerCfg.BaseURL,
		apiKey:     providerCfg.APIKey,
		model:      providerCfg.Model,
		maxRetries: maxRetries,
		pricing:    pricing,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    breaker,
		logger:     logger,
	}
}

// Complete calls the provider with bounded retry and exponential backoff for
// transient failures. Permanent failures (4xx other than 429) return
// immediately. An HTTP success with empty content yields ErrEmptyContent,
// distinct from transport errors.
func (c *apiClient) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if c.apiKey == "" {
		return nil, domain.NewUpstreamError(c.provider, fmt.Errorf("API key not configured"))
	}

	var lastErr error
	backoff := 2 * time.Second

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, domain.NewUpstreamError(c.provider, err)
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doCall(ctx, req)
		})
		if err == nil {
			return result.(*domain.CompletionResponse), nil
		}
		lastErr = err

		if se, ok := err.(*statusError); ok && !se.retryable() {
			break
		}
		if errors.Is(err, domain.ErrEmptyContent) {
			break
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			break
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		if attempt < c.maxRetries {
			c.logger.WithFields(logrus.Fields{
				"provider": c.provider,
				"attempt":  attempt,
				"backoff":  backoff.String(),
				"error":    err,
			}).Warn("LLM call failed, retrying")

			select {
			case <-ctx.Done():
				return nil, domain.NewUpstreamError(c.provider, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
		}
	}

	return nil, domain.NewUpstreamError(c.provider, lastErr)
}

func (c *apiClient) doCall(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.ResponseFormat != "" {
		body.ResponseFormat = &responseFormat{Type: req.ResponseFormat}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling provider: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr chatError
		msg := string(respBody)
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &statusError{StatusCode: httpResp.StatusCode, Body: msg}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, domain.ErrEmptyContent
	}

	latency := time.Since(start)

	return &domain.CompletionResponse{
		Content:   parsed.Choices[0].Message.Content,
		Model:     c.model,
		LatencyMS: float64(latency.Microseconds()) / 1000.0,
		TokensUsed: domain.TokenUsage{
			Input:  parsed.Usage.PromptTokens,
			Output: parsed.Usage.CompletionTokens,
			Total:  parsed.Usage.TotalTokens,
		},
		Cost: c.calculateCost(parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens),
	}, nil
}

// calculateCost estimates the call cost from the provider's pricing table.
func (c *apiClient) calculateCost(inputTokens, outputTokens int) float64 {
	pricing, ok := c.pricing[c.model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)/1000)*pricing.Input + (float64(outputTokens)/1000)*pricing.Output
}
