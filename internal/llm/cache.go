package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
)

// CachedModel wraps a LanguageModel with a Redis read-through cache. Only
// low-temperature requests are cached; high-temperature calls are expected
// to vary between invocations and are always passed through.
type CachedModel struct {
	inner  domain.LanguageModel
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewCachedModel wraps a model with a Redis completion cache.
func NewCachedModel(inner domain.LanguageModel, client *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedModel {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedModel{inner: inner, client: client, ttl: ttl, logger: logger}
}

// Complete serves cacheable requests from Redis when possible. Cache failures
// degrade to a direct provider call rather than failing the request.
func (m *CachedModel) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if req.Temperature > 0.2 {
		return m.inner.Complete(ctx, req)
	}

	key := cacheKey(req)

	if raw, err := m.client.Get(ctx, key).Result(); err == nil {
		var resp domain.CompletionResponse
		if json.Unmarshal([]byte(raw), &resp) == nil {
			m.logger.WithField("key", key).Debug("LLM completion cache hit")
			return &resp, nil
		}
	} else if err != redis.Nil {
		m.logger.WithField("error", err).Warn("Completion cache read failed")
	}

	resp, err := m.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(resp); err == nil {
		if err := m.client.Set(ctx, key, encoded, m.ttl).Err(); err != nil {
			m.logger.WithField("error", err).Warn("Completion cache write failed")
		}
	}

	return resp, nil
}

func cacheKey(req domain.CompletionRequest) string {
	h := sha256.New()
	enc, _ := json.Marshal(req)
	h.Write(enc)
	return "llm:completion:" + hex.EncodeToString(h.Sum(nil))
}
