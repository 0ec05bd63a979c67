package catalog

import (
	"context"
	"encoding/json"
	"time"

	"verdict/internal/common/cache"
	"verdict/internal/judge/model"
	"verdict/pkg/utils/logger"

	"go.uber.org/zap"
)

const problemKeyPrefix = "verdict:problem:"

// CachedCatalog decorates another catalog with a Redis read-through cache.
// Cache faults degrade to the inner catalog, never to an error.
type CachedCatalog struct {
	inner ProblemCatalog
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedCatalog wraps inner with a cache layer.
func NewCachedCatalog(inner ProblemCatalog, cacheClient cache.Cache, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedCatalog{inner: inner, cache: cacheClient, ttl: ttl}
}

func (c *CachedCatalog) Get(ctx context.Context, problemID string) (*model.ProblemDefinition, error) {
	key := problemKeyPrefix + problemID

	if cached, err := c.cache.Get(ctx, key); err == nil && cached != "" {
		var def model.ProblemDefinition
		if err := json.Unmarshal([]byte(cached), &def); err == nil {
			return &def, nil
		}
		// A corrupt entry falls through to the inner catalog.
		_ = c.cache.Del(ctx, key)
	} else if err != nil {
		logger.Warn(ctx, "problem cache read failed", zap.String("problemId", problemID), zap.Error(err))
	}

	def, err := c.inner.Get(ctx, problemID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(def); err == nil {
		if err := c.cache.Set(ctx, key, string(data), c.ttl); err != nil {
			logger.Warn(ctx, "problem cache write failed", zap.String("problemId", problemID), zap.Error(err))
		}
	}
	return def, nil
}
