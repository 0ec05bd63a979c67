// Package repository persists judge results and publishes verdict events.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"verdict/internal/common/cache"
	"verdict/internal/judge/model"
	apperrors "verdict/pkg/errors"
)

const resultKeyPrefix = "verdict:result:"

// ResultRepository stores judge results for later retrieval.
type ResultRepository interface {
	Save(ctx context.Context, result *model.JudgeResult) error
	Get(ctx context.Context, resultID string) (*model.JudgeResult, error)
}

// RedisResultRepository keeps results in Redis with a TTL. Results are a
// short-lived lookup surface, not an archive.
type RedisResultRepository struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisResultRepository creates a Redis-backed result repository.
func NewRedisResultRepository(cacheClient cache.Cache, ttl time.Duration) *RedisResultRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisResultRepository{cache: cacheClient, ttl: ttl}
}

func (r *RedisResultRepository) Save(ctx context.Context, result *model.JudgeResult) error {
	if result == nil || result.ID == "" {
		return apperrors.ValidationError("result.id", "required")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.InternalServerError, "marshal judge result")
	}
	if err := r.cache.Set(ctx, resultKeyPrefix+result.ID, string(data), r.ttl); err != nil {
		return apperrors.Wrapf(err, apperrors.CacheError, "store judge result")
	}
	return nil
}

func (r *RedisResultRepository) Get(ctx context.Context, resultID string) (*model.JudgeResult, error) {
	if resultID == "" {
		return nil, apperrors.ValidationError("resultId", "required")
	}
	raw, err := r.cache.Get(ctx, resultKeyPrefix+resultID)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CacheError, "load judge result")
	}
	if raw == "" {
		return nil, apperrors.Newf(apperrors.NotFound, "result %q not found", resultID)
	}
	var result model.JudgeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.InternalServerError, "parse judge result")
	}
	return &result, nil
}
