package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"verdict/internal/common/cache"
	"verdict/internal/judge/model"
	apperrors "verdict/pkg/errors"
)

func newTestRepository(t *testing.T) *RedisResultRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisCache, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("NewRedisCacheWithClient: %v", err)
	}
	return NewRedisResultRepository(redisCache, time.Hour)
}

func TestResultRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	saved := &model.JudgeResult{
		ID:        "res-1",
		ProblemID: "sum-two",
		Language:  "python",
		Verdict:   model.VerdictPA,
		Score:     0.5,
		TestResults: []model.TestResult{
			{TestID: "t1", Passed: true, Verdict: model.VerdictAC},
			{TestID: "t2", Passed: false, Verdict: model.VerdictWA, Hidden: true},
		},
		TotalTimeMs: 42,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.Save(ctx, saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := repo.Get(ctx, "res-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Verdict != model.VerdictPA || loaded.Score != 0.5 {
		t.Fatalf("unexpected result: %+v", loaded)
	}
	if len(loaded.TestResults) != 2 || !loaded.TestResults[1].Hidden {
		t.Fatalf("test results lost: %+v", loaded.TestResults)
	}
}

func TestResultRepositoryMissing(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.Get(context.Background(), "nope")
	if apperrors.GetCode(err) != apperrors.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestResultRepositoryRejectsEmptyID(t *testing.T) {
	repo := newTestRepository(t)
	if err := repo.Save(context.Background(), &model.JudgeResult{}); err == nil {
		t.Fatal("result without id must be rejected")
	}
}
