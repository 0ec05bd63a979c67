//go:build !linux

package engine

import (
	"context"

	"verdict/internal/judge/sandbox/result"
	"verdict/internal/judge/sandbox/spec"
)

type stubEngine struct{}

func NewEngine(cfg Config) (Engine, error) {
	return &stubEngine{}, nil
}

func (s *stubEngine) Execute(ctx context.Context, req spec.ExecuteRequest) result.ExecuteResult {
	phase := result.PhaseRun
	if req.Compile != nil {
		phase = result.PhaseCompile
	}
	return result.ExecuteResult{
		ExecutionID: req.ExecutionID,
		Error: &result.EngineError{
			Type:    result.ErrSandbox,
			Phase:   phase,
			Message: "sandbox engine is only supported on linux",
		},
	}
}
