// Package engine spawns and supervises sandboxed compile/run phases.
package engine

import (
	"context"

	"verdict/internal/judge/sandbox/result"
	"verdict/internal/judge/sandbox/spec"
)

// Engine executes one ExecuteRequest inside an isolated sandbox.
// Execute never returns an error: every failure, from a nonzero exit to an
// unstartable process, is encoded in the ExecuteResult.
type Engine interface {
	Execute(ctx context.Context, req spec.ExecuteRequest) result.ExecuteResult
}
