// Package result defines sandbox execution results.
package result

// Phase identifies one step of a submission's lifecycle.
type Phase string

const (
	PhaseCompile Phase = "compile"
	PhaseRun     Phase = "run"
)

// PhaseResult captures the outcome of one phase. It is always populated
// for a phase that ran, even on failure: nonzero exits and crashes are
// data, not control flow.
type PhaseResult struct {
	Success  bool   `json:"success"`
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	TimeMs   int64  `json:"timeMs"`
}

// EngineErrorType classifies infrastructure-level failures.
type EngineErrorType string

const (
	// ErrTimeout means a phase exceeded its budget and was killed before
	// any process state could be salvaged.
	ErrTimeout EngineErrorType = "timeout"
	// ErrOOM means the process was killed by the memory ceiling.
	ErrOOM EngineErrorType = "oom"
	// ErrSandbox means the process could not be spawned or isolated.
	ErrSandbox EngineErrorType = "sandbox_error"
)

// EngineError is populated only when the infrastructure could not produce
// a PhaseResult for a phase. Mutually exclusive with that phase's result.
type EngineError struct {
	Type    EngineErrorType `json:"type"`
	Phase   Phase           `json:"phase"`
	Message string          `json:"message"`
}

// ExecuteResult is the engine's reply to one ExecuteRequest.
type ExecuteResult struct {
	ExecutionID string       `json:"executionId"`
	Compile     *PhaseResult `json:"compile,omitempty"`
	Run         *PhaseResult `json:"run,omitempty"`
	Error       *EngineError `json:"error,omitempty"`
}
