// Package spec defines the execution request model and resource limits.
package spec

// ResourceLimit describes hard limits enforced by the sandbox.
// Limits apply to both the compile and run phases.
type ResourceLimit struct {
	CPUTimeMs int64 `json:"cpuTimeMs" yaml:"cpuTimeMs"`
	MemoryMB  int64 `json:"memoryMB" yaml:"memoryMB"`
	StackMB   int64 `json:"stackMB,omitempty" yaml:"stackMB"`
	OutputMB  int64 `json:"outputMB,omitempty" yaml:"outputMB"`
	PIDs      int64 `json:"pids,omitempty" yaml:"pids"`
}

// Merge returns base with any positive fields of override applied.
func Merge(base, override ResourceLimit) ResourceLimit {
	if override.CPUTimeMs > 0 {
		base.CPUTimeMs = override.CPUTimeMs
	}
	if override.MemoryMB > 0 {
		base.MemoryMB = override.MemoryMB
	}
	if override.StackMB > 0 {
		base.StackMB = override.StackMB
	}
	if override.OutputMB > 0 {
		base.OutputMB = override.OutputMB
	}
	if override.PIDs > 0 {
		base.PIDs = override.PIDs
	}
	return base
}

// FileSpec is one file materialized into the sandbox root before execution.
type FileSpec struct {
	Path       string `json:"path"`
	Content    string `json:"content"`
	Executable bool   `json:"executable,omitempty"`
}

// CommandSpec describes one phase command.
type CommandSpec struct {
	// Command is a single shell-style command line, split into argv
	// before execution. No shell interpretation beyond word splitting.
	Command   string `json:"command"`
	TimeoutMs int64  `json:"timeoutMs"`
}

// RunCommand is the run phase command plus its stdin payload.
type RunCommand struct {
	CommandSpec
	Stdin string `json:"stdin,omitempty"`
}

// ExecuteRequest is one sandboxed invocation: an optional compile phase
// followed by a run phase, both inside a working directory keyed by
// ExecutionID. ExecutionID must not collide across concurrent invocations.
type ExecuteRequest struct {
	ExecutionID string        `json:"executionId"`
	Language    string        `json:"language"`
	Files       []FileSpec    `json:"files"`
	Compile     *CommandSpec  `json:"compile,omitempty"`
	Run         RunCommand    `json:"run"`
	Limits      ResourceLimit `json:"limits"`
	Env         []string      `json:"env,omitempty"`
	Cwd         string        `json:"cwd,omitempty"`
}
