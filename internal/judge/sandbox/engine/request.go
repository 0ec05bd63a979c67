package engine

import (
	"verdict/internal/judge/sandbox/security"
	"verdict/internal/judge/sandbox/spec"
)

// phaseSpec is the per-phase payload handed to the sandbox-init helper.
type phaseSpec struct {
	WorkDir    string
	Cmd        []string
	Env        []string
	StdinPath  string
	StdoutPath string
	StderrPath string
	Limits     spec.ResourceLimit
}

type initRequest struct {
	Phase         phaseSpec
	Isolation     security.IsolationProfile
	EnableSeccomp bool
	EnableNs      bool
}
