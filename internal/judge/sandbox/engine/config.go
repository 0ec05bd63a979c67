package engine

import "verdict/internal/judge/sandbox/security"

// Config controls sandbox engine behavior.
//
// When HelperPath is empty the engine spawns phase commands directly, with
// process-group and wall-clock supervision only. Seccomp and namespace
// isolation require the sandbox-init helper binary.
type Config struct {
	WorkRoot             string
	CgroupRoot           string
	SeccompDir           string
	HelperPath           string
	StdoutStderrMaxBytes int64
	EnableSeccomp        bool
	EnableCgroup         bool
	EnableNamespaces     bool
	Isolation            security.IsolationProfile
}
