// Package security defines sandbox isolation settings.
package security

// IsolationProfile describes rootfs, seccomp and network settings applied
// to sandboxed processes.
type IsolationProfile struct {
	RootFS         string `yaml:"rootFS"`
	SeccompProfile string `yaml:"seccompProfile"`
	DisableNetwork bool   `yaml:"disableNetwork"`
}
