// Package lang holds the per-language execution profiles: source file name,
// compile and run command templates, and limit overrides.
package lang

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"verdict/internal/judge/sandbox/spec"
	apperrors "verdict/pkg/errors"
)

// Command template placeholders, substituted before execution.
const (
	placeholderSrc = "{src}"
	placeholderBin = "{bin}"
)

// Default phase timeouts, applied when a profile leaves them unset.
const (
	defaultCompileTimeoutMs int64 = 20000
	defaultRunTimeoutMs     int64 = 10000
)

// Spec is one language's execution profile. CompileCmd is empty for
// interpreted languages. Command templates may reference {src} and {bin}.
type Spec struct {
	Name             string             `yaml:"name" json:"name"`
	SourceFile       string             `yaml:"sourceFile" json:"sourceFile"`
	CompileCmd       string             `yaml:"compileCmd" json:"compileCmd,omitempty"`
	RunCmd           string             `yaml:"runCmd" json:"runCmd"`
	Env              []string           `yaml:"env" json:"env,omitempty"`
	CompileTimeoutMs int64              `yaml:"compileTimeoutMs" json:"compileTimeoutMs,omitempty"`
	RunTimeoutMs     int64              `yaml:"runTimeoutMs" json:"runTimeoutMs,omitempty"`
	Limits           spec.ResourceLimit `yaml:"limits" json:"limits,omitempty"`
}

// BinaryName is the {bin} value: the source file without its extension,
// or source plus ".bin" when there is no extension to strip.
func (s Spec) BinaryName() string {
	ext := filepath.Ext(s.SourceFile)
	if ext == "" {
		return s.SourceFile + ".bin"
	}
	return strings.TrimSuffix(s.SourceFile, ext)
}

// CompileCommand returns the compile phase command, or nil for interpreted
// languages.
func (s Spec) CompileCommand() *spec.CommandSpec {
	if s.CompileCmd == "" {
		return nil
	}
	return &spec.CommandSpec{
		Command:   s.expand(s.CompileCmd),
		TimeoutMs: s.CompileTimeoutMs,
	}
}

// RunCommand returns the run phase command with the given stdin payload.
func (s Spec) RunCommand(stdin string) spec.RunCommand {
	return spec.RunCommand{
		CommandSpec: spec.CommandSpec{
			Command:   s.expand(s.RunCmd),
			TimeoutMs: s.RunTimeoutMs,
		},
		Stdin: stdin,
	}
}

func (s Spec) expand(command string) string {
	command = strings.ReplaceAll(command, placeholderSrc, s.SourceFile)
	command = strings.ReplaceAll(command, placeholderBin, s.BinaryName())
	return command
}

// Registry resolves language names to their profiles.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry builds a registry from configured profiles, applying
// default timeouts.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		if s.Name == "" {
			return nil, apperrors.New(apperrors.InvalidParams).WithMessage("language profile needs a name")
		}
		if s.SourceFile == "" || s.RunCmd == "" {
			return nil, apperrors.Newf(apperrors.InvalidParams, "language %q needs sourceFile and runCmd", s.Name)
		}
		if _, ok := r.specs[s.Name]; ok {
			return nil, apperrors.Newf(apperrors.InvalidParams, "language %q declared twice", s.Name)
		}
		if s.CompileTimeoutMs <= 0 {
			s.CompileTimeoutMs = defaultCompileTimeoutMs
		}
		if s.RunTimeoutMs <= 0 {
			s.RunTimeoutMs = defaultRunTimeoutMs
		}
		r.specs[s.Name] = s
	}
	return r, nil
}

// Resolve returns the profile for a language name.
func (r *Registry) Resolve(name string) (Spec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	if !ok {
		return Spec{}, apperrors.Newf(apperrors.LanguageNotSupported, "language %q is not supported", name)
	}
	return s, nil
}

// Register adds a profile at runtime.
func (r *Registry) Register(s Spec) error {
	if s.Name == "" || s.SourceFile == "" || s.RunCmd == "" {
		return apperrors.New(apperrors.InvalidParams).WithMessage("language profile needs name, sourceFile and runCmd")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.specs[s.Name]; ok {
		return apperrors.Newf(apperrors.InvalidParams, "language %q already registered", s.Name)
	}
	if s.CompileTimeoutMs <= 0 {
		s.CompileTimeoutMs = defaultCompileTimeoutMs
	}
	if s.RunTimeoutMs <= 0 {
		s.RunTimeoutMs = defaultRunTimeoutMs
	}
	r.specs[s.Name] = s
	return nil
}

// Names lists the registered languages, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
