//go:build linux

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"verdict/internal/judge/sandbox/result"
	"verdict/internal/judge/sandbox/spec"
	"verdict/pkg/utils/logger"

	"github.com/google/shlex"
	"go.uber.org/zap"
)

const (
	defaultStdoutStderrMaxBytes int64 = 256 * 1024

	truncationMarker = "\n[output truncated]"
	timeoutMarker    = "[killed: wall time limit exceeded]"
)

type linuxEngine struct {
	cfg Config
}

// NewEngine creates a Linux sandbox engine.
func NewEngine(cfg Config) (Engine, error) {
	if cfg.WorkRoot == "" {
		return nil, fmt.Errorf("work root is required")
	}
	if cfg.HelperPath == "" && (cfg.EnableSeccomp || cfg.EnableNamespaces) {
		return nil, fmt.Errorf("seccomp and namespace isolation require a helper binary")
	}
	if cfg.StdoutStderrMaxBytes <= 0 {
		cfg.StdoutStderrMaxBytes = defaultStdoutStderrMaxBytes
	}
	if cfg.SeccompDir != "" && cfg.Isolation.SeccompProfile != "" && !filepath.IsAbs(cfg.Isolation.SeccompProfile) {
		cfg.Isolation.SeccompProfile = filepath.Join(cfg.SeccompDir, cfg.Isolation.SeccompProfile)
	}
	return &linuxEngine{cfg: cfg}, nil
}

func (e *linuxEngine) Execute(ctx context.Context, req spec.ExecuteRequest) result.ExecuteResult {
	res := result.ExecuteResult{ExecutionID: req.ExecutionID}

	if err := validateRequest(req); err != nil {
		res.Error = sandboxError(firstPhase(req), err)
		return res
	}

	workDir := filepath.Join(e.cfg.WorkRoot, req.ExecutionID)
	if err := os.MkdirAll(workDir, 0750); err != nil {
		res.Error = sandboxError(firstPhase(req), fmt.Errorf("create workdir: %w", err))
		return res
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn(ctx, "workdir cleanup failed", zap.String("workDir", workDir), zap.Error(err))
		}
	}()

	if err := materializeFiles(workDir, req.Files); err != nil {
		res.Error = sandboxError(firstPhase(req), err)
		return res
	}

	cwd := workDir
	if req.Cwd != "" {
		cwd = filepath.Join(workDir, req.Cwd)
	}

	if req.Compile != nil {
		phaseRes, engErr := e.runPhase(ctx, result.PhaseCompile, *req.Compile, "", workDir, cwd, req)
		if engErr != nil {
			res.Error = engErr
			return res
		}
		res.Compile = phaseRes
	}

	// The run phase is always attempted, even after a failed compile.
	// Short-circuiting on compile failure is the caller's policy decision.
	phaseRes, engErr := e.runPhase(ctx, result.PhaseRun, req.Run.CommandSpec, req.Run.Stdin, workDir, cwd, req)
	if engErr != nil {
		res.Error = engErr
		return res
	}
	res.Run = phaseRes
	return res
}

func (e *linuxEngine) runPhase(ctx context.Context, phase result.Phase, cmdSpec spec.CommandSpec, stdin, workDir, cwd string, req spec.ExecuteRequest) (*result.PhaseResult, *result.EngineError) {
	argv, err := shlex.Split(cmdSpec.Command)
	if err != nil {
		return nil, sandboxError(phase, fmt.Errorf("split command %q: %w", cmdSpec.Command, err))
	}
	if len(argv) == 0 {
		return nil, sandboxError(phase, fmt.Errorf("empty command"))
	}

	stdinPath := filepath.Join(workDir, "."+string(phase)+".stdin")
	stdoutPath := filepath.Join(workDir, "."+string(phase)+".stdout")
	stderrPath := filepath.Join(workDir, "."+string(phase)+".stderr")
	if err := os.WriteFile(stdinPath, []byte(stdin), 0600); err != nil {
		return nil, sandboxError(phase, fmt.Errorf("write stdin file: %w", err))
	}

	cgroupPath := ""
	cgroupCleanup := func() {}
	if e.cfg.EnableCgroup {
		cgroupPath, cgroupCleanup, err = createPhaseCgroup(e.cfg.CgroupRoot, req.ExecutionID, string(phase))
		if err != nil {
			return nil, sandboxError(phase, fmt.Errorf("create cgroup: %w", err))
		}
		if err := applyCgroupLimits(cgroupPath, req.Limits); err != nil {
			cgroupCleanup()
			return nil, sandboxError(phase, fmt.Errorf("apply cgroup limits: %w", err))
		}
	}
	defer cgroupCleanup()

	var cmd *exec.Cmd
	var helperStderr bytes.Buffer
	if e.cfg.HelperPath != "" {
		initReq := initRequest{
			Phase: phaseSpec{
				WorkDir:    cwd,
				Cmd:        argv,
				Env:        req.Env,
				StdinPath:  stdinPath,
				StdoutPath: stdoutPath,
				StderrPath: stderrPath,
				Limits:     req.Limits,
			},
			Isolation:     e.cfg.Isolation,
			EnableSeccomp: e.cfg.EnableSeccomp,
			EnableNs:      e.cfg.EnableNamespaces,
		}
		stdinPipe, err := jsonToPipe(initReq)
		if err != nil {
			return nil, sandboxError(phase, fmt.Errorf("encode init request: %w", err))
		}
		defer stdinPipe.Close()

		cmd = exec.Command(e.cfg.HelperPath)
		cmd.Stdin = stdinPipe
		cmd.Stderr = &helperStderr
		cmd.SysProcAttr = buildSysProcAttr(e.cfg.Isolation.DisableNetwork, e.cfg.EnableNamespaces)
	} else {
		stdinFile, err := os.Open(stdinPath)
		if err != nil {
			return nil, sandboxError(phase, fmt.Errorf("open stdin file: %w", err))
		}
		defer stdinFile.Close()
		stdoutFile, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, sandboxError(phase, fmt.Errorf("open stdout file: %w", err))
		}
		defer stdoutFile.Close()
		stderrFile, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, sandboxError(phase, fmt.Errorf("open stderr file: %w", err))
		}
		defer stderrFile.Close()

		cmd = exec.Command(argv[0], argv[1:]...)
		cmd.Dir = cwd
		cmd.Env = buildEnv(req.Env)
		cmd.Stdin = stdinFile
		cmd.Stdout = stdoutFile
		cmd.Stderr = stderrFile
		cmd.SysProcAttr = buildSysProcAttr(false, false)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, sandboxError(phase, fmt.Errorf("start process: %w", err))
	}

	if e.cfg.EnableCgroup {
		if err := addProcessToCgroup(cgroupPath, cmd.Process.Pid); err != nil {
			logger.Warn(ctx, "add process to cgroup failed", zap.String("cgroup", cgroupPath), zap.Error(err))
		}
	}

	var timedOut atomic.Bool
	killCtx, cancelKill := context.WithCancel(ctx)
	defer cancelKill()

	done := make(chan struct{})
	go func() {
		wallLimit := durationFromMs(cmdSpec.TimeoutMs)
		var wallTimer <-chan time.Time
		if wallLimit > 0 {
			wallTimer = time.After(wallLimit)
		}
		select {
		case <-killCtx.Done():
			killProcessGroup(cmd.Process.Pid)
		case <-wallTimer:
			timedOut.Store(true)
			killProcessGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)
	elapsedMs := time.Since(start).Milliseconds()

	if waitErr != nil && helperStderr.Len() > 0 {
		logger.Warn(ctx, "sandbox helper stderr",
			zap.String("executionId", req.ExecutionID),
			zap.String("phase", string(phase)),
			zap.String("stderr", helperStderr.String()))
	}

	if wasOomKilled(cgroupPath) {
		return nil, &result.EngineError{
			Type:    result.ErrOOM,
			Phase:   phase,
			Message: fmt.Sprintf("memory limit of %d MB exceeded", req.Limits.MemoryMB),
		}
	}

	if cmd.ProcessState == nil {
		errType := result.ErrSandbox
		msg := "process state unavailable"
		if timedOut.Load() {
			errType = result.ErrTimeout
			msg = fmt.Sprintf("wall time limit of %d ms exceeded, no output salvaged", cmdSpec.TimeoutMs)
		}
		if waitErr != nil {
			msg = msg + ": " + waitErr.Error()
		}
		return nil, &result.EngineError{Type: errType, Phase: phase, Message: msg}
	}

	phaseRes := &result.PhaseResult{
		ExitCode: exitCodeFromErr(waitErr, cmd.ProcessState),
		Stdout:   readLimitedFile(stdoutPath, e.cfg.StdoutStderrMaxBytes),
		Stderr:   readLimitedFile(stderrPath, e.cfg.StdoutStderrMaxBytes),
		TimeMs:   elapsedMs,
	}
	if timedOut.Load() || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if phaseRes.ExitCode == 0 {
			phaseRes.ExitCode = -1
		}
		phaseRes.Stderr = appendMarker(phaseRes.Stderr, timeoutMarker)
	}
	phaseRes.Success = waitErr == nil && phaseRes.ExitCode == 0 && !timedOut.Load()
	return phaseRes, nil
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

func sandboxError(phase result.Phase, err error) *result.EngineError {
	return &result.EngineError{Type: result.ErrSandbox, Phase: phase, Message: err.Error()}
}

func firstPhase(req spec.ExecuteRequest) result.Phase {
	if req.Compile != nil {
		return result.PhaseCompile
	}
	return result.PhaseRun
}

func validateRequest(req spec.ExecuteRequest) error {
	if req.ExecutionID == "" {
		return fmt.Errorf("execution id is required")
	}
	if filepath.Base(req.ExecutionID) != req.ExecutionID || req.ExecutionID == "." || req.ExecutionID == ".." {
		return fmt.Errorf("execution id %q is not a valid directory name", req.ExecutionID)
	}
	if req.Run.Command == "" {
		return fmt.Errorf("run command is required")
	}
	if req.Compile != nil && req.Compile.Command == "" {
		return fmt.Errorf("compile command is required when compile phase is present")
	}
	if req.Cwd != "" && (filepath.IsAbs(req.Cwd) || strings.Contains(req.Cwd, "..")) {
		return fmt.Errorf("cwd %q must be relative to the workdir", req.Cwd)
	}
	return nil
}

func materializeFiles(workDir string, files []spec.FileSpec) error {
	for _, f := range files {
		if f.Path == "" || filepath.IsAbs(f.Path) || strings.Contains(f.Path, "..") {
			return fmt.Errorf("invalid file path %q", f.Path)
		}
		dst := filepath.Join(workDir, f.Path)
		if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
			return fmt.Errorf("create file dir: %w", err)
		}
		mode := os.FileMode(0644)
		if f.Executable {
			mode = 0755
		}
		if err := os.WriteFile(dst, []byte(f.Content), mode); err != nil {
			return fmt.Errorf("write file %q: %w", f.Path, err)
		}
	}
	return nil
}

func jsonToPipe(req initRequest) (io.ReadCloser, error) {
	reader, writer := io.Pipe()
	go func() {
		enc := json.NewEncoder(writer)
		err := enc.Encode(req)
		_ = writer.CloseWithError(err)
	}()
	return reader, nil
}

func buildSysProcAttr(disableNetwork, enableNamespaces bool) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	if !enableNamespaces {
		return attr
	}

	cloneFlags := uintptr(syscall.CLONE_NEWNS | syscall.CLONE_NEWPID | syscall.CLONE_NEWUTS | syscall.CLONE_NEWIPC)
	if disableNetwork {
		cloneFlags |= syscall.CLONE_NEWNET
	}
	cloneFlags |= syscall.CLONE_NEWUSER

	attr.Cloneflags = cloneFlags
	attr.GidMappingsEnableSetgroups = false
	attr.UidMappings = []syscall.SysProcIDMap{{
		ContainerID: 0,
		HostID:      os.Getuid(),
		Size:        1,
	}}
	attr.GidMappings = []syscall.SysProcIDMap{{
		ContainerID: 0,
		HostID:      os.Getgid(),
		Size:        1,
	}}
	return attr
}
