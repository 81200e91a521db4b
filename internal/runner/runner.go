// Package runner launches the target program and captures run metadata:
// timings, exit status and a static environment description.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Result captures what a finished run looked like.
type Result struct {
	Command  []string
	Start    time.Time
	Wall     time.Duration
	CPU      time.Duration
	ExitCode int
}

// Launch is a started target process. The caller samples it while running
// and collects the Result with Wait.
type Launch struct {
	cmd     *exec.Cmd
	command []string
	start   time.Time
	logger  zerolog.Logger
}

// Start launches the target program with stdio passed through. When the
// target names an existing file, the working directory is switched to the
// file's directory so relative paths inside the target resolve as if it
// were run directly.
func Start(ctx context.Context, target []string, logger zerolog.Logger) (*Launch, error) {
	if len(target) == 0 {
		return nil, errors.New("no target program given")
	}

	//nolint:gosec // G204: Running an operator-supplied program is the point.
	cmd := exec.CommandContext(ctx, target[0], target[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if abs, err := filepath.Abs(target[0]); err == nil {
		if _, err := os.Stat(abs); err == nil {
			cmd.Dir = filepath.Dir(abs)
		}
	}

	l := &Launch{
		cmd:     cmd,
		command: append([]string(nil), target...),
		logger:  logger.With().Str("component", "runner").Logger(),
	}

	l.start = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start target: %w", err)
	}

	l.logger.Debug().
		Strs("command", l.command).
		Int("pid", cmd.Process.Pid).
		Msg("Target started")
	return l, nil
}

// PID returns the target's process ID, valid until Wait returns.
func (l *Launch) PID() int {
	return l.cmd.Process.Pid
}

// Wait blocks until the target exits and returns the run result. A target
// that terminates abnormally yields a distinct non-zero exit code
// (128+signal for signal deaths); profiling data collected up to that
// point is still usable.
func (l *Launch) Wait() Result {
	err := l.cmd.Wait()
	wall := time.Since(l.start)

	res := Result{
		Command: l.command,
		Start:   l.start,
		Wall:    wall,
	}

	state := l.cmd.ProcessState
	if state != nil {
		res.CPU = state.UserTime() + state.SystemTime()
		res.ExitCode = exitCode(state)
	} else if err != nil {
		res.ExitCode = 1
	}

	if err != nil {
		l.logger.Debug().Err(err).Int("exit_code", res.ExitCode).Msg("Target finished with error")
	}
	return res
}

// exitCode maps the process state to the reported exit code.
func exitCode(state *os.ProcessState) int {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

// Environment describes the machine and runtime, best-effort: fields that
// cannot be determined stay zero rather than failing the run.
type Environment struct {
	Cores       int
	TotalMemory uint64
	Runtime     string
}

// DescribeEnvironment captures the static environment description once at
// the run boundary.
func DescribeEnvironment() Environment {
	env := Environment{
		Cores:   runtime.NumCPU(),
		Runtime: runtime.Version(),
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		env.Cores = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		env.TotalMemory = vm.Total
	}
	return env
}
