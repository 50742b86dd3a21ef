package gitcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// ProcessState is the lifecycle state of a Process.
type ProcessState int32

const (
	// StateNotStarted indicates the process has not been spawned yet.
	StateNotStarted ProcessState = iota
	// StateRunning indicates the child is alive and its pipes are open.
	StateRunning
	// StateExited indicates the child has been reaped, or failed to launch.
	StateExited
)

// String returns a human-readable state name.
func (s ProcessState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Process is the handle of one git child process. It is started at most once.
type Process struct {
	id    string
	path  string
	input CommandInput

	cmd    *exec.Cmd
	stdout *os.File
	stderr *os.File

	started  time.Time
	state    atomic.Int32
	exitCode atomic.Int32
}

func newProcess(path string, input CommandInput) *Process {
	p := &Process{
		id:    uuid.NewString(),
		path:  path,
		input: input,
	}
	p.state.Store(int32(StateNotStarted))
	p.exitCode.Store(-1)
	return p
}

// ID returns the unique identifier of this invocation.
func (p *Process) ID() string {
	if p == nil {
		return ""
	}
	return p.id
}

// Input returns the command this process runs.
func (p *Process) Input() CommandInput { return p.input }

// State returns the current lifecycle state.
func (p *Process) State() ProcessState { return ProcessState(p.state.Load()) }

// ExitCode returns the exit code, or -1 before exit.
func (p *Process) ExitCode() int { return int(p.exitCode.Load()) }

// Pid returns the OS process id, or 0 if the process is not running.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// start spawns the child with stdout and stderr connected to fresh pipes.
// The parent keeps only the read ends; the write ends belong to the child,
// so the readers see EOF once the child (and anything it forked) exits.
func (p *Process) start(ctx context.Context, env []string) error {
	if !p.state.CompareAndSwap(int32(StateNotStarted), int32(StateRunning)) {
		return fmt.Errorf("%w: process %s already started", domain.ErrInvalidState, p.id)
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		p.state.Store(int32(StateExited))
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(outR, outW)
		p.state.Store(int32(StateExited))
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.path, p.input.Arguments()...)
	cmd.Dir = p.input.WorkingDirectory()
	cmd.Env = env
	cmd.Stdin = nil
	cmd.Stdout = outW
	cmd.Stderr = errW
	cmd.SysProcAttr = hiddenWindowAttr()

	if err := cmd.Start(); err != nil {
		closeAll(outR, outW, errR, errW)
		p.state.Store(int32(StateExited))
		return &domain.LaunchError{Path: p.path, Err: err}
	}
	closeAll(outW, errW)

	p.cmd = cmd
	p.stdout = outR
	p.stderr = errR
	p.started = time.Now()
	return nil
}

// wait blocks until the child exits and records its exit code.
// A context cancellation is reported as an error alongside the code.
func (p *Process) wait(ctx context.Context) (int, error) {
	if p.State() != StateRunning {
		return -1, fmt.Errorf("%w: process %s is %s", domain.ErrInvalidState, p.id, p.State())
	}

	err := p.cmd.Wait()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			p.state.Store(int32(StateExited))
			return -1, fmt.Errorf("wait for git: %w", err)
		}
		code = exitErr.ExitCode()
	}
	p.exitCode.Store(int32(code))
	p.state.Store(int32(StateExited))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return code, fmt.Errorf("git %s interrupted: %w", p.input.Command(), ctxErr)
	}
	return code, nil
}

// closeStreams releases the parent's pipe ends.
func (p *Process) closeStreams() {
	closeAll(p.stdout, p.stderr)
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if f, ok := c.(*os.File); ok && f == nil {
			continue
		}
		_ = c.Close()
	}
}
