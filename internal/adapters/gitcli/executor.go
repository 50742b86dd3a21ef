package gitcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MyCarrier-DevOps/gitter/internal/async"
	"github.com/MyCarrier-DevOps/gitter/internal/domain"
)

// ErrEmptyExecutablePath indicates an Executor was created without a git path.
var ErrEmptyExecutablePath = errors.New("git executable path must not be empty")

// Logger defines the logging interface used by the process layer.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Executor runs git child processes, one at a time, wiring their output
// into the configured receivers.
//
// An Executor may be reused sequentially: after EndExecute returns, the
// next BeginExecute spawns a fresh Process. Starting while a previous run
// is still in flight fails with domain.ErrInvalidState.
type Executor struct {
	path   string
	stdout OutputReceiver
	stderr OutputReceiver
	log    Logger

	mu      sync.Mutex
	proc    *Process
	ctx     context.Context
	pending []OutputReceiver
	ending  bool
}

// NewExecutor creates an executor for the git binary at path. Either
// receiver may be nil, in which case that stream is discarded.
func NewExecutor(path string, stdout, stderr OutputReceiver, log Logger) (*Executor, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyExecutablePath
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Executor{
		path:   path,
		stdout: stdout,
		stderr: stderr,
		log:    log,
	}, nil
}

// Path returns the git executable path.
func (e *Executor) Path() string { return e.path }

// IsStarted reports whether a run is in flight.
func (e *Executor) IsStarted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.proc != nil
}

// Process returns the handle of the run in flight, or nil.
func (e *Executor) Process() *Process {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.proc
}

// Execute runs input to completion and returns git's exit code.
func (e *Executor) Execute(ctx context.Context, input CommandInput) (int, error) {
	if err := e.BeginExecute(ctx, input); err != nil {
		return -1, err
	}
	return e.EndExecute()
}

// ExecuteAsync runs Execute on a worker goroutine.
func (e *Executor) ExecuteAsync(ctx context.Context, input CommandInput) *async.Future[int] {
	return async.Go(func() (int, error) {
		return e.Execute(ctx, input)
	})
}

// BeginExecute spawns git and attaches the receivers to its live output.
// Receivers start reading before BeginExecute returns, so the child never
// stalls on a full pipe while the caller is busy elsewhere.
func (e *Executor) BeginExecute(ctx context.Context, input CommandInput) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.proc != nil {
		return fmt.Errorf("%w: executor is already running %s", domain.ErrInvalidState, e.proc.Input())
	}

	proc := newProcess(e.path, input)
	env := buildEnvironment(os.Environ(), input.Environment())

	e.log.Debug(ctx, "starting git", map[string]interface{}{
		"process_id": proc.ID(),
		"command":    input.Command(),
		"args":       input.Arguments(),
		"dir":        input.WorkingDirectory(),
	})

	if err := proc.start(ctx, env); err != nil {
		e.log.Error(ctx, "failed to start git", err, map[string]interface{}{
			"process_id": proc.ID(),
			"path":       e.path,
		})
		return err
	}

	enc := input.Encoding()
	attached := make([]OutputReceiver, 0, 2)
	for _, s := range []struct {
		recv   OutputReceiver
		stream *os.File
	}{
		{e.stdout, proc.stdout},
		{e.stderr, proc.stderr},
	} {
		recv := s.recv
		if recv == nil {
			recv = &discardReceiver{}
		}
		if err := recv.Initialize(proc, decodeStream(s.stream, enc)); err != nil {
			e.abort(ctx, proc, attached)
			return err
		}
		attached = append(attached, recv)
	}

	e.proc = proc
	e.ctx = ctx
	e.pending = attached
	return nil
}

// EndExecute waits for git to exit, drains and closes the receivers
// (stdout first, then stderr), releases the pipes and returns the exit code.
func (e *Executor) EndExecute() (int, error) {
	e.mu.Lock()
	if e.proc == nil || e.ending {
		e.mu.Unlock()
		return -1, fmt.Errorf("%w: executor has no process to wait for", domain.ErrInvalidState)
	}
	e.ending = true
	proc, ctx, receivers := e.proc, e.ctx, e.pending
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.proc = nil
		e.ctx = nil
		e.pending = nil
		e.ending = false
		e.mu.Unlock()
	}()

	code, waitErr := proc.wait(ctx)

	var recvErr error
	for _, r := range receivers {
		if err := r.Close(); err != nil && recvErr == nil {
			recvErr = fmt.Errorf("read git output: %w", err)
		}
	}
	proc.closeStreams()

	fields := map[string]interface{}{
		"process_id": proc.ID(),
		"command":    proc.Input().Command(),
		"exit_code":  code,
		"duration":   time.Since(proc.started).String(),
	}
	if waitErr != nil {
		e.log.Warn(ctx, "git did not complete", fields)
		return code, waitErr
	}
	e.log.Debug(ctx, "git exited", fields)
	return code, recvErr
}

// abort kills a process whose receivers could not be attached.
func (e *Executor) abort(ctx context.Context, proc *Process, attached []OutputReceiver) {
	if proc.cmd != nil && proc.cmd.Process != nil {
		_ = proc.cmd.Process.Kill()
	}
	// unattached pipes must be closed so the child cannot block on them
	proc.closeStreams()
	_, _ = proc.wait(ctx)
	for _, r := range attached {
		_ = r.Close()
	}
}

// discardReceiver drains a stream nobody asked for.
type discardReceiver struct {
	pump
}

func (d *discardReceiver) Initialize(proc *Process, stream io.Reader) error {
	return d.begin(proc, stream, io.Discard, func() {})
}

func (d *discardReceiver) Close() error {
	return d.end()
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, map[string]interface{})        {}
func (nopLogger) Warn(context.Context, string, map[string]interface{})         {}
func (nopLogger) Error(context.Context, string, error, map[string]interface{}) {}
