// Package subprocess spawns and supervises the validation engine process.
package subprocess

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/judepayne/validation-service/internal/config"
	"github.com/judepayne/validation-service/internal/engine"
	"github.com/judepayne/validation-service/internal/errors"
)

// terminateGraceWindow is how long Close waits for the engine to exit
// after SIGTERM before force-killing it.
const terminateGraceWindow = 3 * time.Second

// EngineTransport implements Transport by spawning the engine as a child
// process and exposing its stdin/stdout as the request/response streams.
// The engine's stderr is inherited from the parent process and is not
// supervised here.
type EngineTransport struct {
	log     *slog.Logger
	options *config.Options
	path    string
	args    []string
	cmd     *exec.Cmd
	stdin   *os.File
	stdout  *os.File
	mu      sync.Mutex
	eg      errgroup.Group
	exited  chan struct{}
	closed  bool
}

// Compile-time verification that EngineTransport implements the Transport interface.
var _ config.Transport = (*EngineTransport)(nil)

// New creates a new engine transport from the given options.
//
// The logger receives operation tracking and debugging output. Executable
// discovery is deferred to Start().
func New(log *slog.Logger, options *config.Options) *EngineTransport {
	return &EngineTransport{
		log:     log.With("component", "engine_transport"),
		options: options,
	}
}

// Start spawns the engine process.
//
// The launch command is the configured executable plus an optional --debug
// argument, run with its working directory set to the script path. Stdin
// and stdout are piped; stderr is inherited.
//
// Returns EngineNotFoundError if the executable cannot be located, or
// ProcessStartError if the OS refuses to spawn the process.
func (t *EngineTransport) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.options.ScriptPath == "" {
		return fmt.Errorf("script path is required")
	}

	executable := t.options.Executable
	if executable == "" {
		executable = config.DefaultExecutable
	}

	path, err := engine.Find(t.log, executable)
	if err != nil {
		return fmt.Errorf("discover engine: %w", err)
	}

	t.path = path

	if t.options.Debug {
		t.args = append(t.args, "--debug")
	}

	t.log.Info("Starting engine process", "path", t.path, "args", t.args, "cwd", t.options.ScriptPath)

	//nolint:gosec // G204: Subprocess launching with a configured path is the point of this package
	cmd := exec.Command(t.path, t.args...)
	cmd.Dir = t.options.ScriptPath
	cmd.Stderr = os.Stderr

	// Plumb stdin/stdout by hand instead of StdinPipe/StdoutPipe so that
	// cmd.Wait never closes the streams out from under a blocked reader;
	// stream lifetime belongs to Close().
	stdinRead, stdinWrite, err := os.Pipe()
	if err != nil {
		return &errors.ProcessStartError{Path: t.path, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdoutRead, stdoutWrite, err := os.Pipe()
	if err != nil {
		stdinRead.Close()
		stdinWrite.Close()

		return &errors.ProcessStartError{Path: t.path, Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	cmd.Stdin = stdinRead
	cmd.Stdout = stdoutWrite

	if err := cmd.Start(); err != nil {
		stdinRead.Close()
		stdinWrite.Close()
		stdoutRead.Close()
		stdoutWrite.Close()

		t.log.Error("Failed to start engine process", "error", err)

		return &errors.ProcessStartError{Path: t.path, Err: err}
	}

	// The child holds its own copies now; closing ours makes reads on
	// stdoutRead return EOF as soon as the child exits.
	stdinRead.Close()
	stdoutWrite.Close()

	t.cmd = cmd
	t.stdin = stdinWrite
	t.stdout = stdoutRead
	t.exited = make(chan struct{})

	t.eg.Go(func() error {
		err := cmd.Wait()
		close(t.exited)

		if err != nil {
			t.log.Debug("Engine process exited with error", "error", err)
		} else {
			t.log.Debug("Engine process exited")
		}

		// Exit status surfaces to callers as EOF on the response stream,
		// not as a transport error.
		return nil
	})

	t.log.Info("Engine process started", "pid", cmd.Process.Pid)

	return nil
}

// Writer returns the engine's request stream (its stdin).
// Start must have succeeded before calling this.
func (t *EngineTransport) Writer() io.Writer {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stdin
}

// Reader returns the engine's response stream (its stdout).
// Start must have succeeded before calling this.
func (t *EngineTransport) Reader() io.Reader {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stdout
}

// Close terminates the engine process.
//
// Both streams are closed before the process is signalled, which also
// unblocks any reader waiting on a response line. The process is sent
// SIGTERM and given a short grace window to exit; after that it is
// force-killed. Safe to call multiple times and on an already-exited
// process.
func (t *EngineTransport) Close() error {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()

		return nil
	}

	t.closed = true
	stdin := t.stdin
	stdout := t.stdout
	cmd := t.cmd
	exited := t.exited
	t.mu.Unlock()

	if stdin != nil {
		stdin.Close()
	}

	if stdout != nil {
		stdout.Close()
	}

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	t.log.Debug("Terminating engine process", "pid", cmd.Process.Pid)

	// Signal errors mean the process is already gone.
	_ = cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-exited:
	case <-time.After(terminateGraceWindow):
		t.log.Warn("Engine process did not exit within grace window, killing", "pid", cmd.Process.Pid)

		_ = cmd.Process.Kill()
		<-exited
	}

	_ = t.eg.Wait()

	t.log.Info("Engine process terminated", "pid", cmd.Process.Pid)

	return nil
}
