package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"time"
)

// DefaultBackend is the elevation chain the command is appended to: pkexec
// obtains consent through the polkit agent, sudo runs non-interactively, and
// bash receives the command as its single script argument.
var DefaultBackend = []string{"pkexec", "sudo", "-S", "--", "bash", "-c"}

// DefaultTimeoutSeconds applies when neither the caller nor the
// configuration supplies a timeout.
const DefaultTimeoutSeconds = 15

// MaxTimeoutSeconds caps caller-supplied timeouts. Larger values are clamped.
const MaxTimeoutSeconds = 24 * 60 * 60

// killGrace bounds how long Execute waits for a killed child to be reaped
// before returning anyway.
const killGrace = 2 * time.Second

// pipeGrace is how long output is still collected after the child exits.
// Descendants left running in the background may hold stdout or stderr open
// indefinitely; once this elapses the pipes are closed and the exit stands.
const pipeGrace = 500 * time.Millisecond

// Options configures an Executor.
type Options struct {
	// Backend is the argv prefix the command is appended to.
	// Defaults to DefaultBackend.
	Backend []string

	DefaultTimeoutSeconds int
	Logger                *slog.Logger
}

// Executor runs commands through the elevation backend. It keeps no
// per-request state; each Execute call owns its own child process.
type Executor struct {
	backend        []string
	defaultTimeout int
	logger         *slog.Logger
}

// New creates an Executor.
func New(opts Options) *Executor {
	e := &Executor{
		backend:        slices.Clone(opts.Backend),
		defaultTimeout: opts.DefaultTimeoutSeconds,
		logger:         opts.Logger,
	}
	if len(e.backend) == 0 {
		e.backend = slices.Clone(DefaultBackend)
	}
	if e.defaultTimeout <= 0 {
		e.defaultTimeout = DefaultTimeoutSeconds
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// DefaultTimeoutSeconds returns the timeout used when Execute is given none.
func (e *Executor) DefaultTimeoutSeconds() int {
	return e.defaultTimeout
}

// Execute runs command with elevated privileges and waits for it to finish,
// time out, or be cancelled through ctx. A timeoutSeconds of zero or less
// selects the default; values above MaxTimeoutSeconds are clamped. Execute
// never retries and never returns an error: every failure mode is reported
// in the Result.
func (e *Executor) Execute(ctx context.Context, command string, timeoutSeconds int) Result {
	if ctx.Err() != nil {
		return cancelled()
	}
	seconds := timeoutSeconds
	if seconds <= 0 {
		seconds = e.defaultTimeout
	}
	if seconds > MaxTimeoutSeconds {
		e.logger.Warn("timeout clamped", "requested_s", seconds, "max_s", MaxTimeoutSeconds)
		seconds = MaxTimeoutSeconds
	}

	// The command is one argv element; nothing on this side parses it.
	argv := append(slices.Clone(e.backend), command)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), "PKEXEC_UID="+strconv.Itoa(os.Getuid()))
	startProcessGroup(cmd)

	// A nil Stdin reads from the null device, so the child sees EOF at once.
	// Consent comes from the polkit agent, never from piped credentials.
	// exec drains both streams concurrently with the wait.
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	cmd.WaitDelay = pipeGrace

	if err := cmd.Start(); err != nil {
		return spawnFailed(err)
	}

	pid := cmd.Process.Pid
	e.logger.Debug("privileged process started", "pid", pid, "timeout_s", seconds)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()

	select {
	case err := <-done:
		if errors.Is(err, exec.ErrWaitDelay) {
			// Exited 0; a background descendant kept the output pipes open.
			e.logger.Debug("output pipes held open after exit", "pid", pid)
			err = nil
		}
		code, err := exitStatus(err)
		if err != nil {
			return spawnFailed(err)
		}
		e.logger.Debug("privileged process exited", "pid", pid, "exit_code", code)
		return exited(code, outBuf.String(), errBuf.String())

	case <-timer.C:
		e.logger.Warn("privileged process timed out", "pid", pid, "timeout_s", seconds)
		e.terminate(cmd.Process, done)
		return timedOut(seconds)

	case <-ctx.Done():
		e.logger.Warn("privileged process cancelled", "pid", pid)
		e.terminate(cmd.Process, done)
		return cancelled()
	}
}

// terminate kills the child's whole process group and waits briefly for it
// to be reaped. Kill failures are logged and otherwise ignored: the group may
// already be gone.
func (e *Executor) terminate(p *os.Process, done <-chan error) {
	if err := killProcessGroup(p); err != nil {
		e.logger.Debug("kill process group", "pid", p.Pid, "err", err)
	}
	select {
	case <-done:
	case <-time.After(killGrace):
		e.logger.Warn("privileged process not reaped after kill", "pid", p.Pid)
	}
}
