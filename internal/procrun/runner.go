// Package procrun owns the single in-flight external process handle.
// Only one probe or extraction subprocess may run at a time; concurrent
// spawn attempts are rejected with ErrBusy rather than queued.
package procrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/irrwahn/ffpreview/internal/logging"
)

// ErrBusy is returned when a spawn is attempted while another process is
// still running.
var ErrBusy = errors.New("a subprocess is already running")

// DefaultGracePeriod is how long Terminate waits for a graceful exit
// before killing the process.
const DefaultGracePeriod = 3 * time.Second

// Runner serializes access to the one external process currently
// running.
type Runner struct {
	mu        sync.Mutex
	active    *Process
	env       []string
	extraPath string
	grace     time.Duration
	log       *logging.Logger
}

// NewRunner creates a Runner. extraPath, when non-empty, is folded into
// PATH for spawned processes and searched first when resolving bare
// binary names (used to locate a bundled player binary).
func NewRunner(extraPath string, grace time.Duration, log *logging.Logger) *Runner {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Runner{env: childEnv(extraPath), extraPath: extraPath, grace: grace, log: log}
}

// childEnv returns the environment for spawned processes with the extra
// directory folded into PATH. The existing PATH entry is replaced in
// place: os/exec keeps the last value per duplicated key, so a merely
// prepended entry would be ignored.
func childEnv(extraPath string) []string {
	env := os.Environ()
	if extraPath == "" {
		return env
	}
	merged := extraPath + string(os.PathListSeparator) + os.Getenv("PATH")
	replaced := false
	for i, kv := range env {
		if k, _, ok := strings.Cut(kv, "="); ok && strings.EqualFold(k, "PATH") {
			env[i] = k + "=" + merged
			replaced = true
		}
	}
	if !replaced {
		env = append(env, "PATH="+merged)
	}
	return env
}

// lookPath resolves a bare binary name, searching the extra directory
// before the inherited PATH. exec.Command consults the parent process's
// PATH only, never Cmd.Env, so the extra directory must be searched
// explicitly.
func (r *Runner) lookPath(name string) string {
	if r.extraPath == "" || filepath.Base(name) != name {
		return name
	}
	if p, err := exec.LookPath(filepath.Join(r.extraPath, name)); err == nil {
		return p
	}
	return name
}

// Process is a handle to a started subprocess. Stderr is available for
// incremental reading when the process was started with Start.
type Process struct {
	runner  *Runner
	cmd     *exec.Cmd
	Stderr  io.ReadCloser
	done    chan struct{}
	waitErr error
	once    sync.Once
}

// Running reports whether a subprocess is currently in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Start spawns a process with a captured stderr pipe for incremental
// reading. The caller must call Wait on the returned Process.
func (r *Runner) Start(ctx context.Context, name string, args ...string) (*Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, ErrBusy
	}

	cmd := exec.CommandContext(ctx, r.lookPath(name), args...)
	cmd.Env = r.env

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	r.log.Debugf("run %s %v", name, args)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	p := &Process{
		runner: r,
		cmd:    cmd,
		Stderr: stderr,
		done:   make(chan struct{}),
	}
	r.active = p
	return p, nil
}

// Wait blocks until the process exits and clears the active handle. It
// is safe to call from multiple goroutines.
func (p *Process) Wait() error {
	p.once.Do(func() {
		p.waitErr = p.cmd.Wait()
		p.runner.clear(p)
		close(p.done)
	})
	<-p.done
	return p.waitErr
}

// Run spawns a process, waits for it to exit and returns its captured
// stdout and stderr. A nonzero exit status is returned as an error with
// stderr attached.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return "", "", ErrBusy
	}

	cmd := exec.CommandContext(ctx, r.lookPath(name), args...)
	cmd.Env = r.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debugf("run %s %v", name, args)
	if err := cmd.Start(); err != nil {
		r.mu.Unlock()
		return "", "", fmt.Errorf("failed to start %s: %w", name, err)
	}

	p := &Process{runner: r, cmd: cmd, done: make(chan struct{})}
	r.active = p
	r.mu.Unlock()

	err := p.Wait()
	if err != nil {
		return stdout.String(), stderr.String(),
			fmt.Errorf("%s failed: %w, stderr: %s", name, err, stderr.String())
	}
	return stdout.String(), stderr.String(), nil
}

// Terminate sends a graceful termination signal to the active process,
// waits up to the grace period and kills it if it has not exited. The
// active handle is cleared unconditionally, so a stuck process can never
// block future spawns beyond the grace period.
func (r *Runner) Terminate() {
	r.mu.Lock()
	p := r.active
	r.mu.Unlock()
	if p == nil {
		return
	}
	defer r.clear(p)

	r.log.Warnf("terminating subprocess pid %d", p.cmd.Process.Pid)
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone, or signalling is unsupported; fall through to
		// the kill path below.
		r.log.Debugf("SIGTERM failed: %v", err)
	}

	select {
	case <-p.done:
		return
	case <-time.After(r.grace):
	}

	r.log.Warnf("grace period expired, killing subprocess pid %d", p.cmd.Process.Pid)
	if err := p.cmd.Process.Kill(); err != nil {
		r.log.Debugf("kill failed: %v", err)
	}
	select {
	case <-p.done:
	case <-time.After(time.Second):
		// The waiting goroutine has not reaped it yet; the handle is
		// cleared regardless.
	}
}

func (r *Runner) clear(p *Process) {
	r.mu.Lock()
	if r.active == p {
		r.active = nil
	}
	r.mu.Unlock()
}
