// Package exec starts and supervises the monitored command. The command is
// run through the user's shell so pipes, redirects, and globs behave the way
// they would when typed directly.
package exec

import (
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sheatsley/profiler/internal/errors"
)

// Command is a monitored process: started with its output wired to the
// relay, waited on for its exit code, and terminated on session shutdown.
type Command struct {
	args []string
	dir  string
	cmd  *exec.Cmd

	mu       sync.Mutex
	started  bool
	finished bool
	exitCode int
}

// New creates a command from argv-style args. The args are joined and handed
// to the shell, matching what the user typed after the separator.
func New(args []string) *Command {
	return &Command{args: args, exitCode: -1}
}

// SetDir sets the working directory for the command.
func (c *Command) SetDir(dir string) {
	c.dir = dir
}

// String returns the shell command line that will run.
func (c *Command) String() string {
	return strings.Join(c.args, " ")
}

// Start launches the process with its stdout and stderr attached to the
// given writers. It returns once the process has been spawned.
func (c *Command) Start(stdout, stderr io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.New(errors.ErrExec, "command already started",
			"create a new command for each run")
	}
	if len(c.args) == 0 {
		return errors.New(errors.ErrExec, "no command given",
			"pass the command to monitor after the -- separator")
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.Command(shell, "-c", c.String())
	if c.dir != "" {
		cmd.Dir = c.dir
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Own process group so Terminate signals the shell and its children
	// without signalling us.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"couldn't start the command",
			"make sure the command exists and is executable")
	}

	c.cmd = cmd
	c.started = true
	return nil
}

// Wait blocks until the process exits and returns its exit code. A command
// that ran and exited non-zero is not an error; only failures to execute
// are.
func (c *Command) Wait() (int, error) {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return -1, errors.New(errors.ErrExec, "command not started", "")
	}
	cmd := c.cmd
	c.mu.Unlock()

	runErr := cmd.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = true

	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			c.exitCode = exitErr.ExitCode()
			return c.exitCode, nil
		}
		return -1, errors.WrapWithCode(runErr, errors.ErrExec,
			"command failed to run", "")
	}

	c.exitCode = 0
	return 0, nil
}

// Terminate asks the process group to shut down with SIGTERM, escalating to
// SIGKILL if it is still alive after the grace period. It is a no-op if the
// process has already exited.
func (c *Command) Terminate(grace time.Duration) {
	c.mu.Lock()
	if !c.started || c.finished || c.cmd.Process == nil {
		c.mu.Unlock()
		return
	}
	pid := c.cmd.Process.Pid
	c.mu.Unlock()

	// Negative pid signals the whole process group.
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	deadline := time.After(grace)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-deadline:
			_ = syscall.Kill(-pid, syscall.SIGKILL)
			return
		case <-tick.C:
			c.mu.Lock()
			done := c.finished
			c.mu.Unlock()
			if done {
				return
			}
		}
	}
}

// ExitCode returns the exit code once the process has finished, or -1.
func (c *Command) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// Running reports whether the process has started and not yet exited.
func (c *Command) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && !c.finished
}
