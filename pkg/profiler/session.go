// Package profiler ties the pieces of a monitoring session together: the
// monitored process, the background sampler, the output relay, and the
// dashboard. One session owns the terminal from Start until Deinit.
package profiler

import (
	"context"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/sheatsley/profiler/internal/config"
	"github.com/sheatsley/profiler/internal/dashboard"
	"github.com/sheatsley/profiler/internal/errors"
	"github.com/sheatsley/profiler/internal/exec"
	"github.com/sheatsley/profiler/internal/logger"
	"github.com/sheatsley/profiler/internal/relay"
	"github.com/sheatsley/profiler/internal/sampler"
	"github.com/sheatsley/profiler/internal/source"
	"github.com/sheatsley/profiler/internal/store"
)

// terminateGrace is how long the monitored process gets after SIGTERM
// before SIGKILL.
const terminateGrace = 5 * time.Second

// Only one session may own the terminal at a time.
var (
	activeMu sync.Mutex
	active   *Session
)

// Options configure a session.
type Options struct {
	// Config controls sampling and rendering. Nil uses defaults.
	Config *config.Config

	// Args is the command to monitor, argv style.
	Args []string

	// Dir is the working directory for the command. Empty inherits ours.
	Dir string

	// Log receives diagnostics from background loops. Nil falls back to
	// logger.Default, which discards messages unless reconfigured.
	Log logger.Logger

	// Headless runs the dashboard without a renderer or input. Used by
	// tests and demo plumbing where no terminal is attached.
	Headless bool
}

// Session is one profiling run: a monitored process with live utilization
// gauges above its relayed output.
type Session struct {
	cfg      *config.Config
	log      logger.Logger
	headless bool

	st   *store.Store
	smp  *sampler.Sampler
	rel  *relay.Relay
	cmd  *exec.Command
	prog *tea.Program

	ctx    context.Context
	cancel context.CancelFunc

	termFd    int
	termState *term.State

	mu       sync.Mutex
	started  bool
	finished bool
	exited   bool
	exitCode int
	progErr  error
	progDone chan struct{}
}

// New creates a session. The config is validated; the command is not
// started until Start.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if len(opts.Args) == 0 {
		return nil, errors.New(errors.ErrExec, "no command given",
			"pass the command to monitor after the -- separator")
	}

	log := opts.Log
	if log == nil {
		log = logger.Default()
	}

	st := store.New(cfg.HistoryDepth)
	sources := source.Detect(source.Options{
		CPU:     cfg.Counters.CPU,
		PerCore: cfg.Counters.PerCore,
		Mem:     cfg.Counters.Mem,
		GPU:     cfg.Counters.GPU,
	}, log)

	cmd := exec.New(opts.Args)
	if opts.Dir != "" {
		cmd.SetDir(opts.Dir)
	}

	s := &Session{
		cfg:      cfg,
		log:      log,
		headless: opts.Headless,
		st:       st,
		smp:      sampler.New(sources, st, cfg.Interval, log),
		rel:      relay.New(relay.DefaultBuffer),
		cmd:      cmd,
		exitCode: -1,
		progDone: make(chan struct{}),
	}
	return s, nil
}

// Start acquires the terminal, spawns the monitored process, and launches
// the sampler and dashboard. It returns once everything is running; use
// Wait to block until the dashboard exits.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New(errors.ErrSession, "session already started",
			"create a new session for each run")
	}
	s.mu.Unlock()

	if err := s.acquire(); err != nil {
		return err
	}

	// Capture terminal state up front so Deinit can restore it even if the
	// dashboard tears down badly.
	s.termFd = int(os.Stdin.Fd())
	if term.IsTerminal(s.termFd) {
		state, err := term.GetState(s.termFd)
		if err != nil {
			s.release()
			return errors.WrapWithCode(err, errors.ErrTerm,
				"couldn't read terminal state",
				"run inside a regular terminal")
		}
		s.termState = state
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	if err := s.cmd.Start(s.rel.Stdout(), s.rel.Stderr()); err != nil {
		s.cancel()
		s.release()
		return err
	}

	go func() {
		_ = s.smp.Run(s.ctx)
	}()

	model := dashboard.NewModel(s.st, s.rel, s.cmd.String(), s.cfg.RenderInterval)
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if s.headless {
		opts = []tea.ProgramOption{tea.WithoutRenderer(), tea.WithInput(nil)}
	}
	s.prog = tea.NewProgram(model, opts...)

	go s.superviseProcess()

	go func() {
		defer close(s.progDone)
		_, err := s.prog.Run()
		s.mu.Lock()
		s.progErr = err
		s.mu.Unlock()
	}()

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	return nil
}

// Wait blocks until the dashboard exits (user quit or Stop) and returns the
// monitored process's exit code, or -1 if it never ran to completion.
func (s *Session) Wait() (int, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return -1, errors.New(errors.ErrSession, "session not started", "")
	}
	s.mu.Unlock()

	<-s.progDone

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progErr != nil {
		return s.exitCode, errors.WrapWithCode(s.progErr, errors.ErrTerm,
			"dashboard failed", "")
	}
	return s.exitCode, nil
}

// Stop shuts the session down: the monitored process is terminated if still
// running, the sampler is cancelled, and the dashboard is asked to quit.
// Stop waits briefly for the sampler to finish so no poll outlives it.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started || s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.mu.Unlock()

	// The relay is closed by superviseProcess once cmd.Wait returns, after
	// the pipe pumps have stopped writing. Closing it here would flush
	// concurrently with those writes.
	s.cancel()
	s.cmd.Terminate(terminateGrace)

	// Bounded wait so a poll stuck in a subprocess cannot hang shutdown.
	select {
	case <-s.smp.Done():
	case <-time.After(s.cfg.Interval + time.Second):
		s.log.Warn("sampler did not stop within grace period")
	}

	if s.prog != nil {
		s.prog.Quit()
	}
}

// Deinit restores the terminal and releases the session slot. It must be
// called exactly once after Start, even when Start's setup partially
// failed.
func (s *Session) Deinit() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New(errors.ErrSession, "session was never started",
			"call Start before Deinit")
	}

	if s.termState != nil {
		if err := term.Restore(s.termFd, s.termState); err != nil {
			s.release()
			return errors.WrapWithCode(err, errors.ErrTerm,
				"couldn't restore terminal state",
				"run 'reset' to recover your terminal")
		}
		s.termState = nil
	}

	return s.release()
}

// ExitCode returns the monitored process's exit code, or ok=false while it
// is still running.
func (s *Session) ExitCode() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.exited
}

// superviseProcess waits for the monitored process, closes the relay so
// trailing output flushes, and tells the dashboard about the exit code.
func (s *Session) superviseProcess() {
	code, err := s.cmd.Wait()
	if err != nil {
		s.log.Error("monitored command failed: %v", err)
	}

	s.mu.Lock()
	s.exitCode = code
	s.exited = true
	s.mu.Unlock()

	s.rel.Close()
	if s.prog != nil {
		s.prog.Send(dashboard.ProcExitMsg{Code: code})
	}
}

// acquire claims the package-wide session slot.
func (s *Session) acquire() error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil {
		return errors.New(errors.ErrSession, "another session is already active",
			"stop the running session before starting a new one")
	}
	active = s
	return nil
}

// release frees the session slot.
func (s *Session) release() error {
	activeMu.Lock()
	defer activeMu.Unlock()
	if active != s {
		return errors.New(errors.ErrSession, "session does not own the terminal",
			"Deinit may only be called once per session")
	}
	active = nil
	return nil
}
