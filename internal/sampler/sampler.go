// Package sampler runs the background polling loop: on a fixed interval it
// polls every registered source and writes the resulting samples into the
// shared store. The dashboard renders from the store on its own cadence, so
// a slow poll never blocks a redraw.
package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/sheatsley/profiler/internal/errors"
	"github.com/sheatsley/profiler/internal/logger"
	"github.com/sheatsley/profiler/internal/source"
	"github.com/sheatsley/profiler/internal/store"
)

// DefaultInterval is the default polling cadence.
const DefaultInterval = time.Second

// Sampler polls a set of sources on an interval and records samples.
type Sampler struct {
	store    *store.Store
	interval time.Duration
	log      logger.Logger

	mu      sync.Mutex
	sources []source.Source
	running bool
	done    chan struct{}
}

// New creates a sampler over the given sources. An interval <= 0 falls back
// to DefaultInterval.
func New(sources []source.Source, st *store.Store, interval time.Duration, log logger.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Sampler{
		store:    st,
		interval: interval,
		log:      log,
		sources:  sources,
		done:     make(chan struct{}),
	}
}

// Run polls until ctx is cancelled. It takes an immediate first poll so the
// dashboard has data before the first interval elapses, then ticks. Run
// returns once cancellation is observed; it is safe to call at most once.
func (s *Sampler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New(errors.ErrSession, "sampler already running",
			"create a new sampler instead of reusing a stopped one")
	}
	s.running = true
	s.mu.Unlock()

	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.pollAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Re-check before polling so a cancellation that raced the
			// tick does not trigger one last round of subprocess spawns.
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			s.pollAll(ctx)
		}
	}
}

// Done is closed once Run has returned.
func (s *Sampler) Done() <-chan struct{} {
	return s.done
}

// Sources returns the sources still being polled. Sources that returned a
// hard failure are dropped and no longer appear here.
func (s *Sampler) Sources() []source.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]source.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// pollAll polls every live source once. A source that fails with a hard
// error (unreadable counter file, missing or broken query tool) is dropped
// for the rest of the run; a transient parse failure only skips this tick.
func (s *Sampler) pollAll(ctx context.Context) {
	s.mu.Lock()
	sources := make([]source.Source, len(s.sources))
	copy(sources, s.sources)
	s.mu.Unlock()

	var dropped []source.Source
	for _, src := range sources {
		samples, err := src.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.IsCode(err, errors.ErrSource) {
				s.log.Warn("dropping source %s: %v", src.Name(), err)
				dropped = append(dropped, src)
			} else {
				s.log.Debug("source %s: skipping tick: %v", src.Name(), err)
			}
			continue
		}
		for _, smp := range samples {
			s.store.Write(smp)
		}
	}

	if len(dropped) > 0 {
		s.drop(dropped)
	}
}

func (s *Sampler) drop(dead []source.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.sources[:0]
	for _, src := range s.sources {
		alive := true
		for _, d := range dead {
			if src == d {
				alive = false
				break
			}
		}
		if alive {
			kept = append(kept, src)
		}
	}
	s.sources = kept
}
