package source

import (
	"os"

	"github.com/sheatsley/profiler/internal/logger"
)

// Options selects which counters a session tracks.
type Options struct {
	CPU     bool
	PerCore bool
	Mem     bool
	GPU     bool
}

// Detect probes the host once at startup and builds the set of counter
// sources. The procfs text counters are preferred; gopsutil variants fill
// in on hosts without them. A missing GPU tool is logged and skipped, never
// an error.
func Detect(opts Options, log logger.Logger) []Source {
	if log == nil {
		log = logger.Noop()
	}

	var sources []Source

	if opts.CPU {
		if readable(DefaultStatPath) {
			sources = append(sources, NewCPUSource(opts.PerCore))
		} else {
			log.Debug("no %s, using portable CPU source", DefaultStatPath)
			sources = append(sources, NewPortableCPUSource(opts.PerCore))
		}
	}

	if opts.Mem {
		if readable(DefaultMemInfoPath) {
			sources = append(sources, NewMemSource())
		} else {
			log.Debug("no %s, using portable memory source", DefaultMemInfoPath)
			sources = append(sources, NewPortableMemSource())
		}
	}

	if opts.GPU {
		gpu, err := NewGPUSource()
		if err != nil {
			log.Debug("GPU source disabled: %v", err)
		} else {
			sources = append(sources, gpu)
		}
	}

	return sources
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
