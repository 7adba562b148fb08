package source

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sheatsley/profiler/internal/errors"
)

// DefaultMemInfoPath is the memory counter file on Linux.
const DefaultMemInfoPath = "/proc/meminfo"

// memCounters holds one reading of the byte counters, normalized to bytes.
type memCounters struct {
	total     int64
	free      int64
	available int64
	buffers   int64
	cached    int64

	haveAvailable bool
}

// MemSource derives memory utilization from /proc/meminfo style labeled
// counters. Unlike CPU this is not delta-based: the counters already report
// instantaneous usage.
type MemSource struct {
	path string
}

// NewMemSource creates a memory counter source reading from /proc/meminfo.
func NewMemSource() *MemSource {
	return NewMemSourceFromPath(DefaultMemInfoPath)
}

// NewMemSourceFromPath creates a memory source reading from an alternate
// counter file.
func NewMemSourceFromPath(path string) *MemSource {
	return &MemSource{path: path}
}

func (s *MemSource) Name() string { return "mem" }

// Poll reads the counter file and returns a single aggregate sample with
// percent = 100 * (total - available) / total, floored at 0 so accounting
// quirks never produce a negative gauge.
func (s *MemSource) Poll(ctx context.Context) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSource,
			"Memory counters unavailable",
			"Expected a /proc/meminfo style counter file at "+s.path)
	}

	counters, err := parseMemInfo(string(data))
	if err != nil {
		return nil, err
	}

	used := counters.total - counters.available
	if used < 0 {
		used = 0
	}

	percent := 0.0
	if counters.total > 0 {
		percent = float64(used) / float64(counters.total) * 100
	}

	return []Sample{{
		Kind:    KindMem,
		Index:   AggregateIndex,
		Label:   "MEM",
		Percent: clampPercent(percent),
		Detail:  humanize.IBytes(uint64(used)) + " / " + humanize.IBytes(uint64(counters.total)),
		Time:    time.Now(),
	}}, nil
}

// parseMemInfo parses labeled byte counters. Values carry an optional unit
// suffix (kB, MB, ...) and are normalized to bytes before any division.
// MemAvailable is preferred; on kernels without it, availability is
// approximated as free + buffers + cached.
func parseMemInfo(text string) (memCounters, error) {
	var c memCounters
	var haveTotal, haveFree bool

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		key := strings.TrimSuffix(parts[0], ":")
		val, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}

		unit := int64(1)
		if len(parts) >= 3 {
			unit, err = unitMultiplier(parts[2])
			if err != nil {
				return c, err
			}
		}
		bytes := val * unit

		switch key {
		case "MemTotal":
			c.total = bytes
			haveTotal = true
		case "MemFree":
			c.free = bytes
			haveFree = true
		case "MemAvailable":
			c.available = bytes
			c.haveAvailable = true
		case "Buffers":
			c.buffers = bytes
		case "Cached":
			c.cached = bytes
		}
	}

	if err := scanner.Err(); err != nil {
		return c, errors.WrapWithCode(err, errors.ErrParse, "error scanning memory counter text", "")
	}

	if !haveTotal {
		return c, errors.New(errors.ErrParse, "memory counters missing MemTotal", "")
	}

	if !c.haveAvailable {
		if !haveFree {
			return c, errors.New(errors.ErrParse, "memory counters missing both MemAvailable and MemFree", "")
		}
		c.available = c.free + c.buffers + c.cached
	}

	return c, nil
}

// unitMultiplier maps a meminfo-style unit suffix to bytes.
func unitMultiplier(unit string) (int64, error) {
	switch strings.ToLower(unit) {
	case "b":
		return 1, nil
	case "kb", "kib":
		return 1024, nil
	case "mb", "mib":
		return 1024 * 1024, nil
	case "gb", "gib":
		return 1024 * 1024 * 1024, nil
	default:
		return 0, errors.New(errors.ErrParse, "unrecognized memory counter unit "+unit, "")
	}
}
