package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sheatsley/profiler/internal/errors"
)

// DefaultStatPath is the aggregate CPU tick counter file on Linux.
const DefaultStatPath = "/proc/stat"

// cpuFieldCount is the documented minimum field set: user, nice, system,
// idle, iowait, irq, softirq, steal. Newer kernels append guest fields,
// which are ignored.
const cpuFieldCount = 8

// cpuTicks holds one reading of the cumulative tick counters for a core or
// the aggregate line. Counters are monotonically non-decreasing between
// polls barring a counter reset, which is tolerated.
type cpuTicks struct {
	user, nice, system, idle, iowait, irq, softirq, steal int64
}

func (t cpuTicks) total() int64 {
	return t.user + t.nice + t.system + t.idle + t.iowait + t.irq + t.softirq + t.steal
}

func (t cpuTicks) notBusy() int64 {
	return t.idle + t.iowait
}

// CPUSource derives CPU utilization from the cumulative tick counters in
// /proc/stat. Percentages come from the delta between two consecutive polls,
// so the first poll for any core reports 0.
type CPUSource struct {
	statPath string
	perCore  bool
	prev     map[int]cpuTicks
}

// NewCPUSource creates a CPU counter source reading from /proc/stat.
// When perCore is true each cpuN line yields its own sample in addition to
// the aggregate.
func NewCPUSource(perCore bool) *CPUSource {
	return NewCPUSourceFromPath(DefaultStatPath, perCore)
}

// NewCPUSourceFromPath creates a CPU source reading tick counters from an
// alternate stat file. Used by tests and by containers with relocated procfs.
func NewCPUSourceFromPath(path string, perCore bool) *CPUSource {
	return &CPUSource{
		statPath: path,
		perCore:  perCore,
		prev:     make(map[int]cpuTicks),
	}
}

func (s *CPUSource) Name() string { return "cpu" }

// Poll reads the stat file and returns one sample per tracked core plus the
// aggregate. A counter reset (negative delta) reports 0 for that core and
// re-baselines instead of failing.
func (s *CPUSource) Poll(ctx context.Context) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.statPath)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSource,
			"CPU tick counters unavailable",
			"Expected a /proc/stat style counter file at "+s.statPath)
	}

	ticks, err := parseProcStat(string(data))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	samples := make([]Sample, 0, len(ticks))
	for idx, cur := range ticks {
		if idx != AggregateIndex && !s.perCore {
			continue
		}

		percent := 0.0
		if prev, ok := s.prev[idx]; ok {
			totalDelta := cur.total() - prev.total()
			idleDelta := cur.notBusy() - prev.notBusy()
			// totalDelta <= 0 covers both a repeated reading and a counter
			// reset; report 0 rather than dividing.
			if totalDelta > 0 && idleDelta >= 0 {
				percent = float64(totalDelta-idleDelta) / float64(totalDelta) * 100
			}
		}
		s.prev[idx] = cur

		samples = append(samples, Sample{
			Kind:    KindCPU,
			Index:   idx,
			Label:   cpuLabel(idx),
			Percent: clampPercent(percent),
			Time:    now,
		})
	}

	return samples, nil
}

func cpuLabel(idx int) string {
	if idx == AggregateIndex {
		return "CPU"
	}
	return fmt.Sprintf("CPU%d", idx)
}

// parseProcStat parses the cpu lines of a /proc/stat style file into tick
// readings keyed by core index (AggregateIndex for the "cpu " line).
// Trailing fields beyond the documented eight are ignored so future kernel
// layouts do not break the sampler.
func parseProcStat(text string) (map[int]cpuTicks, error) {
	ticks := make(map[int]cpuTicks)

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 1+cpuFieldCount {
			return nil, errors.New(errors.ErrParse,
				fmt.Sprintf("CPU stat line has %d fields, need at least %d", len(fields)-1, cpuFieldCount),
				"")
		}

		idx := AggregateIndex
		if label := fields[0]; label != "cpu" {
			n, err := strconv.Atoi(strings.TrimPrefix(label, "cpu"))
			if err != nil {
				// Not a per-core line (e.g. some future cpu* counter); skip.
				continue
			}
			idx = n
		}

		var vals [cpuFieldCount]int64
		for i := 0; i < cpuFieldCount; i++ {
			v, err := strconv.ParseInt(fields[1+i], 10, 64)
			if err != nil {
				return nil, errors.WrapWithCode(err, errors.ErrParse,
					fmt.Sprintf("CPU stat field %d is not an integer", i+1),
					"")
			}
			if v < 0 {
				return nil, errors.New(errors.ErrParse,
					fmt.Sprintf("CPU stat field %d is negative", i+1),
					"")
			}
			vals[i] = v
		}

		ticks[idx] = cpuTicks{
			user: vals[0], nice: vals[1], system: vals[2], idle: vals[3],
			iowait: vals[4], irq: vals[5], softirq: vals[6], steal: vals[7],
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrParse, "error scanning CPU stat text", "")
	}

	if _, ok := ticks[AggregateIndex]; !ok {
		return nil, errors.New(errors.ErrParse, "no aggregate cpu line found", "")
	}

	return ticks, nil
}
