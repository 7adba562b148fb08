package source

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/sheatsley/profiler/internal/errors"
)

// PortableCPUSource reads CPU times through gopsutil for hosts without a
// procfs (darwin, windows). Same delta semantics as CPUSource: the first
// poll reports 0, zero or negative total deltas report 0.
type PortableCPUSource struct {
	perCore   bool
	prevTotal float64
	prevBusy  float64
	havePrev  bool
	prevCore  []cpu.TimesStat
}

// NewPortableCPUSource creates a gopsutil-backed CPU source.
func NewPortableCPUSource(perCore bool) *PortableCPUSource {
	return &PortableCPUSource{perCore: perCore}
}

func (s *PortableCPUSource) Name() string { return "cpu" }

func (s *PortableCPUSource) Poll(ctx context.Context) ([]Sample, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(times) == 0 {
		return nil, errors.WrapWithCode(err, errors.ErrSource,
			"CPU times unavailable", "")
	}

	now := time.Now()
	cur := times[0]
	curTotal := timesTotal(cur)
	curBusy := curTotal - cur.Idle - cur.Iowait

	percent := 0.0
	if s.havePrev {
		totalDelta := curTotal - s.prevTotal
		busyDelta := curBusy - s.prevBusy
		if totalDelta > 0 && busyDelta >= 0 {
			percent = busyDelta / totalDelta * 100
		}
	}
	s.prevTotal, s.prevBusy, s.havePrev = curTotal, curBusy, true

	samples := []Sample{{
		Kind:    KindCPU,
		Index:   AggregateIndex,
		Label:   "CPU",
		Percent: clampPercent(percent),
		Time:    now,
	}}

	if s.perCore {
		coreTimes, err := cpu.TimesWithContext(ctx, true)
		if err == nil {
			for i, c := range coreTimes {
				corePercent := 0.0
				if i < len(s.prevCore) {
					prev := s.prevCore[i]
					totalDelta := timesTotal(c) - timesTotal(prev)
					busyDelta := totalDelta - ((c.Idle + c.Iowait) - (prev.Idle + prev.Iowait))
					if totalDelta > 0 && busyDelta >= 0 {
						corePercent = busyDelta / totalDelta * 100
					}
				}
				samples = append(samples, Sample{
					Kind:    KindCPU,
					Index:   i,
					Label:   cpuLabel(i),
					Percent: clampPercent(corePercent),
					Time:    now,
				})
			}
			s.prevCore = coreTimes
		}
	}

	return samples, nil
}

func timesTotal(t cpu.TimesStat) float64 {
	return t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
}

// PortableMemSource reads memory usage through gopsutil. The counters are
// instantaneous, so no delta state is kept.
type PortableMemSource struct{}

// NewPortableMemSource creates a gopsutil-backed memory source.
func NewPortableMemSource() *PortableMemSource {
	return &PortableMemSource{}
}

func (s *PortableMemSource) Name() string { return "mem" }

func (s *PortableMemSource) Poll(ctx context.Context) ([]Sample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSource,
			"Memory counters unavailable", "")
	}

	used := int64(vm.Total) - int64(vm.Available)
	if used < 0 {
		used = 0
	}
	percent := 0.0
	if vm.Total > 0 {
		percent = float64(used) / float64(vm.Total) * 100
	}

	return []Sample{{
		Kind:    KindMem,
		Index:   AggregateIndex,
		Label:   "MEM",
		Percent: clampPercent(percent),
		Detail:  humanize.IBytes(uint64(used)) + " / " + humanize.IBytes(vm.Total),
		Time:    time.Now(),
	}}, nil
}
