// Package source reads OS and driver exposed text counters and turns them
// into utilization samples. All format-specific scraping lives here so that
// counter format drift across kernel and driver versions stays a localized,
// testable concern.
package source

import (
	"context"
	"time"
)

// Kind identifies the class of counter a sample was derived from.
type Kind int

const (
	KindCPU Kind = iota
	KindMem
	KindGPU
	KindGPUMem
)

// String returns a short human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindMem:
		return "mem"
	case KindGPU:
		return "gpu"
	case KindGPUMem:
		return "gpumem"
	default:
		return "unknown"
	}
}

// AggregateIndex is the Index used for whole-system samples, as opposed to
// per-core or per-device samples.
const AggregateIndex = -1

// Key identifies one tracked counter: a kind plus a core/device index.
type Key struct {
	Kind  Kind
	Index int
}

// Sample is one normalized utilization reading.
type Sample struct {
	Kind    Kind
	Index   int     // core or device id, AggregateIndex for whole-system
	Label   string  // gauge label, e.g. "CPU", "CPU3", "GPU0", "VRAM0"
	Percent float64 // always in [0,100]
	Detail  string  // optional annotation, e.g. "6.2 GiB / 16 GiB" or "65°C"
	Time    time.Time
}

// Key returns the store key for this sample.
func (s Sample) Key() Key {
	return Key{Kind: s.Kind, Index: s.Index}
}

// Source is one pollable counter. A single poll may yield several samples
// (one per core or per device).
//
// Poll returns a structured error with code SOURCE when the counter is
// permanently unavailable and PARSE when one reading was malformed; the
// sampler skips the tick in both cases and drops the source only for SOURCE.
type Source interface {
	Name() string
	Poll(ctx context.Context) ([]Sample, error)
}

// clampPercent bounds a computed percentage to [0,100].
func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
