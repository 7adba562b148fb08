// Package store holds the most recent utilization sample per counter plus a
// fixed-length rolling history used for sparkline rendering. One writer (the
// sampler) and one reader (the renderer) share it; locking is per key so a
// slow read of one gauge never serializes writes to the others.
package store

import (
	"sort"
	"sync"

	"github.com/sheatsley/profiler/internal/source"
)

// DefaultHistorySize is the default number of data points retained per key.
const DefaultHistorySize = 60

// Store maps (kind, index) keys to their latest sample and history.
type Store struct {
	mu    sync.RWMutex // guards the slots map itself, not slot contents
	size  int
	slots map[source.Key]*slot
}

// slot is the per-key cell. Each slot has its own lock so a write replaces
// the latest sample and appends history atomically per key.
type slot struct {
	mu     sync.Mutex
	latest source.Sample
	hist   *ringBuffer
}

// Snapshot is one key's consistent view: the latest sample plus history in
// chronological order (oldest first).
type Snapshot struct {
	Latest  source.Sample
	History []float64
}

// New creates a store retaining size history points per key.
func New(size int) *Store {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &Store{
		size:  size,
		slots: make(map[source.Key]*slot),
	}
}

// Write replaces the latest sample for the sample's key and appends its
// percent to the key's history, dropping the oldest point at capacity.
func (s *Store) Write(smp source.Sample) {
	sl := s.getOrCreate(smp.Key())

	sl.mu.Lock()
	sl.latest = smp
	sl.hist.push(smp.Percent)
	sl.mu.Unlock()
}

// Read returns the snapshot for one key, or ok=false if it has never been
// written.
func (s *Store) Read(key source.Key) (Snapshot, bool) {
	s.mu.RLock()
	sl, ok := s.slots[key]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	sl.mu.Lock()
	snap := Snapshot{Latest: sl.latest, History: sl.hist.values()}
	sl.mu.Unlock()
	return snap, true
}

// ReadAll returns a snapshot per key. Each snapshot is internally
// consistent; different keys may reflect different poll ticks, which is
// acceptable for dashboard rendering.
func (s *Store) ReadAll() map[source.Key]Snapshot {
	s.mu.RLock()
	keys := make([]source.Key, 0, len(s.slots))
	for k := range s.slots {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	out := make(map[source.Key]Snapshot, len(keys))
	for _, k := range keys {
		if snap, ok := s.Read(k); ok {
			out[k] = snap
		}
	}
	return out
}

// Keys returns all tracked keys ordered by kind then index, the order
// gauges are laid out in.
func (s *Store) Keys() []source.Key {
	s.mu.RLock()
	keys := make([]source.Key, 0, len(s.slots))
	for k := range s.slots {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind < keys[j].Kind
		}
		return keys[i].Index < keys[j].Index
	})
	return keys
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

func (s *Store) getOrCreate(key source.Key) *slot {
	s.mu.RLock()
	sl, ok := s.slots[key]
	s.mu.RUnlock()
	if ok {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok = s.slots[key]; ok {
		return sl
	}
	sl = &slot{hist: newRingBuffer(s.size)}
	s.slots[key] = sl
	return sl
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]float64, size),
		size: size,
	}
}

// push adds a value, overwriting the oldest at capacity.
func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// values returns the stored values in chronological order (oldest first).
func (r *ringBuffer) values() []float64 {
	if r.count == 0 {
		return nil
	}

	result := make([]float64, r.count)
	// head points to the next write position, so the oldest retained value
	// sits at head-count.
	start := (r.head - r.count + r.size) % r.size
	for i := 0; i < r.count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}
	return result
}
