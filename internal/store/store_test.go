package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheatsley/profiler/internal/source"
)

func sample(kind source.Kind, index int, pct float64) source.Sample {
	return source.Sample{
		Kind:    kind,
		Index:   index,
		Label:   fmt.Sprintf("%s%d", kind, index),
		Percent: pct,
		Detail:  fmt.Sprintf("detail-%.0f", pct),
		Time:    time.Now(),
	}
}

func TestStoreWriteRead(t *testing.T) {
	s := New(10)

	smp := sample(source.KindCPU, source.AggregateIndex, 42.5)
	s.Write(smp)

	snap, ok := s.Read(smp.Key())
	require.True(t, ok)
	assert.Equal(t, 42.5, snap.Latest.Percent)
	assert.Equal(t, smp.Label, snap.Latest.Label)
	assert.Equal(t, []float64{42.5}, snap.History)
}

func TestStoreReadUnknownKey(t *testing.T) {
	s := New(10)

	_, ok := s.Read(source.Key{Kind: source.KindGPU, Index: 0})
	assert.False(t, ok)
}

func TestStoreLatestReplaced(t *testing.T) {
	s := New(10)
	key := source.Key{Kind: source.KindMem, Index: source.AggregateIndex}

	s.Write(sample(source.KindMem, source.AggregateIndex, 10))
	s.Write(sample(source.KindMem, source.AggregateIndex, 20))
	s.Write(sample(source.KindMem, source.AggregateIndex, 30))

	snap, ok := s.Read(key)
	require.True(t, ok)
	assert.Equal(t, 30.0, snap.Latest.Percent)
	assert.Equal(t, []float64{10, 20, 30}, snap.History)
}

func TestStoreHistoryOverflowDropsOldest(t *testing.T) {
	s := New(3)
	key := source.Key{Kind: source.KindCPU, Index: 0}

	for i := 1; i <= 5; i++ {
		s.Write(sample(source.KindCPU, 0, float64(i*10)))
	}

	snap, ok := s.Read(key)
	require.True(t, ok)
	assert.Equal(t, []float64{30, 40, 50}, snap.History)
	assert.Equal(t, 50.0, snap.Latest.Percent)
}

func TestStoreKeysOrdered(t *testing.T) {
	s := New(10)

	s.Write(sample(source.KindGPU, 1, 1))
	s.Write(sample(source.KindMem, source.AggregateIndex, 1))
	s.Write(sample(source.KindCPU, 2, 1))
	s.Write(sample(source.KindCPU, source.AggregateIndex, 1))
	s.Write(sample(source.KindGPU, 0, 1))

	want := []source.Key{
		{Kind: source.KindCPU, Index: source.AggregateIndex},
		{Kind: source.KindCPU, Index: 2},
		{Kind: source.KindMem, Index: source.AggregateIndex},
		{Kind: source.KindGPU, Index: 0},
		{Kind: source.KindGPU, Index: 1},
	}
	assert.Equal(t, want, s.Keys())
}

func TestStoreConcurrentWritesDistinctKeys(t *testing.T) {
	s := New(20)
	const writers = 16
	const writesPerKey = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			for j := 0; j < writesPerKey; j++ {
				smp := sample(source.KindCPU, index, float64(index))
				smp.Detail = fmt.Sprintf("detail-%d", index)
				s.Write(smp)
			}
		}(i)
	}
	wg.Wait()

	all := s.ReadAll()
	require.Len(t, all, writers)
	for i := 0; i < writers; i++ {
		snap, ok := all[source.Key{Kind: source.KindCPU, Index: i}]
		require.True(t, ok, "key %d missing", i)
		// Percent and Detail were written together; a torn sample would
		// mismatch them.
		assert.Equal(t, float64(i), snap.Latest.Percent)
		assert.Equal(t, fmt.Sprintf("detail-%d", i), snap.Latest.Detail)
	}
}

func TestStoreConcurrentReadWrite(t *testing.T) {
	s := New(10)
	key := source.Key{Kind: source.KindCPU, Index: source.AggregateIndex}
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.Write(sample(source.KindCPU, source.AggregateIndex, float64(i%100)))
		}
	}()

	for i := 0; i < 200; i++ {
		if snap, ok := s.Read(key); ok {
			assert.GreaterOrEqual(t, snap.Latest.Percent, 0.0)
			assert.Less(t, snap.Latest.Percent, 100.0)
		}
	}
	<-done
}

func TestRingBufferEmpty(t *testing.T) {
	r := newRingBuffer(5)
	assert.Nil(t, r.values())
}

func TestRingBufferWrapAround(t *testing.T) {
	r := newRingBuffer(3)
	for i := 1; i <= 7; i++ {
		r.push(float64(i))
	}
	assert.Equal(t, []float64{5, 6, 7}, r.values())
}

func TestNewClampsSize(t *testing.T) {
	s := New(0)
	assert.Equal(t, DefaultHistorySize, s.size)

	s = New(-4)
	assert.Equal(t, DefaultHistorySize, s.size)
}
