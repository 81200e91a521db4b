package sampler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/testutil"
)

// fakeSource serves deterministic readings and counts how often it is hit.
type fakeSource struct {
	reads       atomic.Int64
	trackedOK   bool
	processOK   bool
	gcOK        bool
	current     uint64
	peak        uint64
	collections uint64
}

func (f *fakeSource) TrackedMemory() (uint64, uint64, bool) {
	f.reads.Add(1)
	return f.current, f.peak, f.trackedOK
}

func (f *fakeSource) Process() (ProcessStats, bool) {
	if !f.processOK {
		return ProcessStats{}, false
	}
	pct := 12.5
	rss := uint64(1 << 20)
	vms := uint64(2 << 20)
	return ProcessStats{CPUPercent: &pct, RSS: &rss, VMS: &vms}, true
}

func (f *fakeSource) GC() (GCStats, bool) {
	return GCStats{Collections: f.collections}, f.gcOK
}

func TestSamplerCollectsSeries(t *testing.T) {
	src := &fakeSource{trackedOK: true, processOK: true, gcOK: true, current: 100, peak: 200, collections: 3}
	s := New(src, Config{Interval: 5 * time.Millisecond, GCStride: 2}, testutil.NewTestLogger(t))

	s.Start()
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, s.Stop())

	mem := s.MemorySamples()
	require.NotEmpty(t, mem)
	assert.Equal(t, uint64(100), mem[0].Current)
	assert.Equal(t, uint64(200), mem[0].Peak)

	proc := s.ProcessSamples()
	require.NotEmpty(t, proc)
	require.NotNil(t, proc[0].CPUPercent)
	assert.InDelta(t, 12.5, *proc[0].CPUPercent, 0.001)
	require.NotNil(t, proc[0].RSS)
	assert.Equal(t, uint64(1<<20), *proc[0].RSS)

	// GC runs at a coarser stride than the other series.
	gc := s.GCSamples()
	require.NotEmpty(t, gc)
	assert.Less(t, len(gc), len(mem))
	assert.Equal(t, uint64(3), gc[0].Collections)

	// Elapsed times are monotonically non-decreasing.
	for i := 1; i < len(mem); i++ {
		assert.GreaterOrEqual(t, mem[i].Elapsed, mem[i-1].Elapsed)
	}
}

func TestSamplerUnavailableFacilitiesAbsent(t *testing.T) {
	// A source with no facilities at all must not fail the run; the
	// series simply stay empty.
	src := &fakeSource{}
	s := New(src, Config{Interval: 5 * time.Millisecond}, testutil.NewTestLogger(t))

	s.Start()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Empty(t, s.MemorySamples())
	assert.Empty(t, s.ProcessSamples())
	assert.Empty(t, s.GCSamples())
	assert.Greater(t, src.reads.Load(), int64(0), "sampler should still tick")
}

func TestSamplerStopJoins(t *testing.T) {
	src := &fakeSource{trackedOK: true}
	// Timing-sensitive: keep the sampler's own log lines in the test
	// output for diagnosis.
	s := New(src, Config{Interval: 5 * time.Millisecond}, testutil.NewTestLoggerWithOutput(t))

	s.Start()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Stop())

	// Sample count is stable immediately after join: no write can race
	// the read.
	count := len(s.MemorySamples())
	reads := src.reads.Load()
	time.Sleep(25 * time.Millisecond)
	assert.Equal(t, count, len(s.MemorySamples()))
	assert.Equal(t, reads, src.reads.Load())
}

func TestSamplerStopIdempotent(t *testing.T) {
	s := New(&fakeSource{}, Config{Interval: 5 * time.Millisecond}, testutil.NewTestLogger(t))
	s.Start()

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

func TestSamplerDefaults(t *testing.T) {
	s := New(&fakeSource{}, Config{}, testutil.NewTestLogger(t))
	assert.Equal(t, 50*time.Millisecond, s.interval)
	assert.Equal(t, 20, s.gcStride)
}

func TestRuntimeSourceTrackedMemory(t *testing.T) {
	src := NewRuntimeSource()

	cur, peak, ok := src.TrackedMemory()
	require.True(t, ok)
	assert.Greater(t, cur, uint64(0))
	assert.GreaterOrEqual(t, peak, cur)

	// Peak only moves up.
	_, peak2, _ := src.TrackedMemory()
	assert.GreaterOrEqual(t, peak2, peak)

	gs, ok := src.GC()
	require.True(t, ok)
	assert.Empty(t, gs.Generations)
}

func TestProcessSourceNoTrackedMemory(t *testing.T) {
	src := NewProcessSource(int32(1))
	_, _, ok := src.TrackedMemory()
	assert.False(t, ok)
	_, ok = src.GC()
	assert.False(t, ok)
}
