// Package sampler periodically snapshots process resource metrics into
// append-only time series, decoupled from the call-event stream.
package sampler

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MemorySample is one tracked-allocation snapshot.
type MemorySample struct {
	Elapsed time.Duration
	Current uint64
	Peak    uint64
}

// ProcessSample is one process-level CPU/memory snapshot. Fields are nil
// when the underlying facility is unavailable on this platform.
type ProcessSample struct {
	Elapsed    time.Duration
	CPUPercent *float64
	RSS        *uint64
	VMS        *uint64
}

// GCSample is one collector-counter snapshot, taken at a coarser stride
// than the other series.
type GCSample struct {
	Elapsed     time.Duration
	Collections uint64
	Generations []uint64
}

// ProcessStats is a point-in-time process reading from a MetricSource.
type ProcessStats struct {
	CPUPercent *float64
	RSS        *uint64
	VMS        *uint64
}

// GCStats is a point-in-time collector reading from a MetricSource.
type GCStats struct {
	Collections uint64
	Generations []uint64
}

// MetricSource provides the raw readings a sampler ticks over. Every method
// degrades to ok=false when the facility is unavailable; a source must
// never fail the run.
type MetricSource interface {
	// TrackedMemory reads current and peak bytes from the
	// allocation-tracking facility, distinct from OS-reported memory.
	TrackedMemory() (current, peak uint64, ok bool)
	// Process reads process-level CPU utilization and RSS/VMS.
	Process() (ProcessStats, bool)
	// GC reads cumulative collection counts and per-generation counters.
	GC() (GCStats, bool)
}

// Config configures the sampling cadence.
type Config struct {
	// Interval is the fixed sampling period.
	Interval time.Duration `yaml:"interval,omitempty"`
	// GCStride samples collector counters every Nth tick.
	GCStride int `yaml:"gc_stride,omitempty"`
}

// DefaultConfig returns the default sampling cadence.
func DefaultConfig() Config {
	return Config{
		Interval: 50 * time.Millisecond,
		GCStride: 20,
	}
}

// Sampler runs an independent periodic task appending resource snapshots
// to its own series. The series are single-writer: reads are only valid
// after Stop has returned, which joins the task.
type Sampler struct {
	source   MetricSource
	interval time.Duration
	gcStride int
	logger   zerolog.Logger

	start    time.Time
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	memory  []MemorySample
	process []ProcessSample
	gc      []GCSample
}

// New creates a sampler over the given source. Zero config fields fall
// back to defaults.
func New(source MetricSource, cfg Config, logger zerolog.Logger) *Sampler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.GCStride <= 0 {
		cfg.GCStride = def.GCStride
	}
	return &Sampler{
		source:   source,
		interval: cfg.Interval,
		gcStride: cfg.GCStride,
		logger:   logger.With().Str("component", "sampler").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sampling task. It takes one immediate sample so even
// very short runs have a data point.
func (s *Sampler) Start() {
	s.start = time.Now()
	s.logger.Debug().
		Dur("interval", s.interval).
		Int("gc_stride", s.gcStride).
		Msg("Starting resource sampler")

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		tick := 0
		s.sample(tick)
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				tick++
				s.sample(tick)
			}
		}
	}()
}

// Stop signals the task and joins it. Idempotent; safe to call multiple
// times. After Stop returns no further samples are appended, so the series
// accessors are safe to read. The join is bounded by one period plus
// margin; a timeout is reported rather than blocking the run forever.
func (s *Sampler) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	select {
	case <-s.done:
		return nil
	case <-time.After(s.interval + time.Second):
		return fmt.Errorf("sampler did not stop within %v", s.interval+time.Second)
	}
}

// sample appends one snapshot of every available series.
func (s *Sampler) sample(tick int) {
	elapsed := time.Since(s.start)

	if cur, peak, ok := s.source.TrackedMemory(); ok {
		s.memory = append(s.memory, MemorySample{Elapsed: elapsed, Current: cur, Peak: peak})
	}
	if ps, ok := s.source.Process(); ok {
		s.process = append(s.process, ProcessSample{
			Elapsed:    elapsed,
			CPUPercent: ps.CPUPercent,
			RSS:        ps.RSS,
			VMS:        ps.VMS,
		})
	}
	if tick%s.gcStride == 0 {
		if gs, ok := s.source.GC(); ok {
			s.gc = append(s.gc, GCSample{
				Elapsed:     elapsed,
				Collections: gs.Collections,
				Generations: gs.Generations,
			})
		}
	}
}

// MemorySamples returns the tracked-allocation series. Only valid after
// Stop has returned.
func (s *Sampler) MemorySamples() []MemorySample {
	return append([]MemorySample(nil), s.memory...)
}

// ProcessSamples returns the CPU/RSS series. Only valid after Stop has
// returned.
func (s *Sampler) ProcessSamples() []ProcessSample {
	return append([]ProcessSample(nil), s.process...)
}

// GCSamples returns the collector-counter series. Only valid after Stop
// has returned.
func (s *Sampler) GCSamples() []GCSample {
	return append([]GCSample(nil), s.gc...)
}
