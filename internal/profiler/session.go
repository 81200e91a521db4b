// Package profiler ties the instrumentation hook, call-stack tracking,
// aggregation and resource sampling into one profiling session.
package profiler

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/aggregate"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/sampler"
	"github.com/Evan-Pochtar/ExetrixAnalysis/internal/trace"
)

// Config configures a session.
type Config struct {
	Classifier trace.ClassifierConfig `yaml:"classifier,omitempty"`
	Sampler    sampler.Config         `yaml:"sampler,omitempty"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Classifier: trace.DefaultClassifierConfig(),
		Sampler:    sampler.DefaultConfig(),
	}
}

// Session owns one profiling run of an in-process host: it attaches the
// host's instrumentation hook, tracks call stacks, aggregates completed
// calls and samples resources in the background. Stop sequencing
// guarantees the aggregator and sampler are quiescent before anything
// reads them.
type Session struct {
	hook    trace.Hook
	tracker *trace.Tracker
	agg     *aggregate.Aggregator
	smp     *sampler.Sampler
	logger  zerolog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	start   time.Time
}

// NewSession creates a session around the given hook. The source decides
// what the sampler observes; in-process hosts pass a RuntimeSource.
func NewSession(hook trace.Hook, source sampler.MetricSource, cfg Config, logger zerolog.Logger) *Session {
	logger = logger.With().Str("component", "session").Logger()
	agg := aggregate.New()
	return &Session{
		hook:    hook,
		tracker: trace.NewTracker(trace.NewClassifier(cfg.Classifier), agg),
		agg:     agg,
		smp:     sampler.New(source, cfg.Sampler, logger),
		logger:  logger,
	}
}

// Start launches the background sampler and attaches the hook. Events may
// arrive from any thread the moment Attach returns.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("session already started")
	}
	s.started = true
	s.start = time.Now()

	s.smp.Start()
	if err := s.hook.Attach(s.tracker.HandleEvent); err != nil {
		if stopErr := s.smp.Stop(); stopErr != nil {
			s.logger.Warn().Err(stopErr).Msg("Sampler did not stop cleanly")
		}
		return fmt.Errorf("attach instrumentation hook: %w", err)
	}
	s.logger.Debug().Msg("Session started")
	return nil
}

// Stop detaches the hook and joins the sampler. Idempotent. After Stop
// returns, no event can reach the aggregator and no sample is in flight,
// so Drain and the sample accessors observe final state.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return nil
	}
	s.stopped = true

	var firstErr error
	if err := s.hook.Detach(); err != nil {
		firstErr = fmt.Errorf("detach instrumentation hook: %w", err)
	}
	if err := s.smp.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("Sampler did not stop cleanly")
		if firstErr == nil {
			firstErr = err
		}
	}
	s.logger.Debug().Dur("elapsed", time.Since(s.start)).Msg("Session stopped")
	return firstErr
}

// Drain snapshots the final node and edge tables. Call after Stop.
func (s *Session) Drain() ([]aggregate.Node, []aggregate.Edge) {
	return s.agg.Drain()
}

// Aggregator exposes the shared recorder, e.g. for hosts that deliver
// events through their own tracker.
func (s *Session) Aggregator() *aggregate.Aggregator {
	return s.agg
}

// Sampler exposes the resource sampler's series. Valid after Stop.
func (s *Session) Sampler() *sampler.Sampler {
	return s.smp
}

// StartTime reports when the session began.
func (s *Session) StartTime() time.Time {
	return s.start
}
