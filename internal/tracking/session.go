package tracking

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"driver.schoolfleet.org/internal/geo"
	"driver.schoolfleet.org/internal/models"
)

// Default filtering parameters, matching the tracking configuration the
// driver app ships with.
const (
	DefaultMinDisplacementMeters = 10.0
	DefaultMinInterval           = 5 * time.Second
)

// SessionConfig holds the movement-filtering parameters for a tracking
// session. Zero values fall back to the defaults.
type SessionConfig struct {
	MinDisplacementMeters float64
	MinInterval           time.Duration
	HighAccuracy          bool

	// OnSuppressed, when set, is invoked for every sample dropped by
	// movement filtering.
	OnSuppressed func()
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.MinDisplacementMeters <= 0 {
		c.MinDisplacementMeters = DefaultMinDisplacementMeters
	}
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	return c
}

// Session manages the lifecycle of a single live-location subscription:
// Idle -> Active -> Idle. At most one provider watch is live at a time;
// starting while active tears down the previous watch first. A Session is
// owned by whoever started the route and must be stopped on teardown.
type Session struct {
	provider Provider
	logger   *slog.Logger

	mu            sync.Mutex
	sub           Subscription
	generation    uint64
	active        bool
	lastDelivered *models.LocationSample
	lastTime      time.Time
	suppressed    uint64
}

func NewSession(provider Provider, logger *slog.Logger) *Session {
	return &Session{provider: provider, logger: logger}
}

// Active reports whether a provider watch is currently live.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Suppressed returns the number of samples dropped by movement filtering
// since the session last started.
func (s *Session) Suppressed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suppressed
}

// Start begins a tracking session. If one is already active it is stopped
// first, so exactly one provider subscription exists afterward. Start fails
// fast with ErrPermissionDenied when location access is not granted rather
// than silently producing no updates.
func (s *Session) Start(ctx context.Context, onUpdate func(models.LocationSample), onError func(error), cfg SessionConfig) error {
	granted, err := s.provider.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return ErrPermissionDenied
	}

	cfg = cfg.withDefaults()

	s.mu.Lock()
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	s.generation++
	gen := s.generation
	s.active = true
	s.lastDelivered = nil
	s.lastTime = time.Time{}
	s.suppressed = 0
	s.mu.Unlock()

	forward := func(sample models.LocationSample) {
		if s.accept(sample, gen, cfg) {
			onUpdate(sample)
		}
	}
	forwardErr := func(err error) {
		// Watch errors do not terminate the session; the caller decides
		// whether to retry or stop.
		s.logger.Warn("location watch error", "error", err)
		if onError != nil {
			onError(err)
		}
	}

	sub, err := s.provider.WatchPosition(forward, forwardErr, WatchOptions{
		HighAccuracy:          cfg.HighAccuracy,
		MinDisplacementMeters: cfg.MinDisplacementMeters,
		Interval:              cfg.MinInterval,
	})
	if err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	s.logger.Info("tracking session started",
		slog.Float64("min_displacement_m", cfg.MinDisplacementMeters),
		slog.Duration("min_interval", cfg.MinInterval))
	return nil
}

// accept applies movement filtering: a sample must clear both the minimum
// displacement and the minimum interval since the last delivered sample.
// The first sample of a session is always delivered.
func (s *Session) accept(sample models.LocationSample, gen uint64, cfg SessionConfig) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.generation != gen {
		// Late callback after Stop or from a superseded watch; drop it.
		return false
	}

	if s.lastDelivered != nil {
		moved := geo.Distance(s.lastDelivered.Coordinate, sample.Coordinate)
		elapsed := sample.Timestamp.Sub(s.lastTime)
		if moved < cfg.MinDisplacementMeters || elapsed < cfg.MinInterval {
			s.suppressed++
			if cfg.OnSuppressed != nil {
				cfg.OnSuppressed()
			}
			return false
		}
	}

	delivered := sample
	s.lastDelivered = &delivered
	s.lastTime = sample.Timestamp
	return true
}

// Stop terminates the session. It is idempotent and safe to call when the
// session was never started.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	s.logger.Info("tracking session stopped")
}

// Current performs a one-shot position fetch, independent of session state.
func (s *Session) Current(ctx context.Context, opts PositionOptions) (models.LocationSample, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return s.provider.CurrentPosition(ctx, opts)
}
