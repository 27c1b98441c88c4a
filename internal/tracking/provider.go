// Package tracking implements the live-route engine: the location tracking
// session, pickup proximity evaluation, route progress aggregation and the
// traveled-distance odometer.
package tracking

import (
	"context"
	"errors"
	"time"

	"driver.schoolfleet.org/internal/models"
)

var (
	// ErrPermissionDenied means location access was not granted. Fatal to
	// starting a session; surfaced to the driver with a remediation prompt.
	ErrPermissionDenied = errors.New("tracking: location permission denied")

	// ErrLocationUnavailable means the provider timed out or failed on a
	// one-shot fetch. Retryable.
	ErrLocationUnavailable = errors.New("tracking: location unavailable")

	// ErrInvalidState means a student carried a status outside the defined
	// set. This is a data error and is reported loudly.
	ErrInvalidState = errors.New("tracking: invalid student state")
)

// PositionOptions configures a one-shot position fetch.
type PositionOptions struct {
	Timeout     time.Duration
	MaxCacheAge time.Duration
}

// WatchOptions configures a continuous position watch at the provider level.
// These are sampling courtesies, not correctness guarantees; the session
// applies its own filtering on top.
type WatchOptions struct {
	HighAccuracy          bool
	MinDisplacementMeters float64
	Interval              time.Duration
}

// Subscription is a live provider watch. Unsubscribe must be idempotent.
type Subscription interface {
	Unsubscribe()
}

// Provider abstracts the platform location source. Implementations invoke
// onUpdate from a single callback context; consumers must not assume a fixed
// cadence.
type Provider interface {
	// RequestPermission confirms location access. It returns false without
	// error when the user declined.
	RequestPermission(ctx context.Context) (bool, error)

	// CurrentPosition fetches one sample, independent of any active watch.
	CurrentPosition(ctx context.Context, opts PositionOptions) (models.LocationSample, error)

	// WatchPosition starts a continuous watch. Provider-level errors are
	// delivered to onError and do not cancel the watch.
	WatchPosition(onUpdate func(models.LocationSample), onError func(error), opts WatchOptions) (Subscription, error)
}
