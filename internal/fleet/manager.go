// Package fleet owns the active-route state on the bus: the roster, the
// tracking session, the odometer and the derived progress snapshot. All
// roster mutation is serialized here; the tracking engine itself stays pure.
package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"driver.schoolfleet.org/internal/dispatch"
	"driver.schoolfleet.org/internal/geo"
	"driver.schoolfleet.org/internal/metrics"
	"driver.schoolfleet.org/internal/models"
	"driver.schoolfleet.org/internal/notify"
	"driver.schoolfleet.org/internal/publisher"
	"driver.schoolfleet.org/internal/storage"
	"driver.schoolfleet.org/internal/tracking"
)

var (
	ErrNoActiveRoute   = errors.New("fleet: no active route")
	ErrRouteInProgress = errors.New("fleet: a route is already in progress")
	ErrStudentNotFound = errors.New("fleet: student not on the active route")

	// ErrNotEligible means the bus is outside the pickup radius. The driver
	// can override it explicitly; it is advisory, not a hard gate.
	ErrNotEligible = errors.New("fleet: bus is outside the pickup radius")
)

// PositionPublisher abstracts the NATS publisher so it stays optional.
type PositionPublisher interface {
	PublishPosition(msg publisher.PositionMessage) error
}

// Config carries the tracking parameters for the manager.
type Config struct {
	PickupRadiusMeters    float64
	MinDisplacementMeters float64
	MinInterval           time.Duration
	AccuracyGateMeters    float64
}

// Update is pushed to subscribers (the websocket feed) on every accepted
// sample and every status transition.
type Update struct {
	Sample   *models.LocationSample  `json:"sample,omitempty"`
	Progress models.ProgressSnapshot `json:"progress"`
}

// RosterEntry is a student decorated with live proximity state. ETA and
// heading are advisory, derived from the assumed average bus speed.
type RosterEntry struct {
	models.Student
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
	EtaMinutes     *int     `json:"etaMinutes,omitempty"`
	Heading        string   `json:"heading,omitempty"`
	Eligible       bool     `json:"eligibleForPickup"`
}

type Manager struct {
	logger    *slog.Logger
	dispatch  *dispatch.Client
	store     storage.Store
	session   *tracking.Session
	odometer  *tracking.Odometer
	evaluator tracking.Evaluator
	sink      notify.Sink
	pub       PositionPublisher
	collector *metrics.Collector
	cfg       Config

	mu          sync.Mutex
	route       *models.Route
	snapshot    models.ProgressSnapshot
	lastSample  *models.LocationSample
	within      map[string]bool
	subscribers map[int]func(Update)
	nextSubID   int
}

func NewManager(logger *slog.Logger, client *dispatch.Client, store storage.Store, provider tracking.Provider, sink notify.Sink, pub PositionPublisher, collector *metrics.Collector, cfg Config) *Manager {
	return &Manager{
		logger:      logger,
		dispatch:    client,
		store:       store,
		session:     tracking.NewSession(provider, logger),
		odometer:    tracking.NewOdometer(cfg.AccuracyGateMeters),
		evaluator:   tracking.NewEvaluator(cfg.PickupRadiusMeters),
		sink:        sink,
		pub:         pub,
		collector:   collector,
		cfg:         cfg,
		within:      make(map[string]bool),
		subscribers: make(map[int]func(Update)),
	}
}

// Session exposes the tracking session for one-shot position fetches.
func (m *Manager) Session() *tracking.Session {
	return m.session
}

// StartRoute fetches the route from dispatch, marks it in progress and
// starts the tracking session. Starting while another route is active is an
// error; the driver must complete or abandon it first.
func (m *Manager) StartRoute(ctx context.Context, routeID string) (models.Route, error) {
	m.mu.Lock()
	if m.route != nil {
		m.mu.Unlock()
		return models.Route{}, ErrRouteInProgress
	}
	m.mu.Unlock()

	route, err := m.dispatch.StartRoute(ctx, routeID)
	if err != nil {
		return models.Route{}, err
	}

	m.mu.Lock()
	m.route = &route
	m.within = make(map[string]bool)
	m.lastSample = nil
	m.odometer.Reset()
	m.snapshot = models.ProgressSnapshot{RouteID: route.ID, TotalStudents: len(route.Students), RemainingCount: countPending(route.Students)}
	m.mu.Unlock()

	err = m.session.Start(ctx, m.handleSample, m.handleWatchError, tracking.SessionConfig{
		MinDisplacementMeters: m.cfg.MinDisplacementMeters,
		MinInterval:           m.cfg.MinInterval,
		HighAccuracy:          true,
		OnSuppressed:          m.collector.SamplesSuppressed.Inc,
	})
	if err != nil {
		m.mu.Lock()
		m.route = nil
		m.mu.Unlock()
		return models.Route{}, err
	}

	m.collector.SessionActive.Set(1)
	m.cacheRoute(ctx, route)
	m.logger.Info("route started", "route_id", route.ID, "students", len(route.Students))
	return route, nil
}

func countPending(students []models.Student) int {
	n := 0
	for _, s := range students {
		if s.Status == models.StatusPending {
			n++
		}
	}
	return n
}

// CompleteRoute stops tracking, reports completion to dispatch and returns
// the trip summary for history.
func (m *Manager) CompleteRoute(ctx context.Context) (models.TripSummary, error) {
	m.mu.Lock()
	if m.route == nil {
		m.mu.Unlock()
		return models.TripSummary{}, ErrNoActiveRoute
	}
	route := *m.route
	snapshot := m.snapshot
	m.mu.Unlock()

	m.session.Stop()
	m.collector.SessionActive.Set(0)

	if _, err := m.dispatch.CompleteRoute(ctx, route.ID); err != nil {
		return models.TripSummary{}, err
	}

	now := time.Now()
	started := now
	if route.StartTime != nil {
		started = *route.StartTime
	}
	summary := models.TripSummary{
		ID:                  fmt.Sprintf("%s-%d", route.ID, now.Unix()),
		RouteID:             route.ID,
		RouteName:           route.Name,
		Date:                now,
		StartTime:           started,
		EndTime:             now,
		TotalStudents:       snapshot.TotalStudents,
		PickedUpCount:       snapshot.PickedUpCount,
		DroppedOffCount:     snapshot.DroppedOffCount,
		AbsentCount:         snapshot.AbsentCount,
		TotalDistanceMeters: m.odometer.TotalMeters(),
		DurationMinutes:     int(now.Sub(started).Minutes()),
		EncodedPath:         m.odometer.EncodedPath(),
	}

	m.mu.Lock()
	m.route = nil
	m.lastSample = nil
	m.within = make(map[string]bool)
	m.mu.Unlock()

	m.appendHistory(ctx, summary)
	if err := m.store.Delete(ctx, storage.KeyCurrentRoute); err != nil {
		m.logger.Warn("failed to clear cached route", "error", err)
	}

	m.logger.Info("route completed", "route_id", route.ID,
		"distance_m", summary.TotalDistanceMeters, "duration_min", summary.DurationMinutes)
	return summary, nil
}

// handleSample runs on every sample that cleared movement filtering.
func (m *Manager) handleSample(sample models.LocationSample) {
	m.collector.SamplesAccepted.Inc()
	total := m.odometer.Advance(sample)

	m.mu.Lock()
	m.lastSample = &sample
	route := m.route
	if route == nil {
		m.mu.Unlock()
		return
	}

	snap, err := tracking.ComputeProgress(route.ID, route.Students, total, sample.Coordinate)
	if err != nil {
		// Data error in the roster; keep the previous snapshot and complain.
		m.mu.Unlock()
		m.logger.Error("progress aggregation failed", "error", err)
		return
	}
	m.snapshot = snap

	var approaching []models.Student
	for _, s := range route.Students {
		if s.Status.Settled() {
			continue
		}
		ev := m.evaluator.Evaluate(sample.Coordinate, s, m.within[s.ID])
		m.within[s.ID] = ev.DistanceMeters <= m.evaluator.RadiusMeters
		if ev.Entered {
			approaching = append(approaching, s)
		}
	}
	routeCopy := *route
	m.mu.Unlock()

	for _, s := range approaching {
		n := notify.Notification{
			Title:   "Approaching stop",
			Message: fmt.Sprintf("%s is within %s", s.FullName(), geo.FormatDistance(m.evaluator.RadiusMeters)),
		}
		if err := m.sink.Notify(context.Background(), n); err != nil {
			m.logger.Warn("notification failed", "error", err)
		}
	}

	if m.pub != nil {
		msg := publisher.NewPositionMessage(routeCopy, sample, total)
		if err := m.pub.PublishPosition(msg); err != nil {
			m.logger.Warn("position publish failed", "error", err)
		}
	}

	m.broadcast(Update{Sample: &sample, Progress: snap})
}

func (m *Manager) handleWatchError(err error) {
	// Watch errors are forwarded, not fatal; the session stays active and
	// the next good fix resumes the stream.
	m.logger.Warn("location provider error", "error", err)
}

// MarkStudent applies a driver-confirmed status transition. Pickups outside
// the geofence radius require force=true; eligibility never auto-commits
// anything.
func (m *Manager) MarkStudent(ctx context.Context, studentID string, status models.StudentStatus, notes string, force bool) (models.Student, error) {
	if !status.Valid() {
		return models.Student{}, fmt.Errorf("%w: status %q", tracking.ErrInvalidState, status)
	}

	m.mu.Lock()
	if m.route == nil {
		m.mu.Unlock()
		return models.Student{}, ErrNoActiveRoute
	}
	idx := -1
	for i, s := range m.route.Students {
		if s.ID == studentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return models.Student{}, ErrStudentNotFound
	}
	student := m.route.Students[idx]
	last := m.lastSample
	m.mu.Unlock()

	if status == models.StatusPickedUp && !force {
		if last == nil || !m.evaluator.EligibleForPickup(last.Coordinate, student) {
			return models.Student{}, ErrNotEligible
		}
	}

	pickup := &models.StudentPickupData{
		StudentID: studentID,
		Timestamp: time.Now(),
		Status:    status,
		Notes:     notes,
	}
	if last != nil {
		pickup.Location = last.Coordinate
	}

	updated, err := m.dispatch.UpdateStudentStatus(ctx, studentID, status, pickup)
	if err != nil {
		return models.Student{}, err
	}

	m.mu.Lock()
	if m.route == nil {
		m.mu.Unlock()
		return updated, nil
	}
	m.route.Students[idx].Status = updated.Status
	snap, aggErr := tracking.ComputeProgress(m.route.ID, m.route.Students, m.odometer.TotalMeters(), m.snapshot.CurrentLocation)
	if aggErr == nil {
		m.snapshot = snap
	}
	route := *m.route
	m.mu.Unlock()

	if aggErr != nil {
		m.logger.Error("progress aggregation failed", "error", aggErr)
	}

	m.collector.StatusTransitions.WithLabelValues(string(status)).Inc()
	m.cacheRoute(ctx, route)
	m.broadcast(Update{Progress: m.Progress()})

	m.logger.Info("student status updated",
		"student_id", studentID, "status", string(status), "forced", force)
	return updated, nil
}

// Progress returns the latest derived snapshot.
func (m *Manager) Progress() models.ProgressSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot
	snap.DistanceTraveledMeters = m.odometer.TotalMeters()
	return snap
}

// ActiveRoute returns a copy of the active route, or false when idle.
func (m *Manager) ActiveRoute() (models.Route, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.route == nil {
		return models.Route{}, false
	}
	return *m.route, true
}

// Roster returns the roster decorated with live distance and eligibility.
func (m *Manager) Roster() ([]RosterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.route == nil {
		return nil, ErrNoActiveRoute
	}

	entries := make([]RosterEntry, len(m.route.Students))
	for i, s := range m.route.Students {
		entry := RosterEntry{Student: s}
		if m.lastSample != nil {
			here := m.lastSample.Coordinate
			d := geo.Distance(here, s.HomeAddress.Coordinates)
			entry.DistanceMeters = &d
			entry.Heading = geo.CompassDirection(here, s.HomeAddress.Coordinates)
			if eta, err := geo.EstimatedMinutes(d, geo.DefaultAvgSpeedKmh); err == nil {
				entry.EtaMinutes = &eta
			}
			entry.Eligible = m.evaluator.EligibleForPickup(here, s)
		}
		entries[i] = entry
	}
	return entries, nil
}

// UpdateRouteStatus sets an explicit status on the active route, e.g. PAUSED
// during a mid-route stop. Tracking keeps running; pausing is a dispatch
// annotation, not a session state.
func (m *Manager) UpdateRouteStatus(ctx context.Context, status models.RouteStatus) (models.Route, error) {
	m.mu.Lock()
	if m.route == nil {
		m.mu.Unlock()
		return models.Route{}, ErrNoActiveRoute
	}
	routeID := m.route.ID
	m.mu.Unlock()

	updated, err := m.dispatch.UpdateRouteStatus(ctx, routeID, status)
	if err != nil {
		return models.Route{}, err
	}

	m.mu.Lock()
	if m.route != nil && m.route.ID == updated.ID {
		m.route.Status = updated.Status
	}
	m.mu.Unlock()
	return updated, nil
}

// ReportIncident files an incident against the active route, stamping it
// with the current position when one is known.
func (m *Manager) ReportIncident(ctx context.Context, incidentType models.IncidentType, description string) (models.Incident, error) {
	if !incidentType.Valid() {
		return models.Incident{}, fmt.Errorf("invalid incident type %q", incidentType)
	}

	m.mu.Lock()
	if m.route == nil {
		m.mu.Unlock()
		return models.Incident{}, ErrNoActiveRoute
	}
	routeID := m.route.ID
	incident := models.Incident{
		Type:        incidentType,
		Description: description,
		Timestamp:   time.Now(),
	}
	if m.lastSample != nil {
		incident.Location = m.lastSample.Coordinate
	}
	m.mu.Unlock()

	return m.dispatch.ReportIncident(ctx, routeID, incident)
}

// History returns completed trips, falling back to the local cache when
// dispatch is unreachable.
func (m *Manager) History(ctx context.Context, driverID string) ([]models.TripSummary, error) {
	trips, err := m.dispatch.RouteHistory(ctx, driverID)
	if err == nil {
		return trips, nil
	}
	m.logger.Warn("history fetch failed, using local cache", "error", err)

	raw, storeErr := m.store.Get(ctx, storage.KeyRouteHistory)
	if storeErr != nil {
		if errors.Is(storeErr, storage.ErrNotFound) {
			return nil, err
		}
		m.logger.Warn("history cache read failed", "error", storeErr)
		return nil, err
	}
	var cached []models.TripSummary
	if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr != nil {
		m.logger.Warn("history cache corrupt", "error", jsonErr)
		return nil, err
	}
	return cached, nil
}

// Subscribe registers a callback for live updates and returns the matching
// unsubscribe function.
func (m *Manager) Subscribe(fn func(Update)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) broadcast(u Update) {
	m.mu.Lock()
	fns := make([]func(Update), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(u)
	}
}

// Shutdown releases the tracking subscription. Safe to call at any time.
func (m *Manager) Shutdown() {
	m.session.Stop()
	m.collector.SessionActive.Set(0)
}

func (m *Manager) cacheRoute(ctx context.Context, route models.Route) {
	b, err := json.Marshal(route)
	if err != nil {
		m.logger.Warn("route cache encode failed", "error", err)
		return
	}
	if err := m.store.Set(ctx, storage.KeyCurrentRoute, string(b)); err != nil {
		m.logger.Warn("route cache write failed", "error", err)
	}
}

func (m *Manager) appendHistory(ctx context.Context, summary models.TripSummary) {
	var history []models.TripSummary
	raw, err := m.store.Get(ctx, storage.KeyRouteHistory)
	if err == nil {
		if jsonErr := json.Unmarshal([]byte(raw), &history); jsonErr != nil {
			m.logger.Warn("history cache corrupt, rewriting", "error", jsonErr)
			history = nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		m.logger.Warn("history cache read failed", "error", err)
	}

	history = append(history, summary)
	b, err := json.Marshal(history)
	if err != nil {
		m.logger.Warn("history cache encode failed", "error", err)
		return
	}
	if err := m.store.Set(ctx, storage.KeyRouteHistory, string(b)); err != nil {
		m.logger.Warn("history cache write failed", "error", err)
	}
}
