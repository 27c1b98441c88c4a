package app

import (
	"log/slog"
	"sync"
	"time"

	"driver.schoolfleet.org/internal/dispatch"
	"driver.schoolfleet.org/internal/fleet"
	"driver.schoolfleet.org/internal/metrics"
	"driver.schoolfleet.org/internal/models"
	"driver.schoolfleet.org/internal/storage"
	"driver.schoolfleet.org/internal/tracking"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware: the configuration, the logger and the wired-up service
// collaborators.
type Application struct {
	Config   Config
	Logger   *slog.Logger
	Fleet    *fleet.Manager
	Store    storage.Store
	Dispatch *dispatch.Client
	Provider *tracking.PushProvider
	Metrics  *metrics.Collector

	mu     sync.RWMutex
	driver *models.Driver
}

// Config holds all the configuration settings for our Application. We read
// these in from command-line flags and the environment when the Application
// starts.
type Config struct {
	Port      int
	Env       string
	APITokens []string

	DispatchURL string
	DatabaseURL string
	NATSURL     string
	MetricsAddr string

	PickupRadiusMeters    float64
	MinDisplacementMeters float64
	MinInterval           time.Duration
	AccuracyGateMeters    float64

	RateLimit int
}

// SetDriver records the authenticated driver after a successful login or a
// session restore from storage.
func (app *Application) SetDriver(d models.Driver) {
	app.mu.Lock()
	app.driver = &d
	app.mu.Unlock()
}

// Driver returns the authenticated driver, or false before login.
func (app *Application) Driver() (models.Driver, bool) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	if app.driver == nil {
		return models.Driver{}, false
	}
	return *app.driver, true
}

// ClearDriver drops the authenticated driver on logout.
func (app *Application) ClearDriver() {
	app.mu.Lock()
	app.driver = nil
	app.mu.Unlock()
}
