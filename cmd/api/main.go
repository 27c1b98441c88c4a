package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"driver.schoolfleet.org/internal/app"
	"driver.schoolfleet.org/internal/dispatch"
	"driver.schoolfleet.org/internal/fleet"
	"driver.schoolfleet.org/internal/logging"
	"driver.schoolfleet.org/internal/metrics"
	"driver.schoolfleet.org/internal/models"
	"driver.schoolfleet.org/internal/notify"
	"driver.schoolfleet.org/internal/publisher"
	"driver.schoolfleet.org/internal/restapi"
	"driver.schoolfleet.org/internal/storage"
	"driver.schoolfleet.org/internal/tracking"
)

func main() {
	// A .env file is optional; real deployments configure through flags and
	// the environment.
	_ = godotenv.Load()

	var cfg app.Config
	var tokensFlag string

	flag.IntVar(&cfg.Port, "port", 4000, "API server port")
	flag.StringVar(&cfg.Env, "env", envOr("FLEET_ENV", "development"), "Environment (development|staging|production)")
	flag.StringVar(&tokensFlag, "device-tokens", envOr("FLEET_DEVICE_TOKENS", "test"), "Comma separated device bearer tokens")
	flag.StringVar(&cfg.DispatchURL, "dispatch-url", envOr("FLEET_DISPATCH_URL", "http://localhost:8080"), "Base URL of the dispatch service")
	flag.StringVar(&cfg.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL DSN for the local store (in-memory when empty)")
	flag.StringVar(&cfg.NATSURL, "nats-url", os.Getenv("NATS_URL"), "NATS URL for position publishing (disabled when empty)")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", envOr("FLEET_METRICS_ADDR", ""), "Listen address for the Prometheus endpoint (disabled when empty)")
	flag.Float64Var(&cfg.PickupRadiusMeters, "pickup-radius", tracking.DefaultPickupRadiusMeters, "Geofence radius in meters for pickup eligibility")
	flag.Float64Var(&cfg.MinDisplacementMeters, "min-displacement", tracking.DefaultMinDisplacementMeters, "Minimum movement in meters between delivered samples")
	flag.DurationVar(&cfg.MinInterval, "min-interval", tracking.DefaultMinInterval, "Minimum interval between delivered samples")
	flag.Float64Var(&cfg.AccuracyGateMeters, "accuracy-gate", tracking.DefaultAccuracyGateMeters, "Worst sample accuracy in meters the odometer accepts")
	flag.IntVar(&cfg.RateLimit, "rate-limit", 100, "Requests per second allowed per device token")
	flag.Parse()

	if tokensFlag != "" {
		cfg.APITokens = strings.Split(tokensFlag, ",")
		for i := range cfg.APITokens {
			cfg.APITokens[i] = strings.TrimSpace(cfg.APITokens[i])
		}
	}

	var logger *slog.Logger
	if cfg.Env == "production" {
		logger = logging.NewStructuredLogger(os.Stdout, slog.LevelInfo)
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	if err := run(cfg, logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cfg app.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer logging.SafeCloseWithLogging(closer, logger, "store")
	}

	client := dispatch.NewClient(cfg.DispatchURL)
	collector := metrics.NewCollector(cfg.PickupRadiusMeters)
	collector.Serve(cfg.MetricsAddr, logger)

	var pub fleet.PositionPublisher
	if cfg.NATSURL != "" {
		natsPub, err := publisher.NewNATSPublisher(cfg.NATSURL, logger, collector)
		if err != nil {
			return err
		}
		defer natsPub.Close()
		pub = natsPub
	}

	provider := tracking.NewPushProvider()
	sink := notify.LogSink{Logger: logger}

	manager := fleet.NewManager(logger, client, store, provider, sink, pub, collector, fleet.Config{
		PickupRadiusMeters:    cfg.PickupRadiusMeters,
		MinDisplacementMeters: cfg.MinDisplacementMeters,
		MinInterval:           cfg.MinInterval,
		AccuracyGateMeters:    cfg.AccuracyGateMeters,
	})
	defer manager.Shutdown()

	application := &app.Application{
		Config:   cfg,
		Logger:   logger,
		Fleet:    manager,
		Store:    store,
		Dispatch: client,
		Provider: provider,
		Metrics:  collector,
	}
	restoreSession(ctx, application)

	api := restapi.NewRestAPI(application)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// openStore picks PostgreSQL when a DSN is configured and falls back to the
// in-memory store otherwise.
func openStore(ctx context.Context, cfg app.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory store; cached state will not survive restarts")
		return storage.NewMemoryStore(), nil
	}
	pg, err := storage.OpenPGStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening postgres store: %w", err)
	}
	logger.Info("using postgres store")
	return pg, nil
}

// restoreSession resumes the authenticated dispatch session cached by a
// previous run, if any.
func restoreSession(ctx context.Context, application *app.Application) {
	token, err := application.Store.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			application.Logger.Warn("failed to read cached auth token", "error", err)
		}
		return
	}
	application.Dispatch.SetToken(token)

	raw, err := application.Store.Get(ctx, storage.KeyUserData)
	if err != nil {
		return
	}
	var driver models.Driver
	if err := json.Unmarshal([]byte(raw), &driver); err != nil {
		application.Logger.Warn("cached driver record corrupt", "error", err)
		return
	}
	application.SetDriver(driver)
	application.Logger.Info("restored driver session", "driver_id", driver.ID)
}
