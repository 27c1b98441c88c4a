// Package metrics exposes operational counters for the onboard tracking
// service on a side Prometheus listener.
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	SessionActive prometheus.Gauge

	SamplesAccepted   prometheus.Counter
	SamplesSuppressed prometheus.Counter
	SamplesRejected   prometheus.Counter

	StatusTransitions *prometheus.CounterVec // status label: PICKED_UP|DROPPED_OFF|ABSENT|PENDING

	Published       prometheus.Counter
	PublishErrs     prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	PickupRadiusMeters prometheus.Gauge
}

func NewCollector(pickupRadiusMeters float64) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		SessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "driver_tracking_session_active",
			Help: "1 while a live location subscription is held.",
		}),
		SamplesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driver_location_samples_accepted_total",
			Help: "Location samples that passed movement filtering.",
		}),
		SamplesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driver_location_samples_suppressed_total",
			Help: "Location samples dropped by displacement/interval filtering.",
		}),
		SamplesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driver_location_samples_rejected_total",
			Help: "Pushed samples rejected as malformed.",
		}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "driver_student_status_transitions_total",
			Help: "Driver-confirmed student status transitions.",
		}, []string{"status"}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driver_positions_published_total",
			Help: "Position messages published to NATS.",
		}),
		PublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "driver_positions_publish_errors_total",
			Help: "Position publish failures.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "driver_nats_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "driver_position_publish_duration_seconds",
			Help:    "Duration to marshal and publish a position message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PickupRadiusMeters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "driver_pickup_radius_meters",
			Help: "Configured geofence radius for pickup eligibility.",
		}),
	}

	reg.MustRegister(
		c.SessionActive,
		c.SamplesAccepted, c.SamplesSuppressed, c.SamplesRejected,
		c.StatusTransitions,
		c.Published, c.PublishErrs, c.NATSConnected, c.PublishDuration,
		c.PickupRadiusMeters,
	)

	c.PickupRadiusMeters.Set(pickupRadiusMeters)
	return c
}

// Handler returns the scrape handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts the side metrics listener. An empty addr disables it.
func (c *Collector) Serve(addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	go func() {
		logger.Info("metrics listener started", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics listener failed", "error", err)
		}
	}()
}

// Publisher metrics hooks.

func (c *Collector) PublishedInc()  { c.Published.Inc() }
func (c *Collector) PublishErrInc() { c.PublishErrs.Inc() }

func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }
func (c *Collector) SetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
