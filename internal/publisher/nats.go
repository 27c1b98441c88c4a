// Package publisher streams accepted position updates to NATS for the
// parent-tracking backend and any other fleet consumer.
package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"driver.schoolfleet.org/internal/models"
)

// Metrics is the subset of the metrics collector the publisher reports into.
type Metrics interface {
	PublishedInc()
	PublishErrInc()
	PublishObserve(d time.Duration)
	SetConnected(connected bool)
}

type NATSPublisher struct {
	nc      *nats.Conn
	logger  *slog.Logger
	metrics Metrics
}

func NewNATSPublisher(url string, logger *slog.Logger, m Metrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("schoolfleet-driver"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("publisher: connect %s: %w", url, err)
	}
	if m != nil {
		m.SetConnected(true)
	}
	return &NATSPublisher{nc: nc, logger: logger, metrics: m}, nil
}

// Close drains in-flight messages before closing the connection.
func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// PositionMessage is the wire format for one accepted location sample.
type PositionMessage struct {
	BusNumber              string    `json:"busNumber"`
	RouteID                string    `json:"routeId"`
	DriverID               string    `json:"driverId"`
	Latitude               float64   `json:"latitude"`
	Longitude              float64   `json:"longitude"`
	SpeedMps               float64   `json:"speedMps"`
	Heading                float64   `json:"heading"`
	DistanceTraveledMeters float64   `json:"distanceTraveledMeters"`
	Timestamp              time.Time `json:"timestamp"`
}

// PublishPosition sends a position message on fleet.positions.<busNumber>.
func (p *NATSPublisher) PublishPosition(msg PositionMessage) error {
	subject := "fleet.positions." + subjectToken(msg.BusNumber)
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("publisher: encode position: %w", err)
	}

	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.PublishErrInc()
		} else {
			p.metrics.PublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("publisher: publish %s: %w", subject, err)
	}
	return nil
}

// NewPositionMessage builds the wire message from a sample and its route
// context.
func NewPositionMessage(route models.Route, sample models.LocationSample, distanceTraveledMeters float64) PositionMessage {
	return PositionMessage{
		BusNumber:              route.BusNumber,
		RouteID:                route.ID,
		DriverID:               route.DriverID,
		Latitude:               sample.Coordinate.Latitude,
		Longitude:              sample.Coordinate.Longitude,
		SpeedMps:               sample.Speed,
		Heading:                sample.Heading,
		DistanceTraveledMeters: distanceTraveledMeters,
		Timestamp:              sample.Timestamp,
	}
}

// subjectToken sanitizes an identifier for use as a NATS subject token.
func subjectToken(s string) string {
	if s == "" {
		return "unknown"
	}
	r := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")
	return r.Replace(s)
}
