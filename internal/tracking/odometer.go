package tracking

import (
	"sync"

	"github.com/twpayne/go-polyline"

	"driver.schoolfleet.org/internal/geo"
	"driver.schoolfleet.org/internal/models"
)

// DefaultAccuracyGateMeters is the worst horizontal accuracy a sample may
// report and still advance the odometer. Poorer fixes would inflate the
// traveled distance with GPS jitter.
const DefaultAccuracyGateMeters = 50.0

// Odometer accumulates distance traveled by integrating the great-circle
// distance over consecutive accepted location samples, and records the
// traveled path for trip history.
type Odometer struct {
	mu           sync.Mutex
	accuracyGate float64
	totalMeters  float64
	last         *models.Coordinate
	path         [][]float64 // lat, lon pairs in travel order
}

func NewOdometer(accuracyGateMeters float64) *Odometer {
	if accuracyGateMeters <= 0 {
		accuracyGateMeters = DefaultAccuracyGateMeters
	}
	return &Odometer{accuracyGate: accuracyGateMeters}
}

// Advance feeds the odometer one sample and returns the new total. Samples
// failing the accuracy gate are ignored; the total never decreases.
func (o *Odometer) Advance(sample models.LocationSample) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sample.Accuracy > o.accuracyGate {
		return o.totalMeters
	}

	c := sample.Coordinate
	if o.last != nil {
		o.totalMeters += geo.Distance(*o.last, c)
	}
	o.last = &c
	o.path = append(o.path, []float64{c.Latitude, c.Longitude})
	return o.totalMeters
}

// TotalMeters returns the accumulated distance.
func (o *Odometer) TotalMeters() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalMeters
}

// EncodedPath returns the traveled path as an encoded polyline, or the empty
// string when no sample has been accepted yet.
func (o *Odometer) EncodedPath() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.path) == 0 {
		return ""
	}
	return string(polyline.EncodeCoords(o.path))
}

// Reset clears the odometer for a new trip.
func (o *Odometer) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.totalMeters = 0
	o.last = nil
	o.path = nil
}
