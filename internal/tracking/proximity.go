package tracking

import (
	"driver.schoolfleet.org/internal/geo"
	"driver.schoolfleet.org/internal/models"
)

// DefaultPickupRadiusMeters is the geofence radius within which a pending
// student is considered reachable for pickup confirmation.
const DefaultPickupRadiusMeters = 100.0

// Evaluator decides pickup eligibility for pending students. Eligibility is
// advisory and gates the UI only: GPS accuracy near buildings is poor enough
// that the driver can always override with an explicit confirmation, and no
// status transition is ever committed automatically.
type Evaluator struct {
	RadiusMeters float64
}

func NewEvaluator(radiusMeters float64) Evaluator {
	if radiusMeters <= 0 {
		radiusMeters = DefaultPickupRadiusMeters
	}
	return Evaluator{RadiusMeters: radiusMeters}
}

// EligibleForPickup reports whether the driver is close enough to the
// student's home to permit marking pickup. Settled students are never
// eligible again, regardless of distance.
func (e Evaluator) EligibleForPickup(current models.Coordinate, s models.Student) bool {
	if s.Status != models.StatusPending {
		return false
	}
	return geo.WithinRadius(current, s.HomeAddress.Coordinates, e.RadiusMeters)
}

// Evaluation is the full result of a proximity check for one student.
type Evaluation struct {
	DistanceMeters float64
	Eligible       bool
	// Entered is true only on the first check inside the radius, so callers
	// can fire one-shot "approaching stop" notifications.
	Entered bool
}

// Evaluate computes distance and eligibility for a student, detecting the
// geofence entry transition against the previous check's containment state.
func (e Evaluator) Evaluate(current models.Coordinate, s models.Student, wasWithin bool) Evaluation {
	d := geo.Distance(current, s.HomeAddress.Coordinates)
	within := d <= e.RadiusMeters
	return Evaluation{
		DistanceMeters: d,
		Eligible:       within && s.Status == models.StatusPending,
		Entered:        within && !wasWithin,
	}
}
