package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"driver.schoolfleet.org/internal/models"
)

func studentAt(status models.StudentStatus, lat, lon float64) models.Student {
	return models.Student{
		ID:     "s1",
		Status: status,
		HomeAddress: models.Address{
			Coordinates: models.Coordinate{Latitude: lat, Longitude: lon},
		},
	}
}

func TestEligibleForPickupWithinRadius(t *testing.T) {
	e := NewEvaluator(100)
	bus := models.Coordinate{Latitude: 30.0444, Longitude: 31.2357}

	// ~0.0005 degrees latitude is about 55 m.
	near := studentAt(models.StatusPending, 30.0449, 31.2357)
	far := studentAt(models.StatusPending, 30.0544, 31.2357)

	assert.True(t, e.EligibleForPickup(bus, near))
	assert.False(t, e.EligibleForPickup(bus, far))
}

func TestSettledStudentsNeverEligible(t *testing.T) {
	e := NewEvaluator(100)
	bus := models.Coordinate{Latitude: 30.0444, Longitude: 31.2357}

	// Student essentially at the bus's position: 1 m away.
	for _, status := range []models.StudentStatus{models.StatusPickedUp, models.StatusDroppedOff, models.StatusAbsent} {
		s := studentAt(status, 30.04441, 31.2357)
		assert.False(t, e.EligibleForPickup(bus, s), "status %s must not be eligible", status)
	}
}

func TestNewEvaluatorDefaultsRadius(t *testing.T) {
	assert.Equal(t, DefaultPickupRadiusMeters, NewEvaluator(0).RadiusMeters)
	assert.Equal(t, DefaultPickupRadiusMeters, NewEvaluator(-5).RadiusMeters)
	assert.Equal(t, 250.0, NewEvaluator(250).RadiusMeters)
}

func TestEvaluateDetectsGeofenceEntry(t *testing.T) {
	e := NewEvaluator(100)
	s := studentAt(models.StatusPending, 30.0444, 31.2357)

	outside := models.Coordinate{Latitude: 30.0544, Longitude: 31.2357}
	inside := models.Coordinate{Latitude: 30.0449, Longitude: 31.2357}

	ev := e.Evaluate(outside, s, false)
	assert.False(t, ev.Eligible)
	assert.False(t, ev.Entered)

	ev = e.Evaluate(inside, s, false)
	assert.True(t, ev.Eligible)
	assert.True(t, ev.Entered, "first check inside the radius should report entry")

	ev = e.Evaluate(inside, s, true)
	assert.True(t, ev.Eligible)
	assert.False(t, ev.Entered, "staying inside must not re-report entry")
}

func TestEvaluateSettledStudentInsideRadius(t *testing.T) {
	e := NewEvaluator(100)
	s := studentAt(models.StatusPickedUp, 30.0444, 31.2357)
	inside := models.Coordinate{Latitude: 30.0449, Longitude: 31.2357}

	ev := e.Evaluate(inside, s, false)
	assert.False(t, ev.Eligible)
	assert.True(t, ev.Entered, "geofence entry is tracked independently of eligibility")
	assert.Less(t, ev.DistanceMeters, 100.0)
}
