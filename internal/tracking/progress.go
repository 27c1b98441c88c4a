package tracking

import (
	"fmt"

	"driver.schoolfleet.org/internal/models"
)

// ComputeProgress derives a progress snapshot from the roster, the distance
// traveled so far and the current location. It is a pure function: one pass,
// no memoization, deterministic for identical input, and safe to call on
// every location tick.
//
// Invariant: the four status counts sum to TotalStudents and RemainingCount
// is never negative. A student with an undefined status is a data error and
// fails with ErrInvalidState.
func ComputeProgress(routeID string, students []models.Student, distanceTraveledMeters float64, current models.Coordinate) (models.ProgressSnapshot, error) {
	snap := models.ProgressSnapshot{
		RouteID:                routeID,
		TotalStudents:          len(students),
		DistanceTraveledMeters: distanceTraveledMeters,
		CurrentLocation:        current,
	}

	for _, s := range students {
		switch s.Status {
		case models.StatusPending:
			snap.RemainingCount++
		case models.StatusPickedUp:
			snap.PickedUpCount++
		case models.StatusDroppedOff:
			snap.DroppedOffCount++
		case models.StatusAbsent:
			snap.AbsentCount++
		default:
			return models.ProgressSnapshot{}, fmt.Errorf("%w: student %s has status %q", ErrInvalidState, s.ID, s.Status)
		}
	}

	return snap, nil
}
