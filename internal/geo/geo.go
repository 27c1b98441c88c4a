// Package geo provides the geodesic math used by route tracking: great-circle
// distance, initial bearing, radius containment and ETA estimation.
package geo

import (
	"errors"
	"fmt"
	"math"

	"driver.schoolfleet.org/internal/models"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// DefaultAvgSpeedKmh is the assumed bus speed for ETA estimation when no
// better figure is available.
const DefaultAvgSpeedKmh = 30.0

// ErrInvalidArgument is returned when a caller violates an input contract.
// These are programmer errors; the functions fail loudly instead of clamping.
var ErrInvalidArgument = errors.New("geo: invalid argument")

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b models.Coordinate) float64 {
	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	deltaPhi := (b.Latitude - a.Latitude) * math.Pi / 180
	deltaLambda := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Bearing returns the initial bearing in degrees [0, 360) from a to b.
// When a == b the bearing is undefined; 0 is returned by convention.
func Bearing(a, b models.Coordinate) float64 {
	phi1 := a.Latitude * math.Pi / 180
	phi2 := b.Latitude * math.Pi / 180
	deltaLambda := (b.Longitude - a.Longitude) * math.Pi / 180

	y := math.Sin(deltaLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)

	theta := math.Atan2(y, x)
	return math.Mod(theta*180/math.Pi+360, 360)
}

// WithinRadius reports whether b lies within radiusMeters of a.
func WithinRadius(a, b models.Coordinate, radiusMeters float64) bool {
	return Distance(a, b) <= radiusMeters
}

// EstimatedMinutes estimates travel time in whole minutes for the given
// distance at the given average speed. A non-positive speed or negative
// distance violates the input contract.
func EstimatedMinutes(distanceMeters, avgSpeedKmh float64) (int, error) {
	if avgSpeedKmh <= 0 {
		return 0, fmt.Errorf("%w: average speed %v km/h must be positive", ErrInvalidArgument, avgSpeedKmh)
	}
	if distanceMeters < 0 {
		return 0, fmt.Errorf("%w: distance %v m must be non-negative", ErrInvalidArgument, distanceMeters)
	}
	hours := (distanceMeters / 1000) / avgSpeedKmh
	return int(math.Round(hours * 60)), nil
}

// BearingToCompass converts a bearing (0-360°) to an 8-point compass direction.
func BearingToCompass(bearing float64) string {
	directions := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	index := int(math.Mod(bearing+22.5, 360)/45.0) % 8
	return directions[index]
}

// CompassDirection returns the 8-point compass direction from a to b.
func CompassDirection(a, b models.Coordinate) string {
	return BearingToCompass(Bearing(a, b))
}

// FormatDistance renders a distance for display, meters under a kilometer and
// kilometers with one decimal above.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}
