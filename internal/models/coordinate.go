package models

import (
	"fmt"
	"time"
)

// Coordinate is an immutable WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate lies within the valid WGS84 ranges.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// LocationSample is a single reading from a location provider.
// Speed is in meters per second, heading in degrees (0-360, 0 also means
// stationary), accuracy is the provider's horizontal error estimate in meters.
type LocationSample struct {
	Coordinate Coordinate `json:"coordinates"`
	Speed      float64    `json:"speed"`
	Heading    float64    `json:"heading"`
	Accuracy   float64    `json:"accuracy"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Validate checks the sample against the contract the tracking session expects.
func (s LocationSample) Validate() error {
	if err := s.Coordinate.Validate(); err != nil {
		return err
	}
	if s.Speed < 0 {
		return fmt.Errorf("speed %v must be non-negative", s.Speed)
	}
	if s.Accuracy < 0 {
		return fmt.Errorf("accuracy %v must be non-negative", s.Accuracy)
	}
	return nil
}
