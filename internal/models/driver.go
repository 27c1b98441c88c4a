package models

import "time"

type DriverStatus string

const (
	DriverActive    DriverStatus = "ACTIVE"
	DriverInactive  DriverStatus = "INACTIVE"
	DriverOnLeave   DriverStatus = "ON_LEAVE"
	DriverSuspended DriverStatus = "SUSPENDED"
)

type Driver struct {
	ID            string       `json:"id"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Email         string       `json:"email"`
	PhoneNumber   string       `json:"phoneNumber"`
	LicenseNumber string       `json:"licenseNumber"`
	LicenseExpiry time.Time    `json:"licenseExpiry"`
	PhotoURL      string       `json:"photoUrl,omitempty"`
	BusNumber     string       `json:"busNumber"`
	EmployeeID    string       `json:"employeeId"`
	Status        DriverStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

type DriverStats struct {
	TotalTrips       int     `json:"totalTrips"`
	TotalDistanceKM  float64 `json:"totalDistance"`
	TotalHours       float64 `json:"totalHours"`
	AverageRating    float64 `json:"averageRating"`
	OnTimePercentage float64 `json:"onTimePercentage"`
	IncidentCount    int     `json:"incidentCount"`
	MonthlyTrips     int     `json:"monthlyTrips"`
}
