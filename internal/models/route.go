package models

import "time"

type RouteStatus string

const (
	RouteNotStarted RouteStatus = "NOT_STARTED"
	RouteInProgress RouteStatus = "IN_PROGRESS"
	RouteCompleted  RouteStatus = "COMPLETED"
	RoutePaused     RouteStatus = "PAUSED"
)

func (s RouteStatus) Valid() bool {
	switch s {
	case RouteNotStarted, RouteInProgress, RouteCompleted, RoutePaused:
		return true
	}
	return false
}

type RouteType string

const (
	RouteMorning   RouteType = "MORNING"
	RouteAfternoon RouteType = "AFTERNOON"
)

type Route struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Type              RouteType   `json:"type"`
	Status            RouteStatus `json:"status"`
	DriverID          string      `json:"driverId"`
	BusNumber         string      `json:"busNumber"`
	Students          []Student   `json:"students"`
	Waypoints         []Waypoint  `json:"waypoints,omitempty"`
	StartTime         *time.Time  `json:"startTime,omitempty"`
	EndTime           *time.Time  `json:"endTime,omitempty"`
	EstimatedDuration int         `json:"estimatedDuration"`
	TotalDistanceKM   float64     `json:"totalDistance"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

type Waypoint struct {
	ID               string     `json:"id"`
	StudentID        string     `json:"studentId"`
	Order            int        `json:"order"`
	Coordinates      Coordinate `json:"coordinates"`
	Address          string     `json:"address"`
	EstimatedArrival *time.Time `json:"estimatedArrival,omitempty"`
	ActualArrival    *time.Time `json:"actualArrival,omitempty"`
	Completed        bool       `json:"completed"`
}

// ProgressSnapshot is a derived, point-in-time summary of roster completion
// state. It is recomputed wholesale on every status change or accepted
// location sample; it carries no incremental state of its own.
type ProgressSnapshot struct {
	RouteID                string     `json:"routeId"`
	TotalStudents          int        `json:"totalStudents"`
	PickedUpCount          int        `json:"pickedUpCount"`
	DroppedOffCount        int        `json:"droppedOffCount"`
	AbsentCount            int        `json:"absentCount"`
	RemainingCount         int        `json:"remainingCount"`
	DistanceTraveledMeters float64    `json:"distanceTraveled"`
	CurrentLocation        Coordinate `json:"currentLocation"`
}

// TripSummary is the persisted record of a completed route.
type TripSummary struct {
	ID                     string     `json:"id"`
	RouteID                string     `json:"routeId"`
	RouteName              string     `json:"routeName"`
	Date                   time.Time  `json:"date"`
	StartTime              time.Time  `json:"startTime"`
	EndTime                time.Time  `json:"endTime"`
	TotalStudents          int        `json:"totalStudents"`
	PickedUpCount          int        `json:"pickedUpCount"`
	DroppedOffCount        int        `json:"droppedOffCount"`
	AbsentCount            int        `json:"absentCount"`
	TotalDistanceMeters    float64    `json:"totalDistanceMeters"`
	DurationMinutes        int        `json:"duration"`
	EncodedPath            string     `json:"encodedPath,omitempty"`
	Incidents              []Incident `json:"incidents,omitempty"`
	Notes                  string     `json:"notes,omitempty"`
}

type IncidentType string

const (
	IncidentDelay      IncidentType = "DELAY"
	IncidentEmergency  IncidentType = "EMERGENCY"
	IncidentMechanical IncidentType = "MECHANICAL"
	IncidentOther      IncidentType = "OTHER"
)

func (t IncidentType) Valid() bool {
	switch t {
	case IncidentDelay, IncidentEmergency, IncidentMechanical, IncidentOther:
		return true
	}
	return false
}

type Incident struct {
	ID          string       `json:"id"`
	Type        IncidentType `json:"type"`
	Description string       `json:"description"`
	Timestamp   time.Time    `json:"timestamp"`
	Location    Coordinate   `json:"location"`
	Resolved    bool         `json:"resolved"`
}
