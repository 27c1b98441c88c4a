package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StudentStatus is the closed set of roster states. Every student on a route
// holds exactly one of the four values at all times; anything else is rejected
// at the boundary where external data enters the system.
type StudentStatus string

const (
	StatusPending    StudentStatus = "PENDING"
	StatusPickedUp   StudentStatus = "PICKED_UP"
	StatusDroppedOff StudentStatus = "DROPPED_OFF"
	StatusAbsent     StudentStatus = "ABSENT"
)

// Valid reports whether the status is one of the four defined values.
func (s StudentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPickedUp, StatusDroppedOff, StatusAbsent:
		return true
	}
	return false
}

// Settled reports whether the status is terminal for the current leg. A
// settled student can never become pickup-eligible again.
func (s StudentStatus) Settled() bool {
	return s.Valid() && s != StatusPending
}

// ParseStudentStatus validates a raw status string from an external source.
func ParseStudentStatus(raw string) (StudentStatus, error) {
	s := StudentStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown student status %q", raw)
	}
	return s, nil
}

// UnmarshalJSON rejects unknown status strings so that malformed remote data
// fails at deserialization instead of deep inside aggregation logic.
func (s *StudentStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStudentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Student struct {
	ID                string             `json:"id"`
	FirstName         string             `json:"firstName"`
	LastName          string             `json:"lastName"`
	Grade             string             `json:"grade"`
	PhotoURL          string             `json:"photoUrl,omitempty"`
	Status            StudentStatus      `json:"status"`
	HomeAddress       Address            `json:"homeAddress"`
	PickupTime        string             `json:"pickupTime,omitempty"`
	DropoffTime       string             `json:"dropoffTime,omitempty"`
	SpecialNotes      string             `json:"specialNotes,omitempty"`
	Parent            ParentInfo         `json:"parent"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts,omitempty"`
}

// FullName returns the display name for roster views and notifications.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

type Address struct {
	Street      string     `json:"street"`
	City        string     `json:"city"`
	Coordinates Coordinate `json:"coordinates"`
	Landmark    string     `json:"landmark,omitempty"`
}

type ParentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email,omitempty"`
	Relation    string `json:"relation"`
}

type EmergencyContact struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Relation    string `json:"relation"`
}

// StudentPickupData is the metadata attached to a status transition when it
// is reported to the dispatch service.
type StudentPickupData struct {
	StudentID string        `json:"studentId"`
	Timestamp time.Time     `json:"timestamp"`
	Location  Coordinate    `json:"location"`
	Status    StudentStatus `json:"status"`
	Notes     string        `json:"notes,omitempty"`
}
