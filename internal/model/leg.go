package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// LegStatus tracks a leg through the advancement lifecycle. Exactly one
// leg per trip is active while the trip is underway.
type LegStatus string

const (
	LegStatusStandby   LegStatus = "STANDBY"
	LegStatusActive    LegStatus = "ACTIVE"
	LegStatusCompleted LegStatus = "COMPLETED"
)

// PunchField names one of the four OOOI times on a leg.
type PunchField string

const (
	PunchOut PunchField = "OUT"
	PunchOff PunchField = "OFF"
	PunchOn  PunchField = "ON"
	PunchIn  PunchField = "IN"
)

// FlightLeg is one flown segment. The four OOOI times are zulu HHMM
// strings, "" meaning not punched yet. FlightDate overrides the trip
// date for legs flown past zulu midnight; Logpage is the paper logpage
// the leg was transcribed from and is opaque to the engine.
type FlightLeg struct {
	ID         string
	Departure  string
	Arrival    string
	OutTime    string
	OffTime    string
	OnTime     string
	InTime     string
	FlightDate *time.Time
	Logpage    int
	Status     LegStatus
}

// NewFlightLeg returns a standby leg between two airports.
func NewFlightLeg(departure, arrival string) *FlightLeg {
	return &FlightLeg{
		ID:        uuid.New().String(),
		Departure: departure,
		Arrival:   arrival,
		Status:    LegStatusStandby,
	}
}

// Punch returns the value of the named OOOI field.
func (l *FlightLeg) Punch(field PunchField) string {
	switch field {
	case PunchOut:
		return l.OutTime
	case PunchOff:
		return l.OffTime
	case PunchOn:
		return l.OnTime
	case PunchIn:
		return l.InTime
	}
	return ""
}

// SetPunch writes the named OOOI field.
func (l *FlightLeg) SetPunch(field PunchField, value string) {
	switch field {
	case PunchOut:
		l.OutTime = value
	case PunchOff:
		l.OffTime = value
	case PunchOn:
		l.OnTime = value
	case PunchIn:
		l.InTime = value
	}
}

// IsComplete reports whether all four OOOI times hold valid zulu values.
func (l *FlightLeg) IsComplete() bool {
	return timeutil.IsValidZulu(l.OutTime) &&
		timeutil.IsValidZulu(l.OffTime) &&
		timeutil.IsValidZulu(l.OnTime) &&
		timeutil.IsValidZulu(l.InTime)
}

// EffectiveDate is the calendar date the leg's zulu times attach to: the
// leg's own FlightDate when set, otherwise the trip date.
func (l *FlightLeg) EffectiveDate(tripDate time.Time) time.Time {
	if l.FlightDate != nil {
		return *l.FlightDate
	}
	return tripDate
}

// elapsedMinutes computes end minus start in minutes from two zulu
// strings. An end numerically before the start means the leg crossed
// zulu midnight, so a day is added. Returns 0, false if either side is
// missing or invalid.
func elapsedMinutes(start, end string) (int, bool) {
	s, ok := timeutil.ZuluMinutes(start)
	if !ok {
		return 0, false
	}
	e, ok := timeutil.ZuluMinutes(end)
	if !ok {
		return 0, false
	}
	diff := e - s
	if diff < 0 {
		diff += 24 * 60
	}
	return diff, true
}

// BlockMinutes is OUT to IN, gate to gate. Zero when either punch is
// missing.
func (l *FlightLeg) BlockMinutes() int {
	m, ok := elapsedMinutes(l.OutTime, l.InTime)
	if !ok {
		return 0
	}
	return m
}

// FlightMinutes is OFF to ON, wheels up to wheels down. Zero when either
// punch is missing.
func (l *FlightLeg) FlightMinutes() int {
	m, ok := elapsedMinutes(l.OffTime, l.OnTime)
	if !ok {
		return 0
	}
	return m
}

// OutInstant resolves the OUT punch to a UTC instant on the leg's
// effective date.
func (l *FlightLeg) OutInstant(tripDate time.Time) (time.Time, bool) {
	return timeutil.ParseZulu(l.OutTime, l.EffectiveDate(tripDate))
}

// InInstant resolves the IN punch to a UTC instant on the leg's
// effective date. A leg that crossed zulu midnight lands on the next
// calendar day.
func (l *FlightLeg) InInstant(tripDate time.Time) (time.Time, bool) {
	in, ok := timeutil.ParseZulu(l.InTime, l.EffectiveDate(tripDate))
	if !ok {
		return time.Time{}, false
	}
	if out, outOK := l.OutInstant(tripDate); outOK && in.Before(out) {
		in = in.AddDate(0, 0, 1)
	}
	return in, true
}
