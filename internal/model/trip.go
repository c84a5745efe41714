package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// TripStatus is the trip-level lifecycle. A trip stays open until the
// pilot explicitly ends it; completion of the last leg alone does not
// close a trip, since legs can still be appended.
type TripStatus string

const (
	TripStatusOpen      TripStatus = "OPEN"
	TripStatusCompleted TripStatus = "COMPLETED"
)

// CrewMember is a name plus seat role ("CA", "FO", "FA") as printed on
// the trip sheet.
type CrewMember struct {
	Role string
	Name string
}

// Trip is a multi-day pairing: ordered legs flattened across logpages,
// crew, and duty-day bounds. ReportTime and ReleaseTime are zulu HHMM
// strings like the leg punches.
type Trip struct {
	ID          string
	TripNumber  string
	Date        time.Time
	Aircraft    string
	Crew        []CrewMember
	ReportTime  string
	ReleaseTime string
	Legs        []*FlightLeg
	Status      TripStatus
}

// NewTrip creates an open trip. The first leg is activated immediately,
// any remaining legs start on standby.
func NewTrip(tripNumber string, date time.Time, legs ...*FlightLeg) *Trip {
	t := &Trip{
		ID:         uuid.New().String(),
		TripNumber: tripNumber,
		Date:       date,
		Legs:       legs,
		Status:     TripStatusOpen,
	}
	for i, leg := range t.Legs {
		if i == 0 {
			leg.Status = LegStatusActive
		} else {
			leg.Status = LegStatusStandby
		}
	}
	return t
}

// ActiveLegIndex returns the index of the active leg, false when no leg
// is active (all completed or trip not started).
func (t *Trip) ActiveLegIndex() (int, bool) {
	for i, leg := range t.Legs {
		if leg.Status == LegStatusActive {
			return i, true
		}
	}
	return 0, false
}

// BlockMinutes sums gate-to-gate minutes across all legs.
func (t *Trip) BlockMinutes() int {
	total := 0
	for _, leg := range t.Legs {
		total += leg.BlockMinutes()
	}
	return total
}

// FlightMinutes sums airborne minutes across all legs.
func (t *Trip) FlightMinutes() int {
	total := 0
	for _, leg := range t.Legs {
		total += leg.FlightMinutes()
	}
	return total
}

// ReportInstant resolves the trip report time against the trip date.
func (t *Trip) ReportInstant() (time.Time, bool) {
	return timeutil.ParseZulu(t.ReportTime, t.Date)
}

// ReleaseInstant resolves the trip release time. Release falls on the
// effective date of the last leg, not the trip date, since multi-day
// pairings release days after report.
func (t *Trip) ReleaseInstant() (time.Time, bool) {
	onDate := t.Date
	if n := len(t.Legs); n > 0 {
		onDate = t.Legs[n-1].EffectiveDate(t.Date)
	}
	rel, ok := timeutil.ParseZulu(t.ReleaseTime, onDate)
	if !ok {
		return time.Time{}, false
	}
	if n := len(t.Legs); n > 0 {
		if in, inOK := t.Legs[n-1].InInstant(t.Date); inOK && rel.Before(in) {
			rel = rel.AddDate(0, 0, 1)
		}
	}
	return rel, true
}

// DutyInterval is the duty period, report to release. Falls back to
// first OUT / last IN when the trip sheet times are missing.
func (t *Trip) DutyInterval() (time.Time, time.Time, bool) {
	start, ok := t.ReportInstant()
	if !ok {
		start, ok = t.firstOut()
	}
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	end, ok := t.ReleaseInstant()
	if !ok {
		end, ok = t.lastIn()
	}
	if !ok || end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// DutyMinutes is the duty period length; zero when nothing is
// resolvable.
func (t *Trip) DutyMinutes() int {
	start, end, ok := t.DutyInterval()
	if !ok {
		return 0
	}
	return int(end.Sub(start).Minutes())
}

func (t *Trip) firstOut() (time.Time, bool) {
	for _, leg := range t.Legs {
		if out, ok := leg.OutInstant(t.Date); ok {
			return out, true
		}
	}
	return time.Time{}, false
}

func (t *Trip) lastIn() (time.Time, bool) {
	for i := len(t.Legs) - 1; i >= 0; i-- {
		if in, ok := t.Legs[i].InInstant(t.Date); ok {
			return in, true
		}
	}
	return time.Time{}, false
}
