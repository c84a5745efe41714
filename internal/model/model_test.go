package model

import (
	"testing"
	"time"
)

func tripDate() time.Time {
	return time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
}

func completedLeg(dep, arr, out, off, on, in string) *FlightLeg {
	leg := NewFlightLeg(dep, arr)
	leg.OutTime = out
	leg.OffTime = off
	leg.OnTime = on
	leg.InTime = in
	leg.Status = LegStatusCompleted
	return leg
}

func TestNewTripActivatesFirstLeg(t *testing.T) {
	trip := NewTrip("T1234", tripDate(),
		NewFlightLeg("KDTW", "KORD"),
		NewFlightLeg("KORD", "KMCI"),
		NewFlightLeg("KMCI", "KDTW"),
	)

	if trip.Status != TripStatusOpen {
		t.Errorf("Expected OPEN trip, got %s", trip.Status)
	}
	if trip.Legs[0].Status != LegStatusActive {
		t.Errorf("Expected first leg ACTIVE, got %s", trip.Legs[0].Status)
	}
	for i := 1; i < 3; i++ {
		if trip.Legs[i].Status != LegStatusStandby {
			t.Errorf("Expected leg %d STANDBY, got %s", i, trip.Legs[i].Status)
		}
	}

	idx, ok := trip.ActiveLegIndex()
	if !ok || idx != 0 {
		t.Errorf("Expected active index 0, got %d (ok=%v)", idx, ok)
	}
}

func TestLegIsComplete(t *testing.T) {
	leg := NewFlightLeg("KDTW", "KORD")
	if leg.IsComplete() {
		t.Error("Expected fresh leg incomplete")
	}

	leg.OutTime = "1400"
	leg.OffTime = "1412"
	leg.OnTime = "1455"
	if leg.IsComplete() {
		t.Error("Expected leg without IN incomplete")
	}

	leg.InTime = "1502"
	if !leg.IsComplete() {
		t.Error("Expected fully punched leg complete")
	}

	// A malformed punch does not count as set.
	leg.OnTime = "2599"
	if leg.IsComplete() {
		t.Error("Expected leg with invalid ON incomplete")
	}
}

func TestBlockAndFlightMinutes(t *testing.T) {
	leg := completedLeg("KDTW", "KORD", "1400", "1412", "1455", "1502")

	if got := leg.BlockMinutes(); got != 62 {
		t.Errorf("Expected 62 block minutes, got %d", got)
	}
	if got := leg.FlightMinutes(); got != 43 {
		t.Errorf("Expected 43 flight minutes, got %d", got)
	}
}

func TestBlockMinutesZuluMidnightRollover(t *testing.T) {
	// Red-eye: OUT 2330Z, IN 0115Z next day.
	leg := completedLeg("KLAS", "KDTW", "2330", "2342", "0104", "0115")

	if got := leg.BlockMinutes(); got != 105 {
		t.Errorf("Expected 105 block minutes across midnight, got %d", got)
	}
	if got := leg.FlightMinutes(); got != 82 {
		t.Errorf("Expected 82 flight minutes across midnight, got %d", got)
	}
}

func TestBlockMinutesMissingPunch(t *testing.T) {
	leg := NewFlightLeg("KDTW", "KORD")
	leg.OutTime = "1400"

	if got := leg.BlockMinutes(); got != 0 {
		t.Errorf("Expected 0 for missing IN, got %d", got)
	}
}

func TestEffectiveDateOverride(t *testing.T) {
	leg := NewFlightLeg("KDTW", "KORD")

	if got := leg.EffectiveDate(tripDate()); !got.Equal(tripDate()) {
		t.Errorf("Expected trip date, got %v", got)
	}

	override := time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC)
	leg.FlightDate = &override
	if got := leg.EffectiveDate(tripDate()); !got.Equal(override) {
		t.Errorf("Expected override date, got %v", got)
	}
}

func TestInInstantCrossesMidnight(t *testing.T) {
	leg := completedLeg("KLAS", "KDTW", "2330", "2342", "0104", "0115")

	in, ok := leg.InInstant(tripDate())
	if !ok {
		t.Fatal("Expected IN instant to resolve")
	}
	want := time.Date(2025, 4, 11, 1, 15, 0, 0, time.UTC)
	if !in.Equal(want) {
		t.Errorf("Expected %v, got %v", want, in)
	}
}

func TestTripTotals(t *testing.T) {
	trip := NewTrip("T1234", tripDate(),
		completedLeg("KDTW", "KORD", "1400", "1412", "1455", "1502"),
		completedLeg("KORD", "KMCI", "1600", "1611", "1702", "1710"),
	)

	if got := trip.BlockMinutes(); got != 62+70 {
		t.Errorf("Expected %d block minutes, got %d", 62+70, got)
	}
	if got := trip.FlightMinutes(); got != 43+51 {
		t.Errorf("Expected %d flight minutes, got %d", 43+51, got)
	}
}

func TestDutyMinutesWithReportAndRelease(t *testing.T) {
	trip := NewTrip("T1234", tripDate(),
		completedLeg("KDTW", "KORD", "1400", "1412", "1455", "1502"),
	)
	trip.ReportTime = "1300"
	trip.ReleaseTime = "1545"

	if got := trip.DutyMinutes(); got != 165 {
		t.Errorf("Expected 165 duty minutes, got %d", got)
	}
}

func TestDutyMinutesFallsBackToPunches(t *testing.T) {
	trip := NewTrip("T1234", tripDate(),
		completedLeg("KDTW", "KORD", "1400", "1412", "1455", "1502"),
		completedLeg("KORD", "KMCI", "1600", "1611", "1702", "1710"),
	)

	// No report/release on the sheet: first OUT to last IN.
	if got := trip.DutyMinutes(); got != 190 {
		t.Errorf("Expected 190 duty minutes, got %d", got)
	}
}

func TestReleaseInstantOnMultiDayTrip(t *testing.T) {
	day3 := time.Date(2025, 4, 12, 0, 0, 0, 0, time.UTC)
	last := completedLeg("KMCI", "KDTW", "2100", "2112", "2240", "2251")
	last.FlightDate = &day3

	trip := NewTrip("T1234", tripDate(),
		completedLeg("KDTW", "KORD", "1400", "1412", "1455", "1502"),
		last,
	)
	trip.ReleaseTime = "2315"

	rel, ok := trip.ReleaseInstant()
	if !ok {
		t.Fatal("Expected release instant to resolve")
	}
	want := time.Date(2025, 4, 12, 23, 15, 0, 0, time.UTC)
	if !rel.Equal(want) {
		t.Errorf("Expected %v, got %v", want, rel)
	}
}
