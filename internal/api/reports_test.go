package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/md80av8r/propilot-core/internal/airports"
	"github.com/md80av8r/propilot-core/internal/compliance"
	"github.com/md80av8r/propilot-core/internal/model"
	"github.com/md80av8r/propilot-core/internal/nightcalc"
	"github.com/md80av8r/propilot-core/internal/perdiem"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

type fakeDirectory struct {
	byCode map[string]*airports.Airport
}

func (f *fakeDirectory) Lookup(_ context.Context, code string) (*airports.Airport, error) {
	return f.byCode[code], nil
}

func testDirectory() *fakeDirectory {
	return &fakeDirectory{byCode: map[string]*airports.Airport{
		"KDTW": {ICAO: "KDTW", Latitude: 42.2124, Longitude: -83.3534, Timezone: "America/Detroit"},
		"KORD": {ICAO: "KORD", Latitude: 41.9742, Longitude: -87.9073, Timezone: "America/Chicago"},
	}}
}

func TestPerDiemReportHandler(t *testing.T) {
	svc := newTestLogbook()

	out := model.NewFlightLeg("KDTW", "KMCO")
	out.OutTime = "1000"
	back := model.NewFlightLeg("KMCO", "KDTW")
	back.InTime = "1800"
	trip := model.NewTrip("2204", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), out, back)
	if err := svc.CreateTrip(context.Background(), trip); err != nil {
		t.Fatalf("Failed to create trip: %v", err)
	}

	at := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	calc := perdiem.NewCalculator("KDTW", 2.40, timeutil.NewFakeClock(at), zap.NewNop().Sugar())
	handler := PerDiemReportHandler(svc, calc, func() time.Time { return at })

	rr := doJSON(t, handler, "GET", "/api/v1/perdiem", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp APIResponse[PerDiemReportResponse]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	rep := resp.Data
	if rep == nil {
		t.Fatalf("Expected data, got error %q", resp.Error)
	}

	if len(rep.Periods) != 1 {
		t.Fatalf("Expected 1 period, got %d", len(rep.Periods))
	}
	p := rep.Periods[0]
	if p.Minutes != 480 {
		t.Errorf("Expected 480 minutes away, got %d", p.Minutes)
	}
	if p.Ongoing {
		t.Error("Expected period to be closed")
	}
	if len(p.Trips) != 1 || p.Trips[0] != "2204" {
		t.Errorf("Expected trip 2204 in period, got %v", p.Trips)
	}
	if math.Abs(p.Dollars-19.20) > 0.001 {
		t.Errorf("Expected $19.20, got %.4f", p.Dollars)
	}

	if len(rep.Monthly) != 1 || rep.Monthly[0].Month != "2026-03" {
		t.Fatalf("Expected single 2026-03 month, got %+v", rep.Monthly)
	}
	if rep.Monthly[0].Minutes != 480 {
		t.Errorf("Expected 480 monthly minutes, got %d", rep.Monthly[0].Minutes)
	}
	if rep.TotalMinutes != 480 || math.Abs(rep.TotalDollars-19.20) > 0.001 {
		t.Errorf("Unexpected totals: %d min, $%.4f", rep.TotalMinutes, rep.TotalDollars)
	}
}

func TestPerDiemReportHandlerOngoingPeriod(t *testing.T) {
	svc := newTestLogbook()

	out := model.NewFlightLeg("KDTW", "KLAS")
	out.OutTime = "1000"
	trip := model.NewTrip("901", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), out)
	if err := svc.CreateTrip(context.Background(), trip); err != nil {
		t.Fatalf("Failed to create trip: %v", err)
	}

	// Still away: minutes accrue to the report instant.
	at := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	calc := perdiem.NewCalculator("KDTW", 2.40, timeutil.NewFakeClock(at), zap.NewNop().Sugar())
	handler := PerDiemReportHandler(svc, calc, func() time.Time { return at })

	rr := doJSON(t, handler, "GET", "/api/v1/perdiem", nil)
	var resp APIResponse[PerDiemReportResponse]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Data == nil || len(resp.Data.Periods) != 1 {
		t.Fatalf("Expected 1 period, got %+v", resp.Data)
	}
	p := resp.Data.Periods[0]
	if !p.Ongoing {
		t.Error("Expected period to be ongoing")
	}
	if p.Minutes != 360 {
		t.Errorf("Expected 360 minutes accrued, got %d", p.Minutes)
	}
}

func TestTripNightHandler(t *testing.T) {
	svc := newTestLogbook()

	day := model.NewFlightLeg("KDTW", "KORD")
	day.OutTime = "1500"
	day.InTime = "1700"
	pending := model.NewFlightLeg("KORD", "KDTW")
	trip := model.NewTrip("2204", time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC), day, pending)
	if err := svc.CreateTrip(context.Background(), trip); err != nil {
		t.Fatalf("Failed to create trip: %v", err)
	}

	calc := nightcalc.NewCalculator(testDirectory(), zap.NewNop().Sugar())
	r := chi.NewRouter()
	r.Get("/api/v1/trips/{trip_id}/night", TripNightHandler(svc, calc))

	rr := doJSON(t, r, "GET", "/api/v1/trips/"+trip.ID+"/night", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp APIResponse[TripNightResponse]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	night := resp.Data
	if night == nil || len(night.Legs) != 2 {
		t.Fatalf("Expected 2 legs, got %+v", night)
	}

	// Midday June flight in local daylight on both ends.
	if !night.Legs[0].Computed {
		t.Fatal("Expected punched leg to compute")
	}
	if night.Legs[0].NightMinutes != 0 {
		t.Errorf("Expected 0 night minutes, got %d", night.Legs[0].NightMinutes)
	}
	if night.Legs[0].BlockMinutes != 120 {
		t.Errorf("Expected 120 block minutes, got %d", night.Legs[0].BlockMinutes)
	}
	if night.Legs[0].Estimated {
		t.Error("Expected twilight-accurate result, not the estimate")
	}

	if night.Legs[1].Computed {
		t.Error("Expected unpunched leg to be skipped")
	}
	if night.TotalNightMinutes != 0 {
		t.Errorf("Expected 0 total night minutes, got %d", night.TotalNightMinutes)
	}

	if rr := doJSON(t, r, "GET", "/api/v1/trips/missing/night", nil); rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown trip, got %d", rr.Code)
	}
}

func TestComplianceHandler(t *testing.T) {
	svc := newTestLogbook()

	leg := model.NewFlightLeg("KDTW", "KMCO")
	leg.OutTime = "1400"
	leg.InTime = "1700"
	trip := model.NewTrip("2204", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), leg)
	if err := svc.CreateTrip(context.Background(), trip); err != nil {
		t.Fatalf("Failed to create trip: %v", err)
	}

	asOf := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	handler := ComplianceHandler(svc, compliance.NewChecker(zap.NewNop().Sugar()), func() time.Time { return asOf })

	rr := doJSON(t, handler, "GET", "/api/v1/compliance", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp APIResponse[compliance.Report]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	rep := resp.Data
	if rep == nil {
		t.Fatalf("Expected data, got error %q", resp.Error)
	}

	if !rep.AsOf.Equal(asOf) {
		t.Errorf("Expected as_of %v, got %v", asOf, rep.AsOf)
	}
	if rep.Flight672h.UsedMinutes != 180 {
		t.Errorf("Expected 180 flight minutes in 672h, got %d", rep.Flight672h.UsedMinutes)
	}
	if rep.Flight672h.RemainingMinutes != compliance.FlightLimit672hMinutes-180 {
		t.Errorf("Unexpected remaining: %d", rep.Flight672h.RemainingMinutes)
	}
	// No report or release times: duty falls back to first OUT / last IN.
	if rep.Duty168h.UsedMinutes != 180 {
		t.Errorf("Expected 180 duty minutes in 168h, got %d", rep.Duty168h.UsedMinutes)
	}
	if rep.Flight672h.Exceeded || rep.Duty168h.Exceeded {
		t.Error("Expected no limits exceeded")
	}
}
