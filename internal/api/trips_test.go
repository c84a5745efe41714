package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/md80av8r/propilot-core/internal/logbook"
	"github.com/md80av8r/propilot-core/internal/model"
)

type fakeTripStore struct {
	mu    sync.Mutex
	trips map[string]*model.Trip
	order []string
}

func newFakeTripStore() *fakeTripStore {
	return &fakeTripStore{trips: make(map[string]*model.Trip)}
}

func (s *fakeTripStore) GetTrip(ctx context.Context, id string) (*model.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trips[id], nil
}

func (s *fakeTripStore) ListTrips(ctx context.Context) ([]*model.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Trip, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.trips[id])
	}
	return out, nil
}

func (s *fakeTripStore) SaveTrip(ctx context.Context, trip *model.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[trip.ID]; !ok {
		s.order = append(s.order, trip.ID)
	}
	s.trips[trip.ID] = trip
	return nil
}

func newTestLogbook() *logbook.Service {
	return logbook.NewService(newFakeTripStore(), zap.NewNop().Sugar(), nil)
}

// tripRouter mounts the trip handlers the way the agent router does, so
// chi URL params resolve.
func tripRouter(svc *logbook.Service) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/trips", ListTripsHandler(svc))
	r.Post("/api/v1/trips", CreateTripHandler(svc))
	r.Get("/api/v1/trips/{trip_id}", GetTripHandler(svc))
	r.Post("/api/v1/trips/{trip_id}/legs", AddLegHandler(svc))
	r.Post("/api/v1/trips/{trip_id}/legs/{leg_index}/punch", PunchHandler(svc))
	r.Post("/api/v1/trips/{trip_id}/end", EndTripHandler(svc))
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeTrip(t *testing.T, rr *httptest.ResponseRecorder) *TripResponse {
	t.Helper()
	var resp APIResponse[TripResponse]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Data == nil {
		t.Fatalf("Expected data in response, got error %q", resp.Error)
	}
	return resp.Data
}

func TestCreateTripHandler(t *testing.T) {
	h := tripRouter(newTestLogbook())

	rr := doJSON(t, h, "POST", "/api/v1/trips", CreateTripRequest{
		TripNumber: "2204",
		Date:       "2026-03-10",
		Aircraft:   "MD-88",
		Crew:       []CrewMemberDTO{{Role: "CA", Name: "R. Holt"}},
		ReportTime: "900",
		Legs: []LegRequest{
			{Departure: "KDTW", Arrival: "KMCO"},
			{Departure: "KMCO", Arrival: "KDTW"},
		},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	trip := decodeTrip(t, rr)
	if trip.TripNumber != "2204" || trip.Status != "OPEN" {
		t.Errorf("Unexpected trip header: %+v", trip)
	}
	if trip.ReportTime != "0900" {
		t.Errorf("Expected report time normalized to 0900, got %s", trip.ReportTime)
	}
	if trip.ActiveLegIndex == nil || *trip.ActiveLegIndex != 0 {
		t.Errorf("Expected active leg 0, got %v", trip.ActiveLegIndex)
	}
	if len(trip.Legs) != 2 || trip.Legs[1].Status != "STANDBY" {
		t.Errorf("Unexpected legs: %+v", trip.Legs)
	}
}

func TestCreateTripHandlerValidation(t *testing.T) {
	h := tripRouter(newTestLogbook())

	cases := []struct {
		name string
		req  CreateTripRequest
	}{
		{"missing trip number", CreateTripRequest{Date: "2026-03-10", Legs: []LegRequest{{Departure: "KDTW", Arrival: "KMCO"}}}},
		{"bad date", CreateTripRequest{TripNumber: "1", Date: "03/10/2026", Legs: []LegRequest{{Departure: "KDTW", Arrival: "KMCO"}}}},
		{"no legs", CreateTripRequest{TripNumber: "1", Date: "2026-03-10"}},
		{"bad punch", CreateTripRequest{TripNumber: "1", Date: "2026-03-10", Legs: []LegRequest{{Departure: "KDTW", Arrival: "KMCO", OutTime: "2575"}}}},
		{"leg missing arrival", CreateTripRequest{TripNumber: "1", Date: "2026-03-10", Legs: []LegRequest{{Departure: "KDTW"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, h, "POST", "/api/v1/trips", tc.req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rr.Code)
			}
		})
	}
}

func TestPunchHandlerAdvancesLeg(t *testing.T) {
	svc := newTestLogbook()
	h := tripRouter(svc)

	created := decodeTrip(t, doJSON(t, h, "POST", "/api/v1/trips", CreateTripRequest{
		TripNumber: "2204",
		Date:       "2026-03-10",
		Legs: []LegRequest{
			{Departure: "KDTW", Arrival: "KMCO"},
			{Departure: "KMCO", Arrival: "KDTW"},
		},
	}))

	var last *TripResponse
	for _, p := range []PunchRequest{
		{Field: "OUT", Value: "1430"},
		{Field: "OFF", Value: "1440"},
		{Field: "ON", Value: "1650"},
		{Field: "IN", Value: "1700"},
	} {
		rr := doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/legs/0/punch", created.ID), p)
		if rr.Code != http.StatusOK {
			t.Fatalf("Punch %s failed with %d: %s", p.Field, rr.Code, rr.Body.String())
		}
		last = decodeTrip(t, rr)
	}

	if last.Legs[0].Status != "COMPLETED" {
		t.Errorf("Expected leg 0 completed, got %s", last.Legs[0].Status)
	}
	if last.ActiveLegIndex == nil || *last.ActiveLegIndex != 1 {
		t.Errorf("Expected advancement to leg 1, got %v", last.ActiveLegIndex)
	}
	if last.Legs[0].BlockMinutes != 150 {
		t.Errorf("Expected 150 block minutes, got %d", last.Legs[0].BlockMinutes)
	}
}

func TestPunchHandlerErrors(t *testing.T) {
	svc := newTestLogbook()
	h := tripRouter(svc)

	created := decodeTrip(t, doJSON(t, h, "POST", "/api/v1/trips", CreateTripRequest{
		TripNumber: "2204",
		Date:       "2026-03-10",
		Legs:       []LegRequest{{Departure: "KDTW", Arrival: "KMCO"}},
	}))

	if rr := doJSON(t, h, "POST", "/api/v1/trips/nope/legs/0/punch", PunchRequest{Field: "OUT", Value: "1430"}); rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown trip, got %d", rr.Code)
	}
	if rr := doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/legs/9/punch", created.ID), PunchRequest{Field: "OUT", Value: "1430"}); rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for leg out of range, got %d", rr.Code)
	}
	if rr := doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/legs/0/punch", created.ID), PunchRequest{Field: "UP", Value: "1430"}); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad field, got %d", rr.Code)
	}
	if rr := doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/legs/0/punch", created.ID), PunchRequest{Field: "OUT", Value: "2575"}); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid zulu, got %d", rr.Code)
	}
	if rr := doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/legs/abc/punch", created.ID), PunchRequest{Field: "OUT", Value: "1430"}); rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-numeric index, got %d", rr.Code)
	}
}

func TestEndTripHandler(t *testing.T) {
	svc := newTestLogbook()
	h := tripRouter(svc)

	created := decodeTrip(t, doJSON(t, h, "POST", "/api/v1/trips", CreateTripRequest{
		TripNumber: "2204",
		Date:       "2026-03-10",
		Legs:       []LegRequest{{Departure: "KDTW", Arrival: "KMCO"}},
	}))

	if rr := doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/end", created.ID), nil); rr.Code != http.StatusConflict {
		t.Fatalf("Expected 409 while a leg is active, got %d", rr.Code)
	}

	for _, p := range []PunchRequest{
		{Field: "OUT", Value: "1430"}, {Field: "OFF", Value: "1440"},
		{Field: "ON", Value: "1650"}, {Field: "IN", Value: "1700"},
	} {
		doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/legs/0/punch", created.ID), p)
	}

	rr := doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/end", created.ID), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 ending finished trip, got %d: %s", rr.Code, rr.Body.String())
	}
	if trip := decodeTrip(t, rr); trip.Status != "COMPLETED" {
		t.Errorf("Expected COMPLETED, got %s", trip.Status)
	}
}

func TestAddLegHandler(t *testing.T) {
	svc := newTestLogbook()
	h := tripRouter(svc)

	created := decodeTrip(t, doJSON(t, h, "POST", "/api/v1/trips", CreateTripRequest{
		TripNumber: "2204",
		Date:       "2026-03-10",
		Legs:       []LegRequest{{Departure: "KDTW", Arrival: "KMCO"}},
	}))

	rr := doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/legs", created.ID), LegRequest{Departure: "KMCO", Arrival: "KDTW", Logpage: 119})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	trip := decodeTrip(t, rr)
	if len(trip.Legs) != 2 {
		t.Fatalf("Expected 2 legs, got %d", len(trip.Legs))
	}
	if trip.Legs[1].Status != "STANDBY" || trip.Legs[1].Logpage != 119 {
		t.Errorf("Unexpected appended leg: %+v", trip.Legs[1])
	}
}

func TestListTripsHandlerStatusFilter(t *testing.T) {
	svc := newTestLogbook()
	h := tripRouter(svc)

	first := decodeTrip(t, doJSON(t, h, "POST", "/api/v1/trips", CreateTripRequest{
		TripNumber: "1",
		Date:       "2026-03-01",
		Legs:       []LegRequest{{Departure: "KDTW", Arrival: "KMCO", OutTime: "1430", OffTime: "1440", OnTime: "1650", InTime: "1700"}},
	}))
	doJSON(t, h, "POST", "/api/v1/trips", CreateTripRequest{
		TripNumber: "2",
		Date:       "2026-03-05",
		Legs:       []LegRequest{{Departure: "KDTW", Arrival: "KLAS"}},
	})

	// Sweep the pre-punched leg so trip 1 can be ended.
	doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/legs/0/punch", first.ID), PunchRequest{Field: "IN", Value: "1700"})
	doJSON(t, h, "POST", fmt.Sprintf("/api/v1/trips/%s/end", first.ID), nil)

	rr := doJSON(t, h, "GET", "/api/v1/trips?status=OPEN", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var resp APIResponse[[]TripResponse]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Data == nil || len(*resp.Data) != 1 {
		t.Fatalf("Expected 1 open trip, got %+v", resp.Data)
	}
	if (*resp.Data)[0].TripNumber != "2" {
		t.Errorf("Expected trip 2 open, got %s", (*resp.Data)[0].TripNumber)
	}
}

func TestGetTripHandlerNotFound(t *testing.T) {
	h := tripRouter(newTestLogbook())

	rr := doJSON(t, h, "GET", "/api/v1/trips/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
	var resp APIResponse[any]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "error" {
		t.Errorf("Expected status error, got %s", resp.Status)
	}
}
