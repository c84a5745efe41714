package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/md80av8r/propilot-core/internal/db"
	"github.com/md80av8r/propilot-core/internal/logbook"
	"github.com/md80av8r/propilot-core/internal/model"
	"github.com/md80av8r/propilot-core/internal/syncengine"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// newSyncFixture builds a phone-role engine over one end of a loopback
// pair with a single active trip. The fake clock never advances, so no
// debounce timers fire during the test.
func newSyncFixture(t *testing.T) (*syncengine.Engine, *syncengine.LoopbackTransport, *logbook.Service) {
	t.Helper()

	clock := timeutil.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	phoneTr, _ := syncengine.NewLoopbackPair()
	svc := newTestLogbook()

	trip := model.NewTrip("2204", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		model.NewFlightLeg("KDTW", "KMCO"),
		model.NewFlightLeg("KMCO", "KDTW"))
	if err := svc.CreateTrip(context.Background(), trip); err != nil {
		t.Fatalf("Failed to create trip: %v", err)
	}

	engine := syncengine.NewEngine(syncengine.RolePhone, phoneTr, svc, clock,
		zap.NewNop().Sugar(), nil, syncengine.DefaultOptions())
	return engine, phoneTr, svc
}

func TestSyncStatusHandler(t *testing.T) {
	engine, _, _ := newSyncFixture(t)
	handler := SyncStatusHandler(engine)

	rr := doJSON(t, handler, "GET", "/api/v1/sync/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp APIResponse[SyncStatusResponse]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	st := resp.Data
	if st == nil {
		t.Fatalf("Expected data, got error %q", resp.Error)
	}

	if st.Role != "phone" {
		t.Errorf("Expected role phone, got %s", st.Role)
	}
	if !st.Paired || !st.Reachable {
		t.Errorf("Expected paired and reachable, got %+v", st)
	}
	if st.LocalLegIndex == nil || *st.LocalLegIndex != 0 {
		t.Errorf("Expected local leg 0, got %v", st.LocalLegIndex)
	}
	// No traffic yet: the counterpart state is unknown.
	if st.RemoteLegIndex != nil {
		t.Errorf("Expected no remote leg before traffic, got %v", st.RemoteLegIndex)
	}
	if st.LastSync != nil {
		t.Errorf("Expected no last sync before traffic, got %v", st.LastSync)
	}
}

func TestForceResyncHandler(t *testing.T) {
	engine, _, _ := newSyncFixture(t)
	handler := ForceResyncHandler(engine)

	rr := doJSON(t, handler, "POST", "/api/v1/sync/force", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp APIResponse[SyncStatusResponse]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	st := resp.Data
	if st == nil {
		t.Fatalf("Expected data, got error %q", resp.Error)
	}
	if st.LastSync == nil {
		t.Error("Expected last sync set after a forced push")
	}
	if st.OutOfSync {
		t.Error("Expected divergence cleared after a forced push")
	}
}

func TestForceResyncHandlerUnreachable(t *testing.T) {
	engine, tr, _ := newSyncFixture(t)
	tr.SetReachable(false)

	rr := doJSON(t, ForceResyncHandler(engine), "POST", "/api/v1/sync/force", nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rr.Code)
	}
	var resp APIResponse[any]
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "error" {
		t.Errorf("Expected status error, got %s", resp.Status)
	}
}

func TestHealthCheckHandler(t *testing.T) {
	dir := t.TempDir()
	tripDB, err := db.InitSQLiteORM(filepath.Join(dir, "trips.db"))
	if err != nil {
		t.Fatalf("Failed to open trip db: %v", err)
	}
	airportDB, err := db.InitSQLite(filepath.Join(dir, "airports.db"))
	if err != nil {
		t.Fatalf("Failed to open airport db: %v", err)
	}
	defer airportDB.Close()

	handler := HealthCheckHandler(tripDB, airportDB, time.Now().Add(-time.Minute))
	rr := doJSON(t, handler, "GET", "/healthCheck", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var resp HealthCheckResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Expected overall ok, got %s", resp.Status)
	}
	for _, name := range []string{"trips", "airports"} {
		if resp.Services[name].Status != "ok" {
			t.Errorf("Expected %s ok, got %+v", name, resp.Services[name])
		}
	}
}
