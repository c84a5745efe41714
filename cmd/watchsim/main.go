package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/md80av8r/propilot-core/internal/api"
	"github.com/md80av8r/propilot-core/internal/config"
	"github.com/md80av8r/propilot-core/internal/db"
	"github.com/md80av8r/propilot-core/internal/logbook"
	"github.com/md80av8r/propilot-core/internal/logging"
	"github.com/md80av8r/propilot-core/internal/metrics"
	"github.com/md80av8r/propilot-core/internal/model"
	"github.com/md80av8r/propilot-core/internal/store"
	"github.com/md80av8r/propilot-core/internal/syncengine"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// Watch Simulator
// Runs the watch side of the sync pair over Redis against a live agent.
// Keeps its own trip store so authoritative snapshots have somewhere to
// land, and relays punches typed on stdin to the phone.
func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	if cfg.Sync.RedisAddr == "" {
		log.Fatal("❌ PROPILOT_REDIS_ADDR must be set; the simulator talks to the agent over Redis")
	}

	if err := logging.Init(cfg.Env); err != nil {
		log.Fatalf("❌ Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	// Phone agent API, used by the mirror command to seed local trips
	phoneAPI := os.Getenv("PROPILOT_PHONE_API")
	if phoneAPI == "" {
		phoneAPI = "http://localhost:8080"
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		log.Fatalf("❌ Failed to create data directory: %v", err)
	}
	watchDB, err := db.InitSQLiteORM(filepath.Join(cfg.Data.Dir, "watch.db"))
	if err != nil {
		log.Fatalf("❌ Failed to open watch database: %v", err)
	}

	metricsReg := metrics.NewMetricsRegistry()
	tripStore, err := store.NewTripStore(watchDB, logging.WithComponent("watchsim"), metricsReg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize watch store: %v", err)
	}
	svc := logbook.NewService(tripStore, logging.WithComponent("watchsim"), metricsReg)

	transport, err := syncengine.NewRedisTransport(syncengine.RoleWatch, syncengine.RedisTransportOptions{
		Addr:     cfg.Sync.RedisAddr,
		Password: cfg.Sync.RedisPassword,
		DB:       cfg.Sync.RedisDB,
		PairID:   cfg.Sync.PairID,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect watch transport: %v", err)
	}
	defer transport.Close()

	engine := syncengine.NewEngine(syncengine.RoleWatch, transport, svc, timeutil.SystemClock{},
		logging.WithComponent("watchsim"), metricsReg, syncengine.Options{
			DebounceDelay:  cfg.Sync.DebounceDelay,
			ReportInterval: cfg.Sync.ReportInterval,
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	log.Println("⌚ Watch simulator connected, pair " + cfg.Sync.PairID)
	log.Println("Commands: state | mirror | punch <FIELD> <HHMM> | force | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "state":
			printState(engine.State())
		case "mirror":
			if err := mirrorTrips(ctx, phoneAPI, svc); err != nil {
				log.Printf("❌ Mirror failed: %v", err)
			}
		case "punch":
			if len(fields) != 3 {
				log.Println("Usage: punch <OUT|OFF|ON|IN> <HHMM>")
				continue
			}
			sendPunch(ctx, engine, strings.ToUpper(fields[1]), fields[2])
		case "force":
			if err := engine.ForceResync(ctx); err != nil {
				log.Printf("❌ Force resync failed: %v", err)
			} else {
				log.Println("✅ State re-announced")
			}
		case "quit", "exit":
			return
		default:
			log.Printf("Unknown command %q", fields[0])
		}
	}
}

func printState(st syncengine.State) {
	log.Printf("role=%s paired=%v reachable=%v out_of_sync=%v", st.Role, st.Paired, st.Reachable, st.OutOfSync)
	if st.LocalHasActive {
		log.Printf("local: trip=%s leg=%d", st.LocalTripID, st.LocalLegIndex)
	} else {
		log.Println("local: no active leg")
	}
	if st.RemoteKnown {
		log.Printf("phone: leg=%d", st.RemoteLegIndex)
	}
	if !st.LastSync.IsZero() {
		log.Printf("last sync: %s", st.LastSync.Format(time.RFC3339))
	}
}

func sendPunch(ctx context.Context, engine *syncengine.Engine, field, value string) {
	st := engine.State()
	if !st.LocalHasActive {
		log.Println("❌ No active leg; run mirror first or wait for a snapshot")
		return
	}
	if err := engine.SendPunch(ctx, st.LocalTripID, st.LocalLegIndex, model.PunchField(field), value); err != nil {
		log.Printf("❌ Punch not relayed: %v", err)
		return
	}
	log.Printf("✅ Relayed %s %s on leg %d", field, value, st.LocalLegIndex)
}

// mirrorTrips pulls the agent's open trips over its HTTP API and saves
// them locally. The real watch receives this via the pairing transfer;
// the simulator fetches it on demand.
func mirrorTrips(ctx context.Context, baseURL string, svc *logbook.Service) error {
	reqCtx, cancelReq := context.WithTimeout(ctx, 10*time.Second)
	defer cancelReq()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL+"/api/v1/trips?status=OPEN", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("agent returned %s", resp.Status)
	}

	var envelope api.APIResponse[[]api.TripResponse]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if envelope.Data == nil {
		return fmt.Errorf("agent returned no data: %s", envelope.Error)
	}

	mirrored := 0
	for _, tr := range *envelope.Data {
		trip, err := tripFromResponse(tr)
		if err != nil {
			return err
		}
		if err := svc.CreateTrip(ctx, trip); err != nil {
			return err
		}
		mirrored++
	}
	log.Printf("✅ Mirrored %d open trip(s)", mirrored)
	return nil
}

func tripFromResponse(tr api.TripResponse) (*model.Trip, error) {
	date, err := time.Parse("2006-01-02", tr.Date)
	if err != nil {
		return nil, fmt.Errorf("bad trip date %q: %w", tr.Date, err)
	}
	trip := &model.Trip{
		ID:          tr.ID,
		TripNumber:  tr.TripNumber,
		Date:        date,
		Aircraft:    tr.Aircraft,
		ReportTime:  tr.ReportTime,
		ReleaseTime: tr.ReleaseTime,
		Status:      model.TripStatus(tr.Status),
	}
	for _, c := range tr.Crew {
		trip.Crew = append(trip.Crew, model.CrewMember{Role: c.Role, Name: c.Name})
	}
	for _, lr := range tr.Legs {
		leg := &model.FlightLeg{
			ID:        lr.ID,
			Departure: lr.Departure,
			Arrival:   lr.Arrival,
			OutTime:   lr.OutTime,
			OffTime:   lr.OffTime,
			OnTime:    lr.OnTime,
			InTime:    lr.InTime,
			Logpage:   lr.Logpage,
			Status:    model.LegStatus(lr.Status),
		}
		if lr.FlightDate != nil {
			d, err := time.Parse("2006-01-02", *lr.FlightDate)
			if err != nil {
				return nil, fmt.Errorf("bad flight date %q: %w", *lr.FlightDate, err)
			}
			leg.FlightDate = &d
		}
		trip.Legs = append(trip.Legs, leg)
	}
	return trip, nil
}
