package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/md80av8r/propilot-core/internal/api"
	"github.com/md80av8r/propilot-core/internal/config"
	"github.com/md80av8r/propilot-core/internal/db"
	"github.com/md80av8r/propilot-core/internal/logging"
	"github.com/md80av8r/propilot-core/internal/metrics"
	"github.com/md80av8r/propilot-core/internal/routes"
	"github.com/md80av8r/propilot-core/internal/syncengine"
)

// Agent is the assembled phone-side process: the local HTTP API, the
// trip and airport databases, and the sync engine holding the watch
// session. One agent per data directory; a file lock enforces it.
type Agent struct {
	cfg       *config.Config
	deps      *api.Dependencies
	server    *http.Server
	transport syncengine.Transport
	tripDB    *gorm.DB
	airportDB *sqlx.DB
	lockFile  *flock.Flock
	upSince   time.Time
	wg        sync.WaitGroup
}

// New opens the databases, wires the services, and builds the HTTP
// server. Nothing is listening until Run.
func New(cfg *config.Config) (*Agent, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	a := &Agent{cfg: cfg, upSince: time.Now()}

	// Acquire lock to ensure single instance per data directory
	if err := a.acquireLock(); err != nil {
		return nil, err
	}

	tripDB, err := db.InitSQLiteORM(filepath.Join(cfg.Data.Dir, "trips.db"))
	if err != nil {
		a.releaseLock()
		return nil, fmt.Errorf("failed to open trip database: %w", err)
	}
	a.tripDB = tripDB

	airportDB, err := db.InitSQLite(filepath.Join(cfg.Data.Dir, "airports.db"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open airport database: %w", err)
	}
	a.airportDB = airportDB

	transport, err := newTransport(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to set up watch transport: %w", err)
	}
	a.transport = transport

	metricsReg := metrics.NewMetricsRegistry()

	deps, err := api.InitDependencies(cfg, tripDB, airportDB, transport, metricsReg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	a.deps = deps

	router := routes.RegisterRoutes(cfg, deps, metricsReg, a.upSince)

	// Setup metrics endpoint outside of Chi router
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router) // Mount Chi router at root
	logging.Info("Prometheus metrics endpoint registered at /metrics")

	a.server = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// newTransport picks the watch link. With a Redis address configured
// the counterpart is a separate process on the same broker; without one
// the agent runs standalone on an in-process loopback.
func newTransport(cfg *config.Config) (syncengine.Transport, error) {
	if cfg.Sync.RedisAddr != "" {
		return syncengine.NewRedisTransport(syncengine.RolePhone, syncengine.RedisTransportOptions{
			Addr:     cfg.Sync.RedisAddr,
			Password: cfg.Sync.RedisPassword,
			DB:       cfg.Sync.RedisDB,
			PairID:   cfg.Sync.PairID,
		})
	}
	phone, _ := syncengine.NewLoopbackPair()
	logging.Info("No Redis address configured, sync running on in-process loopback")
	return phone, nil
}

// Run serves HTTP and drives the sync engine until ctx is canceled or
// the listener fails.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.deps.Services.Engine.Run(ctx); err != nil {
			logging.Error("Sync engine stopped", "error", err.Error())
		}
	}()

	errCh := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logging.Info("Agent listening", "addr", a.cfg.Server.ListenAddr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		a.wg.Wait()
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP shutdown did not finish cleanly", "error", err.Error())
	}
	a.wg.Wait()
	return nil
}

// Deps exposes the wired services, mainly for tests and tooling.
func (a *Agent) Deps() *api.Dependencies { return a.deps }

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *Agent) acquireLock() error {
	lockPath := filepath.Join(a.cfg.Data.Dir, "propilot.lock")
	a.lockFile = flock.New(lockPath)

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return fmt.Errorf("another agent is already running on %s", a.cfg.Data.Dir)
	}

	return nil
}

// releaseLock releases the file lock
func (a *Agent) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Close cleans up agent resources
func (a *Agent) Close() error {
	var errs []error

	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close transport: %w", err))
		}
	}
	if a.airportDB != nil {
		if err := a.airportDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close airport database: %w", err))
		}
	}
	if a.tripDB != nil {
		if sqlDB, err := a.tripDB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close trip database: %w", err))
			}
		}
	}

	a.releaseLock()

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
