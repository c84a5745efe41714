package api

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"github.com/md80av8r/propilot-core/internal/airports"
	"github.com/md80av8r/propilot-core/internal/compliance"
	"github.com/md80av8r/propilot-core/internal/config"
	"github.com/md80av8r/propilot-core/internal/logbook"
	"github.com/md80av8r/propilot-core/internal/logging"
	"github.com/md80av8r/propilot-core/internal/metrics"
	"github.com/md80av8r/propilot-core/internal/nightcalc"
	"github.com/md80av8r/propilot-core/internal/perdiem"
	"github.com/md80av8r/propilot-core/internal/store"
	"github.com/md80av8r/propilot-core/internal/syncengine"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// airportCacheTTL bounds how long directory rows live in memory. The
// dataset changes only on re-import, so hits are cheap to keep around.
const airportCacheTTL = 6 * time.Hour

type Services struct {
	Logbook    *logbook.Service
	Engine     *syncengine.Engine
	PerDiem    *perdiem.Calculator
	Night      *nightcalc.Calculator
	Compliance *compliance.Checker
	Airports   airports.Directory
	Loader     *airports.LoaderService
}

type Dependencies struct {
	Services  *Services
	TripDB    *gorm.DB
	AirportDB *sqlx.DB
	Now       func() time.Time
}

// InitDependencies wires the stores and domain services onto the open
// database handles. The transport decides whether the sync counterpart
// is in-process or across Redis; the caller picks it.
func InitDependencies(cfg *config.Config, tripDB *gorm.DB, airportDB *sqlx.DB, transport syncengine.Transport, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {
	clock := timeutil.SystemClock{}

	sqlDir := airports.NewSQLDirectory(airportDB)
	if err := sqlDir.EnsureSchema(context.Background()); err != nil {
		return nil, err
	}
	cachedDir := airports.NewCachedDirectory(sqlDir, airportCacheTTL, metricsReg)

	tripStore, err := store.NewTripStore(tripDB, logging.WithComponent("store"), metricsReg)
	if err != nil {
		return nil, err
	}
	logbookSvc := logbook.NewService(tripStore, logging.WithComponent("logbook"), metricsReg)

	engine := syncengine.NewEngine(
		syncengine.RolePhone,
		transport,
		logbookSvc,
		clock,
		logging.WithComponent("sync"),
		metricsReg,
		syncengine.Options{
			DebounceDelay:  cfg.Sync.DebounceDelay,
			ReportInterval: cfg.Sync.ReportInterval,
		},
	)

	services := &Services{
		Logbook:    logbookSvc,
		Engine:     engine,
		PerDiem:    perdiem.NewCalculator(cfg.PerDiem.HomeBase, cfg.PerDiem.HourlyRate, clock, logging.WithComponent("perdiem")),
		Night:      nightcalc.NewCalculator(cachedDir, logging.WithComponent("nightcalc")),
		Compliance: compliance.NewChecker(logging.WithComponent("compliance")),
		Airports:   cachedDir,
		Loader:     airports.NewLoaderService(sqlDir),
	}

	return &Dependencies{
		Services:  services,
		TripDB:    tripDB,
		AirportDB: airportDB,
		Now:       clock.Now,
	}, nil
}
