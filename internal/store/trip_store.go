package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/md80av8r/propilot-core/internal/logbook"
	"github.com/md80av8r/propilot-core/internal/metrics"
	"github.com/md80av8r/propilot-core/internal/model"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// punchFormatMigrationKey marks that legacy 3-digit punch values have
// been rewritten to 4-digit zulu. The rewrite runs exactly once; loads
// after that never touch stored values.
const punchFormatMigrationKey = "punch_format_migrated"

// TripStore persists trips through GORM. It satisfies
// logbook.TripStore.
type TripStore struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	metrics *metrics.MetricsRegistry
}

// NewTripStore migrates the schema, runs any pending one-shot data
// migrations, and returns the store.
func NewTripStore(db *gorm.DB, log *zap.SugaredLogger, reg *metrics.MetricsRegistry) (*TripStore, error) {
	if err := db.AutoMigrate(&TripRecord{}, &LegRecord{}, &SchemaMeta{}); err != nil {
		return nil, fmt.Errorf("failed to migrate trip schema: %w", err)
	}
	s := &TripStore{db: db, log: log, metrics: reg}
	if err := s.migratePunchFormat(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TripStore) observe(queryType string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.StoreQueriesTotal.WithLabelValues(queryType).Inc()
	s.metrics.StoreQueryDur.WithLabelValues(queryType).Observe(time.Since(started).Seconds())
}

// GetTrip returns the trip with legs in sequence order, or (nil, nil)
// when no such trip exists.
func (s *TripStore) GetTrip(ctx context.Context, id string) (*model.Trip, error) {
	defer s.observe("get", time.Now())

	var rec TripRecord
	err := s.db.WithContext(ctx).
		Preload("Legs", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch trip: %w", err)
	}
	return toModel(&rec)
}

// ListTrips returns all trips ordered oldest first.
func (s *TripStore) ListTrips(ctx context.Context) ([]*model.Trip, error) {
	defer s.observe("list", time.Now())

	var recs []TripRecord
	err := s.db.WithContext(ctx).
		Preload("Legs", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Order("date ASC, created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trips: %w", err)
	}

	trips := make([]*model.Trip, 0, len(recs))
	for i := range recs {
		trip, err := toModel(&recs[i])
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, nil
}

// SaveTrip upserts the trip. Legs are replaced wholesale so removals
// and reorders persist without diffing.
func (s *TripStore) SaveTrip(ctx context.Context, trip *model.Trip) error {
	defer s.observe("save", time.Now())

	rec, err := toRecord(trip)
	if err != nil {
		return err
	}
	legs := rec.Legs
	rec.Legs = nil

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("failed to save trip: %w", err)
		}
		if err := tx.Where("trip_id = ?", rec.ID).Delete(&LegRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear legs: %w", err)
		}
		if len(legs) > 0 {
			if err := tx.Create(&legs).Error; err != nil {
				return fmt.Errorf("failed to save legs: %w", err)
			}
		}
		return nil
	})
}

// DeleteTrip removes the trip and its legs.
func (s *TripStore) DeleteTrip(ctx context.Context, id string) error {
	defer s.observe("delete", time.Now())

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trip_id = ?", id).Delete(&LegRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete legs: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&TripRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete trip: %w", err)
		}
		return nil
	})
}

// migratePunchFormat left-pads stored 3-digit punch values to 4 digits.
// Guarded by a schema_meta marker so a value a user later types as
// 3 digits is normalized at entry, not silently rewritten on load.
func (s *TripStore) migratePunchFormat() error {
	var meta SchemaMeta
	err := s.db.Where("key = ?", punchFormatMigrationKey).First(&meta).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check migration marker: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var legs []LegRecord
		if err := tx.Find(&legs).Error; err != nil {
			return fmt.Errorf("failed to scan legs for punch migration: %w", err)
		}

		migrated := 0
		for i := range legs {
			leg := &legs[i]
			changed := false
			for _, f := range []*string{&leg.OutTime, &leg.OffTime, &leg.OnTime, &leg.InTime} {
				if *f == "" || len(*f) != 3 {
					continue
				}
				if v, ok := timeutil.NormalizeZulu(*f); ok && v != *f {
					*f = v
					changed = true
				}
			}
			if changed {
				if err := tx.Save(leg).Error; err != nil {
					return fmt.Errorf("failed to rewrite leg %s: %w", leg.ID, err)
				}
				migrated++
			}
		}

		if err := tx.Create(&SchemaMeta{Key: punchFormatMigrationKey, Value: "1"}).Error; err != nil {
			return fmt.Errorf("failed to write migration marker: %w", err)
		}
		if migrated > 0 {
			s.log.Infow("punch format migration complete", "legs_rewritten", migrated)
		}
		return nil
	})
}

var _ logbook.TripStore = (*TripStore)(nil)
