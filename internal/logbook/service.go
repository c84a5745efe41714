package logbook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/md80av8r/propilot-core/internal/metrics"
	"github.com/md80av8r/propilot-core/internal/model"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

var (
	ErrTripNotFound  = errors.New("trip not found")
	ErrTripCompleted = errors.New("trip already completed")
	ErrLegIndex      = errors.New("leg index out of range")
	ErrInvalidPunch  = errors.New("invalid zulu time")
	ErrActiveLeg     = errors.New("trip still has an active leg")
)

// TripStore persists trips. GetTrip returns (nil, nil) when the id is
// unknown.
type TripStore interface {
	GetTrip(ctx context.Context, id string) (*model.Trip, error)
	ListTrips(ctx context.Context) ([]*model.Trip, error)
	SaveTrip(ctx context.Context, trip *model.Trip) error
}

// Service is the advancement engine. It owns every trip mutation on
// this device: punches, leg activation, trip close-out, and the
// authoritative snapshots arriving from the peer all funnel through it,
// one at a time, under a single lock.
type Service struct {
	store   TripStore
	log     *zap.SugaredLogger
	metrics *metrics.MetricsRegistry

	mu        sync.Mutex
	listeners []Listener
}

func NewService(store TripStore, log *zap.SugaredLogger, reg *metrics.MetricsRegistry) *Service {
	return &Service{
		store:   store,
		log:     log,
		metrics: reg,
	}
}

// Subscribe registers a listener for engine events. Not safe to call
// concurrently with mutations; wire listeners during assembly.
func (s *Service) Subscribe(fn Listener) {
	s.listeners = append(s.listeners, fn)
}

func (s *Service) emit(events []Event) {
	for _, ev := range events {
		for _, fn := range s.listeners {
			fn(ev)
		}
	}
}

// CreateTrip persists a new trip. Leg statuses are derived fresh: first
// leg active, the rest standby.
func (s *Service) CreateTrip(ctx context.Context, trip *model.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, leg := range trip.Legs {
		if i == 0 {
			leg.Status = model.LegStatusActive
		} else {
			leg.Status = model.LegStatusStandby
		}
	}
	trip.Status = model.TripStatusOpen

	if err := s.store.SaveTrip(ctx, trip); err != nil {
		return fmt.Errorf("create trip: %w", err)
	}
	s.log.Infow("trip created", "trip_id", trip.ID, "trip_number", trip.TripNumber, "legs", len(trip.Legs))
	return nil
}

// GetTrip loads one trip, repairing the active-leg invariant if a bad
// write left more than one leg active.
func (s *Service) GetTrip(ctx context.Context, id string) (*model.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTrip(ctx, id)
}

// ListTrips returns all trips ordered by trip date.
func (s *Service) ListTrips(ctx context.Context) ([]*model.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trips, err := s.store.ListTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	for _, trip := range trips {
		if s.repairActiveInvariant(trip) {
			if err := s.store.SaveTrip(ctx, trip); err != nil {
				return nil, fmt.Errorf("save repaired trip: %w", err)
			}
		}
	}
	return trips, nil
}

// ApplyPunch writes one OOOI time and runs the advancement evaluation.
// The punch and any resulting status changes land in the store as one
// save. An empty value clears the field.
func (s *Service) ApplyPunch(ctx context.Context, tripID string, legIndex int, field model.PunchField, value string) (*model.Trip, error) {
	normalized := ""
	if value != "" {
		var ok bool
		normalized, ok = timeutil.NormalizeZulu(value)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPunch, value)
		}
	}

	s.mu.Lock()
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if legIndex < 0 || legIndex >= len(trip.Legs) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrLegIndex, legIndex)
	}

	trip.Legs[legIndex].SetPunch(field, normalized)
	events := []Event{{Kind: EventLegPunched, TripID: trip.ID, LegIndex: legIndex, Field: field}}
	events = append(events, s.reevaluate(trip, legIndex)...)

	if err := s.store.SaveTrip(ctx, trip); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("save punch: %w", err)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.PunchesTotal.WithLabelValues(string(field)).Inc()
	}
	s.emit(events)
	return trip, nil
}

// AddLeg appends a leg to an open trip. When the trip has no active leg
// (fresh trip, or all legs already flown) the new leg activates
// immediately; otherwise it waits on standby.
func (s *Service) AddLeg(ctx context.Context, tripID string, leg *model.FlightLeg) (*model.Trip, error) {
	s.mu.Lock()
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if trip.Status == model.TripStatusCompleted {
		s.mu.Unlock()
		return nil, ErrTripCompleted
	}

	var events []Event
	if _, hasActive := trip.ActiveLegIndex(); hasActive {
		leg.Status = model.LegStatusStandby
	} else {
		leg.Status = model.LegStatusActive
		events = append(events, Event{Kind: EventLegActivated, TripID: trip.ID, LegIndex: len(trip.Legs)})
	}
	trip.Legs = append(trip.Legs, leg)

	if err := s.store.SaveTrip(ctx, trip); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("save leg: %w", err)
	}
	s.mu.Unlock()

	s.log.Infow("leg added", "trip_id", trip.ID, "leg", leg.Departure+"-"+leg.Arrival, "status", leg.Status)
	s.emit(events)
	return trip, nil
}

// EndTrip closes a trip. Refused while a leg is still active; finish or
// clear the leg first.
func (s *Service) EndTrip(ctx context.Context, tripID string) (*model.Trip, error) {
	s.mu.Lock()
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if _, hasActive := trip.ActiveLegIndex(); hasActive {
		s.mu.Unlock()
		return nil, ErrActiveLeg
	}
	if trip.Status == model.TripStatusCompleted {
		s.mu.Unlock()
		return trip, nil
	}

	trip.Status = model.TripStatusCompleted
	if err := s.store.SaveTrip(ctx, trip); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("save trip end: %w", err)
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.TripsEndedTotal.Inc()
	}
	s.emit([]Event{{Kind: EventTripEnded, TripID: trip.ID}})
	return trip, nil
}

// ApplyAuthoritativeSnapshot overwrites one leg's OOOI times with the
// peer's authoritative copy and re-derives every leg status from the
// snapshot index: earlier legs completed, the snapshot leg active,
// later legs standby. Applying the same snapshot twice is a no-op.
func (s *Service) ApplyAuthoritativeSnapshot(ctx context.Context, tripID string, legIndex int, out, off, on, in string) (*model.Trip, error) {
	s.mu.Lock()
	trip, err := s.loadTrip(ctx, tripID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if legIndex < 0 || legIndex >= len(trip.Legs) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrLegIndex, legIndex)
	}

	leg := trip.Legs[legIndex]
	leg.OutTime = out
	leg.OffTime = off
	leg.OnTime = on
	leg.InTime = in

	for i, l := range trip.Legs {
		switch {
		case i < legIndex:
			l.Status = model.LegStatusCompleted
		case i == legIndex:
			l.Status = model.LegStatusActive
		default:
			l.Status = model.LegStatusStandby
		}
	}
	trip.Status = model.TripStatusOpen

	if err := s.store.SaveTrip(ctx, trip); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	s.mu.Unlock()

	s.log.Infow("authoritative snapshot applied", "trip_id", tripID, "leg_index", legIndex)
	s.emit([]Event{{Kind: EventLegActivated, TripID: tripID, LegIndex: legIndex}})
	return trip, nil
}

// CurrentState reports the trip and leg the device considers active:
// the most recent open trip that has an active leg. ok is false when
// nothing is underway.
func (s *Service) CurrentState(ctx context.Context) (tripID string, legIndex int, ok bool, err error) {
	trips, err := s.ListTrips(ctx)
	if err != nil {
		return "", 0, false, err
	}
	for i := len(trips) - 1; i >= 0; i-- {
		trip := trips[i]
		if trip.Status != model.TripStatusOpen {
			continue
		}
		if idx, hasActive := trip.ActiveLegIndex(); hasActive {
			return trip.ID, idx, true, nil
		}
	}
	return "", 0, false, nil
}

// loadTrip fetches and self-heals one trip. Callers hold s.mu.
func (s *Service) loadTrip(ctx context.Context, id string) (*model.Trip, error) {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load trip %s: %w", id, err)
	}
	if trip == nil {
		return nil, fmt.Errorf("%w: %s", ErrTripNotFound, id)
	}
	if s.repairActiveInvariant(trip) {
		if err := s.store.SaveTrip(ctx, trip); err != nil {
			return nil, fmt.Errorf("save repaired trip: %w", err)
		}
	}
	return trip, nil
}

// repairActiveInvariant enforces at most one active leg per trip. The
// first active leg wins, later ones demote to standby. Returns true
// when a repair happened.
func (s *Service) repairActiveInvariant(trip *model.Trip) bool {
	seen := false
	repaired := false
	for i, leg := range trip.Legs {
		if leg.Status != model.LegStatusActive {
			continue
		}
		if !seen {
			seen = true
			continue
		}
		leg.Status = model.LegStatusStandby
		repaired = true
		s.log.Warnw("demoted duplicate active leg", "trip_id", trip.ID, "leg_index", i)
	}
	if repaired && s.metrics != nil {
		s.metrics.InvariantRepairsTotal.Inc()
	}
	return repaired
}

// reevaluate runs the advancement rules after a punch on legs[edited].
// Advancement only ever moves forward: a completed punch set on the
// active leg (or on the leg immediately before it, which can unblock
// it) completes that leg and activates the next one. Edits two or more
// legs behind the active leg are historical corrections and never move
// the pointer. Callers hold s.mu.
func (s *Service) reevaluate(trip *model.Trip, edited int) []Event {
	s.repairActiveInvariant(trip)

	if !trip.Legs[edited].IsComplete() {
		return nil
	}

	ai, hasActive := trip.ActiveLegIndex()
	if !hasActive {
		// Completed trip or exhausted legs: historical edit only.
		return nil
	}
	if edited > ai {
		// Pre-filling a future leg does not activate it.
		return nil
	}
	if edited < ai-1 {
		return nil
	}
	return s.advanceFrom(trip, ai)
}

// advanceFrom completes legs starting at index i for as long as they
// are fully punched, then activates the first unfinished leg. Runs off
// the end when every leg is flown, leaving the trip with no active leg.
func (s *Service) advanceFrom(trip *model.Trip, i int) []Event {
	var events []Event
	for i < len(trip.Legs) && trip.Legs[i].IsComplete() {
		trip.Legs[i].Status = model.LegStatusCompleted
		events = append(events, Event{Kind: EventLegAdvanced, TripID: trip.ID, LegIndex: i})
		if s.metrics != nil {
			s.metrics.LegAdvancementsTotal.Inc()
		}
		i++
	}
	if i < len(trip.Legs) {
		trip.Legs[i].Status = model.LegStatusActive
		events = append(events, Event{Kind: EventLegActivated, TripID: trip.ID, LegIndex: i})
		s.log.Infow("leg activated", "trip_id", trip.ID, "leg_index", i)
	} else if len(events) > 0 {
		events = append(events, Event{Kind: EventTripExhausted, TripID: trip.ID})
		s.log.Infow("all legs flown", "trip_id", trip.ID)
	}
	return events
}
