package syncengine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/md80av8r/propilot-core/internal/logbook"
	"github.com/md80av8r/propilot-core/internal/metrics"
	"github.com/md80av8r/propilot-core/internal/model"
	"github.com/md80av8r/propilot-core/internal/timeutil"
)

// Role is which side of the pairing this engine runs on. The phone is
// authoritative: only it pushes leg snapshots, and only it applies
// punches to the record.
type Role string

const (
	RolePhone Role = "phone"
	RoleWatch Role = "watch"
)

// State is the session view exposed to the UI layer.
type State struct {
	Role           Role
	Paired         bool
	Reachable      bool
	LastSync       time.Time
	OutOfSync      bool
	LocalTripID    string
	LocalLegIndex  int
	LocalHasActive bool
	RemoteLegIndex int
	RemoteKnown    bool
}

// Engine mirrors active-leg state between the paired devices. All
// transport callbacks funnel into one debounced evaluation; divergence
// resolves by the phone re-pushing its authoritative snapshot, never
// by merging.
type Engine struct {
	role    Role
	tr      Transport
	logbook *logbook.Service
	clock   timeutil.Clock
	log     *zap.SugaredLogger
	metrics *metrics.MetricsRegistry

	debouncer *Debouncer
	reporter  *StateReporter

	mu              sync.Mutex
	ctx             context.Context
	remoteTripID    string
	remoteIndex     int
	remoteHasActive bool
	remoteKnown     bool
	outOfSync       bool
	lastSync        time.Time
	pendingPush     bool
}

// Options carries the engine timing knobs.
type Options struct {
	DebounceDelay  time.Duration
	ReportInterval time.Duration
}

// DefaultOptions matches the tuned production values: half a second of
// settle time for callback bursts, two seconds between state reports.
func DefaultOptions() Options {
	return Options{
		DebounceDelay:  500 * time.Millisecond,
		ReportInterval: 2 * time.Second,
	}
}

func NewEngine(role Role, tr Transport, svc *logbook.Service, clock timeutil.Clock, log *zap.SugaredLogger, reg *metrics.MetricsRegistry, opts Options) *Engine {
	e := &Engine{
		role:    role,
		tr:      tr,
		logbook: svc,
		clock:   clock,
		log:     log,
		metrics: reg,
		ctx:     context.Background(),
	}
	e.debouncer = NewDebouncer(clock, opts.DebounceDelay, e.evaluate)
	e.reporter = NewStateReporter(opts.ReportInterval, clock, e.sendStateReport)

	tr.OnMessage(e.handleMessage)
	tr.OnReachabilityChanged(func(bool) { e.TriggerEvaluation() })
	tr.OnSessionStateChanged(func() { e.TriggerEvaluation() })
	svc.Subscribe(func(logbook.Event) { e.TriggerEvaluation() })

	// Announce local state once at startup so a freshly paired peer
	// learns our position without waiting for the first punch.
	e.TriggerEvaluation()
	return e
}

// Run parks until ctx is canceled, then stops the debounce timer.
// Evaluations scheduled while running use ctx.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()

	<-ctx.Done()
	e.debouncer.Stop()
	e.mu.Lock()
	e.ctx = context.Background()
	e.mu.Unlock()
	return nil
}

// TriggerEvaluation schedules a debounced evaluation. Safe to call from
// any goroutine, any number of times; bursts coalesce.
func (e *Engine) TriggerEvaluation() {
	if !e.debouncer.Trigger() {
		if e.metrics != nil {
			e.metrics.SyncTriggersCoalesced.Inc()
		}
	}
}

// ForceResync retransmits state unconditionally: the phone pushes its
// complete current-leg snapshot, the watch re-announces its state.
// Idempotent; repeating it without intervening changes has no
// observable effect on the receiver.
func (e *Engine) ForceResync(ctx context.Context) error {
	e.reporter.Reset()
	if e.role == RolePhone {
		return e.pushSnapshot(ctx, "force")
	}
	return e.sendCurrentReport(ctx)
}

// SendPunch relays a watch-side punch to the phone. The watch never
// applies punches locally; the phone's advancement engine is the only
// writer and its state flows back as snapshots.
func (e *Engine) SendPunch(ctx context.Context, tripID string, legIndex int, field model.PunchField, value string) error {
	if !e.tr.Reachable() {
		return ErrUnreachable
	}
	msg := Message{
		Type:     MessagePunch,
		TripID:   tripID,
		LegIndex: legIndex,
		Field:    string(field),
		Value:    value,
		SentAt:   e.clock.Now(),
	}
	if err := e.tr.Send(ctx, msg); err != nil {
		return err
	}
	e.countSent(MessagePunch)
	return nil
}

// State returns the current session view.
func (e *Engine) State() State {
	tripID, legIndex, hasActive, err := e.logbook.CurrentState(e.currentCtx())
	if err != nil {
		e.log.Warnw("state read failed", "error", err)
	}

	e.mu.Lock()
	st := State{
		Role:           e.role,
		LastSync:       e.lastSync,
		OutOfSync:      e.outOfSync,
		LocalTripID:    tripID,
		LocalLegIndex:  legIndex,
		LocalHasActive: hasActive,
		RemoteLegIndex: e.remoteIndex,
		RemoteKnown:    e.remoteKnown,
	}
	e.mu.Unlock()

	st.Paired = e.tr.Paired()
	st.Reachable = e.tr.Reachable()
	return st
}

// evaluate is the debounced body: recompute divergence, resolve it if
// this side is authoritative, and announce local state.
func (e *Engine) evaluate() {
	if e.metrics != nil {
		e.metrics.SyncEvaluationsTotal.Inc()
	}
	ctx := e.currentCtx()

	tripID, legIndex, hasActive, err := e.logbook.CurrentState(ctx)
	if err != nil {
		e.log.Errorw("sync evaluation failed reading local state", "error", err)
		return
	}
	reachable := e.tr.Reachable()

	e.mu.Lock()
	mismatch := false
	if e.remoteKnown {
		switch {
		case hasActive && e.remoteHasActive:
			mismatch = tripID != e.remoteTripID || legIndex != e.remoteIndex
		case hasActive != e.remoteHasActive:
			mismatch = true
		}
	}
	e.outOfSync = mismatch
	if e.role == RolePhone && mismatch && !reachable {
		e.pendingPush = true
	}
	pending := e.pendingPush
	remoteIndex := e.remoteIndex
	e.mu.Unlock()

	if mismatch {
		if e.metrics != nil {
			e.metrics.SyncMismatchesTotal.Inc()
		}
		e.log.Warnw("leg mismatch detected",
			"local_trip", tripID, "local_leg", legIndex,
			"remote_leg", remoteIndex, "reachable", reachable)
	}

	if e.role == RolePhone && reachable && (mismatch || pending) {
		reason := "mismatch"
		if !mismatch {
			reason = "pending"
		}
		if err := e.pushSnapshot(ctx, reason); err != nil {
			e.log.Warnw("snapshot push failed", "error", err)
		}
	}

	if reachable {
		st := ReportedState{TripID: tripID, LegIndex: legIndex, HasActive: hasActive}
		if sent, cause := e.reporter.Report(st); !sent && e.metrics != nil {
			e.metrics.StateReportsSuppressed.WithLabelValues(string(cause)).Inc()
		}
	}
}

// pushSnapshot sends the authoritative copy of the current active leg.
// On success the remote is assumed converged; its next state report
// corrects the assumption if the snapshot was lost.
func (e *Engine) pushSnapshot(ctx context.Context, reason string) error {
	tripID, legIndex, hasActive, err := e.logbook.CurrentState(ctx)
	if err != nil {
		return err
	}
	if !hasActive {
		e.mu.Lock()
		e.pendingPush = false
		e.mu.Unlock()
		return nil
	}
	trip, err := e.logbook.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	leg := trip.Legs[legIndex]

	msg := Message{
		Type:      MessageLegSnapshot,
		TripID:    tripID,
		LegIndex:  legIndex,
		HasActive: true,
		OutTime:   leg.OutTime,
		OffTime:   leg.OffTime,
		OnTime:    leg.OnTime,
		InTime:    leg.InTime,
		SentAt:    e.clock.Now(),
	}
	if err := e.tr.Send(ctx, msg); err != nil {
		e.mu.Lock()
		e.pendingPush = true
		e.mu.Unlock()
		return err
	}

	e.mu.Lock()
	e.pendingPush = false
	e.lastSync = e.clock.Now()
	e.remoteTripID = tripID
	e.remoteIndex = legIndex
	e.remoteHasActive = true
	e.remoteKnown = true
	e.outOfSync = false
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.SnapshotPushesTotal.WithLabelValues(reason).Inc()
	}
	e.countSent(MessageLegSnapshot)
	e.log.Infow("authoritative snapshot pushed", "trip_id", tripID, "leg_index", legIndex, "reason", reason)
	return nil
}

// sendStateReport is the reporter's emit hook.
func (e *Engine) sendStateReport(st ReportedState) {
	msg := Message{
		Type:      MessageStateReport,
		TripID:    st.TripID,
		LegIndex:  st.LegIndex,
		HasActive: st.HasActive,
		SentAt:    e.clock.Now(),
	}
	if err := e.tr.Send(e.currentCtx(), msg); err != nil {
		e.log.Debugw("state report not delivered", "error", err)
		return
	}
	e.mu.Lock()
	e.lastSync = e.clock.Now()
	e.mu.Unlock()
	e.countSent(MessageStateReport)
}

// sendCurrentReport sends an immediate state report, bypassing the
// reporter's dedupe. Used by the watch side of ForceResync.
func (e *Engine) sendCurrentReport(ctx context.Context) error {
	tripID, legIndex, hasActive, err := e.logbook.CurrentState(ctx)
	if err != nil {
		return err
	}
	msg := Message{
		Type:      MessageStateReport,
		TripID:    tripID,
		LegIndex:  legIndex,
		HasActive: hasActive,
		SentAt:    e.clock.Now(),
	}
	if err := e.tr.Send(ctx, msg); err != nil {
		return err
	}
	e.mu.Lock()
	e.lastSync = e.clock.Now()
	e.mu.Unlock()
	e.countSent(MessageStateReport)
	return nil
}

func (e *Engine) handleMessage(msg Message) {
	if e.metrics != nil {
		e.metrics.SyncMessagesTotal.WithLabelValues("in", string(msg.Type)).Inc()
	}
	ctx := e.currentCtx()

	switch msg.Type {
	case MessageStateReport:
		e.mu.Lock()
		e.remoteTripID = msg.TripID
		e.remoteIndex = msg.LegIndex
		e.remoteHasActive = msg.HasActive
		e.remoteKnown = true
		e.lastSync = e.clock.Now()
		e.mu.Unlock()
		e.TriggerEvaluation()

	case MessageLegSnapshot:
		if e.role != RoleWatch {
			e.log.Warnw("ignoring snapshot on authoritative side")
			return
		}
		if _, err := e.logbook.ApplyAuthoritativeSnapshot(ctx, msg.TripID, msg.LegIndex, msg.OutTime, msg.OffTime, msg.OnTime, msg.InTime); err != nil {
			e.log.Errorw("snapshot apply failed", "trip_id", msg.TripID, "error", err)
			return
		}
		e.mu.Lock()
		e.remoteTripID = msg.TripID
		e.remoteIndex = msg.LegIndex
		e.remoteHasActive = true
		e.remoteKnown = true
		e.outOfSync = false
		e.lastSync = e.clock.Now()
		e.mu.Unlock()

	case MessagePunch:
		if e.role != RolePhone {
			e.log.Warnw("ignoring punch on non-authoritative side")
			return
		}
		if _, err := e.logbook.ApplyPunch(ctx, msg.TripID, msg.LegIndex, model.PunchField(msg.Field), msg.Value); err != nil {
			e.log.Warnw("relayed punch rejected", "trip_id", msg.TripID, "field", msg.Field, "error", err)
			return
		}
		e.mu.Lock()
		e.lastSync = e.clock.Now()
		e.mu.Unlock()

	default:
		e.log.Warnw("unknown sync message type", "type", msg.Type)
	}
}

func (e *Engine) countSent(t MessageType) {
	if e.metrics != nil {
		e.metrics.SyncMessagesTotal.WithLabelValues("out", string(t)).Inc()
	}
}

func (e *Engine) currentCtx() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctx
}
