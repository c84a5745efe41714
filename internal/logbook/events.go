package logbook

import "github.com/md80av8r/propilot-core/internal/model"

// EventKind enumerates the closed set of lifecycle events the engine
// emits. Consumers switch on the kind; there are no free-form event
// names.
type EventKind string

const (
	EventLegPunched    EventKind = "LEG_PUNCHED"
	EventLegAdvanced   EventKind = "LEG_ADVANCED"
	EventLegActivated  EventKind = "LEG_ACTIVATED"
	EventTripExhausted EventKind = "TRIP_EXHAUSTED"
	EventTripEnded     EventKind = "TRIP_ENDED"
)

// Event is one engine lifecycle notification. LegIndex is the leg the
// event refers to; Field is set only for LEG_PUNCHED.
type Event struct {
	Kind     EventKind
	TripID   string
	LegIndex int
	Field    model.PunchField
}

// Listener receives engine events. Listeners run on the mutating
// goroutine after the engine lock is released, so they may call back
// into the service.
type Listener func(Event)
