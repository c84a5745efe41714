package syncengine

import "time"

// MessageType is the closed set of messages the two devices exchange.
type MessageType string

const (
	// MessageStateReport announces a device's current active trip/leg.
	MessageStateReport MessageType = "STATE_REPORT"
	// MessageLegSnapshot carries the phone's authoritative copy of the
	// active leg, overwriting the watch's state.
	MessageLegSnapshot MessageType = "LEG_SNAPSHOT"
	// MessagePunch relays a watch-side OOOI punch to the phone, which
	// applies it through the advancement engine.
	MessagePunch MessageType = "PUNCH"
)

// Message is the wire format between peers. One struct covers all
// three types; unused fields stay empty.
type Message struct {
	Type      MessageType `json:"type"`
	TripID    string      `json:"trip_id,omitempty"`
	LegIndex  int         `json:"leg_index"`
	HasActive bool        `json:"has_active"`

	// PUNCH payload.
	Field string `json:"field,omitempty"`
	Value string `json:"value,omitempty"`

	// LEG_SNAPSHOT payload.
	OutTime string `json:"out_time,omitempty"`
	OffTime string `json:"off_time,omitempty"`
	OnTime  string `json:"on_time,omitempty"`
	InTime  string `json:"in_time,omitempty"`

	SentAt time.Time `json:"sent_at"`
}
