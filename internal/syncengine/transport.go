package syncengine

import (
	"context"
	"errors"
)

// ErrUnreachable is returned by Send while the peer has no live
// connection. The engine defers the work to the next reachability
// change rather than retrying on a timer.
var ErrUnreachable = errors.New("peer not reachable")

// Transport is the unreliable channel to the paired device. Delivery
// is best effort with no ordering guarantee; reachability and session
// callbacks fire in rapid duplicate bursts on connectivity changes,
// so consumers must debounce.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	OnMessage(fn func(Message))
	OnReachabilityChanged(fn func(reachable bool))
	OnSessionStateChanged(fn func())
	Paired() bool
	Reachable() bool
	Close() error
}
