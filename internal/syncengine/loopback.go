package syncengine

import (
	"context"
	"sync"
)

// LoopbackTransport is an in-memory Transport whose counterpart lives
// in the same process. Delivery is synchronous: Send invokes the peer's
// message handler before returning, so engine code must never call Send
// while holding a lock the handler path can take.
type LoopbackTransport struct {
	peer *LoopbackTransport

	mu        sync.Mutex
	reachable bool
	closed    bool
	onMessage func(Message)
	onReach   func(bool)
	onSession func()
}

// NewLoopbackPair returns two connected transports, both reachable.
func NewLoopbackPair() (*LoopbackTransport, *LoopbackTransport) {
	a := &LoopbackTransport{reachable: true}
	b := &LoopbackTransport{reachable: true}
	a.peer = b
	b.peer = a
	return a, b
}

func (t *LoopbackTransport) Send(ctx context.Context, msg Message) error {
	t.mu.Lock()
	if t.closed || !t.reachable {
		t.mu.Unlock()
		return ErrUnreachable
	}
	t.mu.Unlock()

	t.peer.deliver(msg)
	return nil
}

func (t *LoopbackTransport) deliver(msg Message) {
	t.mu.Lock()
	if t.closed || !t.reachable {
		t.mu.Unlock()
		return
	}
	h := t.onMessage
	t.mu.Unlock()
	if h != nil {
		h(msg)
	}
}

func (t *LoopbackTransport) OnMessage(fn func(Message)) {
	t.mu.Lock()
	t.onMessage = fn
	t.mu.Unlock()
}

func (t *LoopbackTransport) OnReachabilityChanged(fn func(bool)) {
	t.mu.Lock()
	t.onReach = fn
	t.mu.Unlock()
}

func (t *LoopbackTransport) OnSessionStateChanged(fn func()) {
	t.mu.Lock()
	t.onSession = fn
	t.mu.Unlock()
}

func (t *LoopbackTransport) Paired() bool { return true }

func (t *LoopbackTransport) Reachable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reachable && !t.closed
}

func (t *LoopbackTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

// SetReachable flips reachability on both ends of the link and fires
// their callbacks, mimicking the counterpart moving in and out of
// range.
func (t *LoopbackTransport) SetReachable(r bool) {
	t.setLocal(r)
	t.peer.setLocal(r)
}

func (t *LoopbackTransport) setLocal(r bool) {
	t.mu.Lock()
	if t.reachable == r {
		t.mu.Unlock()
		return
	}
	t.reachable = r
	cb := t.onReach
	t.mu.Unlock()
	if cb != nil {
		cb(r)
	}
}
