package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTransportOptions configures a RedisTransport.
type RedisTransportOptions struct {
	Addr     string
	Password string
	DB       int
	// PairID namespaces the channel pair so multiple device pairs can
	// share one Redis.
	PairID string
	// PollInterval controls how often peer presence is re-checked.
	// Defaults to 2s.
	PollInterval time.Duration
}

// RedisTransport carries sync messages over Redis pub/sub. Each pair
// uses two channels, one per direction; a side is reachable while it
// holds a subscription on its inbound channel. Used by the watch
// simulator and any out-of-process counterpart.
type RedisTransport struct {
	client *redis.Client
	role   Role
	inCh   string
	outCh  string
	sub    *redis.PubSub
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	reachable bool
	closed    bool
	onMessage func(Message)
	onReach   func(bool)
	onSession func()
}

func channelName(pairID string, to Role) string {
	return fmt.Sprintf("propilot:sync:%s:to_%s", pairID, to)
}

func NewRedisTransport(role Role, opts RedisTransportOptions) (*RedisTransport, error) {
	if opts.PairID == "" {
		return nil, fmt.Errorf("pair id is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("[SyncTransport] Redis not responding at %s: %v (will keep retrying)", opts.Addr, err)
	} else {
		log.Printf("[SyncTransport] Connected to Redis at %s", opts.Addr)
	}

	peer := RoleWatch
	if role == RoleWatch {
		peer = RolePhone
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &RedisTransport{
		client: client,
		role:   role,
		inCh:   channelName(opts.PairID, role),
		outCh:  channelName(opts.PairID, peer),
		cancel: cancel,
	}
	t.sub = client.Subscribe(ctx, t.inCh)

	t.wg.Add(2)
	go t.readLoop(ctx)
	go t.pollLoop(ctx, opts.PollInterval)
	return t, nil
}

func (t *RedisTransport) Send(ctx context.Context, msg Message) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrUnreachable
	}
	t.mu.Unlock()

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding sync message: %w", err)
	}
	receivers, err := t.client.Publish(ctx, t.outCh, payload).Result()
	if err != nil {
		return fmt.Errorf("publishing sync message: %w", err)
	}
	if receivers == 0 {
		t.setReachable(false)
		return ErrUnreachable
	}
	t.setReachable(true)
	return nil
}

func (t *RedisTransport) readLoop(ctx context.Context) {
	defer t.wg.Done()

	if _, err := t.sub.Receive(ctx); err != nil {
		log.Printf("[SyncTransport] Subscribe to %s failed: %v", t.inCh, err)
	} else {
		log.Printf("[SyncTransport] Subscribed to %s", t.inCh)
		t.fireSessionChanged()
	}

	ch := t.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Printf("[SyncTransport] Dropping malformed message on %s: %v", t.inCh, err)
				continue
			}
			t.mu.Lock()
			h := t.onMessage
			t.mu.Unlock()
			if h != nil {
				h(msg)
			}
		}
	}
}

// pollLoop tracks peer presence through the subscriber count on the
// outbound channel.
func (t *RedisTransport) pollLoop(ctx context.Context, interval time.Duration) {
	defer t.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := t.client.PubSubNumSub(ctx, t.outCh).Result()
			if err != nil {
				t.setReachable(false)
				continue
			}
			t.setReachable(counts[t.outCh] > 0)
		}
	}
}

func (t *RedisTransport) setReachable(r bool) {
	t.mu.Lock()
	if t.closed || t.reachable == r {
		t.mu.Unlock()
		return
	}
	t.reachable = r
	cb := t.onReach
	t.mu.Unlock()

	log.Printf("[SyncTransport] Peer reachable: %v", r)
	if cb != nil {
		cb(r)
	}
}

func (t *RedisTransport) fireSessionChanged() {
	t.mu.Lock()
	cb := t.onSession
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (t *RedisTransport) OnMessage(fn func(Message)) {
	t.mu.Lock()
	t.onMessage = fn
	t.mu.Unlock()
}

func (t *RedisTransport) OnReachabilityChanged(fn func(bool)) {
	t.mu.Lock()
	t.onReach = fn
	t.mu.Unlock()
}

func (t *RedisTransport) OnSessionStateChanged(fn func()) {
	t.mu.Lock()
	t.onSession = fn
	t.mu.Unlock()
}

func (t *RedisTransport) Paired() bool { return true }

func (t *RedisTransport) Reachable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reachable && !t.closed
}

func (t *RedisTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	if err := t.sub.Close(); err != nil {
		log.Printf("[SyncTransport] Error closing subscription: %v", err)
	}
	t.wg.Wait()
	return t.client.Close()
}
