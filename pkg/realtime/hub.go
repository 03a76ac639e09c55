package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"collab-lists/pkg/metrics"
)

// Scope selects what a subscription is keyed on
type Scope string

const (
	ScopeList    Scope = "list"
	ScopeService Scope = "service"
)

// OpResync is delivered to every subscriber after the backend connection
// was re-established; notifications may have been missed meanwhile.
const OpResync = "RESYNC"

var (
	ErrInvalidScope = errors.New("unknown subscription scope")
	ErrEmptyID      = errors.New("subscription id is required")
)

// Change is a row-change notification. It carries no row data: receivers
// are expected to refetch.
type Change struct {
	Table     string `json:"table"`
	Op        string `json:"op"`
	ListID    string `json:"list_id,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
}

// Matches reports whether c concerns the given scope and id.
func (c Change) Matches(scope Scope, id string) bool {
	if c.Op == OpResync {
		return true
	}
	switch scope {
	case ScopeList:
		return c.ListID == id
	case ScopeService:
		return c.ServiceID == id
	}
	return false
}

// Unsubscribe releases a subscription. It is safe to call more than once.
type Unsubscribe func()

// notificationSource is the part of *pq.Listener the hub consumes
type notificationSource interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

type subscription struct {
	scope  Scope
	id     string
	fn     func(Change)
	mu     sync.Mutex
	closed bool
}

func (s *subscription) deliver(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.fn(c)
	}
}

// Hub fans backend change notifications out to in-process subscribers
type Hub struct {
	source       notificationSource
	logger       *zap.Logger
	pingInterval time.Duration

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
}

// NewListenerHub opens a dedicated LISTEN connection on channel.
func NewListenerHub(connStr, channel string, logger *zap.Logger) (*Hub, error) {
	logger = logger.Named("realtime")
	listener := pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}
	return NewHub(listener, logger), nil
}

// NewHub creates a hub reading from source.
func NewHub(source notificationSource, logger *zap.Logger) *Hub {
	return &Hub{
		source:       source,
		logger:       logger,
		pingInterval: 90 * time.Second,
		subs:         make(map[uint64]*subscription),
	}
}

// Subscribe registers fn for changes scoped to id. fn runs on the hub's
// goroutine and must not block; it must not call the returned
// Unsubscribe itself. Once Unsubscribe returns, fn is never called again.
func (h *Hub) Subscribe(scope Scope, id string, fn func(Change)) (Unsubscribe, error) {
	if scope != ScopeList && scope != ScopeService {
		return nil, ErrInvalidScope
	}
	if id == "" {
		return nil, ErrEmptyID
	}

	sub := &subscription{scope: scope, id: id, fn: fn}

	h.mu.Lock()
	h.nextID++
	key := h.nextID
	h.subs[key] = sub
	h.mu.Unlock()
	metrics.RealtimeSubscriptions.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, key)
			h.mu.Unlock()

			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()
			metrics.RealtimeSubscriptions.Dec()
		})
	}, nil
}

// Len returns the number of live subscriptions
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers c to every matching subscriber.
func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	targets := make([]*subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		if c.Matches(sub.scope, sub.id) {
			targets = append(targets, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(c)
	}
}

// Run consumes notifications until ctx is done or the source is closed.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	notifications := h.source.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			go func() {
				if err := h.source.Ping(); err != nil {
					h.logger.Warn("listener ping failed", zap.Error(err))
				}
			}()

		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			h.handle(n)
		}
	}
}

func (h *Hub) handle(n *pq.Notification) {
	if n == nil {
		// the listener reconnected
		h.logger.Info("listener reconnected, asking subscribers to resync")
		h.Publish(Change{Op: OpResync})
		return
	}

	var c Change
	if err := json.Unmarshal([]byte(n.Extra), &c); err != nil {
		h.logger.Warn("dropping malformed notification",
			zap.String("channel", n.Channel),
			zap.String("payload", n.Extra),
			zap.Error(err),
		)
		return
	}
	metrics.RealtimeNotifications.WithLabelValues(c.Table).Inc()
	h.Publish(c)
}

// Close releases the backend listener
func (h *Hub) Close() error {
	return h.source.Close()
}
