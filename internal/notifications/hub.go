package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 8
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull  = errors.New("server connection limit reached")
	ErrUserFull    = errors.New("user connection limit reached")
	ErrHubShutdown = errors.New("activity hub is shutting down")
)

// Hub tracks activity stream sockets and delivers events to all of them.
// With a Redis-backed notifier, events travel through Redis so every instance
// delivers them; otherwise they are delivered in-process.
type Hub struct {
	notifier *Notifier

	mu       sync.RWMutex
	clients  map[*Client]struct{}
	perUser  map[string]int
	closed   bool
	shutdown chan struct{}
}

// NewHub creates a hub. notifier may be nil.
func NewHub(notifier *Notifier) *Hub {
	return &Hub{
		notifier: notifier,
		clients:  make(map[*Client]struct{}),
		perUser:  make(map[string]int),
		shutdown: make(chan struct{}),
	}
}

// StartWiring subscribes the hub to the Redis activity channel.
func (h *Hub) StartWiring(ctx context.Context) error {
	if !h.notifier.Enabled() {
		return nil
	}
	return h.notifier.StartSubscriber(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Register adds a connection for userID.
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubShutdown
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrServerFull
	}
	if h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserFull
	}

	client := newClient(h, conn, userID)
	h.clients[client] = struct{}{}
	h.perUser[userID]++
	observability.ActivityConnections.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if h.perUser[client.UserID] <= 1 {
		delete(h.perUser, client.UserID)
	} else {
		h.perUser[client.UserID]--
	}
	close(client.Send)
	observability.ActivityConnections.Dec()
}

// Count returns the number of registered sockets.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected socket.
func (h *Hub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.trySend(message)
	}
}

// Publish delivers event to every subscriber. Redis failures fall back to local delivery.
func (h *Hub) Publish(ctx context.Context, event Event) {
	payload, err := event.Encode()
	if err != nil {
		observability.Logger.ErrorContext(ctx, "failed to encode activity event", slog.String("error", err.Error()))
		return
	}
	if h.notifier.Enabled() {
		err := h.notifier.Publish(ctx, payload)
		if err == nil {
			return
		}
		observability.Logger.WarnContext(ctx, "activity publish failed, delivering locally",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
		)
	}
	h.BroadcastAll(payload)
}

// Shutdown closes every socket and refuses new registrations.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	close(h.shutdown)

	// Closing Send makes each WritePump emit a close frame and exit.
	for client := range h.clients {
		close(client.Send)
		delete(h.clients, client)
		observability.ActivityConnections.Dec()
	}
	h.perUser = make(map[string]int)
	return nil
}

// Done is closed once Shutdown has run.
func (h *Hub) Done() <-chan struct{} {
	return h.shutdown
}
