// Package websocket provides the real-time layer: a presence registry,
// best-effort delivery to online users, and seen-receipt coordination.
// Uses github.com/coder/websocket, the context-aware WebSocket library for Go.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/metrics"
)

// ErrRecipientOffline is returned by DeliverToUser when the target user
// has no registered connection. Callers doing best-effort delivery
// ignore it.
var ErrRecipientOffline = errors.New("recipient offline")

// Hub maintains the set of active clients, tracks which user each
// connection belongs to, and routes targeted and broadcast messages.
type Hub struct {
	// One connection per user id. A second connection for the same
	// user replaces the first (last write wins).
	clients map[string]*Client

	// All open connections, registered or anonymous
	allClients map[*Client]struct{}

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Send message to a specific user
	unicast chan *unicastMessage

	// Mutex for client map access
	mu sync.RWMutex

	// Metrics
	metrics *Metrics

	// Shutdown handling
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Message handlers
	handlers map[string]MessageHandler

	// Rate limiter config
	rateLimitConfig RateLimitConfig
}

// Metrics tracks WebSocket statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig defines rate limiting parameters
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
	Window               time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
		Window:               time.Second,
	}
}

// unicastMessage is a message targeted at a specific user
type unicastMessage struct {
	UserID  string
	Message *Message
}

// MessageHandler processes incoming messages of a specific type
type MessageHandler func(client *Client, message *Message) error

// NewHub creates a new Hub instance
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]*Client),
		allClients:      make(map[*Client]struct{}),
		register:        make(chan *Client, 256),
		unregister:      make(chan *Client, 256),
		unicast:         make(chan *unicastMessage, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		handlers:        make(map[string]MessageHandler),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// RegisterHandler registers a handler for a specific message type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
}

// GetHandler returns the handler for a message type
func (h *Hub) GetHandler(msgType string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

// Run starts the hub's main event loop. All registry mutations happen
// here, one event at a time.
func (h *Hub) Run() {
	logger.Log.Info("WebSocket hub starting")

	for {
		select {
		case <-h.ctx.Done():
			logger.Log.Info("WebSocket hub shutting down")
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case u := <-h.unicast:
			h.sendToUser(u.UserID, u.Message)
		}
	}
}

// registerClient adds a connection to the hub. If the connection
// carries a user id, it becomes that user's connection, displacing any
// previous one. Every connection change is announced to all clients.
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()

	h.allClients[client] = struct{}{}

	if client.UserID != "" {
		if prev, ok := h.clients[client.UserID]; ok && prev != client {
			logger.Log.Info("Replacing existing connection for user",
				zap.String("user", client.UserID))
		}
		h.clients[client.UserID] = client
	}

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)
	metrics.Get().OnlineUsers.Set(float64(len(h.clients)))

	h.mu.Unlock()

	logger.Log.Info("Client connected",
		zap.String("user", client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()))

	h.announceOnlineUsers()
}

// unregisterClient removes a connection from the hub. The user mapping
// is removed only if it still points at this exact connection, so a
// stale connection's disconnect never evicts a newer one.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	if _, ok := h.allClients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.allClients, client)

	if client.UserID != "" {
		if current, ok := h.clients[client.UserID]; ok && current == client {
			delete(h.clients, client.UserID)
		}
	}

	client.closeSend()

	h.metrics.ActiveConnections.Add(-1)
	metrics.Get().OnlineUsers.Set(float64(len(h.clients)))

	h.mu.Unlock()

	logger.Log.Info("Client disconnected",
		zap.String("user", client.UserID),
		zap.Int64("active", h.metrics.ActiveConnections.Load()))

	h.announceOnlineUsers()
}

// announceOnlineUsers broadcasts the current online set to every open
// connection, anonymous ones included.
func (h *Hub) announceOnlineUsers() {
	h.broadcastMessage(NewMessage(MessageTypeOnlineUsers, OnlineUsersPayload{
		UserIDs: h.OnlineUsers(),
	}))
}

// broadcastMessage sends a message to all connected clients
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Error marshaling broadcast message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.allClients {
		select {
		case client.send <- data:
			h.metrics.MessagesSent.Add(1)
			metrics.Get().WebsocketEventsTotal.WithLabelValues(message.Type, "outbound").Inc()
		default:
			// Client's buffer is full, mark for removal
			h.metrics.ConnectionsDropped.Add(1)
			go func(c *Client) {
				h.Unregister(c)
			}(client)
		}
	}
}

// sendToUser delivers a message to the user's connection, if any
func (h *Hub) sendToUser(userID string, message *Message) {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		metrics.Get().WebsocketDeliveriesTotal.WithLabelValues(message.Type, "offline").Inc()
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Error marshaling unicast message", zap.Error(err))
		return
	}

	select {
	case client.send <- data:
		h.metrics.MessagesSent.Add(1)
		metrics.Get().WebsocketDeliveriesTotal.WithLabelValues(message.Type, "delivered").Inc()
		metrics.Get().WebsocketEventsTotal.WithLabelValues(message.Type, "outbound").Inc()
	default:
		h.metrics.ConnectionsDropped.Add(1)
		go func(c *Client) {
			h.Unregister(c)
		}(client)
	}
}

// DeliverToUser sends a message to the user's connection if they are
// online. Returns ErrRecipientOffline otherwise. Delivery is
// best-effort: a queued message can still be lost if the connection
// drops before the write completes.
func (h *Hub) DeliverToUser(userID string, message *Message) error {
	if !h.IsUserOnline(userID) {
		return ErrRecipientOffline
	}
	select {
	case h.unicast <- &unicastMessage{UserID: userID, Message: message}:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline checks if a user has a registered connection
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// OnlineUsers returns the ids of all users with a registered connection
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// GetMetrics returns current WebSocket metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

// String implements Stringer for MetricsSnapshot
func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown gracefully shuts down the hub
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("WebSocket hub shutdown complete",
			zap.Stringer("stats", h.GetMetrics()))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

// shutdown closes all client connections
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	shutdownMsg := NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"})
	data, _ := json.Marshal(shutdownMsg)

	for client := range h.allClients {
		select {
		case client.send <- data:
		default:
		}
		client.closeSend()
	}

	h.clients = make(map[string]*Client)
	h.allClients = make(map[*Client]struct{})
}

// SetRateLimitConfig updates the rate limiting configuration
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current rate limit configuration
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
