package websocket

import (
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/logger"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/metrics"
)

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub *Hub
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// HandleWebSocket upgrades the HTTP connection and runs the client
// pumps until disconnect. Identity comes from the optional userId
// query parameter; connections without one are anonymous and never
// join the online set.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID := normalizeUserID(c.Query("userId"))

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		// Origin checking is handled by the CORS middleware upstream
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionContextTakeover,
	})
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, userID)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	kind := "registered"
	if userID == "" {
		kind = "anonymous"
	}
	m := metrics.Get()
	m.WebsocketConnectionsOpen.WithLabelValues(kind).Inc()
	defer m.WebsocketConnectionsOpen.WithLabelValues(kind).Dec()

	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump() // blocks until the client disconnects
}

// HandleStats reports the hub's connection and message counters along
// with the current online user count.
func (h *Handler) HandleStats(c *gin.Context) {
	c.JSON(200, gin.H{
		"stats":        h.hub.GetMetrics(),
		"online_users": len(h.hub.OnlineUsers()),
	})
}

// normalizeUserID validates the userId query parameter. Anything that
// is not a well-formed object id, including the literal "undefined"
// and "null" some clients send, means an anonymous connection.
func normalizeUserID(raw string) string {
	if raw == "" || raw == "undefined" || raw == "null" {
		return ""
	}
	if _, err := primitive.ObjectIDFromHex(raw); err != nil {
		return ""
	}
	return raw
}
