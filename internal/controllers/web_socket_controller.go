package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
	"dealer_tracker/internal/middleware"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are enforced by the CORS middleware and the token
	},
}

const writeWait = 5 * time.Second

// pingMessage is what a dealer app sends on every GPS fix.
type pingMessage struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	OrderID   *uint    `json:"order_id"`
}

// locationUpdate is what monitors receive.
type locationUpdate struct {
	DealerID uint `json:"dealer_id"`
	locationView
}

// LocationHub fans appended pings out to monitoring dashboards. Each monitor
// has its own writer goroutine, so a stalled socket only loses its own updates.
type LocationHub struct {
	clients   map[*websocket.Conn]*monitorClient
	broadcast chan locationUpdate
	done      chan struct{}
	closed    bool
	mu        sync.Mutex
}

type monitorClient struct {
	conn   *websocket.Conn
	filter uint // dealer filter, 0 for all
	send   chan locationUpdate
}

const monitorBuffer = 16

// NewLocationHub starts the broadcast loop. Close stops it.
func NewLocationHub() *LocationHub {
	hub := &LocationHub{
		clients:   make(map[*websocket.Conn]*monitorClient),
		broadcast: make(chan locationUpdate, 100),
		done:      make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (h *LocationHub) run() {
	defer close(h.done)
	for msg := range h.broadcast {
		h.mu.Lock()
		for _, c := range h.clients {
			if c.filter != 0 && c.filter != msg.DealerID {
				continue
			}
			select {
			case c.send <- msg:
			default:
				logrus.WithFields(logrus.Fields{
					"dealer_id": msg.DealerID,
					"conn_ptr":  fmt.Sprintf("%p", c.conn),
				}).Warn("Monitor is falling behind, dropping location update.")
			}
		}
		h.mu.Unlock()
	}
}

func (h *LocationHub) writePump(c *monitorClient) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"dealer_id": msg.DealerID,
				"conn_ptr":  fmt.Sprintf("%p", c.conn),
			}).Warn("Failed to send location update to monitor, unregistering.")
			h.UnregisterClient(c.conn)
			c.conn.Close()
			return
		}
	}
}

func (h *LocationHub) RegisterClient(conn *websocket.Conn, dealerFilter uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		conn.Close()
		return
	}
	if old, ok := h.clients[conn]; ok {
		close(old.send)
	}
	c := &monitorClient{conn: conn, filter: dealerFilter, send: make(chan locationUpdate, monitorBuffer)}
	h.clients[conn] = c
	go h.writePump(c)
	logrus.WithFields(logrus.Fields{
		"dealer_filter": dealerFilter,
		"conn_ptr":      fmt.Sprintf("%p", conn),
	}).Info("Monitor registered with LocationHub.")
}

func (h *LocationHub) UnregisterClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(c.send)
	logrus.WithField("conn_ptr", fmt.Sprintf("%p", conn)).Info("Monitor unregistered from LocationHub.")
}

// Close stops the broadcast loop and disconnects every monitor. It is safe to call twice.
func (h *LocationHub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.broadcast)
	for conn, c := range h.clients {
		delete(h.clients, conn)
		close(c.send)
		conn.Close()
	}
	h.mu.Unlock()
	<-h.done
}

// PublishLocation queues an update; it drops the update when monitors fall behind.
func (h *LocationHub) PublishLocation(dealerID uint, e domain.LocationEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.broadcast <- locationUpdate{DealerID: dealerID, locationView: toLocationView(e)}:
	default:
		logrus.WithField("dealer_id", dealerID).Warn("Location broadcast channel full, dropping message.")
	}
}

// HandleLocationWebSocket authenticates with ?token= and then either accepts
// pings (dealer role) or streams updates (admin and company roles, optionally
// narrowed with ?dealer_id=).
func (h *Handler) HandleLocationWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
		return
	}
	claims, err := h.auth.ValidateToken(tokenString)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket connection attempt with invalid token.")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	var dealerFilter uint
	switch claims.Role {
	case middleware.RoleDealer:
	case middleware.RoleAdmin, middleware.RoleCompany:
		filter, ok := parseOptionalUint(c, "dealer_id")
		if !ok {
			return
		}
		if filter != nil {
			dealerFilter = *filter
		}
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized role for WebSocket connection"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	if claims.Role == middleware.RoleDealer {
		h.handleDealerWebSocket(conn, claims.UserID)
		return
	}
	h.handleMonitorWebSocket(conn, dealerFilter)
}

func (h *Handler) handleDealerWebSocket(conn *websocket.Conn, dealerID uint) {
	logrus.WithField("dealer_id", dealerID).Info("Dealer WebSocket connection established.")
	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithField("dealer_id", dealerID).Info("Dealer WebSocket closed.")
			} else {
				logrus.WithError(err).WithField("dealer_id", dealerID).Warn("Error reading WebSocket message from dealer.")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		reply := h.processDealerPing(dealerID, p)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			logrus.WithError(err).WithField("dealer_id", dealerID).Warn("Failed to acknowledge dealer ping.")
			return
		}
	}
}

func (h *Handler) processDealerPing(dealerID uint, p []byte) gin.H {
	var msg pingMessage
	if err := json.Unmarshal(p, &msg); err != nil || msg.Latitude == nil || msg.Longitude == nil {
		logrus.WithFields(logrus.Fields{
			"dealer_id": dealerID,
			"payload":   string(p),
		}).Warn("Malformed location ping from dealer.")
		return gin.H{"error": "Invalid location data format."}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	entry, err := h.history.Append(ctx, dealerID, geo.Point{Lon: *msg.Longitude, Lat: *msg.Latitude}, msg.OrderID)
	if err != nil {
		if errors.Is(err, geo.ErrInvalidCoordinate) {
			return gin.H{"error": err.Error()}
		}
		logrus.WithError(err).WithField("dealer_id", dealerID).Error("Failed to save dealer location.")
		return gin.H{"error": "Failed to save location."}
	}
	h.hub.PublishLocation(dealerID, entry)
	return gin.H{
		"status":    "saved",
		"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
	}
}

func (h *Handler) handleMonitorWebSocket(conn *websocket.Conn, dealerFilter uint) {
	h.hub.RegisterClient(conn, dealerFilter)
	defer h.hub.UnregisterClient(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		logrus.WithField("dealer_filter", dealerFilter).Debug("Monitor sent unexpected message. Ignoring.")
	}
}
