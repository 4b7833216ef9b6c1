// Package realtime keeps the websocket sessions of connected portal users
// and pushes in-app notifications to them.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/common/metrics"
	"portal-notifier/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32

	MessageTypeHeartbeat    = "heartbeat"
	MessageTypeHeartbeatAck = "heartbeat_ack"
)

// Authenticator resolves the user behind an upgrade request.
type Authenticator func(r *http.Request) (int64, error)

type clientMessage struct {
	Type string `json:"type"`
}

type session struct {
	userID       int64
	connectionID string
	conn         *websocket.Conn
	send         chan []byte
	closeOnce    sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.send) })
}

// Hub is the per-process session registry. A user may hold several
// sessions (tabs, devices); a personal message goes to all of them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[int64]map[string]*session

	upgrader     websocket.Upgrader
	authenticate Authenticator
	logger       logger.Logger
}

func NewHub(authenticate Authenticator, log logger.Logger) *Hub {
	return &Hub{
		sessions:     make(map[int64]map[string]*session),
		authenticate: authenticate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: log.WithFields(map[string]interface{}{"component": "realtime"}),
	}
}

// SendPersonal queues n for every session of recipientID. A user with no
// open session is not an error; the notification simply is not pushed.
func (h *Hub) SendPersonal(ctx context.Context, recipientID int64, n models.InAppNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := h.sessions[recipientID]
	if len(sessions) == 0 {
		h.logger.Debug("recipient not connected", map[string]interface{}{"recipientId": recipientID})
		return nil
	}

	var dropped int
	for _, s := range sessions {
		select {
		case s.send <- data:
		case <-ctx.Done():
			return ctx.Err()
		default:
			dropped++
		}
	}
	if dropped == len(sessions) {
		return fmt.Errorf("send buffer full for recipient %d", recipientID)
	}
	return nil
}

// Connections returns the number of open sessions for a user.
func (h *Hub) Connections(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// ServeWS upgrades the request at /ws/notifications/{connectionId}.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	connectionID := r.PathValue("connectionId")
	if connectionID == "" {
		http.Error(w, "missing connection id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	s := &session{
		userID:       userID,
		connectionID: connectionID,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
	}
	h.register(s)

	go h.writePump(s)
	h.readPump(s)
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byConn, ok := h.sessions[s.userID]
	if !ok {
		byConn = make(map[string]*session)
		h.sessions[s.userID] = byConn
	}
	if old, exists := byConn[s.connectionID]; exists {
		old.close()
	} else {
		metrics.RealtimeConnections.Inc()
	}
	byConn[s.connectionID] = s

	h.logger.Info("session opened", map[string]interface{}{
		"userId":       s.userID,
		"connectionId": s.connectionID,
	})
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byConn := h.sessions[s.userID]
	if current, ok := byConn[s.connectionID]; ok && current == s {
		delete(byConn, s.connectionID)
		metrics.RealtimeConnections.Dec()
		if len(byConn) == 0 {
			delete(h.sessions, s.userID)
		}
	}
	s.close()

	h.logger.Info("session closed", map[string]interface{}{
		"userId":       s.userID,
		"connectionId": s.connectionID,
	})
}

func (h *Hub) readPump(s *session) {
	defer func() {
		h.unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ack, _ := json.Marshal(clientMessage{Type: MessageTypeHeartbeatAck})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", map[string]interface{}{
					"userId": s.userID,
					"error":  err.Error(),
				})
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == MessageTypeHeartbeat {
			_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
			h.enqueue(s, ack)
		}
	}
}

// enqueue sends on s.send unless the session is already shutting down.
func (h *Hub) enqueue(s *session, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if current, ok := h.sessions[s.userID][s.connectionID]; !ok || current != s {
		return
	}
	select {
	case s.send <- data:
	default:
	}
}

func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close ends every session.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, byConn := range h.sessions {
		for _, s := range byConn {
			s.close()
			metrics.RealtimeConnections.Dec()
		}
		delete(h.sessions, userID)
	}
}
