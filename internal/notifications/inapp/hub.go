// Package inapp implements the in-app reminder channel: reminder text is
// pushed as a JSON frame to every open WebSocket session of the owning user.
package inapp

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"notesapp/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 32
)

// Frame is the JSON message written to a session.
type Frame struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// FrameTypeReminder marks reminder frames.
const FrameTypeReminder = "reminder"

type session struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks live WebSocket sessions per user.
type Hub struct {
	upgrader websocket.Upgrader
	logger   types.Logger

	mu       sync.RWMutex
	sessions map[string]map[*session]struct{}
}

// NewHub creates a Hub. allowedOrigins of nil or containing "*" accepts any
// origin.
func NewHub(allowedOrigins []string, logger types.Logger) *Hub {
	h := &Hub{
		logger:   logger,
		sessions: make(map[string]map[*session]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeHTTP upgrades GET /v1/ws?user_id=... to a WebSocket session.
// Authentication of user_id happens upstream of this service.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err.Error())
		return
	}

	s := &session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.register(s)

	go h.writePump(s)
	go h.readPump(s)
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	set, ok := h.sessions[s.userID]
	if !ok {
		set = make(map[*session]struct{})
		h.sessions[s.userID] = set
	}
	set[s] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	h.logger.Info("in-app session opened", "user_id", s.userID, "session_id", s.id, "user_sessions", n)
}

// unregister removes s and closes its send queue. Safe to call twice.
func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	set, ok := h.sessions[s.userID]
	if ok {
		if _, present := set[s]; present {
			delete(set, s)
			close(s.send)
			if len(set) == 0 {
				delete(h.sessions, s.userID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		h.logger.Info("in-app session closed", "user_id", s.userID, "session_id", s.id)
	}
}

// SendToUser queues frame on every session of userID and returns how many
// sessions accepted it. Sessions whose buffer is full are dropped.
func (h *Hub) SendToUser(userID string, frame Frame) (int, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return 0, err
	}

	var stale []*session
	sent := 0

	h.mu.RLock()
	for s := range h.sessions[userID] {
		select {
		case s.send <- data:
			sent++
		default:
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stale {
		h.logger.Warn("in-app session buffer full, dropping", "user_id", userID, "session_id", s.id)
		h.unregister(s)
	}
	return sent, nil
}

// SessionCount returns the number of live sessions for userID.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Close ends every session. Used on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*session
	for _, set := range h.sessions {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		h.unregister(s)
	}
}

func (h *Hub) readPump(s *session) {
	defer func() {
		h.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients do not send anything meaningful; reading drives pong handling
	// and detects disconnects.
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("in-app session read error", "session_id", s.id, "error", err.Error())
			}
			return
		}
	}
}

func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
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
				h.unregister(s)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(s)
				return
			}
		}
	}
}
