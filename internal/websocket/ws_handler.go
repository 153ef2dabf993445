package websocket

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vntrieu/werewolf/internal/auth"
	"github.com/vntrieu/werewolf/internal/registry"
)

// rateLimitKeyFromRequest returns a key for rate limiting (e.g. client IP).
func rateLimitKeyFromRequest(r *http.Request) string {
	if x := r.Header.Get("X-Real-IP"); x != "" {
		return x
	}
	if x := r.Header.Get("X-Forwarded-For"); x != "" {
		return x
	}
	return r.RemoteAddr
}

// WSHandler upgrades authenticated room connections.
type WSHandler struct {
	hub         *Hub
	registry    *registry.Registry
	tokenSecret []byte
}

// NewWSHandler creates a new WSHandler. tokenSecret is used for WS auth; if
// nil/empty, every upgrade is rejected.
func NewWSHandler(hub *Hub, reg *registry.Registry, tokenSecret []byte) *WSHandler {
	return &WSHandler{
		hub:         hub,
		registry:    reg,
		tokenSecret: tokenSecret,
	}
}

// HandleRoomWebSocket handles GET /ws/rooms/{code} with token auth. The
// client sends its token via query param or Authorization header.
func (h *WSHandler) HandleRoomWebSocket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		const prefix = "Bearer "
		if v := r.Header.Get("Authorization"); strings.HasPrefix(v, prefix) {
			token = strings.TrimSpace(v[len(prefix):])
		}
	}
	if token == "" || len(h.tokenSecret) == 0 {
		h.reject(w, "missing or invalid token")
		return
	}
	claims, err := auth.VerifyToken(token, h.tokenSecret)
	if err != nil {
		log.Printf("websocket auth room=%s token verification failed: %v", code, err)
		h.reject(w, "unauthorized")
		return
	}
	if claims.RoomCode != code {
		h.reject(w, "room does not match token")
		return
	}
	displayName, ok := h.registry.Member(code, claims.PlayerID)
	if !ok {
		log.Printf("websocket auth room=%s player=%s not in room", code, claims.PlayerID)
		h.reject(w, "player not in room")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	client := &Client{
		hub:          h.hub,
		conn:         conn,
		send:         make(chan *ServerEnvelope, 256),
		RoomCode:     code,
		PlayerID:     claims.PlayerID,
		DisplayName:  displayName,
		RateLimitKey: rateLimitKeyFromRequest(r),
	}
	client.hub.register <- client
	go client.writePump()
	go client.readPump()
}

// reject responds with 401 before upgrade (auth is always checked before
// upgrading).
func (h *WSHandler) reject(w http.ResponseWriter, reason string) {
	http.Error(w, reason, http.StatusUnauthorized)
}
