package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vntrieu/werewolf/internal/auth"
	"github.com/vntrieu/werewolf/internal/game"
	"github.com/vntrieu/werewolf/internal/registry"
)

// PasswordMaxLen bounds room passwords.
const PasswordMaxLen = 128

// roomCodePattern matches the 5-digit numeric codes the registry generates.
var roomCodePattern = regexp.MustCompile(`^[0-9]{5}$`)

// CreateRoomRequest is the body for POST /api/rooms.
type CreateRoomRequest struct {
	DisplayName string         `json:"display_name"`
	Password    string         `json:"password,omitempty"`
	Settings    *game.Settings `json:"settings,omitempty"`
}

// JoinRoomRequest is the body for POST /api/rooms/{code}/join.
type JoinRoomRequest struct {
	DisplayName  string `json:"display_name"`
	Password     string `json:"password,omitempty"`
	SpectatorKey string `json:"spectator_key,omitempty"`
}

// RoomResponse is returned by create and join. Token authenticates the
// follow-up WebSocket connection.
type RoomResponse struct {
	Room      *registry.RoomInfo `json:"room"`
	PlayerID  string             `json:"player_id"`
	Observer  bool               `json:"observer,omitempty"`
	Token     string             `json:"token,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
}

// RoomHandler handles room-related HTTP requests.
type RoomHandler struct {
	registry    *registry.Registry
	tokenSecret []byte
}

// NewRoomHandler creates a new RoomHandler. If tokenSecret is non-empty,
// create/join responses include a WebSocket auth token.
func NewRoomHandler(reg *registry.Registry, tokenSecret []byte) *RoomHandler {
	return &RoomHandler{registry: reg, tokenSecret: tokenSecret}
}

func validatePasswordLength(password string) string {
	if len(password) > PasswordMaxLen {
		return fmt.Sprintf("password must be at most %d characters", PasswordMaxLen)
	}
	return ""
}

func validateRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// writeRegistryError maps registry errors onto HTTP statuses.
func writeRegistryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrRoomNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, registry.ErrBadPassword):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, registry.ErrNameTaken),
		errors.Is(err, registry.ErrRoomFull),
		errors.Is(err, registry.ErrGameInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, registry.ErrInvalidName),
		errors.Is(err, registry.ErrInvalidSettings):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("[%s] room error: %v", requestID(r), err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// CreateRoom handles POST /api/rooms
//
// @Summary      Create room
// @Description  Create a new room. The requester becomes the host.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        body  body      handler.CreateRoomRequest  true  "Request body"
// @Success      201   {object}  handler.RoomResponse
// @Failure      400   {string}  string  "Bad request (invalid display_name, password length, or body)"
// @Failure      500   {string}  string  "Server error"
// @Router       /api/rooms [post]
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if msg := validatePasswordLength(req.Password); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	res, err := h.registry.CreateRoom(req.DisplayName, req.Password, req.Settings)
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}
	h.writeRoomResponse(w, r, http.StatusCreated, res.Code, res.PlayerID, false)
}

// JoinRoom handles POST /api/rooms/{code}/join
//
// @Summary      Join room
// @Description  Join an existing room's lobby. A valid spectator key admits an observer even mid-game.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        code  path      string                   true  "Room code (5 digits)"
// @Param        body  body      handler.JoinRoomRequest  true  "Request body"
// @Success      200   {object}  handler.RoomResponse
// @Failure      400   {string}  string  "Bad request"
// @Failure      401   {string}  string  "Invalid password"
// @Failure      404   {string}  string  "Room not found"
// @Failure      409   {string}  string  "Name taken, room full, or game in progress"
// @Failure      500   {string}  string  "Server error"
// @Router       /api/rooms/{code}/join [post]
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !validateRoomCode(code) {
		http.Error(w, "invalid room code format", http.StatusBadRequest)
		return
	}

	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if msg := validatePasswordLength(req.Password); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	res, err := h.registry.JoinRoom(code, req.DisplayName, req.Password, req.SpectatorKey)
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}
	h.writeRoomResponse(w, r, http.StatusOK, res.Code, res.PlayerID, res.Observer)
}

// GetRoom handles GET /api/rooms/{code}
//
// @Summary      Get room
// @Description  Get the public room snapshot. No authentication required.
// @Tags         rooms
// @Produce      json
// @Param        code  path      string  true  "Room code (5 digits)"
// @Success      200   {object}  registry.RoomInfo
// @Failure      400   {string}  string  "Invalid room code"
// @Failure      404   {string}  string  "Room not found"
// @Router       /api/rooms/{code} [get]
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !validateRoomCode(code) {
		http.Error(w, "invalid room code format", http.StatusBadRequest)
		return
	}

	info, err := h.registry.GetRoom(code)
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		log.Printf("[%s] encode response error: %v", requestID(r), err)
	}
}

func (h *RoomHandler) writeRoomResponse(w http.ResponseWriter, r *http.Request, status int, code, playerID string, observer bool) {
	info, err := h.registry.GetRoom(code)
	if err != nil {
		writeRegistryError(w, r, err)
		return
	}
	resp := RoomResponse{Room: info, PlayerID: playerID, Observer: observer}
	if len(h.tokenSecret) > 0 {
		token, expiresAt, err := auth.GenerateToken(code, playerID, h.tokenSecret, auth.DefaultTokenExpiry)
		if err != nil {
			log.Printf("[%s] generate token error: %v", requestID(r), err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp.Token = token
		resp.ExpiresAt = &expiresAt
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[%s] encode response error: %v", requestID(r), err)
	}
}
