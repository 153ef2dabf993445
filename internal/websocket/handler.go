package websocket

import (
	"log"

	"github.com/vntrieu/werewolf/internal/game"
	"github.com/vntrieu/werewolf/internal/ratelimit"
	"github.com/vntrieu/werewolf/internal/registry"
	"github.com/vntrieu/werewolf/internal/roles"
)

// EventHandler dispatches client messages into the registry.
type EventHandler struct {
	hub         *Hub
	registry    *registry.Registry
	rateLimiter ratelimit.Limiter
}

// NewEventHandler creates a new EventHandler. rateLimiter is optional; when
// set, chat messages are rate-limited by client key (e.g. IP).
func NewEventHandler(hub *Hub, reg *registry.Registry, rateLimiter ratelimit.Limiter) *EventHandler {
	return &EventHandler{
		hub:         hub,
		registry:    reg,
		rateLimiter: rateLimiter,
	}
}

// HandleMessage processes one incoming client message. Rejects unknown or
// invalid message types with an error envelope; registry errors are relayed
// to the sender only.
func (h *EventHandler) HandleMessage(client *Client, msg *ClientMessage) {
	if msg == nil {
		sendErrorToClient(client, "invalid message")
		return
	}
	if len(msg.Type) > MaxClientMessageTypeLength || !ValidClientMessageTypes[msg.Type] {
		sendErrorToClient(client, "unsupported message type")
		return
	}

	var err error
	switch msg.Type {
	case ClientTypeChat:
		if !h.allowChat(client) {
			return
		}
		err = h.registry.Chat(client.RoomCode, client.PlayerID, payloadString(msg, "message"))
	case ClientTypeWolfChat:
		if !h.allowChat(client) {
			return
		}
		err = h.registry.WolfChat(client.RoomCode, client.PlayerID, payloadString(msg, "message"))
	case ClientTypeConfigure:
		err = h.registry.Configure(client.RoomCode, client.PlayerID, parseSettings(msg.Payload))
	case ClientTypeAddBot:
		err = h.registry.AddBot(client.RoomCode, client.PlayerID)
	case ClientTypeRemoveBot:
		err = h.registry.RemoveBot(client.RoomCode, client.PlayerID, payloadString(msg, "bot_id"))
	case ClientTypeStartGame:
		err = h.registry.StartGame(client.RoomCode, client.PlayerID)
	case ClientTypeAckRole:
		err = h.registry.AckRole(client.RoomCode, client.PlayerID)
	case ClientTypeNightAction:
		err = h.registry.NightAction(client.RoomCode, client.PlayerID, game.NightIntent{
			Kind:         game.IntentKind(payloadString(msg, "action")),
			Target:       payloadString(msg, "target_id"),
			SecondTarget: payloadString(msg, "second_target_id"),
		})
	case ClientTypeVote:
		err = h.registry.Vote(client.RoomCode, client.PlayerID, payloadString(msg, "target_id"))
	case ClientTypeSkipVote:
		err = h.registry.SkipVote(client.RoomCode, client.PlayerID)
	case ClientTypeRevengeShot:
		err = h.registry.RevengeShot(client.RoomCode, client.PlayerID, payloadString(msg, "target_id"))
	case ClientTypeReturnToLobby:
		err = h.registry.ReturnToLobby(client.RoomCode, client.PlayerID)
	case ClientTypeSyncState:
		err = h.registry.SyncState(client.RoomCode, client.PlayerID)
	}
	if err != nil {
		sendErrorToClient(client, err.Error())
	}
}

// HandleDisconnect tells the registry a participant dropped.
func (h *EventHandler) HandleDisconnect(client *Client) {
	h.registry.HandleDisconnect(client.RoomCode, client.PlayerID)
}

func (h *EventHandler) allowChat(client *Client) bool {
	if h.rateLimiter == nil || client.RateLimitKey == "" {
		return true
	}
	allowed, _ := h.rateLimiter.Allow(client.RateLimitKey)
	if !allowed {
		sendErrorToClient(client, "rate limit exceeded; try again later")
	}
	return allowed
}

func payloadString(msg *ClientMessage, key string) string {
	if msg.Payload == nil {
		return ""
	}
	s, _ := msg.Payload[key].(string)
	return s
}

// parseSettings decodes a configure payload. Missing fields fall back to the
// defaults so partial updates from older clients still validate.
func parseSettings(payload map[string]interface{}) game.Settings {
	settings := game.DefaultSettings()
	if payload == nil {
		return settings
	}
	if n, ok := payload["night_seconds"].(float64); ok {
		settings.NightSeconds = int(n)
	}
	if n, ok := payload["day_seconds"].(float64); ok {
		settings.DaySeconds = int(n)
	}
	if raw, ok := payload["role_distribution"].(map[string]interface{}); ok {
		dist := make(map[roles.Role]int, len(raw))
		for name, count := range raw {
			n, ok := count.(float64)
			if !ok {
				continue
			}
			dist[roles.Role(name)] = int(n)
		}
		if len(dist) > 0 {
			settings.Distribution = dist
		}
	}
	return settings
}

func sendErrorToClient(client *Client, message string) {
	envelope := &ServerEnvelope{Type: ServerTypeError, Payload: map[string]interface{}{"message": message}}
	select {
	case client.send <- envelope:
	default:
		log.Printf("could not send envelope to client (channel full)")
	}
}
