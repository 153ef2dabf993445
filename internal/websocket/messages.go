package websocket

// ClientMessage is the envelope for messages from client to server.
type ClientMessage struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ServerEnvelope is the envelope for messages from server to client.
// Type: "event" | "state" | "error"
type ServerEnvelope struct {
	Type    string                 `json:"type"`
	Event   string                 `json:"event,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Client message types.
const (
	ClientTypeChat          = "chat"
	ClientTypeWolfChat      = "wolf_chat"
	ClientTypeConfigure     = "configure"
	ClientTypeAddBot        = "add_bot"
	ClientTypeRemoveBot     = "remove_bot"
	ClientTypeStartGame     = "start_game"
	ClientTypeAckRole       = "ack_role"
	ClientTypeNightAction   = "night_action"
	ClientTypeVote          = "vote"
	ClientTypeSkipVote      = "skip_vote"
	ClientTypeRevengeShot   = "revenge_shot"
	ClientTypeReturnToLobby = "return_to_lobby"
	ClientTypeSyncState     = "sync_state"
)

// Server envelope types.
const (
	ServerTypeEvent = "event"
	ServerTypeState = "state"
	ServerTypeError = "error"
)

// MaxClientMessageTypeLength limits the "type" field to prevent abuse.
const MaxClientMessageTypeLength = 64

// ValidClientMessageTypes are the only allowed values for ClientMessage.Type.
var ValidClientMessageTypes = map[string]bool{
	ClientTypeChat:          true,
	ClientTypeWolfChat:      true,
	ClientTypeConfigure:     true,
	ClientTypeAddBot:        true,
	ClientTypeRemoveBot:     true,
	ClientTypeStartGame:     true,
	ClientTypeAckRole:       true,
	ClientTypeNightAction:   true,
	ClientTypeVote:          true,
	ClientTypeSkipVote:      true,
	ClientTypeRevengeShot:   true,
	ClientTypeReturnToLobby: true,
	ClientTypeSyncState:     true,
}
