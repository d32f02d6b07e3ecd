package domain

// Action websocket request action sent by the UI layer
type Action string

const (
	// OpenConversation websocket action open_conversation (sets the current conversation)
	OpenConversation Action = "open_conversation"
	// CloseConversation websocket action close_conversation
	CloseConversation Action = "close_conversation"
	// LoadConversation websocket action load_conversation
	LoadConversation Action = "load_conversation"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// DeleteMessage websocket action delete_message
	DeleteMessage Action = "delete_message"
	// ToggleReaction websocket action toggle_reaction
	ToggleReaction Action = "toggle_reaction"
	// ReadMessage websocket action read_message
	ReadMessage Action = "read_message"

	// ConversationUpdated pushed after the open conversation's view changed
	ConversationUpdated Action = "conversation_updated"
)

// WSRequest websocket Request
type WSRequest struct {
	Action    string `json:"action"`
	PeerID    string `json:"peer_id"`
	GroupID   string `json:"group_id"`
	Content   string `json:"content"`
	MediaRef  string `json:"media_ref"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// Key conversation addressed by the request; ok=false when neither id was sent
func (r WSRequest) Key() (ConversationKey, bool) {
	switch {
	case r.GroupID != "":
		return GroupKey(r.GroupID), true
	case r.PeerID != "":
		return PeerKey(r.PeerID), true
	default:
		return ConversationKey{}, false
	}
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
