package ws

import (
	"encoding/json"

	"github.com/parleychat/parley-backend/internal/domain"
)

// Outbound event types pushed to clients.
const (
	EventChatMessage       = "chat-message"
	EventMessageListUpdate = "message-list-update"
	EventProjectionUpdate  = "projection-update"
	EventMembershipAdded   = "membership-added"
	EventMembershipRemoved = "membership-removed"
	EventInitialMessages   = "initial-messages"
	EventAck               = "ack"
	EventError             = "error"
)

// Inbound frame types accepted from clients.
const (
	FrameSendMessage   = "send-message"
	FrameEditMessage   = "edit-message"
	FrameDeleteMessage = "delete-message"
	FrameMarkRead      = "mark-read"
	FrameJoinRoom      = "join-room"
	FrameLeaveRoom     = "leave-room"
	FrameAddMembers    = "add-members"
	FrameRemoveMember  = "remove-member"
	FrameLeaveGroup    = "leave-group"
	FrameChangeRole    = "change-role"
)

// Event is a server-push frame sent over a WebSocket connection
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Frame is a client-sent frame. Payload stays raw until the type
// switch picks the concrete struct; there is no duck typing past this
// point.
type Frame struct {
	Type    string          `json:"type"`
	AckID   string          `json:"ack_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// AckPayload acknowledges a client frame. Error carries the
// human-readable failure string shown to the sender only.
type AckPayload struct {
	AckID   string                  `json:"ack_id"`
	OK      bool                    `json:"ok"`
	Error   string                  `json:"error,omitempty"`
	Message *domain.MessageResponse `json:"message,omitempty"`
}

// JoinRoomPayload subscribes the connection to a room. AfterID is the
// client's catch-up watermark; zero means full history.
type JoinRoomPayload struct {
	ConversationID string `json:"conversation_id"`
	AfterID        int64  `json:"after_id"`
}

// RoomPayload targets a room with no extra arguments
type RoomPayload struct {
	ConversationID string `json:"conversation_id"`
}

// DeleteMessagePayload identifies the message to delete
type DeleteMessagePayload struct {
	MessageID int64 `json:"message_id"`
}

// MembershipPayload carries membership-change arguments
type MembershipPayload struct {
	ConversationID string   `json:"conversation_id"`
	Targets        []string `json:"targets,omitempty"`
	Role           string   `json:"role,omitempty"`
}

// InitialMessagesPayload is the room snapshot sent on join-room
type InitialMessagesPayload struct {
	ConversationID string                    `json:"conversation_id"`
	Messages       []*domain.MessageResponse `json:"messages"`
}

// MessageListUpdatePayload is the room snapshot pushed after an edit
// or delete so every open thread view converges.
type MessageListUpdatePayload struct {
	ConversationID string                    `json:"conversation_id"`
	Messages       []*domain.MessageResponse `json:"messages"`
}

// ProjectionUpdatePayload is the per-user sidebar delta
type ProjectionUpdatePayload struct {
	Conversation *domain.ConversationSummary `json:"conversation"`
}

// MembershipChangePayload notifies the affected user directly
type MembershipChangePayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}
