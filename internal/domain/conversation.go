package domain

import "time"

// Conversation kinds. The kind is stored on the row and carried on
// every event; it is never inferred from a client path.
const (
	KindDirect = "direct"
	KindGroup  = "group"
)

// Member roles within a group conversation. Direct conversations
// always use RoleMember.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// MaxGroupMembers caps group size including the owner.
const MaxGroupMembers = 10

// Conversation represents a direct or group conversation. The uuid ID
// doubles as the websocket room key. UpdatedAt is the sole sort key
// for conversation lists.
type Conversation struct {
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;index" json:"updated_at"`
	ID            string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	Kind          string    `gorm:"column:kind;type:varchar(10);index" json:"kind"`
	Title         string    `gorm:"column:title;type:varchar(100)" json:"title,omitempty"`
	LastMessageID *int64    `gorm:"column:last_message_id" json:"last_message_id,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// ConversationMember is the (conversation, user) membership row.
// Unread and Deleted are per-member projection state: Deleted hides
// the conversation from that member's list without destroying it.
type ConversationMember struct {
	JoinedAt       time.Time `gorm:"column:joined_at;autoCreateTime" json:"joined_at"`
	ConversationID string    `gorm:"column:conversation_id;primaryKey;type:varchar(36)" json:"conversation_id"`
	UserID         string    `gorm:"column:user_id;primaryKey;type:varchar(64);index" json:"user_id"`
	Role           string    `gorm:"column:role;type:varchar(10)" json:"role"`
	Unread         bool      `gorm:"column:unread" json:"unread"`
	Deleted        bool      `gorm:"column:deleted" json:"deleted"`
}

func (ConversationMember) TableName() string {
	return "conversation_members"
}

// StartDirectRequest represents a start-or-get direct conversation request
type StartDirectRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

// CreateGroupRequest represents a group creation request
type CreateGroupRequest struct {
	Title     string   `json:"title" binding:"required"`
	MemberIDs []string `json:"member_ids" binding:"required"`
}

// MembershipActions accepted by ChangeMembership.
const (
	MembershipAdd        = "add"
	MembershipRemove     = "remove"
	MembershipLeave      = "leave"
	MembershipChangeRole = "changeRole"
)

// ChangeMembershipRequest represents a membership change request
type ChangeMembershipRequest struct {
	Action  string   `json:"action" binding:"required"`
	Targets []string `json:"targets"`
	Role    string   `json:"role"`
}

// ConversationSummary is the per-user conversation-list projection:
// what the sidebar renders. It is derived state, always recomputable
// from Conversation + Message + membership rows.
type ConversationSummary struct {
	ID              string `json:"id"`
	Kind            string `json:"kind"`
	Title           string `json:"title"`
	PictureURL      string `json:"picture_url,omitempty"`
	LastMessage     string `json:"last_message,omitempty"`
	LastMessageTime string `json:"last_message_time,omitempty"`
	Unread          bool   `json:"unread"`
	Deleted         bool   `json:"deleted"`
}

// MemberResponse represents a conversation member in API responses
type MemberResponse struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

// ToResponse converts ConversationMember to MemberResponse
func (m *ConversationMember) ToResponse(nickname string) *MemberResponse {
	return &MemberResponse{
		UserID:   m.UserID,
		Nickname: nickname,
		Role:     m.Role,
		JoinedAt: m.JoinedAt.Format(time.RFC3339),
	}
}
