package domain

import "time"

// Message represents a chat message. ClientToken is the
// client-generated idempotency key; the unique index on it is what
// makes retried sends collapse into one row. DeletedAt implements
// soft delete: presentation hides the row, last-message recomputation
// skips it.
type Message struct {
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	DeletedAt      *time.Time `gorm:"column:deleted_at;index" json:"-"`
	ConversationID string     `gorm:"column:conversation_id;type:varchar(36);index" json:"conversation_id"`
	SenderID       string     `gorm:"column:sender_id;type:varchar(64);index" json:"sender_id"`
	Content        string     `gorm:"column:content;type:text" json:"content"`
	MediaKey       string     `gorm:"column:media_key;type:varchar(255)" json:"media_key,omitempty"`
	ClientToken    string     `gorm:"column:client_token;type:varchar(64);uniqueIndex" json:"client_token"`
	ID             int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Edited         bool       `gorm:"column:edited" json:"edited"`
}

func (Message) TableName() string {
	return "messages"
}

// SendMessageRequest represents a send message request
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Content        string `json:"content"`
	MediaKey       string `json:"media_key"`
	ClientToken    string `json:"client_token" binding:"required"`
}

// EditMessageRequest represents a message edit request
type EditMessageRequest struct {
	MessageID int64  `json:"message_id" binding:"required"`
	Content   string `json:"content" binding:"required"`
}

// MessageResponse represents a message in API responses and ws pushes
type MessageResponse struct {
	ID             int64  `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	MediaKey       string `json:"media_key,omitempty"`
	CreatedAt      string `json:"created_at"`
	Edited         bool   `json:"edited"`
}

// ToResponse converts Message to MessageResponse
func (m *Message) ToResponse() *MessageResponse {
	return &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		MediaKey:       m.MediaKey,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
		Edited:         m.Edited,
	}
}

// Preview returns the sidebar preview text for this message.
func (m *Message) Preview() string {
	if m.Content != "" {
		return m.Content
	}
	if m.MediaKey != "" {
		return "[media]"
	}
	return ""
}
