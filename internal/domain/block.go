package domain

import "time"

// UserBlock represents a directional block record. Blocking is checked
// from the recipient's perspective when a direct message is sent.
type UserBlock struct {
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UserID        string    `gorm:"column:user_id;type:varchar(64);index" json:"user_id"`
	BlockedUserID string    `gorm:"column:blocked_user_id;type:varchar(64);index" json:"blocked_user_id"`
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
}

func (UserBlock) TableName() string {
	return "user_blocks"
}

// BlockRequest represents a block creation request
type BlockRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// BlockResponse represents a block item in API responses
type BlockResponse struct {
	UserID    string `json:"user_id"`
	Nickname  string `json:"nickname"`
	BlockedAt string `json:"blocked_at"`
	BlockID   int64  `json:"block_id"`
}
