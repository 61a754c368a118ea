package domain

import "time"

// User represents a chat user account. Credentials live in the
// identity service; this table only mirrors what the chat core needs.
type User struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	ID        string    `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	Nickname  string    `gorm:"column:nickname;type:varchar(64)" json:"nickname"`
	AvatarKey string    `gorm:"column:avatar_key;type:varchar(255)" json:"avatar_key,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	Nickname  *string `json:"nickname"`
	AvatarKey *string `json:"avatar_key"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID        string `json:"id"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ToResponse converts User to UserResponse. avatarURL is resolved by
// the caller because presigning needs the storage client.
func (u *User) ToResponse(avatarURL string) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Nickname:  u.Nickname,
		AvatarURL: avatarURL,
	}
}
