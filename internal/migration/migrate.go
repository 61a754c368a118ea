package migration

import (
	"gorm.io/gorm"

	"github.com/parleychat/parley-backend/internal/domain"
)

// Run applies the chat schema. AutoMigrate is additive only; it never
// drops columns, so running it on every boot is safe.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Conversation{},
		&domain.ConversationMember{},
		&domain.Message{},
		&domain.UserBlock{},
	)
}
