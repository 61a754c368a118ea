package repository

import (
	"errors"
	"time"

	"github.com/parleychat/parley-backend/internal/domain"
	"gorm.io/gorm"
)

// MessageRepository message data access interface. Write operations
// own the cross-entity invariants: a message insert and the
// conversation's last-message advance commit or roll back together.
type MessageRepository interface {
	// Create persists a message and applies conversation side effects
	// atomically. If the client token was already used the stored
	// message is returned with duplicate=true and nothing is written.
	Create(msg *domain.Message) (stored *domain.Message, duplicate bool, err error)
	FindByID(id int64) (*domain.Message, error)
	FindByToken(clientToken string) (*domain.Message, error)
	ListAfter(conversationID string, afterID int64, limit int) ([]*domain.Message, error)
	SetContent(id int64, content string) error
	// SoftDelete hides the message and, when it was the conversation's
	// last message, recomputes the pointer from persisted state.
	SoftDelete(msg *domain.Message) (newLast *domain.Message, wasLast bool, err error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts the message, advances the conversation's last-message
// pointer and updated_at, marks the conversation unread for every
// other member, and un-hides it for members who had deleted it.
func (r *messageRepository) Create(msg *domain.Message) (*domain.Message, bool, error) {
	// Fast path: retried delivery of an already-stored message.
	if existing, err := r.FindByToken(msg.ClientToken); err == nil {
		return existing, true, nil
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&domain.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message_id": msg.ID,
				"updated_at":      now,
			}).Error; err != nil {
			return err
		}

		// Every non-sender goes unread, including members currently
		// viewing the room: whether a session is watching is
		// instance-local state, so viewers clear the flag themselves by
		// sending mark-read on receipt.
		if err := tx.Model(&domain.ConversationMember{}).
			Where("conversation_id = ? AND user_id <> ?", msg.ConversationID, msg.SenderID).
			Update("unread", true).Error; err != nil {
			return err
		}

		// A hidden conversation reappears for every member on new
		// traffic (direct-chat un-delete semantics).
		return tx.Model(&domain.ConversationMember{}).
			Where("conversation_id = ? AND deleted = ?", msg.ConversationID, true).
			Update("deleted", false).Error
	})
	if err != nil {
		// Lost a race against a concurrent retry: the unique index on
		// client_token is the authority, resolve to the stored row.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, ferr := r.FindByToken(msg.ClientToken); ferr == nil {
				return existing, true, nil
			}
		}
		return nil, false, err
	}
	return msg, false, nil
}

func (r *messageRepository) FindByID(id int64) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Where("id = ? AND deleted_at IS NULL", id).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) FindByToken(clientToken string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Where("client_token = ?", clientToken).First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListAfter returns non-deleted messages after the watermark in
// persisted creation order.
func (r *messageRepository) ListAfter(conversationID string, afterID int64, limit int) ([]*domain.Message, error) {
	var msgs []*domain.Message
	q := r.db.Where("conversation_id = ? AND id > ? AND deleted_at IS NULL", conversationID, afterID).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&msgs).Error
	return msgs, err
}

func (r *messageRepository) SetContent(id int64, content string) error {
	return r.db.Model(&domain.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{"content": content, "edited": true}).Error
}

// SoftDelete marks the message deleted and repairs the conversation's
// last-message pointer from persisted state in the same transaction.
func (r *messageRepository) SoftDelete(msg *domain.Message) (*domain.Message, bool, error) {
	var newLast *domain.Message
	var wasLast bool

	err := r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&domain.Message{}).
			Where("id = ?", msg.ID).
			Update("deleted_at", now).Error; err != nil {
			return err
		}

		var conv domain.Conversation
		if err := tx.Where("id = ?", msg.ConversationID).First(&conv).Error; err != nil {
			return err
		}
		if conv.LastMessageID == nil || *conv.LastMessageID != msg.ID {
			return nil
		}
		wasLast = true

		var prev domain.Message
		err := tx.Where("conversation_id = ? AND deleted_at IS NULL", msg.ConversationID).
			Order("id DESC").First(&prev).Error
		switch {
		case err == nil:
			newLast = &prev
			return tx.Model(&domain.Conversation{}).
				Where("id = ?", msg.ConversationID).
				Update("last_message_id", prev.ID).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Deleted the only message: pointer must go NULL, not dangle.
			return tx.Model(&domain.Conversation{}).
				Where("id = ?", msg.ConversationID).
				Update("last_message_id", nil).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, false, err
	}
	return newLast, wasLast, nil
}
