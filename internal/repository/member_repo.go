package repository

import (
	"github.com/parleychat/parley-backend/internal/domain"
	"gorm.io/gorm"
)

// MembershipRepository membership data access interface
type MembershipRepository interface {
	Find(conversationID, userID string) (*domain.ConversationMember, error)
	List(conversationID string) ([]*domain.ConversationMember, error)
	ListUserIDs(conversationID string) ([]string, error)
	Count(conversationID string) (int64, error)
	Add(members []domain.ConversationMember) error
	Remove(conversationID, userID string) error
	UpdateRole(conversationID, userID, role string) error
	IsMember(conversationID, userID string) (bool, error)
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new MembershipRepository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Find(conversationID, userID string) (*domain.ConversationMember, error) {
	var member domain.ConversationMember
	err := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *membershipRepository) List(conversationID string) ([]*domain.ConversationMember, error) {
	var members []*domain.ConversationMember
	err := r.db.Where("conversation_id = ?", conversationID).
		Order("joined_at ASC").Find(&members).Error
	return members, err
}

func (r *membershipRepository) ListUserIDs(conversationID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&domain.ConversationMember{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *membershipRepository) Count(conversationID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.ConversationMember{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	return count, err
}

func (r *membershipRepository) Add(members []domain.ConversationMember) error {
	if len(members) == 0 {
		return nil
	}
	return r.db.Create(&members).Error
}

func (r *membershipRepository) Remove(conversationID, userID string) error {
	result := r.db.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&domain.ConversationMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *membershipRepository) UpdateRole(conversationID, userID, role string) error {
	result := r.db.Model(&domain.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *membershipRepository) IsMember(conversationID, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}
