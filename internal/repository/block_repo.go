package repository

import (
	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"gorm.io/gorm"
)

// BlockRepository block data access interface
type BlockRepository interface {
	Create(userID, blockedUserID string) (*domain.UserBlock, error)
	Delete(userID, blockedUserID string) error
	FindByUser(userID string) ([]*domain.UserBlock, error)
	Exists(userID, blockedUserID string) (bool, error)
}

type blockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new BlockRepository
func NewBlockRepository(db *gorm.DB) BlockRepository {
	return &blockRepository{db: db}
}

// Create adds a block
func (r *blockRepository) Create(userID, blockedUserID string) (*domain.UserBlock, error) {
	block := &domain.UserBlock{
		UserID:        userID,
		BlockedUserID: blockedUserID,
	}
	if err := r.db.Create(block).Error; err != nil {
		return nil, err
	}
	return block, nil
}

// Delete removes a block
func (r *blockRepository) Delete(userID, blockedUserID string) error {
	result := r.db.Where("user_id = ? AND blocked_user_id = ?", userID, blockedUserID).
		Delete(&domain.UserBlock{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// FindByUser returns all blocks created by a user
func (r *blockRepository) FindByUser(userID string) ([]*domain.UserBlock, error) {
	var blocks []*domain.UserBlock
	err := r.db.Where("user_id = ?", userID).Order("id DESC").Find(&blocks).Error
	return blocks, err
}

// Exists checks if userID has blocked blockedUserID
func (r *blockRepository) Exists(userID, blockedUserID string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.UserBlock{}).
		Where("user_id = ? AND blocked_user_id = ?", userID, blockedUserID).
		Count(&count).Error
	return count > 0, err
}
