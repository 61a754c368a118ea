package repository

import (
	"github.com/parleychat/parley-backend/internal/domain"
	"gorm.io/gorm"
)

// UserRepository user data access interface
type UserRepository interface {
	FindByID(id string) (*domain.User, error)
	FindByIDs(ids []string) ([]*domain.User, error)
	Create(user *domain.User) error
	Update(id string, updates map[string]interface{}) error
	Exists(id string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(id string) (*domain.User, error) {
	var user domain.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ids []string) ([]*domain.User, error) {
	var users []*domain.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *userRepository) Create(user *domain.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) Update(id string, updates map[string]interface{}) error {
	return r.db.Model(&domain.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *userRepository) Exists(id string) (bool, error) {
	var count int64
	err := r.db.Model(&domain.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
