package service

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/repository"
	"github.com/parleychat/parley-backend/pkg/cache"
	"github.com/parleychat/parley-backend/pkg/logger"
)

// UserService profile business logic. Accounts originate in the
// identity service; EnsureUser mirrors a row on first contact so
// membership and block FKs always resolve.
type UserService interface {
	Me(ctx context.Context, userID string) (*domain.UserResponse, error)
	UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.UserResponse, error)
	EnsureUser(ctx context.Context, userID, nickname string) error
}

type userService struct {
	userRepo repository.UserRepository
	cache    cache.Service
	media    MediaResolver
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, cacheService cache.Service, media MediaResolver) UserService {
	return &userService{
		userRepo: userRepo,
		cache:    cacheService,
		media:    media,
	}
}

func (s *userService) Me(ctx context.Context, userID string) (*domain.UserResponse, error) {
	if s.cache != nil && s.cache.IsAvailable() {
		if data, err := s.cache.GetUser(ctx, userID); err == nil {
			var cached domain.UserResponse
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}

	resp := user.ToResponse(s.avatarURL(ctx, user.AvatarKey))
	if s.cache != nil && s.cache.IsAvailable() {
		if err := s.cache.SetUser(ctx, userID, resp); err != nil {
			logger.Get().Warn().Err(err).Msg("user cache write failed")
		}
	}
	return resp, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID string, req *domain.UpdateProfileRequest) (*domain.UserResponse, error) {
	updates := map[string]interface{}{}
	if req.Nickname != nil {
		if *req.Nickname == "" {
			return nil, common.ErrInvalidInput
		}
		updates["nickname"] = *req.Nickname
	}
	if req.AvatarKey != nil {
		updates["avatar_key"] = *req.AvatarKey
	}
	if len(updates) == 0 {
		return nil, common.ErrInvalidInput
	}

	if err := s.userRepo.Update(userID, updates); err != nil {
		return nil, err
	}
	if s.cache != nil && s.cache.IsAvailable() {
		if err := s.cache.InvalidateUser(ctx, userID); err != nil {
			logger.Get().Warn().Err(err).Msg("user cache invalidation failed")
		}
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(s.avatarURL(ctx, user.AvatarKey)), nil
}

// EnsureUser creates the mirror row if it does not exist yet. Called
// from auth middleware on first authenticated request.
func (s *userService) EnsureUser(ctx context.Context, userID, nickname string) error {
	exists, err := s.userRepo.Exists(userID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.userRepo.Create(&domain.User{ID: userID, Nickname: nickname})
}

func (s *userService) avatarURL(ctx context.Context, key string) string {
	if key == "" || s.media == nil {
		return ""
	}
	url, err := s.media.PresignedURL(ctx, key, mediaURLTTL)
	if err != nil {
		return ""
	}
	return url
}
