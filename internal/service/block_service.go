package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/repository"
)

// BlockService business logic for user blocking. Blocks are
// directional and take effect on the next send; they never touch
// stored conversations or messages.
type BlockService interface {
	Block(ctx context.Context, userID string, req *domain.BlockRequest) (*domain.BlockResponse, error)
	Unblock(ctx context.Context, userID, targetID string) error
	List(ctx context.Context, userID string) ([]*domain.BlockResponse, error)
}

type blockService struct {
	blockRepo repository.BlockRepository
	userRepo  repository.UserRepository
}

// NewBlockService creates a new BlockService
func NewBlockService(blockRepo repository.BlockRepository, userRepo repository.UserRepository) BlockService {
	return &blockService{
		blockRepo: blockRepo,
		userRepo:  userRepo,
	}
}

func (s *blockService) Block(ctx context.Context, userID string, req *domain.BlockRequest) (*domain.BlockResponse, error) {
	if req.UserID == userID {
		return nil, common.ErrInvalidInput
	}

	target, err := s.userRepo.FindByID(req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}

	exists, err := s.blockRepo.Exists(userID, req.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrConflict
	}

	block, err := s.blockRepo.Create(userID, req.UserID)
	if err != nil {
		return nil, err
	}

	return &domain.BlockResponse{
		BlockID:   block.ID,
		UserID:    target.ID,
		Nickname:  target.Nickname,
		BlockedAt: block.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *blockService) Unblock(ctx context.Context, userID, targetID string) error {
	return s.blockRepo.Delete(userID, targetID)
}

func (s *blockService) List(ctx context.Context, userID string) ([]*domain.BlockResponse, error) {
	blocks, err := s.blockRepo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.BlockedUserID
	}
	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	nicknames := make(map[string]string, len(users))
	for _, u := range users {
		nicknames[u.ID] = u.Nickname
	}

	out := make([]*domain.BlockResponse, len(blocks))
	for i, b := range blocks {
		out[i] = &domain.BlockResponse{
			BlockID:   b.ID,
			UserID:    b.BlockedUserID,
			Nickname:  nicknames[b.BlockedUserID],
			BlockedAt: b.CreatedAt.Format(time.RFC3339),
		}
	}
	return out, nil
}
