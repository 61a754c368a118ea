package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
)

func TestBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects blocking yourself", func(t *testing.T) {
		blockRepo := new(mockBlockRepo)
		userRepo := new(mockUserRepo)
		svc := NewBlockService(blockRepo, userRepo)

		_, err := svc.Block(ctx, "alice", &domain.BlockRequest{UserID: "alice"})

		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("unknown target is not found", func(t *testing.T) {
		blockRepo := new(mockBlockRepo)
		userRepo := new(mockUserRepo)
		userRepo.On("FindByID", "ghost").Return(nil, gorm.ErrRecordNotFound)
		svc := NewBlockService(blockRepo, userRepo)

		_, err := svc.Block(ctx, "alice", &domain.BlockRequest{UserID: "ghost"})

		assert.ErrorIs(t, err, common.ErrUserNotFound)
	})

	t.Run("blocking twice conflicts", func(t *testing.T) {
		blockRepo := new(mockBlockRepo)
		userRepo := new(mockUserRepo)
		userRepo.On("FindByID", "bob").Return(&domain.User{ID: "bob", Nickname: "Bob"}, nil)
		blockRepo.On("Exists", "alice", "bob").Return(true, nil)
		svc := NewBlockService(blockRepo, userRepo)

		_, err := svc.Block(ctx, "alice", &domain.BlockRequest{UserID: "bob"})

		assert.ErrorIs(t, err, common.ErrConflict)
		blockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("creates the block record", func(t *testing.T) {
		blockRepo := new(mockBlockRepo)
		userRepo := new(mockUserRepo)
		userRepo.On("FindByID", "bob").Return(&domain.User{ID: "bob", Nickname: "Bob"}, nil)
		blockRepo.On("Exists", "alice", "bob").Return(false, nil)
		blockRepo.On("Create", "alice", "bob").Return(&domain.UserBlock{
			ID: 1, UserID: "alice", BlockedUserID: "bob", CreatedAt: time.Now(),
		}, nil)
		svc := NewBlockService(blockRepo, userRepo)

		resp, err := svc.Block(ctx, "alice", &domain.BlockRequest{UserID: "bob"})

		assert.NoError(t, err)
		assert.Equal(t, int64(1), resp.BlockID)
		assert.Equal(t, "bob", resp.UserID)
		assert.Equal(t, "Bob", resp.Nickname)
	})
}

func TestBlockList(t *testing.T) {
	ctx := context.Background()

	t.Run("empty list returns nothing", func(t *testing.T) {
		blockRepo := new(mockBlockRepo)
		userRepo := new(mockUserRepo)
		blockRepo.On("FindByUser", "alice").Return([]*domain.UserBlock{}, nil)
		svc := NewBlockService(blockRepo, userRepo)

		out, err := svc.List(ctx, "alice")

		assert.NoError(t, err)
		assert.Empty(t, out)
		userRepo.AssertNotCalled(t, "FindByIDs", mock.Anything)
	})

	t.Run("resolves nicknames for blocked users", func(t *testing.T) {
		blockRepo := new(mockBlockRepo)
		userRepo := new(mockUserRepo)
		blockRepo.On("FindByUser", "alice").Return([]*domain.UserBlock{
			{ID: 1, UserID: "alice", BlockedUserID: "bob"},
			{ID: 2, UserID: "alice", BlockedUserID: "carol"},
		}, nil)
		userRepo.On("FindByIDs", []string{"bob", "carol"}).Return([]*domain.User{
			{ID: "bob", Nickname: "Bob"}, {ID: "carol", Nickname: "Carol"},
		}, nil)
		svc := NewBlockService(blockRepo, userRepo)

		out, err := svc.List(ctx, "alice")

		assert.NoError(t, err)
		assert.Len(t, out, 2)
		assert.Equal(t, "Bob", out[0].Nickname)
		assert.Equal(t, "Carol", out[1].Nickname)
	})
}
