package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/repository"
	"github.com/parleychat/parley-backend/internal/ws"
)

type convFixture struct {
	convRepo   *mockConversationRepo
	msgRepo    *mockMessageRepo
	memberRepo *mockMembershipRepo
	userRepo   *mockUserRepo
	blockRepo  *mockBlockRepo
	notifier   *mockNotifier
	svc        ConversationService
}

func newConvFixture() *convFixture {
	f := &convFixture{
		convRepo:   new(mockConversationRepo),
		msgRepo:    new(mockMessageRepo),
		memberRepo: new(mockMembershipRepo),
		userRepo:   new(mockUserRepo),
		blockRepo:  new(mockBlockRepo),
		notifier:   new(mockNotifier),
	}
	policy := NewAccessPolicy(f.memberRepo, f.blockRepo)
	f.svc = NewConversationService(f.convRepo, f.msgRepo, f.memberRepo, f.userRepo, policy, f.notifier, nil, nil)
	return f
}

func TestConversationList(t *testing.T) {
	ctx := context.Background()

	t.Run("direct entries take title from the peer", func(t *testing.T) {
		f := newConvFixture()
		items := []*repository.ConversationListItem{
			{
				Conversation: directConv("c1"),
				Member:       &domain.ConversationMember{ConversationID: "c1", UserID: "alice", Unread: true},
				LastMessage:  &domain.Message{ID: 3, Content: "see you"},
				PeerID:       "bob",
			},
			{
				Conversation: groupConv("g1", "team"),
				Member:       &domain.ConversationMember{ConversationID: "g1", UserID: "alice"},
			},
		}
		f.convRepo.On("ListForUser", "alice").Return(items, nil)
		f.userRepo.On("FindByIDs", []string{"bob"}).Return([]*domain.User{{ID: "bob", Nickname: "Bob"}}, nil)

		out, err := f.svc.List(ctx, "alice")

		assert.NoError(t, err)
		assert.Len(t, out, 2)
		assert.Equal(t, "Bob", out[0].Title)
		assert.Equal(t, "see you", out[0].LastMessage)
		assert.True(t, out[0].Unread)
		assert.Equal(t, "team", out[1].Title)
	})
}

func TestStartDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects starting a conversation with yourself", func(t *testing.T) {
		f := newConvFixture()
		_, err := f.svc.StartDirect(ctx, "alice", &domain.StartDirectRequest{PeerID: "alice"})
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("unknown peer is not found", func(t *testing.T) {
		f := newConvFixture()
		f.userRepo.On("FindByID", "ghost").Return(nil, gorm.ErrRecordNotFound)

		_, err := f.svc.StartDirect(ctx, "alice", &domain.StartDirectRequest{PeerID: "ghost"})

		assert.ErrorIs(t, err, common.ErrUserNotFound)
	})

	t.Run("existing conversation is returned and un-hidden", func(t *testing.T) {
		f := newConvFixture()
		conv := directConv("c1")
		f.userRepo.On("FindByID", "bob").Return(&domain.User{ID: "bob", Nickname: "Bob"}, nil)
		f.convRepo.On("FindDirectBetween", "alice", "bob").Return(conv, nil)
		f.convRepo.On("SetDeleted", "c1", "alice", false).Return(nil)
		f.memberRepo.On("Find", "c1", "alice").Return(&domain.ConversationMember{ConversationID: "c1", UserID: "alice"}, nil)

		summary, err := f.svc.StartDirect(ctx, "alice", &domain.StartDirectRequest{PeerID: "bob"})

		assert.NoError(t, err)
		assert.Equal(t, "c1", summary.ID)
		assert.Equal(t, "Bob", summary.Title)
		f.convRepo.AssertNotCalled(t, "CreateDirect", mock.Anything, mock.Anything)
	})

	t.Run("creates the conversation when none exists", func(t *testing.T) {
		f := newConvFixture()
		conv := directConv("c2")
		f.userRepo.On("FindByID", "bob").Return(&domain.User{ID: "bob", Nickname: "Bob"}, nil)
		f.convRepo.On("FindDirectBetween", "alice", "bob").Return(nil, gorm.ErrRecordNotFound)
		f.convRepo.On("CreateDirect", "alice", "bob").Return(conv, nil)
		f.memberRepo.On("Find", "c2", "alice").Return(&domain.ConversationMember{ConversationID: "c2", UserID: "alice"}, nil)

		summary, err := f.svc.StartDirect(ctx, "alice", &domain.StartDirectRequest{PeerID: "bob"})

		assert.NoError(t, err)
		assert.Equal(t, "c2", summary.ID)
		f.convRepo.AssertNotCalled(t, "SetDeleted", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a title and at least one other member", func(t *testing.T) {
		f := newConvFixture()

		_, err := f.svc.CreateGroup(ctx, "alice", &domain.CreateGroupRequest{Title: "team"})
		assert.ErrorIs(t, err, common.ErrInvalidInput)

		// the caller alone does not count as a member
		_, err = f.svc.CreateGroup(ctx, "alice", &domain.CreateGroupRequest{Title: "team", MemberIDs: []string{"alice"}})
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})

	t.Run("enforces the group size cap", func(t *testing.T) {
		f := newConvFixture()
		ids := make([]string, domain.MaxGroupMembers)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}

		_, err := f.svc.CreateGroup(ctx, "alice", &domain.CreateGroupRequest{Title: "team", MemberIDs: ids})

		assert.ErrorIs(t, err, common.ErrGroupFull)
	})

	t.Run("unknown invitees fail the whole request", func(t *testing.T) {
		f := newConvFixture()
		f.userRepo.On("FindByIDs", []string{"bob", "ghost"}).Return([]*domain.User{{ID: "bob"}}, nil)

		_, err := f.svc.CreateGroup(ctx, "alice", &domain.CreateGroupRequest{Title: "team", MemberIDs: []string{"bob", "ghost"}})

		assert.ErrorIs(t, err, common.ErrUserNotFound)
		f.convRepo.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("creates the group and notifies every invitee", func(t *testing.T) {
		f := newConvFixture()
		conv := groupConv("g1", "team")
		f.userRepo.On("FindByIDs", []string{"bob", "carol"}).Return([]*domain.User{{ID: "bob"}, {ID: "carol"}}, nil)
		f.convRepo.On("CreateGroup", "team", "alice", []string{"bob", "carol"}).Return(conv, nil)
		f.memberRepo.On("Find", "g1", "alice").Return(&domain.ConversationMember{ConversationID: "g1", UserID: "alice", Role: domain.RoleOwner}, nil)
		f.notifier.On("SendToUser", "bob", eventOfType(ws.EventMembershipAdded)).Once()
		f.notifier.On("SendToUser", "carol", eventOfType(ws.EventMembershipAdded)).Once()

		summary, err := f.svc.CreateGroup(ctx, "alice", &domain.CreateGroupRequest{Title: "team", MemberIDs: []string{"bob", "carol"}})

		assert.NoError(t, err)
		assert.Equal(t, "team", summary.Title)
		f.notifier.AssertExpectations(t)
	})
}

func TestHide(t *testing.T) {
	ctx := context.Background()

	t.Run("non-members cannot hide", func(t *testing.T) {
		f := newConvFixture()
		f.convRepo.On("SetDeleted", "c1", "mallory", true).Return(gorm.ErrRecordNotFound)

		err := f.svc.Hide(ctx, "mallory", "c1")

		assert.ErrorIs(t, err, common.ErrNotMember)
	})

	t.Run("sets the caller's deleted flag", func(t *testing.T) {
		f := newConvFixture()
		f.convRepo.On("SetDeleted", "c1", "alice", true).Return(nil)

		assert.NoError(t, f.svc.Hide(ctx, "alice", "c1"))
	})
}

func TestMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-members", func(t *testing.T) {
		f := newConvFixture()
		f.memberRepo.On("IsMember", "c1", "mallory").Return(false, nil)

		_, err := f.svc.Messages(ctx, "mallory", "c1", 0, 50)

		assert.ErrorIs(t, err, common.ErrNotMember)
	})

	t.Run("pages history after the given id", func(t *testing.T) {
		f := newConvFixture()
		f.memberRepo.On("IsMember", "c1", "alice").Return(true, nil)
		f.msgRepo.On("ListAfter", "c1", int64(10), 50).Return([]*domain.Message{
			{ID: 11, ConversationID: "c1", Content: "eleven"},
		}, nil)

		out, err := f.svc.Messages(ctx, "alice", "c1", 10, 50)

		assert.NoError(t, err)
		assert.Len(t, out, 1)
		assert.Equal(t, int64(11), out[0].ID)
	})
}
