package service

import (
	"github.com/stretchr/testify/mock"

	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/repository"
	"github.com/parleychat/parley-backend/internal/ws"
)

type mockConversationRepo struct {
	mock.Mock
}

func (m *mockConversationRepo) FindByID(id string) (*domain.Conversation, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *mockConversationRepo) FindDirectBetween(userA, userB string) (*domain.Conversation, error) {
	args := m.Called(userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *mockConversationRepo) CreateDirect(userA, userB string) (*domain.Conversation, error) {
	args := m.Called(userA, userB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *mockConversationRepo) CreateGroup(title, ownerID string, memberIDs []string) (*domain.Conversation, error) {
	args := m.Called(title, ownerID, memberIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *mockConversationRepo) ListForUser(userID string) ([]*repository.ConversationListItem, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.ConversationListItem), args.Error(1)
}

func (m *mockConversationRepo) SetDeleted(conversationID, userID string, deleted bool) error {
	return m.Called(conversationID, userID, deleted).Error(0)
}

func (m *mockConversationRepo) SetUnread(conversationID, userID string, unread bool) error {
	return m.Called(conversationID, userID, unread).Error(0)
}

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Create(msg *domain.Message) (*domain.Message, bool, error) {
	args := m.Called(msg)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Message), args.Bool(1), args.Error(2)
}

func (m *mockMessageRepo) FindByID(id int64) (*domain.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *mockMessageRepo) FindByToken(clientToken string) (*domain.Message, error) {
	args := m.Called(clientToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *mockMessageRepo) ListAfter(conversationID string, afterID int64, limit int) ([]*domain.Message, error) {
	args := m.Called(conversationID, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

func (m *mockMessageRepo) SetContent(id int64, content string) error {
	return m.Called(id, content).Error(0)
}

func (m *mockMessageRepo) SoftDelete(msg *domain.Message) (*domain.Message, bool, error) {
	args := m.Called(msg)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Message), args.Bool(1), args.Error(2)
}

type mockMembershipRepo struct {
	mock.Mock
}

func (m *mockMembershipRepo) Find(conversationID, userID string) (*domain.ConversationMember, error) {
	args := m.Called(conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversationMember), args.Error(1)
}

func (m *mockMembershipRepo) List(conversationID string) ([]*domain.ConversationMember, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConversationMember), args.Error(1)
}

func (m *mockMembershipRepo) ListUserIDs(conversationID string) ([]string, error) {
	args := m.Called(conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockMembershipRepo) Count(conversationID string) (int64, error) {
	args := m.Called(conversationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockMembershipRepo) Add(members []domain.ConversationMember) error {
	return m.Called(members).Error(0)
}

func (m *mockMembershipRepo) Remove(conversationID, userID string) error {
	return m.Called(conversationID, userID).Error(0)
}

func (m *mockMembershipRepo) UpdateRole(conversationID, userID, role string) error {
	return m.Called(conversationID, userID, role).Error(0)
}

func (m *mockMembershipRepo) IsMember(conversationID, userID string) (bool, error) {
	args := m.Called(conversationID, userID)
	return args.Bool(0), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(id string) (*domain.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) FindByIDs(ids []string) ([]*domain.User, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *mockUserRepo) Create(user *domain.User) error {
	return m.Called(user).Error(0)
}

func (m *mockUserRepo) Update(id string, updates map[string]interface{}) error {
	return m.Called(id, updates).Error(0)
}

func (m *mockUserRepo) Exists(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

type mockBlockRepo struct {
	mock.Mock
}

func (m *mockBlockRepo) Create(userID, blockedUserID string) (*domain.UserBlock, error) {
	args := m.Called(userID, blockedUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserBlock), args.Error(1)
}

func (m *mockBlockRepo) Delete(userID, blockedUserID string) error {
	return m.Called(userID, blockedUserID).Error(0)
}

func (m *mockBlockRepo) FindByUser(userID string) ([]*domain.UserBlock, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UserBlock), args.Error(1)
}

func (m *mockBlockRepo) Exists(userID, blockedUserID string) (bool, error) {
	args := m.Called(userID, blockedUserID)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BroadcastToRoom(room string, event *ws.Event) {
	m.Called(room, event)
}

func (m *mockNotifier) SendToUser(userID string, event *ws.Event) {
	m.Called(userID, event)
}

func (m *mockNotifier) RemoveUserFromRoom(userID, room string) {
	m.Called(userID, room)
}
