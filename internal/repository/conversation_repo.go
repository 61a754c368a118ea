package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/parleychat/parley-backend/internal/domain"
	"gorm.io/gorm"
)

// ConversationListItem bundles everything the conversation-list
// projection needs for one (user, conversation) pair.
type ConversationListItem struct {
	Conversation *domain.Conversation
	Member       *domain.ConversationMember
	LastMessage  *domain.Message
	PeerID       string // direct conversations only
}

// ConversationRepository conversation data access interface
type ConversationRepository interface {
	FindByID(id string) (*domain.Conversation, error)
	FindDirectBetween(userA, userB string) (*domain.Conversation, error)
	CreateDirect(userA, userB string) (*domain.Conversation, error)
	CreateGroup(title, ownerID string, memberIDs []string) (*domain.Conversation, error)
	ListForUser(userID string) ([]*ConversationListItem, error)
	SetDeleted(conversationID, userID string, deleted bool) error
	SetUnread(conversationID, userID string, unread bool) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) FindByID(id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.db.Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirectBetween finds the direct conversation both users belong to
func (r *conversationRepository) FindDirectBetween(userA, userB string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.
		Joins("JOIN conversation_members ma ON ma.conversation_id = conversations.id AND ma.user_id = ?", userA).
		Joins("JOIN conversation_members mb ON mb.conversation_id = conversations.id AND mb.user_id = ?", userB).
		Where("conversations.kind = ?", domain.KindDirect).
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateDirect creates a direct conversation with its two fixed members
func (r *conversationRepository) CreateDirect(userA, userB string) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		Kind:      domain.KindDirect,
		UpdatedAt: time.Now(),
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		members := []domain.ConversationMember{
			{ConversationID: conv.ID, UserID: userA, Role: domain.RoleMember},
			{ConversationID: conv.ID, UserID: userB, Role: domain.RoleMember},
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateGroup creates a group conversation; the creator becomes owner
func (r *conversationRepository) CreateGroup(title, ownerID string, memberIDs []string) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		Kind:      domain.KindGroup,
		Title:     title,
		UpdatedAt: time.Now(),
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		members := []domain.ConversationMember{
			{ConversationID: conv.ID, UserID: ownerID, Role: domain.RoleOwner},
		}
		for _, id := range memberIDs {
			if id == ownerID {
				continue
			}
			members = append(members, domain.ConversationMember{
				ConversationID: conv.ID, UserID: id, Role: domain.RoleMember,
			})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// ListForUser returns the user's visible conversations with membership
// state and last message, newest activity first.
func (r *conversationRepository) ListForUser(userID string) ([]*ConversationListItem, error) {
	var members []*domain.ConversationMember
	err := r.db.Where("user_id = ? AND deleted = ?", userID, false).Find(&members).Error
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	memberByConv := make(map[string]*domain.ConversationMember, len(members))
	convIDs := make([]string, 0, len(members))
	for _, m := range members {
		memberByConv[m.ConversationID] = m
		convIDs = append(convIDs, m.ConversationID)
	}

	var convs []*domain.Conversation
	err = r.db.Where("id IN ?", convIDs).Order("updated_at DESC").Find(&convs).Error
	if err != nil {
		return nil, err
	}

	var lastIDs []int64
	for _, c := range convs {
		if c.LastMessageID != nil {
			lastIDs = append(lastIDs, *c.LastMessageID)
		}
	}
	lastByID := make(map[int64]*domain.Message, len(lastIDs))
	if len(lastIDs) > 0 {
		var msgs []*domain.Message
		if err := r.db.Where("id IN ?", lastIDs).Find(&msgs).Error; err != nil {
			return nil, err
		}
		for _, m := range msgs {
			lastByID[m.ID] = m
		}
	}

	// Resolve direct-chat peers in one query
	var peers []*domain.ConversationMember
	err = r.db.Where("conversation_id IN ? AND user_id <> ?", convIDs, userID).Find(&peers).Error
	if err != nil {
		return nil, err
	}
	peerByConv := make(map[string]string)
	for _, p := range peers {
		if _, ok := peerByConv[p.ConversationID]; !ok {
			peerByConv[p.ConversationID] = p.UserID
		}
	}

	items := make([]*ConversationListItem, 0, len(convs))
	for _, c := range convs {
		item := &ConversationListItem{
			Conversation: c,
			Member:       memberByConv[c.ID],
		}
		if c.LastMessageID != nil {
			item.LastMessage = lastByID[*c.LastMessageID]
		}
		if c.Kind == domain.KindDirect {
			item.PeerID = peerByConv[c.ID]
		}
		items = append(items, item)
	}
	return items, nil
}

// SetDeleted flips the per-member hidden flag
func (r *conversationRepository) SetDeleted(conversationID, userID string, deleted bool) error {
	result := r.db.Model(&domain.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("deleted", deleted)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetUnread flips the per-member unread flag
func (r *conversationRepository) SetUnread(conversationID, userID string, unread bool) error {
	return r.db.Model(&domain.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("unread", unread).Error
}
