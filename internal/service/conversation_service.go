package service

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/repository"
	"github.com/parleychat/parley-backend/internal/ws"
	"github.com/parleychat/parley-backend/pkg/cache"
	"github.com/parleychat/parley-backend/pkg/logger"
)

// ConversationService business logic for the REST conversation surface
type ConversationService interface {
	List(ctx context.Context, userID string) ([]*domain.ConversationSummary, error)
	StartDirect(ctx context.Context, userID string, req *domain.StartDirectRequest) (*domain.ConversationSummary, error)
	CreateGroup(ctx context.Context, userID string, req *domain.CreateGroupRequest) (*domain.ConversationSummary, error)
	// Hide flips the caller's deleted flag; the conversation survives
	// for everyone else and reappears on new traffic.
	Hide(ctx context.Context, userID, conversationID string) error
	Members(ctx context.Context, userID, conversationID string) ([]*domain.MemberResponse, error)
	Messages(ctx context.Context, userID, conversationID string, afterID int64, limit int) ([]*domain.MessageResponse, error)
}

type conversationService struct {
	convRepo   repository.ConversationRepository
	msgRepo    repository.MessageRepository
	memberRepo repository.MembershipRepository
	userRepo   repository.UserRepository
	policy     AccessPolicy
	notifier   Notifier
	cache      cache.Service
	summaries  *summaryBuilder
}

// NewConversationService creates a new ConversationService
func NewConversationService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	memberRepo repository.MembershipRepository,
	userRepo repository.UserRepository,
	policy AccessPolicy,
	notifier Notifier,
	cacheService cache.Service,
	media MediaResolver,
) ConversationService {
	return &conversationService{
		convRepo:   convRepo,
		msgRepo:    msgRepo,
		memberRepo: memberRepo,
		userRepo:   userRepo,
		policy:     policy,
		notifier:   notifier,
		cache:      cacheService,
		summaries:  &summaryBuilder{userRepo: userRepo, media: media},
	}
}

// List returns the caller's visible conversations, newest activity
// first. Cached per user for a short TTL; every projection-changing
// write invalidates the entry.
func (s *conversationService) List(ctx context.Context, userID string) ([]*domain.ConversationSummary, error) {
	if s.cache != nil && s.cache.IsAvailable() {
		if data, err := s.cache.GetConversations(ctx, userID); err == nil {
			var cached []*domain.ConversationSummary
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	items, err := s.convRepo.ListForUser(userID)
	if err != nil {
		return nil, err
	}

	peerIDs := make([]string, 0, len(items))
	for _, item := range items {
		if item.PeerID != "" {
			peerIDs = append(peerIDs, item.PeerID)
		}
	}
	users, err := s.userRepo.FindByIDs(peerIDs)
	if err != nil {
		return nil, err
	}
	userByID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	out := make([]*domain.ConversationSummary, 0, len(items))
	for _, item := range items {
		title := item.Conversation.Title
		picture := ""
		if peer, ok := userByID[item.PeerID]; ok {
			title = peer.Nickname
			picture = s.summaries.avatarURL(ctx, peer.AvatarKey)
		}
		out = append(out, newSummary(item.Conversation, item.Member, item.LastMessage, title, picture))
	}

	if s.cache != nil && s.cache.IsAvailable() {
		if err := s.cache.SetConversations(ctx, userID, out); err != nil {
			logger.Get().Warn().Err(err).Msg("conversation cache write failed")
		}
	}
	return out, nil
}

// StartDirect returns the existing direct conversation with the peer
// or creates one. Starting an existing hidden chat un-hides it for the
// caller.
func (s *conversationService) StartDirect(ctx context.Context, userID string, req *domain.StartDirectRequest) (*domain.ConversationSummary, error) {
	if req.PeerID == userID {
		return nil, common.ErrInvalidInput
	}
	peer, err := s.userRepo.FindByID(req.PeerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}

	conv, err := s.convRepo.FindDirectBetween(userID, req.PeerID)
	switch {
	case err == nil:
		if err := s.convRepo.SetDeleted(conv.ID, userID, false); err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		conv, err = s.convRepo.CreateDirect(userID, req.PeerID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.invalidate(ctx, userID)

	member, err := s.memberRepo.Find(conv.ID, userID)
	if err != nil {
		return nil, err
	}
	var last *domain.Message
	if conv.LastMessageID != nil {
		if m, err := s.msgRepo.FindByID(*conv.LastMessageID); err == nil {
			last = m
		}
	}
	return newSummary(conv, member, last, peer.Nickname, s.summaries.avatarURL(ctx, peer.AvatarKey)), nil
}

// CreateGroup creates a group conversation with the caller as owner
// and notifies every invited member's live connections.
func (s *conversationService) CreateGroup(ctx context.Context, userID string, req *domain.CreateGroupRequest) (*domain.ConversationSummary, error) {
	memberIDs := make([]string, 0, len(req.MemberIDs))
	for _, id := range req.MemberIDs {
		if id != userID {
			memberIDs = append(memberIDs, id)
		}
	}
	if req.Title == "" || len(memberIDs) == 0 {
		return nil, common.ErrInvalidInput
	}
	if len(memberIDs)+1 > domain.MaxGroupMembers {
		return nil, common.ErrGroupFull
	}

	users, err := s.userRepo.FindByIDs(memberIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(memberIDs) {
		return nil, common.ErrUserNotFound
	}

	conv, err := s.convRepo.CreateGroup(req.Title, userID, memberIDs)
	if err != nil {
		return nil, err
	}

	for _, id := range memberIDs {
		s.notifier.SendToUser(id, &ws.Event{
			Type: ws.EventMembershipAdded,
			Payload: &ws.MembershipChangePayload{
				ConversationID: conv.ID,
				UserID:         id,
			},
		})
	}
	s.invalidate(ctx, append(memberIDs, userID)...)

	member, err := s.memberRepo.Find(conv.ID, userID)
	if err != nil {
		return nil, err
	}
	return newSummary(conv, member, nil, conv.Title, ""), nil
}

func (s *conversationService) Hide(ctx context.Context, userID, conversationID string) error {
	if err := s.convRepo.SetDeleted(conversationID, userID, true); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotMember
		}
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *conversationService) Members(ctx context.Context, userID, conversationID string) ([]*domain.MemberResponse, error) {
	ok, err := s.policy.IsMember(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrNotMember
	}

	members, err := s.memberRepo.List(conversationID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		return nil, err
	}
	nicknames := make(map[string]string, len(users))
	for _, u := range users {
		nicknames[u.ID] = u.Nickname
	}

	out := make([]*domain.MemberResponse, len(members))
	for i, m := range members {
		out[i] = m.ToResponse(nicknames[m.UserID])
	}
	return out, nil
}

// Messages serves the REST history page. Same visibility rules as the
// ws snapshot: members only, non-deleted, persisted order.
func (s *conversationService) Messages(ctx context.Context, userID, conversationID string, afterID int64, limit int) ([]*domain.MessageResponse, error) {
	ok, err := s.policy.IsMember(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrNotMember
	}

	msgs, err := s.msgRepo.ListAfter(conversationID, afterID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.MessageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = m.ToResponse()
	}
	return out, nil
}

func (s *conversationService) invalidate(ctx context.Context, userIDs ...string) {
	if s.cache == nil || !s.cache.IsAvailable() || len(userIDs) == 0 {
		return
	}
	if err := s.cache.InvalidateConversations(ctx, userIDs...); err != nil {
		logger.Get().Warn().Err(err).Msg("conversation cache invalidation failed")
	}
}
