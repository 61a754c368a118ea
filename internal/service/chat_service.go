package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/parleychat/parley-backend/internal/common"
	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/repository"
	"github.com/parleychat/parley-backend/internal/ws"
	"github.com/parleychat/parley-backend/pkg/cache"
	"github.com/parleychat/parley-backend/pkg/logger"
)

// Notifier is the fan-out surface the chat core pushes through.
// *ws.Hub satisfies it; tests substitute a mock.
type Notifier interface {
	BroadcastToRoom(room string, event *ws.Event)
	SendToUser(userID string, event *ws.Event)
	RemoveUserFromRoom(userID, room string)
}

// ChatService handles conversation events: message lifecycle, read
// state and membership changes. Every method persists first and
// broadcasts second; no event reaches a client before its write
// committed.
type ChatService interface {
	SendMessage(ctx context.Context, senderID string, req *domain.SendMessageRequest) (*domain.MessageResponse, error)
	EditMessage(ctx context.Context, requesterID string, req *domain.EditMessageRequest) (*domain.MessageResponse, error)
	DeleteMessage(ctx context.Context, requesterID string, messageID int64) error
	MarkRead(ctx context.Context, userID, conversationID string) error
	ChangeMembership(ctx context.Context, requesterID, conversationID string, req *domain.ChangeMembershipRequest) error
	// RoomSnapshot returns the ordered non-deleted messages after the
	// client's watermark; afterID 0 means full history.
	RoomSnapshot(ctx context.Context, userID, conversationID string, afterID int64) ([]*domain.MessageResponse, error)
}

type chatService struct {
	convRepo   repository.ConversationRepository
	msgRepo    repository.MessageRepository
	memberRepo repository.MembershipRepository
	userRepo   repository.UserRepository
	policy     AccessPolicy
	notifier   Notifier
	cache      cache.Service
	summaries  *summaryBuilder
}

// NewChatService creates a new ChatService. cacheService and media may
// be nil when Redis or object storage is not configured.
func NewChatService(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	memberRepo repository.MembershipRepository,
	userRepo repository.UserRepository,
	policy AccessPolicy,
	notifier Notifier,
	cacheService cache.Service,
	media MediaResolver,
) ChatService {
	return &chatService{
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

// SendMessage persists and fans out one message. A replayed client
// token returns the originally stored message without a second
// broadcast.
func (s *chatService) SendMessage(ctx context.Context, senderID string, req *domain.SendMessageRequest) (*domain.MessageResponse, error) {
	// The ws path unmarshals without binding validation, so the token
	// is checked here. An empty token would alias every untagged send
	// into one dedup bucket.
	if req.ClientToken == "" {
		return nil, common.ErrInvalidInput
	}
	if req.Content == "" && req.MediaKey == "" {
		return nil, common.ErrInvalidInput
	}

	conv, err := s.convRepo.FindByID(req.ConversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrConversationNotFound
		}
		return nil, err
	}

	ok, err := s.policy.IsMember(conv.ID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrNotMember
	}

	if conv.Kind == domain.KindDirect {
		recipient, err := s.directPeer(conv.ID, senderID)
		if err != nil {
			return nil, err
		}
		blocked, err := s.policy.IsBlocked(senderID, recipient)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, common.ErrBlocked
		}
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        req.Content,
		MediaKey:       req.MediaKey,
		ClientToken:    req.ClientToken,
	}
	stored, duplicate, err := s.msgRepo.Create(msg)
	if err != nil {
		return nil, err
	}
	if duplicate {
		// A token replay only resolves for its original sender and
		// room; anyone else reusing it must not see the stored message.
		if stored.SenderID != senderID || stored.ConversationID != conv.ID {
			return nil, common.ErrConflict
		}
		return stored.ToResponse(), nil
	}

	s.notifier.BroadcastToRoom(conv.ID, &ws.Event{
		Type:    ws.EventChatMessage,
		Payload: stored.ToResponse(),
	})
	s.pushProjections(ctx, conv.ID)

	return stored.ToResponse(), nil
}

// EditMessage rewrites a message's content. Sender-only. Open thread
// views converge through a room snapshot; sidebars are refreshed only
// when the edited message is the conversation's current last.
func (s *chatService) EditMessage(ctx context.Context, requesterID string, req *domain.EditMessageRequest) (*domain.MessageResponse, error) {
	if req.Content == "" {
		return nil, common.ErrInvalidInput
	}

	msg, err := s.msgRepo.FindByID(req.MessageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrMessageNotFound
		}
		return nil, err
	}
	if msg.SenderID != requesterID {
		return nil, common.ErrNotSender
	}

	if err := s.msgRepo.SetContent(msg.ID, req.Content); err != nil {
		return nil, err
	}
	msg.Content = req.Content
	msg.Edited = true

	s.broadcastMessageList(msg.ConversationID)

	if conv, err := s.convRepo.FindByID(msg.ConversationID); err == nil &&
		conv.LastMessageID != nil && *conv.LastMessageID == msg.ID {
		s.pushProjections(ctx, msg.ConversationID)
	}

	return msg.ToResponse(), nil
}

// DeleteMessage soft-deletes a message. Sender-only. The conversation's
// last-message pointer is recomputed from persisted state inside the
// repository transaction, never taken from the client.
func (s *chatService) DeleteMessage(ctx context.Context, requesterID string, messageID int64) error {
	msg, err := s.msgRepo.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrMessageNotFound
		}
		return err
	}
	if msg.SenderID != requesterID {
		return common.ErrNotSender
	}

	_, wasLast, err := s.msgRepo.SoftDelete(msg)
	if err != nil {
		return err
	}

	s.broadcastMessageList(msg.ConversationID)
	if wasLast {
		s.pushProjections(ctx, msg.ConversationID)
	}
	return nil
}

// MarkRead clears the caller's unread flag. Idempotent; clearing an
// already-read conversation is a no-op that still refreshes the
// caller's other sessions.
func (s *chatService) MarkRead(ctx context.Context, userID, conversationID string) error {
	ok, err := s.policy.IsMember(conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrNotMember
	}

	if err := s.convRepo.SetUnread(conversationID, userID, false); err != nil {
		return err
	}
	s.pushProjections(ctx, conversationID, userID)
	return nil
}

// ChangeMembership applies one group membership action on behalf of
// the requester, enforcing the role table before any write.
func (s *chatService) ChangeMembership(ctx context.Context, requesterID, conversationID string, req *domain.ChangeMembershipRequest) error {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrConversationNotFound
		}
		return err
	}
	if conv.Kind != domain.KindGroup {
		return common.ErrInvalidInput
	}

	requester, err := s.memberRepo.Find(conversationID, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotMember
		}
		return err
	}

	switch req.Action {
	case domain.MembershipAdd:
		return s.addMembers(ctx, conv, requester, req.Targets)
	case domain.MembershipRemove:
		if len(req.Targets) != 1 {
			return common.ErrInvalidInput
		}
		return s.removeMember(ctx, conv, requester, req.Targets[0])
	case domain.MembershipLeave:
		return s.leave(ctx, conv, requester)
	case domain.MembershipChangeRole:
		if len(req.Targets) != 1 {
			return common.ErrInvalidInput
		}
		return s.changeRole(ctx, conv, requester, req.Targets[0], req.Role)
	default:
		return common.ErrInvalidInput
	}
}

// RoomSnapshot returns the authoritative catch-up snapshot for one
// room. Membership is checked per call; a removed user gets nothing.
func (s *chatService) RoomSnapshot(ctx context.Context, userID, conversationID string, afterID int64) ([]*domain.MessageResponse, error) {
	ok, err := s.policy.IsMember(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrNotMember
	}

	msgs, err := s.msgRepo.ListAfter(conversationID, afterID, 0)
	if err != nil {
		return nil, err
	}
	responses := make([]*domain.MessageResponse, len(msgs))
	for i, m := range msgs {
		responses[i] = m.ToResponse()
	}
	return responses, nil
}

// addMembers is owner-only and respects the group size cap
func (s *chatService) addMembers(ctx context.Context, conv *domain.Conversation, requester *domain.ConversationMember, targets []string) error {
	if requester.Role != domain.RoleOwner {
		return common.ErrForbidden
	}
	if len(targets) == 0 {
		return common.ErrInvalidInput
	}

	var additions []domain.ConversationMember
	for _, target := range targets {
		exists, err := s.userRepo.Exists(target)
		if err != nil {
			return err
		}
		if !exists {
			return common.ErrUserNotFound
		}
		already, err := s.memberRepo.IsMember(conv.ID, target)
		if err != nil {
			return err
		}
		if already {
			continue
		}
		additions = append(additions, domain.ConversationMember{
			ConversationID: conv.ID,
			UserID:         target,
			Role:           domain.RoleMember,
		})
	}
	if len(additions) == 0 {
		return nil
	}

	count, err := s.memberRepo.Count(conv.ID)
	if err != nil {
		return err
	}
	if count+int64(len(additions)) > domain.MaxGroupMembers {
		return common.ErrGroupFull
	}

	if err := s.memberRepo.Add(additions); err != nil {
		return err
	}

	added := make([]string, len(additions))
	for i, m := range additions {
		added[i] = m.UserID
		s.notifier.SendToUser(m.UserID, &ws.Event{
			Type: ws.EventMembershipAdded,
			Payload: &ws.MembershipChangePayload{
				ConversationID: conv.ID,
				UserID:         m.UserID,
			},
		})
	}
	s.pushProjections(ctx, conv.ID, added...)
	return nil
}

// removeMember enforces the role table: owners remove anyone but
// themselves, admins remove plain members only.
func (s *chatService) removeMember(ctx context.Context, conv *domain.Conversation, requester *domain.ConversationMember, targetID string) error {
	if targetID == requester.UserID {
		return common.ErrInvalidInput
	}

	target, err := s.memberRepo.Find(conv.ID, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotFound
		}
		return err
	}

	switch requester.Role {
	case domain.RoleOwner:
		// owners never get removed, only leave
		if target.Role == domain.RoleOwner {
			return common.ErrForbidden
		}
	case domain.RoleAdmin:
		if target.Role != domain.RoleMember {
			return common.ErrForbidden
		}
	default:
		return common.ErrForbidden
	}

	if err := s.memberRepo.Remove(conv.ID, targetID); err != nil {
		return err
	}

	s.notifier.RemoveUserFromRoom(targetID, conv.ID)
	s.notifier.SendToUser(targetID, &ws.Event{
		Type: ws.EventMembershipRemoved,
		Payload: &ws.MembershipChangePayload{
			ConversationID: conv.ID,
			UserID:         targetID,
		},
	})
	s.invalidateConversations(ctx, targetID)
	return nil
}

// leave removes the requester. A departing owner hands ownership to
// the longest-tenured admin, falling back to the longest-tenured
// member, so the group never ends up ownerless while populated.
func (s *chatService) leave(ctx context.Context, conv *domain.Conversation, requester *domain.ConversationMember) error {
	if err := s.memberRepo.Remove(conv.ID, requester.UserID); err != nil {
		return err
	}

	if requester.Role == domain.RoleOwner {
		if remaining, err := s.memberRepo.List(conv.ID); err == nil && len(remaining) > 0 {
			successor := remaining[0]
			for _, m := range remaining {
				if m.Role == domain.RoleAdmin {
					successor = m
					break
				}
			}
			if err := s.memberRepo.UpdateRole(conv.ID, successor.UserID, domain.RoleOwner); err != nil {
				logger.Get().Error().Err(err).
					Str("conversation_id", conv.ID).
					Str("user_id", successor.UserID).
					Msg("ownership transfer failed")
			}
		}
	}

	s.notifier.RemoveUserFromRoom(requester.UserID, conv.ID)
	s.notifier.SendToUser(requester.UserID, &ws.Event{
		Type: ws.EventMembershipRemoved,
		Payload: &ws.MembershipChangePayload{
			ConversationID: conv.ID,
			UserID:         requester.UserID,
		},
	})
	s.invalidateConversations(ctx, requester.UserID)
	return nil
}

// changeRole is owner-only; the owner role itself is never granted or
// revoked here, only through leave-with-succession.
func (s *chatService) changeRole(ctx context.Context, conv *domain.Conversation, requester *domain.ConversationMember, targetID, role string) error {
	if requester.Role != domain.RoleOwner {
		return common.ErrForbidden
	}
	if targetID == requester.UserID {
		return common.ErrInvalidInput
	}
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return common.ErrInvalidInput
	}

	if err := s.memberRepo.UpdateRole(conv.ID, targetID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.ErrNotFound
		}
		return err
	}
	s.invalidateConversations(ctx, targetID)
	return nil
}

// directPeer returns the other member of a direct conversation
func (s *chatService) directPeer(conversationID, userID string) (string, error) {
	ids, err := s.memberRepo.ListUserIDs(conversationID)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		if id != userID {
			return id, nil
		}
	}
	return "", common.ErrNotFound
}

// pushProjections recomputes the sidebar entry from persisted state
// and pushes it to each listed user (all members when none listed).
// Fan-out failures are logged, never surfaced: the write already
// committed and clients reconverge on their next snapshot.
func (s *chatService) pushProjections(ctx context.Context, conversationID string, only ...string) {
	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		logger.Get().Error().Err(err).Str("conversation_id", conversationID).Msg("projection refresh failed")
		return
	}
	members, err := s.memberRepo.List(conversationID)
	if err != nil {
		logger.Get().Error().Err(err).Str("conversation_id", conversationID).Msg("projection refresh failed")
		return
	}

	var last *domain.Message
	if conv.LastMessageID != nil {
		if m, err := s.msgRepo.FindByID(*conv.LastMessageID); err == nil {
			last = m
		}
	}

	byUser, err := s.summaries.summaries(ctx, conv, members, last)
	if err != nil {
		logger.Get().Error().Err(err).Str("conversation_id", conversationID).Msg("projection refresh failed")
		return
	}

	targets := make([]string, 0, len(members))
	if len(only) > 0 {
		targets = only
	} else {
		for _, m := range members {
			targets = append(targets, m.UserID)
		}
	}

	for _, userID := range targets {
		summary, ok := byUser[userID]
		if !ok {
			continue
		}
		s.notifier.SendToUser(userID, &ws.Event{
			Type:    ws.EventProjectionUpdate,
			Payload: &ws.ProjectionUpdatePayload{Conversation: summary},
		})
	}
	s.invalidateConversations(ctx, targets...)
}

// broadcastMessageList pushes the full authoritative snapshot to the
// room after an edit or delete so every open thread view converges
func (s *chatService) broadcastMessageList(conversationID string) {
	msgs, err := s.msgRepo.ListAfter(conversationID, 0, 0)
	if err != nil {
		logger.Get().Error().Err(err).Str("conversation_id", conversationID).Msg("message list broadcast failed")
		return
	}
	responses := make([]*domain.MessageResponse, len(msgs))
	for i, m := range msgs {
		responses[i] = m.ToResponse()
	}
	s.notifier.BroadcastToRoom(conversationID, &ws.Event{
		Type: ws.EventMessageListUpdate,
		Payload: &ws.MessageListUpdatePayload{
			ConversationID: conversationID,
			Messages:       responses,
		},
	})
}

func (s *chatService) invalidateConversations(ctx context.Context, userIDs ...string) {
	if s.cache == nil || !s.cache.IsAvailable() || len(userIDs) == 0 {
		return
	}
	if err := s.cache.InvalidateConversations(ctx, userIDs...); err != nil {
		logger.Get().Warn().Err(err).Msg("conversation cache invalidation failed")
	}
}
