package service

import (
	"context"
	"time"

	"github.com/parleychat/parley-backend/internal/domain"
	"github.com/parleychat/parley-backend/internal/repository"
	"github.com/parleychat/parley-backend/pkg/storage"
)

// mediaURLTTL is the lifetime of presigned avatar/media URLs embedded
// in projections. The sidebar is rebroadcast often, so URLs stay short.
const mediaURLTTL = 15 * time.Minute

// MediaResolver turns storage keys into short-lived URLs. *storage.S3Client
// satisfies it; services hold the interface so tests need no AWS client.
type MediaResolver interface {
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

var _ MediaResolver = (*storage.S3Client)(nil)

// summaryBuilder derives per-user conversation-list entries. The
// summary is pure derived state: everything in it is recomputed from
// conversation, membership and message rows on each call.
type summaryBuilder struct {
	userRepo repository.UserRepository
	media    MediaResolver
}

// summaries computes the sidebar entry of every member of one
// conversation in a single pass (one user fetch for the whole roster).
// Direct conversations take their title and picture from the peer.
func (b *summaryBuilder) summaries(ctx context.Context, conv *domain.Conversation, members []*domain.ConversationMember, last *domain.Message) (map[string]*domain.ConversationSummary, error) {
	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := b.userRepo.FindByIDs(userIDs)
	if err != nil {
		return nil, err
	}
	userByID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	out := make(map[string]*domain.ConversationSummary, len(members))
	for _, m := range members {
		title := conv.Title
		picture := ""
		if conv.Kind == domain.KindDirect {
			for _, other := range members {
				if other.UserID == m.UserID {
					continue
				}
				if peer, ok := userByID[other.UserID]; ok {
					title = peer.Nickname
					picture = b.avatarURL(ctx, peer.AvatarKey)
				}
				break
			}
		}
		out[m.UserID] = newSummary(conv, m, last, title, picture)
	}
	return out, nil
}

func (b *summaryBuilder) avatarURL(ctx context.Context, key string) string {
	if key == "" || b.media == nil {
		return ""
	}
	url, err := b.media.PresignedURL(ctx, key, mediaURLTTL)
	if err != nil {
		return ""
	}
	return url
}

// newSummary assembles one sidebar entry from already-resolved parts
func newSummary(conv *domain.Conversation, member *domain.ConversationMember, last *domain.Message, title, pictureURL string) *domain.ConversationSummary {
	s := &domain.ConversationSummary{
		ID:         conv.ID,
		Kind:       conv.Kind,
		Title:      title,
		PictureURL: pictureURL,
		Unread:     member.Unread,
		Deleted:    member.Deleted,
	}
	if last != nil {
		s.LastMessage = last.Preview()
		s.LastMessageTime = last.CreatedAt.Format(time.RFC3339)
	}
	return s
}
