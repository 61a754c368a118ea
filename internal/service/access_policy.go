package service

import (
	"github.com/parleychat/parley-backend/internal/repository"
)

// AccessPolicy answers the two authorization questions the chat core
// asks on every event. Checks read persisted state synchronously;
// results are never cached across events, so a block or removal takes
// effect on the very next message.
type AccessPolicy interface {
	IsMember(conversationID, userID string) (bool, error)
	// IsBlocked reports whether recipientID has blocked senderID.
	IsBlocked(senderID, recipientID string) (bool, error)
}

type accessPolicy struct {
	memberRepo repository.MembershipRepository
	blockRepo  repository.BlockRepository
}

// NewAccessPolicy creates a new AccessPolicy
func NewAccessPolicy(memberRepo repository.MembershipRepository, blockRepo repository.BlockRepository) AccessPolicy {
	return &accessPolicy{
		memberRepo: memberRepo,
		blockRepo:  blockRepo,
	}
}

func (p *accessPolicy) IsMember(conversationID, userID string) (bool, error) {
	return p.memberRepo.IsMember(conversationID, userID)
}

func (p *accessPolicy) IsBlocked(senderID, recipientID string) (bool, error) {
	return p.blockRepo.Exists(recipientID, senderID)
}
