package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ripple/internal/core/contracts"
	"ripple/internal/core/domain"
)

// MembershipService creates group conversations and mutates their member
// sets. Membership changes go through the same transactional discipline as
// message append so concurrent mutations cannot lose updates.
type MembershipService struct {
	convRepo domain.ConversationRepository
	partRepo domain.ParticipantRepository
	tx       contracts.TxManager
	log      *slog.Logger
}

func NewMembershipService(
	log *slog.Logger,
	convRepo domain.ConversationRepository,
	partRepo domain.ParticipantRepository,
	tx contracts.TxManager,
) *MembershipService {
	return &MembershipService{
		log:      log,
		convRepo: convRepo,
		partRepo: partRepo,
		tx:       tx,
	}
}

// CreateGroup creates a named group conversation. Duplicate member ids are
// collapsed rather than rejected, and the creator is always a member even
// when absent from memberIDs.
func (s *MembershipService) CreateGroup(
	ctx context.Context,
	name string,
	creatorID string,
	memberIDs []string,
) (*domain.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrEmptyGroupName
	}
	if len(memberIDs) == 0 {
		return nil, domain.ErrNoMembers
	}
	members := collapseMembers(creatorID, memberIDs)
	conv := &domain.Conversation{
		ID:        uuid.New(),
		Kind:      domain.KindGroup,
		Name:      name,
		CreatedAt: time.Now(),
	}
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.convRepo.CreateConversation(txCtx, conv, ""); err != nil {
			return err
		}
		for _, uid := range members {
			if err := s.partRepo.AddParticipant(txCtx, conv.ID, uid); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		s.log.ErrorContext(ctx, "membership - create group - failed", "name", name, "creator_id", creatorID, "err", err)
		return nil, wrapStoreErr(err)
	}
	s.log.InfoContext(ctx, "membership - create group - success",
		"conv_id", conv.ID.String(), "name", name, "members", len(members))
	return conv, nil
}

// AddMember is idempotent: adding a present member is a no-op.
func (s *MembershipService) AddMember(ctx context.Context, convID uuid.UUID, userID string) error {
	if err := s.requireGroup(ctx, convID); err != nil {
		return err
	}
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		return s.partRepo.AddParticipant(txCtx, convID, userID)
	}); err != nil {
		s.log.ErrorContext(ctx, "membership - add member - failed", "conv_id", convID.String(), "user_id", userID, "err", err)
		return wrapStoreErr(err)
	}
	s.log.InfoContext(ctx, "membership - add member - success", "conv_id", convID.String(), "user_id", userID)
	return nil
}

// RemoveMember is idempotent: removing an absent member is a no-op.
func (s *MembershipService) RemoveMember(ctx context.Context, convID uuid.UUID, userID string) error {
	if err := s.requireGroup(ctx, convID); err != nil {
		return err
	}
	if err := s.tx.WithTx(ctx, func(txCtx context.Context) error {
		return s.partRepo.RemoveParticipant(txCtx, convID, userID)
	}); err != nil {
		s.log.ErrorContext(ctx, "membership - remove member - failed", "conv_id", convID.String(), "user_id", userID, "err", err)
		return wrapStoreErr(err)
	}
	s.log.InfoContext(ctx, "membership - remove member - success", "conv_id", convID.String(), "user_id", userID)
	return nil
}

func (s *MembershipService) IsMember(ctx context.Context, convID uuid.UUID, userID string) (bool, error) {
	ok, err := s.partRepo.IsParticipant(ctx, convID, userID)
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return ok, nil
}

func (s *MembershipService) ListMembers(ctx context.Context, convID uuid.UUID) ([]string, error) {
	members, err := s.partRepo.ListParticipants(ctx, convID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return members, nil
}

func (s *MembershipService) requireGroup(ctx context.Context, convID uuid.UUID) error {
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if conv.Kind != domain.KindGroup {
		return domain.ErrInvalidConversation
	}
	return nil
}

// collapseMembers dedupes the member list and guarantees the creator is in
// it, preserving first-seen order.
func collapseMembers(creatorID string, memberIDs []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	out := []string{creatorID}
	for _, id := range memberIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
