// Package proxy guards conversation operations behind participation checks.
package proxy

import (
	"context"
	"errors"

	"hivley/internal/domain"
	"hivley/internal/domain/message"
	"hivley/internal/repository"
	hivley_errors "hivley/pkg/errors"

	"github.com/google/uuid"
)

type AccessControl struct {
	conversationRepo repository.ConversationRepository
}

func NewAccessControl(conversationRepo repository.ConversationRepository) *AccessControl {
	return &AccessControl{conversationRepo: conversationRepo}
}

func (a *AccessControl) CanSendMessage(ctx context.Context, userID, conversationID uuid.UUID) error {
	return a.ensureParticipant(ctx, conversationID, userID)
}

func (a *AccessControl) CanViewConversation(ctx context.Context, userID, conversationID uuid.UUID) error {
	return a.ensureParticipant(ctx, conversationID, userID)
}

// CanManageGroup allows group admins only. Direct conversations have
// nothing to manage.
func (a *AccessControl) CanManageGroup(ctx context.Context, userID, conversationID uuid.UUID) error {
	conv, err := a.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.Type != domain.ConversationTypeGroup {
		return hivley_errors.ErrInvalidInput
	}
	participant, err := a.conversationRepo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, hivley_errors.ErrNotFound) {
			return hivley_errors.ErrForbidden
		}
		return err
	}
	if !participant.IsAdmin {
		return hivley_errors.ErrForbidden
	}
	return nil
}

// CanMutateMessage allows only the original sender to edit or delete.
func (a *AccessControl) CanMutateMessage(userID uuid.UUID, m message.Message) error {
	if m.SenderID != userID {
		return hivley_errors.ErrForbidden
	}
	return nil
}

func (a *AccessControl) ensureParticipant(ctx context.Context, conversationID, userID uuid.UUID) error {
	ok, err := a.conversationRepo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return hivley_errors.ErrForbidden
	}
	return nil
}
