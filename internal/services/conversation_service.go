package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hivley/internal/domain"
	"hivley/internal/domain/conversation"
	"hivley/internal/domain/message"
	"hivley/internal/proxy"
	"hivley/internal/repository"
	hivley_errors "hivley/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ConversationService struct {
	db        *gorm.DB
	repo      repository.ConversationRepository
	msgRepo   repository.MessageRepository
	users     *UserService
	access    *proxy.AccessControl
	publisher *EventPublisher
}

func NewConversationService(db *gorm.DB, repo repository.ConversationRepository, msgRepo repository.MessageRepository, users *UserService, access *proxy.AccessControl, publisher *EventPublisher) *ConversationService {
	return &ConversationService{db: db, repo: repo, msgRepo: msgRepo, users: users, access: access, publisher: publisher}
}

type ParticipantView struct {
	ProfileSummary
	IsAdmin bool
}

// Summary is one row of a conversation list, as seen by one viewer.
type Summary struct {
	ID                   uuid.UUID
	Type                 domain.ConversationType
	Title                string
	Preview              string
	CreatedAt            time.Time
	LastMessageAt        *time.Time
	LastMessageStatus    *domain.AggregateStatus
	UnreadCount          int64
	NotificationsEnabled bool
	IsAdmin              bool
	Metadata             datatypes.JSONMap
	Participants         []ParticipantView
}

// CreateOrGetDirect returns the direct conversation between initiator and
// other, creating it on first use. created reports whether this call
// inserted it. Concurrent callers converge on one row through the unique
// direct key.
func (s *ConversationService) CreateOrGetDirect(ctx context.Context, initiatorID, otherID uuid.UUID, metadata map[string]interface{}) (conversation.Conversation, bool, error) {
	if initiatorID == otherID {
		return conversation.Conversation{}, false, fmt.Errorf("%w: cannot start a conversation with yourself", hivley_errors.ErrInvalidInput)
	}

	key := conversation.DirectKey(initiatorID, otherID)
	existing, err := s.repo.GetByDirectKey(ctx, key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, hivley_errors.ErrNotFound) {
		return conversation.Conversation{}, false, err
	}

	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return conversation.Conversation{}, false, err
	}

	conv := conversation.Conversation{
		Type:      domain.ConversationTypeDirect,
		CreatedBy: initiatorID,
		DirectKey: &key,
		Metadata:  datatypes.JSONMap(metadata),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convRepo := repository.NewConversationRepository(tx)
		return convRepo.CreateWithParticipants(ctx, &conv, []conversation.Participant{
			{ProfileID: initiatorID, IsAdmin: true, NotificationsEnabled: true},
			{ProfileID: otherID, NotificationsEnabled: true},
		})
	})
	if errors.Is(err, hivley_errors.ErrAlreadyExists) {
		existing, err := s.repo.GetByDirectKey(ctx, key)
		return existing, false, err
	}
	if err != nil {
		return conversation.Conversation{}, false, err
	}

	s.publisher.ConversationCreated(ctx, conv, []uuid.UUID{initiatorID, otherID})
	return conv, true, nil
}

func (s *ConversationService) CreateGroup(ctx context.Context, initiatorID uuid.UUID, participantIDs []uuid.UUID, title string) (conversation.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return conversation.Conversation{}, fmt.Errorf("%w: group title is required", hivley_errors.ErrInvalidInput)
	}

	members := make([]uuid.UUID, 0, len(participantIDs))
	for _, id := range uniqueIDs(participantIDs) {
		if id != initiatorID {
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return conversation.Conversation{}, fmt.Errorf("%w: a group needs at least one other participant", hivley_errors.ErrInvalidInput)
	}

	dir, err := s.users.Directory(ctx, members)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if len(dir) != len(members) {
		return conversation.Conversation{}, fmt.Errorf("%w: unknown participant", hivley_errors.ErrNotFound)
	}

	participants := make([]conversation.Participant, 0, len(members)+1)
	participants = append(participants, conversation.Participant{ProfileID: initiatorID, IsAdmin: true, NotificationsEnabled: true})
	for _, id := range members {
		participants = append(participants, conversation.Participant{ProfileID: id, NotificationsEnabled: true})
	}

	conv := conversation.Conversation{
		Type:      domain.ConversationTypeGroup,
		Title:     &title,
		CreatedBy: initiatorID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convRepo := repository.NewConversationRepository(tx)
		return convRepo.CreateWithParticipants(ctx, &conv, participants)
	})
	if err != nil {
		return conversation.Conversation{}, err
	}

	s.publisher.ConversationCreated(ctx, conv, append([]uuid.UUID{initiatorID}, members...))
	return conv, nil
}

// List returns the viewer's visible conversations, most recent first.
func (s *ConversationService) List(ctx context.Context, viewerID uuid.UUID) ([]Summary, error) {
	convs, err := s.repo.GetUserConversations(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	for _, c := range convs {
		for _, p := range c.Participants {
			ids = append(ids, p.ProfileID)
		}
	}
	dir, err := s.users.Directory(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := Names(dir)

	out := make([]Summary, 0, len(convs))
	for _, c := range convs {
		if !conversation.Visible(c, viewerID, names) {
			continue
		}
		sum, err := s.summarize(ctx, c, viewerID, dir)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *ConversationService) Get(ctx context.Context, viewerID, conversationID uuid.UUID) (Summary, error) {
	if err := s.access.CanViewConversation(ctx, viewerID, conversationID); err != nil {
		return Summary{}, err
	}
	c, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return Summary{}, err
	}
	ids := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.ProfileID)
	}
	dir, err := s.users.Directory(ctx, ids)
	if err != nil {
		return Summary{}, err
	}
	return s.summarize(ctx, c, viewerID, dir)
}

// MarkRead moves the viewer's read marker to now.
func (s *ConversationService) MarkRead(ctx context.Context, viewerID, conversationID uuid.UUID) error {
	if err := s.access.CanViewConversation(ctx, viewerID, conversationID); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, conversationID, viewerID, domain.Now())
}

func (s *ConversationService) SetNotifications(ctx context.Context, viewerID, conversationID uuid.UUID, enabled bool) error {
	if err := s.access.CanViewConversation(ctx, viewerID, conversationID); err != nil {
		return err
	}
	return s.repo.SetNotifications(ctx, conversationID, viewerID, enabled)
}

func (s *ConversationService) RenameGroup(ctx context.Context, actorID, conversationID uuid.UUID, title string) (conversation.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return conversation.Conversation{}, fmt.Errorf("%w: group title is required", hivley_errors.ErrInvalidInput)
	}
	if err := s.access.CanManageGroup(ctx, actorID, conversationID); err != nil {
		return conversation.Conversation{}, err
	}
	if err := s.repo.UpdateTitle(ctx, conversationID, title); err != nil {
		return conversation.Conversation{}, err
	}
	c, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}

	ids := make([]uuid.UUID, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.ProfileID)
	}
	s.publisher.ConversationUpdated(ctx, c, ids)
	return c, nil
}

func (s *ConversationService) summarize(ctx context.Context, c conversation.Conversation, viewerID uuid.UUID, dir map[uuid.UUID]ProfileSummary) (Summary, error) {
	sum := Summary{
		ID:            c.ID,
		Type:          c.Type,
		Title:         conversation.Title(c, viewerID, Names(dir)),
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
		Metadata:      c.Metadata,
	}

	var lastReadAt *time.Time
	for _, p := range c.Participants {
		if p.ProfileID == viewerID {
			lastReadAt = p.LastReadAt
			sum.NotificationsEnabled = p.NotificationsEnabled
			sum.IsAdmin = p.IsAdmin
		}
		view := ParticipantView{ProfileSummary: ProfileSummary{ID: p.ProfileID, FullName: conversation.UnknownUser}, IsAdmin: p.IsAdmin}
		if profile, ok := dir[p.ProfileID]; ok {
			view.ProfileSummary = profile
		}
		sum.Participants = append(sum.Participants, view)
	}

	var last *message.Message
	latest, err := s.msgRepo.GetLatest(ctx, c.ID)
	switch {
	case err == nil:
		last = &latest
	case !errors.Is(err, hivley_errors.ErrNotFound):
		return Summary{}, err
	}

	if last != nil {
		sum.Preview = conversation.Preview(last, len(last.Attachments))
		if last.SenderID == viewerID {
			rows, err := s.msgRepo.GetStatuses(ctx, last.ID)
			if err != nil {
				return Summary{}, err
			}
			agg := aggregateOf(rows)
			sum.LastMessageStatus = &agg
		}
	} else {
		sum.Preview = conversation.Preview(nil, 0)
	}

	unread, err := s.msgRepo.CountUnread(ctx, c.ID, viewerID, lastReadAt)
	if err != nil {
		return Summary{}, err
	}
	sum.UnreadCount = unread
	return sum, nil
}
