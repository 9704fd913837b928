package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"hivley/internal/domain"
	"hivley/internal/domain/message"
	"hivley/internal/proxy"
	"hivley/internal/repository"
	"hivley/internal/storage"
	hivley_errors "hivley/pkg/errors"
	"hivley/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type MessageService struct {
	db        *gorm.DB
	repo      repository.MessageRepository
	convRepo  repository.ConversationRepository
	access    *proxy.AccessControl
	blobs     storage.BlobStore
	publisher *EventPublisher
	log       *logger.Logger
	maxUpload int64
}

func NewMessageService(db *gorm.DB, repo repository.MessageRepository, convRepo repository.ConversationRepository, access *proxy.AccessControl, blobs storage.BlobStore, publisher *EventPublisher, log *logger.Logger, maxUploadBytes int64) *MessageService {
	if blobs == nil {
		blobs = storage.Unavailable{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &MessageService{
		db:        db,
		repo:      repo,
		convRepo:  convRepo,
		access:    access,
		blobs:     blobs,
		publisher: publisher,
		log:       log,
		maxUpload: maxUploadBytes,
	}
}

// AttachmentUpload is one file sent with a message.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type SendInput struct {
	ConversationID    uuid.UUID
	SenderID          uuid.UUID
	Content           string
	ReplyToID         *uuid.UUID
	ClientGeneratedID string
	Metadata          map[string]interface{}
	Attachments       []AttachmentUpload
}

// AttachmentResult reports the outcome of one upload. Exactly one of
// Attachment and Error is set.
type AttachmentResult struct {
	FileName   string
	Attachment *message.MessageAttachment
	Error      string
}

type SendResult struct {
	Message     message.Message
	Attachments []AttachmentResult
	// Duplicate is set when ClientGeneratedID matched an earlier send.
	Duplicate bool
}

// Page is one slice of history. NextBefore is nil at the tail.
type Page struct {
	Messages   []message.Message
	NextBefore *message.Cursor
}

func (s *MessageService) Send(ctx context.Context, in SendInput) (SendResult, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Attachments) == 0 {
		return SendResult{}, fmt.Errorf("%w: message needs content or an attachment", hivley_errors.ErrInvalidInput)
	}
	if err := s.access.CanSendMessage(ctx, in.SenderID, in.ConversationID); err != nil {
		return SendResult{}, err
	}

	if in.ClientGeneratedID != "" {
		prev, err := s.repo.GetByClientGeneratedID(ctx, in.ConversationID, in.SenderID, in.ClientGeneratedID)
		if err == nil {
			return SendResult{Message: prev, Duplicate: true}, nil
		}
		if !errors.Is(err, hivley_errors.ErrNotFound) {
			return SendResult{}, err
		}
	}

	if in.ReplyToID != nil {
		parent, err := s.repo.GetByID(ctx, *in.ReplyToID)
		if err != nil && !errors.Is(err, hivley_errors.ErrNotFound) {
			return SendResult{}, err
		}
		if err != nil || parent.ConversationID != in.ConversationID {
			return SendResult{}, fmt.Errorf("%w: reply_to_id must reference a message in this conversation", hivley_errors.ErrInvalidInput)
		}
	}

	msg := message.Message{
		ConversationID:    in.ConversationID,
		SenderID:          in.SenderID,
		Content:           content,
		ReplyToID:         in.ReplyToID,
		ClientGeneratedID: in.ClientGeneratedID,
		Metadata:          datatypes.JSONMap(in.Metadata),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		convRepo := repository.NewConversationRepository(tx)
		msgRepo := repository.NewMessageRepository(tx)

		seq, err := convRepo.IncrementSequence(ctx, in.ConversationID)
		if err != nil {
			return err
		}
		msg.Seq = seq
		if err := msgRepo.Create(ctx, &msg); err != nil {
			return err
		}
		return convRepo.TouchLastMessage(ctx, in.ConversationID, msg.CreatedAt)
	})
	if errors.Is(err, hivley_errors.ErrAlreadyExists) && in.ClientGeneratedID != "" {
		// a concurrent retry of the same send committed first
		prev, lookupErr := s.repo.GetByClientGeneratedID(ctx, in.ConversationID, in.SenderID, in.ClientGeneratedID)
		if lookupErr != nil {
			return SendResult{}, lookupErr
		}
		return SendResult{Message: prev, Duplicate: true}, nil
	}
	if err != nil {
		return SendResult{}, err
	}

	result := SendResult{Message: msg}
	for _, upload := range in.Attachments {
		res := s.attach(ctx, msg, upload)
		if res.Attachment != nil {
			result.Message.Attachments = append(result.Message.Attachments, *res.Attachment)
		}
		result.Attachments = append(result.Attachments, res)
	}

	s.publisher.MessageCreated(ctx, result.Message)
	return result, nil
}

// attach uploads one file and records it. Failures stay with the file.
func (s *MessageService) attach(ctx context.Context, msg message.Message, upload AttachmentUpload) AttachmentResult {
	res := AttachmentResult{FileName: upload.FileName}
	if s.maxUpload > 0 && upload.Size > s.maxUpload {
		res.Error = hivley_errors.ErrTooLarge.Error()
		return res
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := s.blobs.Upload(ctx, storage.AttachmentKey(msg.ConversationID, msg.ID, upload.FileName), contentType, upload.Body, upload.Size)
	if err != nil {
		s.log.WithContext(ctx).Warnf("upload %q for message %s: %v", upload.FileName, msg.ID, err)
		res.Error = "upload failed"
		return res
	}

	a := message.MessageAttachment{
		MessageID: msg.ID,
		FileName:  upload.FileName,
		FileType:  contentType,
		FileSize:  upload.Size,
		FilePath:  url,
	}
	if err := s.repo.CreateAttachment(ctx, &a); err != nil {
		s.log.WithContext(ctx).Errorf("record attachment %q for message %s: %v", upload.FileName, msg.ID, err)
		res.Error = "could not save attachment"
		return res
	}
	res.Attachment = &a
	return res
}

func (s *MessageService) Edit(ctx context.Context, messageID, editorID uuid.UUID, content string) (message.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return message.Message{}, fmt.Errorf("%w: content is required", hivley_errors.ErrInvalidInput)
	}

	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if err := s.access.CanMutateMessage(editorID, m); err != nil {
		return message.Message{}, err
	}
	if m.IsDeleted() {
		return message.Message{}, fmt.Errorf("%w: message was deleted", hivley_errors.ErrConflict)
	}

	editedAt := domain.Now()
	if err := s.repo.UpdateContent(ctx, messageID, content, editedAt); err != nil {
		return message.Message{}, err
	}
	m.Content = content
	m.EditedAt = &editedAt

	s.publisher.MessageUpdated(ctx, m)
	return m, nil
}

// SoftDelete replaces the content with the deletion marker. Deleting an
// already deleted message returns it unchanged.
func (s *MessageService) SoftDelete(ctx context.Context, messageID, requesterID uuid.UUID) (message.Message, error) {
	m, err := s.repo.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if err := s.access.CanMutateMessage(requesterID, m); err != nil {
		return message.Message{}, err
	}
	if m.IsDeleted() {
		return m, nil
	}

	editedAt := domain.Now()
	if err := s.repo.UpdateContent(ctx, messageID, message.DeletedContent, editedAt); err != nil {
		return message.Message{}, err
	}
	m.Content = message.DeletedContent
	m.EditedAt = &editedAt

	s.publisher.MessageDeleted(ctx, m)
	return m, nil
}

// FetchPage returns messages older than before, newest first.
func (s *MessageService) FetchPage(ctx context.Context, viewerID, conversationID uuid.UUID, limit int, before *message.Cursor) (Page, error) {
	if err := s.access.CanViewConversation(ctx, viewerID, conversationID); err != nil {
		return Page{}, err
	}
	limit = normalizeLimit(limit)

	messages, err := s.repo.ListPage(ctx, conversationID, before, limit)
	if err != nil {
		return Page{}, err
	}

	page := Page{Messages: messages}
	if len(messages) == limit {
		oldest := messages[len(messages)-1]
		page.NextBefore = &message.Cursor{CreatedAt: oldest.CreatedAt, Seq: oldest.Seq}
	}
	return page, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
