package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"hivley/config"
	"hivley/internal/domain"
	"hivley/internal/domain/conversation"
	"hivley/internal/domain/user"
	"hivley/internal/events"
	"hivley/internal/proxy"
	"hivley/internal/repository"
	"hivley/internal/testutil"
	"hivley/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type published struct {
	channel string
	env     events.Envelope
}

type captureBus struct {
	mu   sync.Mutex
	sent []published
}

func (b *captureBus) Publish(_ context.Context, channel string, env events.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, published{channel: channel, env: env})
	return nil
}

func (b *captureBus) byType(eventType string) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, p := range b.sent {
		if p.env.EventType == eventType {
			out = append(out, p)
		}
	}
	return out
}

func (b *captureBus) reset() {
	b.mu.Lock()
	b.sent = nil
	b.mu.Unlock()
}

type fakeBlobStore struct {
	mu      sync.Mutex
	fail    map[string]bool
	objects map[string]string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{fail: map[string]bool{}, objects: map[string]string{}}
}

func (f *fakeBlobStore) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for name := range f.fail {
		if strings.HasSuffix(key, "-"+name) {
			return "", fmt.Errorf("bucket rejected %s", name)
		}
	}
	f.objects[key] = string(data)
	return "https://files.test/" + key, nil
}

type fixture struct {
	db    *gorm.DB
	bus   *captureBus
	blobs *fakeBlobStore

	convRepo     repository.ConversationRepository
	msgRepo      repository.MessageRepository
	presenceRepo repository.PresenceRepository

	auth          *AuthService
	users         *UserService
	conversations *ConversationService
	messages      *MessageService
	statuses      *StatusService
	presence      *PresenceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:           db,
		bus:          &captureBus{},
		blobs:        newFakeBlobStore(),
		convRepo:     repository.NewConversationRepository(db),
		msgRepo:      repository.NewMessageRepository(db),
		presenceRepo: repository.NewPresenceRepository(db),
	}

	log := logger.NewNop()
	userRepo := repository.NewUserRepository(db)
	publisher := NewEventPublisher(f.bus, log)
	access := proxy.NewAccessControl(f.convRepo)

	f.auth = NewAuthService(userRepo, &config.Config{
		JWTSecret:           "test-secret",
		JWTExpiryMin:        60,
		AllowedEmailDomains: []string{"psu.edu", "wm.edu"},
	})
	f.users = NewUserService(userRepo, nil, log)
	f.conversations = NewConversationService(db, f.convRepo, f.msgRepo, f.users, access, publisher)
	f.messages = NewMessageService(db, f.msgRepo, f.convRepo, access, f.blobs, publisher, log, 1024)
	f.statuses = NewStatusService(db, f.msgRepo, f.conversations, access, publisher)
	f.presence = NewPresenceService(f.presenceRepo, f.convRepo, publisher, testHeartbeat)
	return f
}

const testHeartbeat = 5 * time.Minute

func (f *fixture) profile(t *testing.T, name string) user.Profile {
	t.Helper()
	return testutil.CreateProfile(t, f.db, name, domain.RoleClient)
}

func (f *fixture) direct(t *testing.T, a, b uuid.UUID) conversation.Conversation {
	t.Helper()
	conv, _, err := f.conversations.CreateOrGetDirect(context.Background(), a, b, nil)
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, conversationID, senderID uuid.UUID, content string) SendResult {
	t.Helper()
	res, err := f.messages.Send(context.Background(), SendInput{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	})
	require.NoError(t, err)
	return res
}
