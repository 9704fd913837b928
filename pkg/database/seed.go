package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hivley/internal/domain"
	"hivley/internal/domain/conversation"
	"hivley/internal/domain/message"
	"hivley/internal/domain/user"
	"hivley/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DevPassword is the password of every seeded profile.
const DevPassword = "hivley123"

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	Password string
	Profiles []SeedProfile
}

type SeedProfile struct {
	Email    string
	FullName string
	Role     domain.Role
}

// DefaultSeedConfig returns one provider and three clients.
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		Password: DevPassword,
		Profiles: []SeedProfile{
			{Email: "paula.provider@psu.edu", FullName: "Paula Provider", Role: domain.RoleProvider},
			{Email: "casey.client@wm.edu", FullName: "Casey Client", Role: domain.RoleClient},
			{Email: "sam.student@psu.edu", FullName: "Sam Student", Role: domain.RoleClient},
			{Email: "riley.reader@wm.edu", FullName: "Riley Reader", Role: domain.RoleClient},
		},
	}
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	Profiles      []user.Profile
	Conversations []conversation.Conversation
	Messages      []message.Message
	Skipped       bool
}

// SeedDevelopment fills an empty database with sample profiles, a direct
// conversation about a service and a group chat. A database that already
// holds the first profile is left alone.
func SeedDevelopment(ctx context.Context, db *gorm.DB, cfg *SeedConfig, log *logger.Logger) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	if len(cfg.Profiles) < 3 {
		return nil, errors.New("seed needs at least three profiles")
	}
	if log == nil {
		log = logger.NewNop()
	}

	var existing int64
	if err := db.WithContext(ctx).Model(&user.Profile{}).Where("email = ?", cfg.Profiles[0].Email).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		log.Infof("Seed data already present, skipping")
		return &SeedResult{Skipped: true}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	result := &SeedResult{}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, sp := range cfg.Profiles {
			p := user.Profile{Email: sp.Email, FullName: sp.FullName, Role: sp.Role, PasswordHash: string(hash)}
			if err := tx.Create(&p).Error; err != nil {
				return fmt.Errorf("failed to create profile %s: %w", sp.Email, err)
			}
			result.Profiles = append(result.Profiles, p)
		}

		provider, client, student := result.Profiles[0], result.Profiles[1], result.Profiles[2]
		start := domain.Now().Add(-2 * time.Hour)

		key := conversation.DirectKey(client.ID, provider.ID)
		direct := conversation.Conversation{
			Type:      domain.ConversationTypeDirect,
			CreatedBy: client.ID,
			CreatedAt: start,
			DirectKey: &key,
			Metadata:  datatypes.JSONMap{"service_id": "tutoring-101", "service_title": "Calculus Tutoring"},
		}
		directMsgs, err := seedConversation(tx, &direct, []user.Profile{client, provider}, start, []seedLine{
			{from: 0, text: "Hi! Is the Thursday tutoring slot still open?"},
			{from: 1, text: "It is. 4pm at the library works for me."},
			{from: 0, text: "Perfect, see you then."},
		})
		if err != nil {
			return err
		}

		title := "Calc Study Group"
		group := conversation.Conversation{
			Type:      domain.ConversationTypeGroup,
			Title:     &title,
			CreatedBy: student.ID,
			CreatedAt: start.Add(30 * time.Minute),
		}
		members := []user.Profile{student, client, provider}
		if len(result.Profiles) > 3 {
			members = append(members, result.Profiles[3])
		}
		groupMsgs, err := seedConversation(tx, &group, members, start.Add(30*time.Minute), []seedLine{
			{from: 0, text: "Welcome everyone, problem set 4 is due Friday."},
			{from: 1, text: "Anyone started question 3?"},
		})
		if err != nil {
			return err
		}

		result.Conversations = []conversation.Conversation{direct, group}
		result.Messages = append(directMsgs, groupMsgs...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("Seeded %d profiles, %d conversations and %d messages (password %q)",
		len(result.Profiles), len(result.Conversations), len(result.Messages), cfg.Password)
	return result, nil
}

type seedLine struct {
	from int
	text string
}

// seedConversation writes c, its participants and lines. The first member
// is the admin. Every earlier line is marked read by the other members.
func seedConversation(tx *gorm.DB, c *conversation.Conversation, members []user.Profile, start time.Time, lines []seedLine) ([]message.Message, error) {
	c.LastSeq = int64(len(lines))
	if len(lines) > 0 {
		last := start.Add(time.Duration(len(lines)) * time.Minute)
		c.LastMessageAt = &last
	}
	if err := tx.Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	for i, m := range members {
		p := conversation.Participant{
			ConversationID:       c.ID,
			ProfileID:            m.ID,
			JoinedAt:             start,
			IsAdmin:              i == 0,
			NotificationsEnabled: true,
		}
		if err := tx.Create(&p).Error; err != nil {
			return nil, fmt.Errorf("failed to add participant: %w", err)
		}
	}

	out := make([]message.Message, 0, len(lines))
	for i, line := range lines {
		msg := message.Message{
			ConversationID: c.ID,
			SenderID:       members[line.from].ID,
			Content:        line.text,
			Seq:            int64(i + 1),
			CreatedAt:      start.Add(time.Duration(i+1) * time.Minute),
		}
		if err := tx.Create(&msg).Error; err != nil {
			return nil, fmt.Errorf("failed to create message: %w", err)
		}
		status := domain.DeliveryStatusRead
		if i == len(lines)-1 {
			status = domain.DeliveryStatusDelivered
		}
		for _, m := range members {
			if m.ID == msg.SenderID {
				continue
			}
			row := message.MessageStatus{MessageID: msg.ID, ProfileID: m.ID, Status: status, UpdatedAt: msg.CreatedAt}
			if err := tx.Create(&row).Error; err != nil {
				return nil, fmt.Errorf("failed to create receipt: %w", err)
			}
		}
		out = append(out, msg)
	}
	return out, nil
}
