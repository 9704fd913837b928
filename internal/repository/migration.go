package repository

import (
	"fmt"

	"hivley/internal/domain/conversation"
	"hivley/internal/domain/message"
	"hivley/internal/domain/presence"
	"hivley/internal/domain/user"

	"gorm.io/gorm"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.Profile{},
		&conversation.Conversation{},
		&conversation.Participant{},
		&message.Message{},
		&message.MessageAttachment{},
		&message.MessageStatus{},
		&message.MessageReaction{},
		&presence.UserPresence{},
	}
}

// InitSchema creates or updates all tables.
func InitSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// TableNames returns the migrated table names, used by the migrate status command.
func TableNames(db *gorm.DB) ([]string, error) {
	names := make([]string, 0, len(Models()))
	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, err
		}
		names = append(names, stmt.Schema.Table)
	}
	return names, nil
}
