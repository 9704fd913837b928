package database

import (
	"context"
	"testing"

	"hivley/internal/domain/conversation"
	"hivley/internal/domain/message"
	"hivley/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDevelopment(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, repository.InitSchema(db))

	res, err := SeedDevelopment(ctx, db, nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Len(t, res.Profiles, 4)
	assert.Len(t, res.Conversations, 2)
	assert.Len(t, res.Messages, 5)

	var participants int64
	require.NoError(t, db.Model(&conversation.Participant{}).Count(&participants).Error)
	assert.EqualValues(t, 6, participants)

	var receipts int64
	require.NoError(t, db.Model(&message.MessageStatus{}).Count(&receipts).Error)
	assert.EqualValues(t, 3+2*3, receipts)

	again, err := SeedDevelopment(ctx, db, nil, nil)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
}

func TestHealthCheck(t *testing.T) {
	assert.Error(t, HealthCheck(context.Background(), nil))

	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	assert.NoError(t, HealthCheck(context.Background(), db))
	require.NoError(t, Close(db))
	assert.Error(t, HealthCheck(context.Background(), db))
}
