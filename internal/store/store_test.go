package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailpaw-ai/companion-platform/internal/errs"
	"github.com/trailpaw-ai/companion-platform/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedConversation(t *testing.T, s *Store) *model.Conversation {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.SeedPersonas(ctx, []model.Persona{
		{ID: "luna", Name: "Luna", SystemPrompt: "You are Luna."},
	}))

	conv := &model.Conversation{
		ID:                uuid.NewString(),
		UserID:            uuid.NewString(),
		PersonaID:         "luna",
		Status:            model.ConversationActive,
		ContextWindowSize: model.DefaultContextWindowSize,
	}
	require.NoError(t, s.CreateConversation(ctx, conv))
	return conv
}

func TestCreateConversationDuplicatePair(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s)

	dup := &model.Conversation{
		ID:        uuid.NewString(),
		UserID:    conv.UserID,
		PersonaID: conv.PersonaID,
		Status:    model.ConversationActive,
	}
	err := s.CreateConversation(ctx, dup)
	assert.ErrorIs(t, err, errs.ErrConflict)

	// Same persona for another user is fine.
	other := &model.Conversation{
		ID:        uuid.NewString(),
		UserID:    uuid.NewString(),
		PersonaID: conv.PersonaID,
		Status:    model.ConversationActive,
	}
	assert.NoError(t, s.CreateConversation(ctx, other))
}

func TestConversationLookups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s)

	got, err := s.ConversationByUserAndPersona(ctx, conv.UserID, conv.PersonaID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	got, err = s.ConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.UserID, got.UserID)

	_, err = s.ConversationByUserAndPersona(ctx, uuid.NewString(), "luna")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.ConversationByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMessageOrderingFollowsInsertion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s)

	contents := []string{"first", "second", "third", "fourth"}
	for _, c := range contents {
		msg := &model.Message{
			ConversationID: conv.ID,
			Role:           model.RoleUser,
			Content:        c,
		}
		require.NoError(t, s.AppendMessage(ctx, msg))
		assert.NotZero(t, msg.ID)
	}

	msgs, err := s.MessagesByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, len(contents))
	for i, m := range msgs {
		assert.Equal(t, contents[i], m.Content)
		if i > 0 {
			assert.Greater(t, m.ID, msgs[i-1].ID)
		}
	}
}

func TestMessagesByConversationEmpty(t *testing.T) {
	s := openTestStore(t)
	conv := seedConversation(t, s)

	msgs, err := s.MessagesByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestIncrementConversationStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s)

	require.NoError(t, s.IncrementConversationStats(ctx, conv.ID, 100, 40))
	require.NoError(t, s.IncrementConversationStats(ctx, conv.ID, 50, 10))

	got, err := s.ConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
	assert.Equal(t, int64(150), got.TotalInputTokens)
	assert.Equal(t, int64(50), got.TotalOutputTokens)
	require.NotNil(t, got.LastMessageAt)

	err = s.IncrementConversationStats(ctx, uuid.NewString(), 1, 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTouchConversation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	conv := seedConversation(t, s)

	require.NoError(t, s.TouchConversation(ctx, conv.ID))

	got, err := s.ConversationByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MessageCount)
	assert.Nil(t, got.LastMessageAt)

	err = s.TouchConversation(ctx, uuid.NewString())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUserCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        "ada@example.com",
		Nickname:     "ada",
		PasswordHash: "hash",
	}
	require.NoError(t, s.CreateUser(ctx, user))

	dup := &model.User{
		ID:           uuid.NewString(),
		Email:        "ada@example.com",
		Nickname:     "ada2",
		PasswordHash: "hash",
	}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), errs.ErrConflict)

	got, err := s.UserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = s.UserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Nickname)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSeedPersonasUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedPersonas(ctx, []model.Persona{
		{ID: "luna", Name: "Luna", SystemPrompt: "v1"},
		{ID: "rex", Name: "Rex", SystemPrompt: "v1"},
	}))

	// Re-seeding with changed fields updates in place.
	require.NoError(t, s.SeedPersonas(ctx, []model.Persona{
		{ID: "luna", Name: "Luna", SystemPrompt: "v2"},
	}))

	personas, err := s.Personas(ctx)
	require.NoError(t, err)
	assert.Len(t, personas, 2)

	luna, err := s.PersonaByID(ctx, "luna")
	require.NoError(t, err)
	assert.Equal(t, "v2", luna.SystemPrompt)

	_, err = s.PersonaByID(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
