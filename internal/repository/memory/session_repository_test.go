package memory

import (
	"context"
	"testing"
	"time"

	"ai-interview-be/pkg/interview/session"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(id uuid.UUID) *session.Session {
	return session.New(id, session.Dependencies{}, session.DefaultOptions())
}

func TestClaimIsExclusivePerInterview(t *testing.T) {
	repo := NewSessionRepository(nil, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	first := newSession(id)
	require.NoError(t, repo.Claim(ctx, first))
	assert.ErrorIs(t, repo.Claim(ctx, newSession(id)), ErrSessionActive)
	assert.NoError(t, repo.Claim(ctx, newSession(uuid.New())))
	assert.Equal(t, 2, repo.Count())

	got, ok := repo.Get(id)
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestReleaseIgnoresStaleSession(t *testing.T) {
	repo := NewSessionRepository(nil, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	current := newSession(id)
	require.NoError(t, repo.Claim(ctx, current))

	repo.Release(ctx, newSession(id))
	_, ok := repo.Get(id)
	assert.True(t, ok)

	repo.Release(ctx, current)
	_, ok = repo.Get(id)
	assert.False(t, ok)
	assert.NoError(t, repo.Claim(ctx, newSession(id)))
}
