package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()
	agent, blank := "barter-web/1.0", ""

	s := New(userID, "hash", 2*time.Hour, &agent, &blank, now)
	assert.NotEqual(t, uuid.Nil, s.SessionID)
	assert.Equal(t, userID, s.UserID)
	assert.Equal(t, "hash", s.TokenHash)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now.Add(2*time.Hour), s.ExpiresAt)
	require.NotNil(t, s.LastSeenAt)
	assert.Equal(t, now, *s.LastSeenAt)
	require.NotNil(t, s.UserAgent)
	assert.Equal(t, agent, *s.UserAgent)
	assert.Nil(t, s.IPAddress)

	t.Run("expiry", func(t *testing.T) {
		assert.False(t, s.IsExpired(now))
		assert.False(t, s.IsExpired(s.ExpiresAt))
		assert.True(t, s.IsExpired(s.ExpiresAt.Add(time.Second)))
	})
}
