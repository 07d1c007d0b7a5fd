package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserMessage(t *testing.T) {
	ex, sender := uuid.New(), uuid.New()
	at := time.Now().UTC()

	msg, err := NewUserMessage(ex, sender, "  hello  ", at)
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, KindUser, msg.Kind)
	require.NotNil(t, msg.SenderID)
	assert.Equal(t, sender, *msg.SenderID)

	_, err = NewUserMessage(ex, sender, "   ", at)
	assert.ErrorIs(t, err, ErrEmptyText)
	_, err = NewUserMessage(ex, sender, strings.Repeat("x", MaxTextLength+1), at)
	assert.ErrorIs(t, err, ErrTextTooLong)
}

func TestMessage_IsUnreadFor(t *testing.T) {
	me, other := uuid.New(), uuid.New()
	at := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	before, after := at.Add(-time.Minute), at.Add(time.Minute)

	own := &Message{SenderID: &me, CreatedAt: at}
	theirs := &Message{SenderID: &other, CreatedAt: at}
	system := NewSystemMessage(uuid.New(), "accepted", at)

	assert.False(t, own.IsUnreadFor(me, nil))
	assert.True(t, theirs.IsUnreadFor(me, nil))
	assert.True(t, theirs.IsUnreadFor(me, &before))
	assert.False(t, theirs.IsUnreadFor(me, &after))
	assert.True(t, system.IsSystem())
	assert.True(t, system.IsUnreadFor(me, &before))
	assert.True(t, system.IsUnreadFor(other, nil))
}
