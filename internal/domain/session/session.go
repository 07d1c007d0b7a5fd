package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is a signed-in trader. The bearer token itself is never stored,
// only its hash; the same token authorizes REST calls and the SSE stream
// that carries exchange and chat hints.
type Session struct {
	ID         int64      `json:"id"`
	SessionID  uuid.UUID  `json:"sessionId"`
	TokenHash  string     `json:"-"`
	UserID     uuid.UUID  `json:"userId"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	UserAgent  *string    `json:"userAgent,omitempty"`
	IPAddress  *string    `json:"ipAddress,omitempty"`
}

// New opens a session for userID that lives for ttl from now. Blank client
// metadata is dropped.
func New(userID uuid.UUID, tokenHash string, ttl time.Duration, userAgent, ipAddress *string, now time.Time) *Session {
	return &Session{
		SessionID:  uuid.New(),
		TokenHash:  tokenHash,
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastSeenAt: &now,
		UserAgent:  nonBlank(userAgent),
		IPAddress:  nonBlank(ipAddress),
	}
}

func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func nonBlank(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
