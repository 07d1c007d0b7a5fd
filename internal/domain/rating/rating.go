package rating

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	MinScore = 1
	MaxScore = 10

	maxCommentLength = 1000
)

// Rating is one party's score of the other after an exchange.
// (ExchangeID, RaterID) is unique.
type Rating struct {
	ID          int64     `json:"id"`
	RatingID    uuid.UUID `json:"ratingId"`
	ExchangeID  uuid.UUID `json:"exchangeId"`
	RaterID     uuid.UUID `json:"raterId"`
	RatedUserID uuid.UUID `json:"ratedUserId"`
	Score       int       `json:"score"`
	Comment     *string   `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// New builds a rating; a blank comment is dropped and a long one truncated
// to maxCommentLength runes.
func New(exchangeID, raterID, ratedUserID uuid.UUID, score int, comment string, at time.Time) *Rating {
	r := &Rating{
		RatingID:    uuid.New(),
		ExchangeID:  exchangeID,
		RaterID:     raterID,
		RatedUserID: ratedUserID,
		Score:       score,
		CreatedAt:   at,
	}
	if c := strings.TrimSpace(comment); c != "" {
		if utf8.RuneCountInString(c) > maxCommentLength {
			c = string([]rune(c)[:maxCommentLength])
		}
		r.Comment = &c
	}
	return r
}
