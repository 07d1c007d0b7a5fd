package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/barter-hub/barter-hub/internal/domain/exchange"
)

func TestWhere_Empty(t *testing.T) {
	var w where
	assert.Equal(t, "", w.String())
	assert.Equal(t, " LIMIT $1 OFFSET $2", w.page(10, 0))
	assert.Equal(t, []any{10, 0}, w.args)
}

func TestWhere_NumbersPlaceholders(t *testing.T) {
	var w where
	w.add("owner_id=?", "a")
	w.add("status=?", "b")
	assert.Equal(t, " WHERE owner_id=$1 AND status=$2", w.String())
	assert.Equal(t, " LIMIT $3 OFFSET $4", w.page(5, 20))
	assert.Len(t, w.args, 4)
}

func TestWhere_NoLimit(t *testing.T) {
	var w where
	w.add("exchange_id=?", "x")
	assert.Equal(t, " OFFSET $2", w.page(0, 0))
}

func TestExchangeWhere_ParticipantReusesArg(t *testing.T) {
	id := uuid.New()
	status := exchange.StatusPending
	w := exchangeWhere(exchange.Filter{ParticipantID: &id, Status: &status})

	assert.Equal(t, " WHERE (owner_id=$1 OR requester_id=$1) AND status=$2", w.String())
	assert.Equal(t, []any{id, status}, w.args)
}
