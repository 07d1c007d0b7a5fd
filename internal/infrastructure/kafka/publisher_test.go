package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barter-hub/barter-hub/internal/domain/exchange"
)

func testEvent() *exchange.Event {
	actor := uuid.New()
	return &exchange.Event{
		EventID:         uuid.New(),
		Kind:            exchange.EventAccepted,
		ExchangeID:      uuid.New(),
		Status:          exchange.StatusAccepted,
		OwnerID:         actor,
		RequesterID:     uuid.New(),
		RequestedItemID: uuid.New(),
		OfferedItemIDs:  []uuid.UUID{uuid.New()},
		ActorID:         &actor,
		OccurredAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewConfig())
	defer func() { require.NoError(t, producer.Close()) }()

	event := testEvent()
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got exchange.Event
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.EventID != event.EventID || got.Kind != exchange.EventAccepted {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewPublisher(producer, "", zerolog.Nop())
	assert.Equal(t, DefaultTopic, p.topic)
	require.NoError(t, p.Publish(context.Background(), event))
}

func TestPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewConfig())
	defer func() { _ = producer.Close() }()
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	p := NewPublisher(producer, "barter-events", zerolog.Nop())
	err := p.Publish(context.Background(), testEvent())
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
}

func TestPublisher_CancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewConfig())
	defer func() { require.NoError(t, producer.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPublisher(producer, "", zerolog.Nop())
	assert.ErrorIs(t, p.Publish(ctx, testEvent()), context.Canceled)
}

func TestDial_RequiresBrokers(t *testing.T) {
	_, err := Dial(nil, "", zerolog.Nop())
	assert.Error(t, err)
}
