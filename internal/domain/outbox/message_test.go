package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/money"
	"github.com/sudosos-ledger/internal/domain/shared"
)

func TestNewMessage(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		e := event.New(event.TypeTransferCreated, 31, 1, 2).WithAmount(money.New(1000, "EUR", 2))

		beforeCreation := time.Now()
		msg, err := NewMessage(e)
		afterCreation := time.Now()

		require.NoError(t, err)
		require.NotNil(t, msg)

		assert.Equal(t, e.ID, msg.EventID)
		assert.Equal(t, event.TypeTransferCreated, msg.EventType)
		assert.Equal(t, shared.OutboxStatusPending, msg.Status)
		assert.Equal(t, 0, msg.Attempts)
		assert.Nil(t, msg.LastAttemptAt)
		assert.WithinDuration(t, beforeCreation, msg.CreatedAt, afterCreation.Sub(beforeCreation)+time.Millisecond)

		// Check payload
		var decoded event.Event
		err = json.Unmarshal(msg.Payload, &decoded)
		require.NoError(t, err)
		assert.Equal(t, e.ID, decoded.ID)
		assert.Equal(t, e.Amount, decoded.Amount)
	})
}

func TestMessage_IncrementAttempts(t *testing.T) {
	t.Run("SuccessfulIncrement", func(t *testing.T) {
		initialTime := time.Now().Add(-time.Hour)
		msg := &Message{
			Attempts:      1,
			LastAttemptAt: &initialTime,
		}
		initialAttempts := msg.Attempts

		time.Sleep(10 * time.Millisecond) // Ensure time changes
		beforeUpdate := time.Now()
		msg.IncrementAttempts()
		afterUpdate := time.Now()

		assert.Equal(t, initialAttempts+1, msg.Attempts)
		require.NotNil(t, msg.LastAttemptAt)
		assert.True(t, msg.LastAttemptAt.After(initialTime))
		assert.WithinDuration(t, beforeUpdate, *msg.LastAttemptAt, afterUpdate.Sub(beforeUpdate)+time.Millisecond)
	})
}

func TestMessage_RetriesExhausted(t *testing.T) {
	msg := &Message{Attempts: 4}
	assert.False(t, msg.RetriesExhausted(5))

	msg.IncrementAttempts()
	assert.True(t, msg.RetriesExhausted(5))
	require.NotNil(t, msg.LastAttemptAt)
}

func TestMessage_GetEvent(t *testing.T) {
	t.Run("SuccessfulGetEvent", func(t *testing.T) {
		original := event.New(event.TypePayoutStatusChanged, 9, 3).WithState("APPROVED")
		original.OccurredAt = original.OccurredAt.Truncate(time.Millisecond)
		original.CorrelationID = uuid.NewString()
		payload, err := json.Marshal(original)
		require.NoError(t, err)

		msg := &Message{Payload: payload}
		decoded, err := msg.GetEvent()

		require.NoError(t, err)
		require.NotNil(t, decoded)
		assert.Equal(t, original.ID, decoded.ID)
		assert.Equal(t, original.Type, decoded.Type)
		assert.Equal(t, original.AggregateID, decoded.AggregateID)
		assert.Equal(t, original.AccountIDs, decoded.AccountIDs)
		assert.Equal(t, "APPROVED", decoded.State)
		assert.Equal(t, original.CorrelationID, decoded.CorrelationID)
		assert.True(t, original.OccurredAt.Equal(decoded.OccurredAt))
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		msg := &Message{Payload: []byte("{not json")}
		_, err := msg.GetEvent()
		assert.Error(t, err)
	})
}
