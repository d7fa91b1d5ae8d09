// Package notifier mails members about ledger events read from Kafka.
// Mail failures only delay the notification; the ledger was committed
// before the event was published.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sudosos-ledger/internal/domain/account"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/platform/messaging/producers"
)

// EventHandler handles ledger events delivered by the consumer group
type EventHandler struct {
	accounts account.Repository
	mailer   Mailer
	dlq      producers.DeadLetterPublisher
	logger   *slog.Logger
}

func NewEventHandler(
	logger *slog.Logger,
	accounts account.Repository,
	mailer Mailer,
	dlq producers.DeadLetterPublisher,
) *EventHandler {
	return &EventHandler{
		accounts: accounts,
		mailer:   mailer,
		dlq:      dlq,
		logger:   logger,
	}
}

// HandleMessage mails every account involved in a notifiable event
func (h *EventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var e event.Event
	if err := json.Unmarshal(value, &e); err != nil {
		reason := fmt.Sprintf("failed to decode ledger event: %s", err)
		h.logger.Error("Failed to decode ledger event", "message_key", string(key), "error", err)

		if dlqErr := h.dlq.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			if errors.Is(dlqErr, producers.ErrDLQDisabled) {
				// Nothing will ever decode it, skip it.
				return nil
			}
			return fmt.Errorf("failed to decode message and to park it in the DLQ: %w", dlqErr)
		}
		return nil
	}

	if !e.Type.Notifiable() {
		return nil
	}

	logger := h.logger.With("event_id", e.ID, "event_type", e.Type)
	if e.CorrelationID != "" {
		logger = logger.With("correlation_id", e.CorrelationID)
	}

	for _, accountID := range e.AccountIDs {
		acc, err := h.accounts.GetByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				logger.Warn("Skipping notification for unknown account", "account_id", accountID)
				continue
			}
			return fmt.Errorf("failed to load account %d for notification: %w", accountID, err)
		}
		if acc.Email == "" {
			continue
		}

		m, ok := render(&e, acc)
		if !ok {
			return nil
		}
		if err := h.mailer.Send(ctx, m); err != nil {
			logger.Error("Failed to send notification", "account_id", accountID, "error", err)
			return fmt.Errorf("failed to notify account %d: %w", accountID, err)
		}
		logger.Info("Notification sent", "account_id", accountID)
	}

	return nil
}
