package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/outbox"
	"github.com/sudosos-ledger/internal/domain/shared"
	"github.com/sudosos-ledger/internal/ledger/service"
	"github.com/sudosos-ledger/internal/logger"
)

// EventRecorderImpl writes ledger events to the transactional outbox
type EventRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

// NewEventRecorder creates a new EventRecorderImpl
func NewEventRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.EventRecorder {
	return &EventRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record stores one outbox message per event inside tx, so the events commit
// or roll back together with the mutation they describe
func (r *EventRecorderImpl) Record(ctx context.Context, tx pgx.Tx, events ...*event.Event) error {
	log := logger.ForContext(ctx, r.logger)
	correlationID := shared.CorrelationIDFromContext(ctx)

	outboxRepoTx := r.outboxRepo.WithTx(tx)
	for _, e := range events {
		if e.CorrelationID == "" {
			e.CorrelationID = correlationID
		}

		message, err := outbox.NewMessage(e)
		if err != nil {
			log.Error("Failed to create new outbox message (marshal payload)", "event_id", e.ID.String(), "error", err)
			return fmt.Errorf("failed to create outbox message payload for event %s: %w", e.ID.String(), err)
		}

		if err := outboxRepoTx.Create(ctx, message); err != nil {
			log.Error("Failed to create outbox message",
				"event_id", e.ID.String(),
				"event_type", e.Type,
				"error", err,
			)
			return fmt.Errorf("failed to create outbox message for event %s: %w", e.ID.String(), err)
		}
		log.Debug("Outbox message created",
			"event_id", e.ID.String(),
			"event_type", e.Type,
			"outbox_id", message.ID,
		)
	}
	return nil
}
