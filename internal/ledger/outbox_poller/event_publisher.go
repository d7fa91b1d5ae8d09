package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sudosos-ledger/internal/domain/event"
	"github.com/sudosos-ledger/internal/domain/outbox"
	"github.com/sudosos-ledger/internal/domain/shared"
	"github.com/sudosos-ledger/internal/platform/messaging/producers"
)

// EventPublisher delivers one outbox message to its consumers
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl appends the event to the activity log, writes it to
// the event topic and marks the message PROCESSED. Every step tolerates a
// repeat so a retried message is never duplicated in the activity log.
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	eventRepo  event.Repository
	producer   producers.LedgerEventWriter
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	eventRepo event.Repository,
	producer producers.LedgerEventWriter,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		eventRepo:  eventRepo,
		producer:   producer,
		logger:     logger,
	}
}

// Publish processes a single outbox message
func (p *EventPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	e, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to decode ledger event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to mark undecodable outbox message as FAILED_TO_PUBLISH",
				"outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger.With("outbox_id", message.ID, "event_id", e.ID, "event_type", e.Type)
	if e.CorrelationID != "" {
		logger = logger.With("correlation_id", e.CorrelationID)
	}

	now := time.Now().UTC()
	e.PublishedAt = &now

	if err := p.eventRepo.Create(ctx, e); err != nil {
		if !errors.Is(err, event.ErrDuplicateEvent{}) {
			return fmt.Errorf("failed to store event %s in activity log: %w", e.ID, err)
		}
		logger.Info("Event already in activity log")
	}

	if err := p.producer.Publish(ctx, strconv.FormatInt(e.AggregateID, 10), e); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", e.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Event published but outbox status update failed", "error", err)
		return fmt.Errorf("event %s published, but failed to mark outbox %d as PROCESSED: %w", e.ID, message.ID, err)
	}

	logger.Debug("Outbox message published and marked as PROCESSED")
	return nil
}
