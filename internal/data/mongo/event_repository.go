package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sudosos-ledger/internal/domain/event"
)

const (
	// EventCollectionName is the name of the published event log collection in MongoDB
	EventCollectionName = "ledger_events"
)

// EventIndexes serve the per-account activity listing and lookups by aggregate
func EventIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_ids", Value: 1}, {Key: "occurred_at", Value: -1}},
			Options: options.Index().SetName("account_ids_occurred_at"),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "aggregate_id", Value: 1}},
			Options: options.Index().SetName("type_aggregate_id"),
		},
	}
}

// EventRepository implements the event.Repository interface for MongoDB
type EventRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewEventRepository creates a new MongoDB event repository
func NewEventRepository(logger *slog.Logger, db *mongo.Database) event.Repository {
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a published event. The event id is the document id, so a
// second delivery of the same event returns ErrDuplicateEvent.
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	collection := r.db.Collection(EventCollectionName)

	_, err := collection.InsertOne(ctx, e)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return event.ErrDuplicateEvent{EventID: e.ID}
		}
		r.logger.Error("Failed to store ledger event",
			"event_id", e.ID.String(),
			"event_type", e.Type,
			"error", err)
		return fmt.Errorf("failed to store ledger event: %w", err)
	}

	return nil
}

// GetByID retrieves an event by its id
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	collection := r.db.Collection(EventCollectionName)

	var e event.Event
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, event.ErrEventNotFound{EventID: id}
		}
		r.logger.Error("Failed to get ledger event", "event_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger event: %w", err)
	}

	return &e, nil
}

// ListByAccount retrieves paginated events touching an account, newest first
func (r *EventRepository) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]*event.Event, error) {
	collection := r.db.Collection(EventCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "occurred_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"account_ids": accountID}, opts)
	if err != nil {
		r.logger.Error("Failed to list ledger events", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to list ledger events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*event.Event
	if err := cursor.All(ctx, &events); err != nil {
		r.logger.Error("Failed to decode ledger events", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to decode ledger events: %w", err)
	}

	return events, nil
}

// CountByAccount counts the events touching an account
func (r *EventRepository) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	collection := r.db.Collection(EventCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"account_ids": accountID})
	if err != nil {
		r.logger.Error("Failed to count ledger events", "account_id", accountID, "error", err)
		return 0, fmt.Errorf("failed to count ledger events: %w", err)
	}

	return count, nil
}
