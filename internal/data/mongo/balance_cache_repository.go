package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sudosos-ledger/internal/domain/balance"
)

const (
	// BalanceCollectionName holds one recomputed balance document per account
	BalanceCollectionName = "balances"
)

// BalanceCacheRepository implements the balance.CacheRepository interface for MongoDB.
// The cache is a read model; the transfers table stays authoritative.
type BalanceCacheRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewBalanceCacheRepository creates a new MongoDB balance cache repository
func NewBalanceCacheRepository(logger *slog.Logger, db *mongo.Database) balance.CacheRepository {
	return &BalanceCacheRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert replaces the cached balance of every given account in one bulk write
func (r *BalanceCacheRepository) Upsert(ctx context.Context, balances []*balance.Balance) error {
	if len(balances) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(balances))
	for _, b := range balances {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": b.AccountID}).
			SetReplacement(b).
			SetUpsert(true))
	}

	_, err := r.db.Collection(BalanceCollectionName).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		r.logger.Error("Failed to upsert cached balances", "count", len(balances), "error", err)
		return fmt.Errorf("failed to upsert cached balances: %w", err)
	}

	return nil
}

// Get returns the cached balance of an account, or nil when it was never computed
func (r *BalanceCacheRepository) Get(ctx context.Context, accountID int64) (*balance.Balance, error) {
	var b balance.Balance
	err := r.db.Collection(BalanceCollectionName).FindOne(ctx, bson.M{"_id": accountID}).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get cached balance", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to get cached balance: %w", err)
	}
	return &b, nil
}
