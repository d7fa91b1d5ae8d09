package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sudosos-ledger/internal/domain/event"
)

// ActivityServiceImpl pages through the Mongo activity log
type ActivityServiceImpl struct {
	events event.Repository
	logger *slog.Logger
}

func NewActivityService(logger *slog.Logger, events event.Repository) ActivityService {
	return &ActivityServiceImpl{
		events: events,
		logger: logger,
	}
}

// ListByAccount returns one page of events touching the account, newest
// first, and the total number of such events
func (s *ActivityServiceImpl) ListByAccount(ctx context.Context, accountID int64, page, perPage int) ([]*event.Event, int64, error) {
	offset := (page - 1) * perPage

	events, err := s.events.ListByAccount(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activity of account %d: %w", accountID, err)
	}

	total, err := s.events.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count activity of account %d: %w", accountID, err)
	}

	return events, total, nil
}
