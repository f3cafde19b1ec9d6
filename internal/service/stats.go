package service

import (
	"context"
	"log/slog"

	"github.com/klimaz/starlotto/internal/models"
	"github.com/klimaz/starlotto/internal/storage"
)

// StatsService serves read-only aggregates from the ledger.
type StatsService struct {
	store storage.Store
}

// NewStatsService creates a StatsService.
func NewStatsService(store storage.Store) *StatsService {
	return &StatsService{store: store}
}

// Global returns aggregates across all rooms.
func (s *StatsService) Global(ctx context.Context) (*models.GlobalStats, error) {
	stats, err := s.store.GlobalStats(ctx)
	if err != nil {
		slog.Error("global stats query failed", "error", err)
		return nil, err
	}
	return stats, nil
}

// ForUser returns one user's play record.
func (s *StatsService) ForUser(ctx context.Context, userID int64) (*models.UserStats, error) {
	stats, err := s.store.UserStats(ctx, userID)
	if err != nil {
		slog.Error("user stats query failed", "user_id", userID, "error", err)
		return nil, err
	}
	return stats, nil
}
