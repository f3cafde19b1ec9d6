package sqlite

import (
	"context"
	"math"

	"github.com/klimaz/starlotto/internal/models"
)

// GlobalStats aggregates across all rooms in the ledger.
func (s *SQLiteStore) GlobalStats(ctx context.Context) (*models.GlobalStats, error) {
	stats := &models.GlobalStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
		    (SELECT COUNT(*) FROM rooms),
		    (SELECT COUNT(*) FROM rooms WHERE status = 'completed'),
		    (SELECT COALESCE(SUM(total_pool), 0) FROM rooms WHERE status = 'completed'),
		    (SELECT COUNT(*) FROM room_participants),
		    (SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE transaction_type = 'house_fee')`,
	).Scan(&stats.TotalRooms, &stats.CompletedRooms, &stats.TotalPool,
		&stats.TotalParticipants, &stats.TotalHouseFees)
	if err != nil {
		return nil, persistErr("global stats", err)
	}
	return stats, nil
}

// UserStats aggregates one user's play record.
func (s *SQLiteStore) UserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	stats := &models.UserStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
		    (SELECT COUNT(*) FROM room_participants WHERE user_id = ?),
		    (SELECT COUNT(*) FROM rooms WHERE winner_user_id = ?),
		    (SELECT COALESCE(SUM(amount), 0) FROM transactions
		        WHERE to_user_id = ? AND transaction_type = 'winner_payout'),
		    (SELECT COALESCE(SUM(amount), 0) FROM transactions
		        WHERE from_user_id = ? AND transaction_type = 'entry_fee')`,
		userID, userID, userID, userID,
	).Scan(&stats.TotalGames, &stats.TotalWins, &stats.TotalWinnings, &stats.TotalSpent)
	if err != nil {
		return nil, persistErr("user stats", err)
	}

	if stats.TotalGames > 0 {
		rate := float64(stats.TotalWins) / float64(stats.TotalGames) * 100
		stats.WinRate = math.Round(rate*100) / 100
	}
	stats.NetProfit = stats.TotalWinnings - stats.TotalSpent
	return stats, nil
}
