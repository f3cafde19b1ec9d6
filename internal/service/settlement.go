package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/klimaz/starlotto/internal/metrics"
	"github.com/klimaz/starlotto/internal/models"
	"github.com/klimaz/starlotto/internal/registry"
	"github.com/klimaz/starlotto/internal/storage"
)

// SettlementEngine draws the winner of a full room and commits the
// outcome to the registry and the ledger.
type SettlementEngine struct {
	registry    *registry.Registry
	store       storage.Store
	picker      Picker
	winnerShare float64
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewSettlementEngine creates a SettlementEngine with the given winner
// share fraction.
func NewSettlementEngine(reg *registry.Registry, store storage.Store, picker Picker, winnerShare float64, m *metrics.Metrics) *SettlementEngine {
	return &SettlementEngine{
		registry:    reg,
		store:       store,
		picker:      picker,
		winnerShare: winnerShare,
		metrics:     m,
		now:         time.Now,
	}
}

// Settle draws a winner for a drawing room and persists the outcome.
// A room in any other status is rejected with ErrInvalidState, which
// makes settlement idempotent against double invocation: a completed
// room is never re-drawn.
//
// When the draw succeeds but the ledger write fails, Settle returns
// the record together with the error. The in-memory outcome is
// authoritative at that point; only the persistence step is retried
// later, never the draw.
func (e *SettlementEngine) Settle(ctx context.Context, roomID string) (*models.SettlementRecord, error) {
	var rec *models.SettlementRecord
	var snapshot *models.Room
	now := e.now()

	err := e.registry.WithRoom(roomID, func(room *models.Room) error {
		if room.Status != models.RoomDrawing {
			return models.ErrInvalidState
		}
		if len(room.Participants) == 0 {
			return models.ErrEmptyRoom
		}

		winner := room.Participants[e.picker.Pick(len(room.Participants))]
		winnerAmount := int64(math.Floor(float64(room.TotalPool) * e.winnerShare))
		rec = &models.SettlementRecord{
			RoomID:          room.ID,
			WinnerID:        winner.UserID,
			WinnerUsername:  winner.Username,
			WinnerFirstName: winner.FirstName,
			TotalPool:       room.TotalPool,
			WinnerAmount:    winnerAmount,
			HouseAmount:     room.TotalPool - winnerAmount,
			DrawnAt:         now,
		}

		room.Status = models.RoomCompleted
		room.Winner = rec
		room.CompletedAt = now
		room.LedgerCommitted = false
		snapshot = room.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("winner drawn",
		"room_id", roomID,
		"winner_id", rec.WinnerID,
		"total_pool", rec.TotalPool,
		"winner_amount", rec.WinnerAmount,
		"house_amount", rec.HouseAmount,
	)

	if err := e.store.CommitSettlement(ctx, snapshot, rec); err != nil {
		e.metrics.SettlementFailures.Inc()
		slog.Error("settlement drawn but not persisted, persistence will be retried",
			"room_id", roomID,
			"error", err,
		)
		return rec, err
	}

	e.markCommitted(roomID)
	e.metrics.Settlements.Inc()
	return rec, nil
}

// RetryPersist re-attempts the ledger write for a completed room whose
// settlement never reached the ledger. It never re-draws.
func (e *SettlementEngine) RetryPersist(ctx context.Context, roomID string) error {
	var snapshot *models.Room
	err := e.registry.WithRoom(roomID, func(room *models.Room) error {
		if room.Status != models.RoomCompleted || room.Winner == nil {
			return models.ErrInvalidState
		}
		if room.LedgerCommitted {
			return nil
		}
		snapshot = room.Clone()
		return nil
	})
	if err != nil || snapshot == nil {
		return err
	}

	if err := e.store.CommitSettlement(ctx, snapshot, snapshot.Winner); err != nil {
		return err
	}
	e.markCommitted(roomID)
	slog.Info("pending settlement persisted", "room_id", roomID)
	return nil
}

func (e *SettlementEngine) markCommitted(roomID string) {
	// Room removal is impossible for completed rooms, so the error is
	// unreachable here.
	_ = e.registry.WithRoom(roomID, func(room *models.Room) error {
		room.LedgerCommitted = true
		return nil
	})
}
