package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/klimaz/starlotto/internal/metrics"
	"github.com/klimaz/starlotto/internal/models"
	"github.com/klimaz/starlotto/internal/registry"
	"github.com/klimaz/starlotto/internal/storage"
)

// Notifier is the outbound notification sink. Delivery is best-effort:
// failures are logged and never roll back a settlement.
type Notifier interface {
	Notify(ctx context.Context, rec *models.SettlementRecord, participants []models.Participant) error
}

// Scheduler periodically settles full rooms, retries pending ledger
// writes, and reaps stale waiting rooms, independent of request
// traffic.
type Scheduler struct {
	registry *registry.Registry
	engine   *SettlementEngine
	store    storage.Store
	notifier Notifier
	metrics  *metrics.Metrics
	interval time.Duration
	staleAge time.Duration
	now      func() time.Time
}

// NewScheduler creates a Scheduler sweeping every interval and reaping
// waiting rooms older than staleAge.
func NewScheduler(reg *registry.Registry, engine *SettlementEngine, store storage.Store, notifier Notifier, m *metrics.Metrics, interval, staleAge time.Duration) *Scheduler {
	return &Scheduler{
		registry: reg,
		engine:   engine,
		store:    store,
		notifier: notifier,
		metrics:  m,
		interval: interval,
		staleAge: staleAge,
		now:      time.Now,
	}
}

// Run sweeps until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("scheduler started", "interval", s.interval, "stale_age", s.staleAge)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. A failure for one room never blocks the others:
// it is logged and retried on the next sweep, which is safe because
// settle rejects rooms that already left drawing.
func (s *Scheduler) Sweep(ctx context.Context) {
	for _, roomID := range s.registry.RoomIDsByStatus(models.RoomDrawing) {
		rec, err := s.engine.Settle(ctx, roomID)
		if rec == nil {
			// Lost the race with another invocation, or the draw
			// itself failed.
			if err != nil && !errors.Is(err, models.ErrInvalidState) {
				slog.Error("settlement failed", "room_id", roomID, "error", err)
			}
			continue
		}
		if err != nil {
			slog.Warn("settlement persistence pending", "room_id", roomID)
		}
		s.dispatch(ctx, roomID, rec)
	}

	for _, roomID := range s.registry.PendingSettlementIDs() {
		if err := s.engine.RetryPersist(ctx, roomID); err != nil {
			slog.Error("settlement persistence retry failed", "room_id", roomID, "error", err)
		}
	}

	if reaped := s.registry.ReapStaleRooms(s.staleAge, s.now()); len(reaped) > 0 {
		// Expiry must reach the ledger or a restart resurrects the
		// room; on failure the upsert is simply attempted again when
		// recovery re-enters the room and the next sweep re-reaps it.
		for _, room := range reaped {
			if err := s.store.UpsertRoom(ctx, room); err != nil {
				slog.Error("room expiry not persisted", "room_id", room.ID, "error", err)
			}
		}
		s.metrics.ReapedRooms.Add(float64(len(reaped)))
		slog.Info("reaped stale rooms", "count", len(reaped))
	}
}

func (s *Scheduler) dispatch(ctx context.Context, roomID string, rec *models.SettlementRecord) {
	room, err := s.registry.GetRoom(roomID)
	if err != nil {
		slog.Error("settled room vanished before notification", "room_id", roomID, "error", err)
		return
	}
	if err := s.notifier.Notify(ctx, rec, room.Participants); err != nil {
		s.metrics.NotifyFailures.Inc()
		slog.Warn("result notification failed", "room_id", roomID, "error", err)
	}
}
