package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/klimaz/starlotto/internal/models"
	"github.com/klimaz/starlotto/internal/registry"
	"github.com/klimaz/starlotto/internal/storage"
)

// flakyStore fails CommitSettlement a fixed number of times before
// delegating, to exercise the persistence retry path.
type flakyStore struct {
	storage.Store
	commitFailures int
	commitCalls    int
}

func (s *flakyStore) CommitSettlement(ctx context.Context, room *models.Room, rec *models.SettlementRecord) error {
	s.commitCalls++
	if s.commitFailures > 0 {
		s.commitFailures--
		return &storage.PersistenceError{Op: "commit settlement", Err: errors.New("disk full")}
	}
	return s.Store.CommitSettlement(ctx, room, rec)
}

// fillRoom admits capacity users at the given fee and returns the
// filled room's id.
func fillRoom(t *testing.T, svc *AdmissionService, capacity int, fee int64) string {
	t.Helper()

	var roomID string
	for i := 1; i <= capacity; i++ {
		res, err := svc.OnPaymentConfirmed(context.Background(), payment(int64(i), fee))
		if err != nil {
			t.Fatalf("OnPaymentConfirmed %d failed: %v", i, err)
		}
		roomID = res.Room.ID
	}
	return roomID
}

func TestSettle_SplitsPoolAndCompletesRoom(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	admission := NewAdmissionService(reg, store, testConfig(), testMetrics())
	engine := NewSettlementEngine(reg, store, NewSeededPicker(1), 0.8, testMetrics())
	ctx := context.Background()

	roomID := fillRoom(t, admission, 6, 100)

	rec, err := engine.Settle(ctx, roomID)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	if rec.TotalPool != 600 {
		t.Errorf("pool: expected 600, got %d", rec.TotalPool)
	}
	if rec.WinnerAmount != 480 {
		t.Errorf("winner amount: expected 480, got %d", rec.WinnerAmount)
	}
	if rec.HouseAmount != 120 {
		t.Errorf("house amount: expected 120, got %d", rec.HouseAmount)
	}
	if rec.WinnerAmount+rec.HouseAmount != rec.TotalPool {
		t.Error("winner and house amounts must sum to the pool")
	}
	if rec.WinnerID < 1 || rec.WinnerID > 6 {
		t.Errorf("winner %d is not a participant", rec.WinnerID)
	}

	room, err := reg.GetRoom(roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Status != models.RoomCompleted {
		t.Errorf("expected completed status, got %s", room.Status)
	}
	if room.Winner == nil || room.Winner.WinnerID != rec.WinnerID {
		t.Error("room snapshot should carry the settlement record")
	}
	if !room.LedgerCommitted {
		t.Error("settlement should be marked committed after a clean persist")
	}

	// A completed room must no longer show up in crash recovery.
	rooms, err := store.ListUnfinishedRooms(ctx)
	if err != nil {
		t.Fatalf("ListUnfinishedRooms failed: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("expected no unfinished rooms, got %d", len(rooms))
	}

	// And the winner's payout must be visible in their stats.
	stats, err := store.UserStats(ctx, rec.WinnerID)
	if err != nil {
		t.Fatalf("UserStats failed: %v", err)
	}
	if stats.TotalWinnings != 480 {
		t.Errorf("winner stats: expected 480 winnings, got %d", stats.TotalWinnings)
	}
	if stats.TotalWins != 1 {
		t.Errorf("winner stats: expected 1 win, got %d", stats.TotalWins)
	}
}

func TestSettle_SecondInvocationRejected(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	admission := NewAdmissionService(reg, store, testConfig(), testMetrics())
	engine := NewSettlementEngine(reg, store, NewSeededPicker(1), 0.8, testMetrics())
	ctx := context.Background()

	roomID := fillRoom(t, admission, 6, 100)

	first, err := engine.Settle(ctx, roomID)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	if _, err := engine.Settle(ctx, roomID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState on second settle, got %v", err)
	}

	// The original outcome must be untouched.
	room, err := reg.GetRoom(roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Winner.WinnerID != first.WinnerID {
		t.Error("second settle attempt must not change the winner")
	}
}

func TestSettle_WaitingRoomRejected(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	admission := NewAdmissionService(reg, store, testConfig(), testMetrics())
	engine := NewSettlementEngine(reg, store, NewSeededPicker(1), 0.8, testMetrics())
	ctx := context.Background()

	res, err := admission.OnPaymentConfirmed(ctx, payment(1, 100))
	if err != nil {
		t.Fatalf("OnPaymentConfirmed failed: %v", err)
	}

	if _, err := engine.Settle(ctx, res.Room.ID); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for waiting room, got %v", err)
	}
}

func TestSettle_EmptyDrawingRoomRejected(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	engine := NewSettlementEngine(reg, store, NewSeededPicker(1), 0.8, testMetrics())

	reg.Restore(&models.Room{
		ID:        "corrupt-room",
		EntryFee:  100,
		Status:    models.RoomDrawing,
		CreatedAt: time.Now(),
	})

	if _, err := engine.Settle(context.Background(), "corrupt-room"); !errors.Is(err, models.ErrEmptyRoom) {
		t.Errorf("expected ErrEmptyRoom, got %v", err)
	}
}

func TestSettle_RoomNotFound(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	engine := NewSettlementEngine(reg, store, NewSeededPicker(1), 0.8, testMetrics())

	if _, err := engine.Settle(context.Background(), "nonexistent"); !errors.Is(err, models.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestSettle_PersistFailureKeepsOutcome(t *testing.T) {
	flaky := &flakyStore{Store: newTestStore(t), commitFailures: 1}
	reg := registry.New(6)
	admission := NewAdmissionService(reg, flaky, testConfig(), testMetrics())
	engine := NewSettlementEngine(reg, flaky, NewSeededPicker(1), 0.8, testMetrics())
	ctx := context.Background()

	roomID := fillRoom(t, admission, 6, 100)

	rec, err := engine.Settle(ctx, roomID)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if rec == nil {
		t.Fatal("draw succeeded, record must be returned despite persist failure")
	}
	var perr *storage.PersistenceError
	if !errors.As(err, &perr) {
		t.Errorf("expected PersistenceError, got %T", err)
	}

	room, err := reg.GetRoom(roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Status != models.RoomCompleted {
		t.Errorf("room must be completed in memory, got %s", room.Status)
	}
	if room.LedgerCommitted {
		t.Error("settlement must not be marked committed after a failed persist")
	}

	pending := reg.PendingSettlementIDs()
	if len(pending) != 1 || pending[0] != roomID {
		t.Fatalf("expected room pending settlement, got %v", pending)
	}

	// Retry persists the same outcome without another draw.
	if err := engine.RetryPersist(ctx, roomID); err != nil {
		t.Fatalf("RetryPersist failed: %v", err)
	}
	room, err = reg.GetRoom(roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if !room.LedgerCommitted {
		t.Error("retry should mark the settlement committed")
	}
	if room.Winner.WinnerID != rec.WinnerID {
		t.Error("retry must not change the winner")
	}
	if flaky.commitCalls != 2 {
		t.Errorf("expected 2 commit attempts, got %d", flaky.commitCalls)
	}
	if len(reg.PendingSettlementIDs()) != 0 {
		t.Error("nothing should be pending after a successful retry")
	}
}

func TestSettle_DrawIsUniformAcrossParticipants(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	engine := NewSettlementEngine(reg, store, NewSeededPicker(7), 0.8, testMetrics())
	ctx := context.Background()

	participants := make([]models.Participant, 6)
	for i := range participants {
		userID := int64(i + 1)
		participants[i] = models.Participant{UserID: userID, PaymentRef: fmt.Sprintf("seed-%d", userID)}
		user := &models.User{ID: userID, FirstName: "Player"}
		if err := store.GetOrCreateUser(ctx, user); err != nil {
			t.Fatalf("GetOrCreateUser failed: %v", err)
		}
	}

	const draws = 1000
	wins := make(map[int64]int, 6)
	for i := 0; i < draws; i++ {
		room := &models.Room{
			ID:           fmt.Sprintf("room-%04d", i),
			EntryFee:     100,
			Status:       models.RoomDrawing,
			Participants: participants,
			TotalPool:    600,
			CreatedAt:    time.Now(),
		}
		if err := store.UpsertRoom(ctx, room); err != nil {
			t.Fatalf("UpsertRoom failed: %v", err)
		}
		reg.Restore(room)

		rec, err := engine.Settle(ctx, room.ID)
		if err != nil {
			t.Fatalf("Settle %d failed: %v", i, err)
		}
		wins[rec.WinnerID]++
	}

	// Expected ~167 wins each; the band is several standard deviations
	// wide, so a fair draw passes and a skewed or stuck one fails.
	for userID := int64(1); userID <= 6; userID++ {
		if wins[userID] < 100 || wins[userID] > 235 {
			t.Errorf("user %d won %d of %d draws, expected near %d",
				userID, wins[userID], draws, draws/6)
		}
	}
}

func TestRetryPersist_CommittedRoomIsNoOp(t *testing.T) {
	flaky := &flakyStore{Store: newTestStore(t)}
	reg := registry.New(6)
	admission := NewAdmissionService(reg, flaky, testConfig(), testMetrics())
	engine := NewSettlementEngine(reg, flaky, NewSeededPicker(1), 0.8, testMetrics())
	ctx := context.Background()

	roomID := fillRoom(t, admission, 6, 100)
	if _, err := engine.Settle(ctx, roomID); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	calls := flaky.commitCalls

	if err := engine.RetryPersist(ctx, roomID); err != nil {
		t.Fatalf("RetryPersist failed: %v", err)
	}
	if flaky.commitCalls != calls {
		t.Error("retry on a committed room must not touch the ledger")
	}
}

func TestSettle_SurvivesOutOfOrderJoinSnapshots(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	admission := NewAdmissionService(reg, store, testConfig(), testMetrics())
	ctx := context.Background()

	roomID := fillRoom(t, admission, 6, 100)

	// Joins persist their room snapshots outside the registry lock, so
	// the fifth join's write can land after the sixth's. Replay that
	// late snapshot against the already-full durable room.
	room, err := reg.GetRoom(roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	stale := room.Clone()
	stale.Status = models.RoomWaiting
	stale.TotalPool = 500
	stale.Participants = stale.Participants[:5]
	if err := store.UpsertRoom(ctx, stale); err != nil {
		t.Fatalf("UpsertRoom failed: %v", err)
	}

	// Restart: rebuild the registry from the ledger. The room must come
	// back full and drawing, and settle normally.
	recovered := registry.New(6)
	rooms, err := store.ListUnfinishedRooms(ctx)
	if err != nil {
		t.Fatalf("ListUnfinishedRooms failed: %v", err)
	}
	for _, r := range rooms {
		recovered.Restore(r)
	}

	restored, err := recovered.GetRoom(roomID)
	if err != nil {
		t.Fatalf("GetRoom after recovery failed: %v", err)
	}
	if restored.Status != models.RoomDrawing {
		t.Fatalf("recovered status: expected drawing, got %s", restored.Status)
	}
	if restored.TotalPool != 600 {
		t.Errorf("recovered pool: expected 600, got %d", restored.TotalPool)
	}
	if len(restored.Participants) != 6 {
		t.Fatalf("recovered participants: expected 6, got %d", len(restored.Participants))
	}

	engine := NewSettlementEngine(recovered, store, NewSeededPicker(1), 0.8, testMetrics())
	rec, err := engine.Settle(ctx, roomID)
	if err != nil {
		t.Fatalf("Settle after recovery failed: %v", err)
	}
	if rec.WinnerAmount != 480 || rec.HouseAmount != 120 {
		t.Errorf("unexpected split: winner %d house %d", rec.WinnerAmount, rec.HouseAmount)
	}
}
