package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/klimaz/starlotto/internal/models"
	"github.com/klimaz/starlotto/internal/registry"
)

// recordingNotifier captures every Notify call.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []*models.SettlementRecord
}

func (n *recordingNotifier) Notify(ctx context.Context, rec *models.SettlementRecord, participants []models.Participant) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, rec)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func TestSweep_SettlesFullRoomsAndNotifiesOnce(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	admission := NewAdmissionService(reg, store, testConfig(), testMetrics())
	engine := NewSettlementEngine(reg, store, NewSeededPicker(1), 0.8, testMetrics())
	notifier := &recordingNotifier{}
	sched := NewScheduler(reg, engine, store, notifier, testMetrics(), time.Second, 24*time.Hour)
	ctx := context.Background()

	roomID := fillRoom(t, admission, 6, 100)

	sched.Sweep(ctx)

	room, err := reg.GetRoom(roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Status != models.RoomCompleted {
		t.Errorf("expected completed status after sweep, got %s", room.Status)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected 1 notification, got %d", notifier.count())
	}
	if notifier.calls[0].RoomID != roomID {
		t.Errorf("notification for wrong room: %s", notifier.calls[0].RoomID)
	}

	// Subsequent sweeps see no drawing rooms and stay silent.
	sched.Sweep(ctx)
	if notifier.count() != 1 {
		t.Errorf("completed room re-notified: %d notifications", notifier.count())
	}
}

func TestSweep_IgnoresWaitingRooms(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	admission := NewAdmissionService(reg, store, testConfig(), testMetrics())
	engine := NewSettlementEngine(reg, store, NewSeededPicker(1), 0.8, testMetrics())
	notifier := &recordingNotifier{}
	sched := NewScheduler(reg, engine, store, notifier, testMetrics(), time.Second, 24*time.Hour)
	ctx := context.Background()

	res, err := admission.OnPaymentConfirmed(ctx, payment(1, 100))
	if err != nil {
		t.Fatalf("OnPaymentConfirmed failed: %v", err)
	}

	sched.Sweep(ctx)

	room, err := reg.GetRoom(res.Room.ID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.Status != models.RoomWaiting {
		t.Errorf("waiting room must survive a sweep, got %s", room.Status)
	}
	if notifier.count() != 0 {
		t.Errorf("expected no notifications, got %d", notifier.count())
	}
}

func TestSweep_RetriesPendingPersistWithoutRenotifying(t *testing.T) {
	flaky := &flakyStore{Store: newTestStore(t), commitFailures: 1}
	reg := registry.New(6)
	admission := NewAdmissionService(reg, flaky, testConfig(), testMetrics())
	engine := NewSettlementEngine(reg, flaky, NewSeededPicker(1), 0.8, testMetrics())
	notifier := &recordingNotifier{}
	sched := NewScheduler(reg, engine, flaky, notifier, testMetrics(), time.Second, 24*time.Hour)
	ctx := context.Background()

	roomID := fillRoom(t, admission, 6, 100)

	// First sweep: draw succeeds, persist fails, winner still notified.
	sched.Sweep(ctx)
	if notifier.count() != 1 {
		t.Fatalf("expected 1 notification despite persist failure, got %d", notifier.count())
	}
	room, err := reg.GetRoom(roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if room.LedgerCommitted {
		t.Fatal("first sweep should leave the settlement uncommitted")
	}
	winner := room.Winner.WinnerID

	// Second sweep: persistence retried, no draw, no new notification.
	sched.Sweep(ctx)
	room, err = reg.GetRoom(roomID)
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if !room.LedgerCommitted {
		t.Error("second sweep should commit the pending settlement")
	}
	if room.Winner.WinnerID != winner {
		t.Error("retry must not re-draw the winner")
	}
	if notifier.count() != 1 {
		t.Errorf("retry must not re-notify, got %d notifications", notifier.count())
	}
}

func TestSweep_ReapsStaleWaitingRooms(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	admission := NewAdmissionService(reg, store, testConfig(), testMetrics())
	engine := NewSettlementEngine(reg, store, NewSeededPicker(1), 0.8, testMetrics())
	sched := NewScheduler(reg, engine, store, &recordingNotifier{}, testMetrics(), time.Second, 24*time.Hour)
	ctx := context.Background()

	res, err := admission.OnPaymentConfirmed(ctx, payment(1, 100))
	if err != nil {
		t.Fatalf("OnPaymentConfirmed failed: %v", err)
	}

	// As seen from two days later, the waiting room is stale.
	sched.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	sched.Sweep(ctx)

	if _, err := reg.GetRoom(res.Room.ID); err == nil {
		t.Error("stale waiting room should have been reaped")
	}
	if reg.UserInActiveRoom(1) {
		t.Error("reaped room participants should no longer count as active")
	}

	// Expiry is durable: the room must not come back through recovery.
	unfinished, err := store.ListUnfinishedRooms(ctx)
	if err != nil {
		t.Fatalf("ListUnfinishedRooms failed: %v", err)
	}
	for _, room := range unfinished {
		if room.ID == res.Room.ID {
			t.Errorf("reaped room still listed for recovery with status %s", room.Status)
		}
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store := newTestStore(t)
	reg := registry.New(6)
	engine := NewSettlementEngine(reg, store, NewSeededPicker(1), 0.8, testMetrics())
	sched := NewScheduler(reg, engine, store, &recordingNotifier{}, testMetrics(), 10*time.Millisecond, 24*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}
