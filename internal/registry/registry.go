// Package registry holds the authoritative in-memory state of all
// lottery rooms. Every mutation runs under one mutex, so joins to a
// room are serialized and the transition to drawing happens exactly
// once, atomically with the join that filled the room.
//
// The registry itself performs no I/O. Persisting snapshots to the
// ledger is the caller's job, done after the lock is released.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klimaz/starlotto/internal/models"
)

// Registry owns the shared room map. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]*models.Room
	order    []string // room ids in creation order, for deterministic matching
	capacity int
}

// JoinResult describes a successful join.
type JoinResult struct {
	// Room is a snapshot taken just after the join, safe to persist
	// outside the lock.
	Room *models.Room

	// Created reports whether the join created a new room.
	Created bool

	// Full reports whether this join filled the room and moved it to
	// drawing.
	Full bool
}

// New creates an empty registry with the given room capacity.
func New(capacity int) *Registry {
	return &Registry{
		rooms:    make(map[string]*models.Room),
		capacity: capacity,
	}
}

// Capacity returns the configured room size.
func (r *Registry) Capacity() int {
	return r.capacity
}

// FindOrCreateRoom returns a waiting, non-full room with the given
// entry fee, creating one when none exists. Matching scans rooms in
// creation order, so concurrent callers under load converge on the
// same room instead of opening duplicates.
func (r *Registry) FindOrCreateRoom(entryFee int64, now time.Time) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, created := r.findOrCreateLocked(entryFee, now)
	return room.ID, created
}

// AddParticipant appends the participant to the room, growing the pool
// and, when this join fills the room, transitioning it to drawing in
// the same critical section.
func (r *Registry) AddParticipant(roomID string, p models.Participant) (*JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, models.ErrRoomNotFound
	}
	if err := r.joinLocked(room, p); err != nil {
		return nil, err
	}
	return &JoinResult{
		Room: room.Clone(),
		Full: room.Status == models.RoomDrawing,
	}, nil
}

// Admit runs the whole admission path under one lock: cross-room
// exclusivity check, room matching, and the join. Two concurrent
// payments for the same user can never both pass the exclusivity
// check.
func (r *Registry) Admit(entryFee int64, p models.Participant, now time.Time) (*JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.userInActiveRoomLocked(p.UserID) {
		return nil, models.ErrUserInActiveRoom
	}

	room, created := r.findOrCreateLocked(entryFee, now)
	if err := r.joinLocked(room, p); err != nil {
		// A freshly created room cannot reject its first join; only
		// reachable for reused rooms.
		return nil, err
	}
	return &JoinResult{
		Room:    room.Clone(),
		Created: created,
		Full:    room.Status == models.RoomDrawing,
	}, nil
}

// GetRoom returns a snapshot of the room.
func (r *Registry) GetRoom(roomID string) (*models.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, models.ErrRoomNotFound
	}
	return room.Clone(), nil
}

// UserInActiveRoom reports whether the user is a participant of any
// non-completed room.
func (r *Registry) UserInActiveRoom(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userInActiveRoomLocked(userID)
}

// RoomIDsByStatus snapshots the ids of all rooms in the given status.
func (r *Registry) RoomIDsByStatus(status models.RoomStatus) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for _, id := range r.order {
		if r.rooms[id].Status == status {
			ids = append(ids, id)
		}
	}
	return ids
}

// PendingSettlementIDs snapshots the ids of completed rooms whose
// settlement has not yet reached the ledger.
func (r *Registry) PendingSettlementIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for _, id := range r.order {
		room := r.rooms[id]
		if room.Status == models.RoomCompleted && !room.LedgerCommitted {
			ids = append(ids, id)
		}
	}
	return ids
}

// WithRoom runs fn on the live room under the registry lock. fn must
// not perform I/O or block.
func (r *Registry) WithRoom(roomID string, fn func(room *models.Room) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return models.ErrRoomNotFound
	}
	return fn(room)
}

// ReapStaleRooms removes waiting rooms created before now - maxAge and
// returns their final snapshots, already transitioned to expired, for
// the caller to persist. Drawing rooms are mid-flight and completed
// rooms stay queryable, so both are left alone.
func (r *Registry) ReapStaleRooms(maxAge time.Duration, now time.Time) []*models.Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-maxAge)
	kept := r.order[:0]
	var removed []*models.Room
	for _, id := range r.order {
		room := r.rooms[id]
		if room.Status == models.RoomWaiting && room.CreatedAt.Before(cutoff) {
			delete(r.rooms, id)
			snap := room.Clone()
			snap.Status = models.RoomExpired
			removed = append(removed, snap)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed
}

// Restore re-enters a room recovered from the ledger, preserving its
// durable status. Used only during startup reconciliation.
func (r *Registry) Restore(room *models.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; ok {
		return
	}
	r.rooms[room.ID] = room.Clone()
	r.order = append(r.order, room.ID)
}

// OpenRoomCount returns how many rooms are currently not completed.
func (r *Registry) OpenRoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, room := range r.rooms {
		if room.Status != models.RoomCompleted {
			n++
		}
	}
	return n
}

func (r *Registry) findOrCreateLocked(entryFee int64, now time.Time) (*models.Room, bool) {
	for _, id := range r.order {
		room := r.rooms[id]
		if room.EntryFee == entryFee &&
			room.Status == models.RoomWaiting &&
			len(room.Participants) < r.capacity {
			return room, false
		}
	}

	room := &models.Room{
		ID:        uuid.New().String(),
		EntryFee:  entryFee,
		Status:    models.RoomWaiting,
		CreatedAt: now,
	}
	r.rooms[room.ID] = room
	r.order = append(r.order, room.ID)
	return room, true
}

func (r *Registry) joinLocked(room *models.Room, p models.Participant) error {
	if room.Status != models.RoomWaiting {
		return models.ErrInvalidState
	}
	if len(room.Participants) >= r.capacity {
		return models.ErrRoomFull
	}
	if room.HasParticipant(p.UserID) {
		return models.ErrAlreadyJoined
	}

	room.Participants = append(room.Participants, p)
	room.TotalPool += room.EntryFee
	if len(room.Participants) == r.capacity {
		room.Status = models.RoomDrawing
	}
	return nil
}

func (r *Registry) userInActiveRoomLocked(userID int64) bool {
	for _, room := range r.rooms {
		if room.Status == models.RoomCompleted {
			continue
		}
		if room.HasParticipant(userID) {
			return true
		}
	}
	return false
}
