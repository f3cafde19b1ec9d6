package models

import "time"

// RoomStatus is the lifecycle state of a lottery room.
// Rooms only ever move forward: waiting -> drawing -> completed, or
// waiting -> expired when a room never fills.
type RoomStatus string

const (
	// RoomWaiting means the room is open and accepting participants.
	RoomWaiting RoomStatus = "waiting"

	// RoomDrawing means the room is full and queued for a draw.
	RoomDrawing RoomStatus = "drawing"

	// RoomCompleted means a winner has been drawn and the pool settled.
	RoomCompleted RoomStatus = "completed"

	// RoomExpired means the room never filled and was removed by the
	// reaper. Terminal, like RoomCompleted.
	RoomExpired RoomStatus = "expired"
)

// Participant is a paying entrant attached to exactly one room.
type Participant struct {
	// UserID is the external (Telegram) user identity.
	UserID int64

	// Username is the user's handle, may be empty.
	Username string

	// FirstName is the user's display name.
	FirstName string

	// PaymentRef is the payment charge id that bought this entry.
	PaymentRef string

	// JoinedAt is when the participant entered the room.
	JoinedAt time.Time
}

// Room is a matchmaking unit holding up to Capacity participants at one
// entry fee. Once full it is drawn and the pool is split between the
// winner and the house.
type Room struct {
	// ID is the unique identifier for the room (UUID format).
	ID string

	// EntryFee is the fixed stake each participant paid, in Stars.
	EntryFee int64

	// Status is the current lifecycle state.
	Status RoomStatus

	// Participants in join order. Never exceeds the configured capacity.
	Participants []Participant

	// TotalPool is the sum of entry fees collected so far.
	// Invariant: TotalPool == EntryFee * len(Participants).
	TotalPool int64

	// Winner is set once the room is completed, nil before that.
	Winner *SettlementRecord

	// LedgerCommitted reports whether the settlement outcome has been
	// durably written. A completed room with LedgerCommitted == false
	// needs its persistence retried, never a second draw.
	LedgerCommitted bool

	// CreatedAt is when the room was opened.
	CreatedAt time.Time

	// CompletedAt is when the draw finished, zero before completion.
	CompletedAt time.Time
}

// HasParticipant reports whether the user is already in the room.
func (r *Room) HasParticipant(userID int64) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the room, safe to use outside the
// registry lock.
func (r *Room) Clone() *Room {
	c := *r
	c.Participants = make([]Participant, len(r.Participants))
	copy(c.Participants, r.Participants)
	if r.Winner != nil {
		w := *r.Winner
		c.Winner = &w
	}
	return &c
}
