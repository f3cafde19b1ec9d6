package models

import "errors"

// Validation-class failures of the room lifecycle. Callers translate
// these into user-facing responses; they are never fatal.
var (
	// ErrRoomNotFound means the room id is unknown to the registry.
	ErrRoomNotFound = errors.New("room not found")

	// ErrAlreadyJoined means the user is already a participant of the room.
	ErrAlreadyJoined = errors.New("user already joined this room")

	// ErrRoomFull means the room has reached capacity.
	ErrRoomFull = errors.New("room is full")

	// ErrInvalidState means the room is not in the status the requested
	// transition needs.
	ErrInvalidState = errors.New("room is in the wrong state")

	// ErrEmptyRoom means a draw was requested on a room with no
	// participants. Unreachable while the join invariants hold.
	ErrEmptyRoom = errors.New("room has no participants")

	// ErrDuplicatePayment means the payment reference was already
	// recorded in the ledger.
	ErrDuplicatePayment = errors.New("payment already processed")

	// ErrUserInActiveRoom means the user is already a participant of
	// some non-completed room.
	ErrUserInActiveRoom = errors.New("user is already in an active room")

	// ErrInvalidEntryFee means the requested fee is not in the
	// configured set.
	ErrInvalidEntryFee = errors.New("invalid entry fee")
)
