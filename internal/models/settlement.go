package models

import "time"

// SettlementRecord is the outcome of a room's draw. It is produced
// exactly once per room and is immutable afterwards.
type SettlementRecord struct {
	// RoomID is the room this settlement belongs to.
	RoomID string

	// WinnerID is the user identity of the drawn winner.
	WinnerID int64

	// WinnerUsername is the winner's handle, may be empty.
	WinnerUsername string

	// WinnerFirstName is the winner's display name.
	WinnerFirstName string

	// TotalPool is the pool that was split.
	TotalPool int64

	// WinnerAmount is floor(TotalPool * winner share).
	WinnerAmount int64

	// HouseAmount is the remainder: TotalPool - WinnerAmount.
	// The two always sum exactly to the pool.
	HouseAmount int64

	// DrawnAt is when the winner was drawn.
	DrawnAt time.Time
}

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	// TxEntryFee records a participant's paid entry into a room.
	TxEntryFee TransactionType = "entry_fee"

	// TxWinnerPayout records the winner's share of the pool.
	TxWinnerPayout TransactionType = "winner_payout"

	// TxHouseFee records the house's share of the pool.
	TxHouseFee TransactionType = "house_fee"
)

// Transaction is an immutable audit entry in the ledger. Transactions
// are append-only, never mutated or deleted.
type Transaction struct {
	// ID is the unique identifier for the transaction (UUID format).
	ID string

	// RoomID is the room the transaction belongs to.
	RoomID string

	// FromUserID is the paying side, nil for pool-funded payouts.
	FromUserID *int64

	// ToUserID is the receiving side, nil for the house.
	ToUserID *int64

	// Amount in Stars.
	Amount int64

	// Type classifies the transaction.
	Type TransactionType

	// PaymentRef is the external payment charge id for entry fees,
	// empty for settlement transactions. Unique when present, which is
	// what makes payment delivery idempotent.
	PaymentRef string

	// CreatedAt is when the transaction was appended.
	CreatedAt time.Time
}
