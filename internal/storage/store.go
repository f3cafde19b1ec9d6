// Package storage provides abstractions for the durable audit ledger.
package storage

import (
	"context"
	"fmt"

	"github.com/klimaz/starlotto/internal/models"
)

// Store defines the interface for the ledger behind the in-memory room
// registry. This abstraction allows swapping storage backends (SQLite,
// PostgreSQL, etc.) without changing the service layer.
//
// Every method reports failures as a *PersistenceError wrapping the
// driver error, never as corrupt partial state.
type Store interface {
	// UpsertRoom writes the room's current snapshot: status, pool,
	// winner and timestamps. Called on creation and on every state
	// change.
	UpsertRoom(ctx context.Context, room *models.Room) error

	// AddRoomParticipant records a participant's membership in a room.
	AddRoomParticipant(ctx context.Context, roomID string, p models.Participant) error

	// AppendTransaction appends one immutable audit entry.
	AppendTransaction(ctx context.Context, tx *models.Transaction) error

	// CommitSettlement atomically persists the room's final snapshot
	// together with its winner_payout and house_fee transactions. It is
	// safe to retry: the settlement transactions are written at most
	// once per room.
	CommitSettlement(ctx context.Context, room *models.Room, rec *models.SettlementRecord) error

	// FindTransactionByPaymentRef returns the entry-fee transaction for
	// the given payment reference, or (nil, nil) when none exists. Used
	// as the idempotency guard against payment re-delivery.
	FindTransactionByPaymentRef(ctx context.Context, ref string) (*models.Transaction, error)

	// GetOrCreateUser inserts the user if unseen and refreshes their
	// display fields otherwise.
	GetOrCreateUser(ctx context.Context, user *models.User) error

	// ListUnfinishedRooms returns every durably waiting or drawing room
	// with its participants, for crash recovery at startup.
	ListUnfinishedRooms(ctx context.Context) ([]*models.Room, error)

	// GlobalStats aggregates across all rooms.
	GlobalStats(ctx context.Context) (*models.GlobalStats, error)

	// UserStats aggregates one user's play record.
	UserStats(ctx context.Context, userID int64) (*models.UserStats, error)

	// Close releases any resources held by the store.
	Close() error
}

// PersistenceError marks a failure of the durable ledger. Settlement
// treats it as recoverable: the in-memory outcome stands and the write
// is retried.
type PersistenceError struct {
	// Op names the failed operation, e.g. "upsert room".
	Op string

	// Err is the underlying driver error.
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("ledger: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
