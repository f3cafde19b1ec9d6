package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/klimaz/starlotto/internal/models"
)

// AppendTransaction appends one immutable audit entry.
func (s *SQLiteStore) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	var paymentRef interface{}
	if tx.PaymentRef != "" {
		paymentRef = tx.PaymentRef
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, room_id, from_user_id, to_user_id, amount, transaction_type, payment_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.RoomID, tx.FromUserID, tx.ToUserID, tx.Amount,
		string(tx.Type), paymentRef, tx.CreatedAt.Unix(),
	)
	if err != nil {
		return persistErr("append transaction", err)
	}
	return nil
}

// CommitSettlement persists the room's final snapshot and its two
// settlement transactions in one database transaction. The partial
// unique index on (room_id, transaction_type) makes the inserts
// idempotent, so retrying after a failed commit never duplicates
// payouts.
func (s *SQLiteStore) CommitSettlement(ctx context.Context, room *models.Room, rec *models.SettlementRecord) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("begin settlement", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx,
		`UPDATE rooms SET status = ?, total_pool = ?, winner_user_id = ?, winner_amount = ?, house_amount = ?, completed_at = ?
		 WHERE room_id = ?`,
		string(models.RoomCompleted), room.TotalPool,
		rec.WinnerID, rec.WinnerAmount, rec.HouseAmount,
		room.CompletedAt.Unix(), room.ID,
	)
	if err != nil {
		return persistErr("update settled room", err)
	}

	now := rec.DrawnAt.Unix()
	_, err = dbTx.ExecContext(ctx,
		`INSERT OR IGNORE INTO transactions (id, room_id, from_user_id, to_user_id, amount, transaction_type, payment_ref, created_at)
		 VALUES (?, ?, NULL, ?, ?, ?, NULL, ?)`,
		uuid.New().String(), room.ID, rec.WinnerID, rec.WinnerAmount,
		string(models.TxWinnerPayout), now,
	)
	if err != nil {
		return persistErr("append winner payout", err)
	}

	_, err = dbTx.ExecContext(ctx,
		`INSERT OR IGNORE INTO transactions (id, room_id, from_user_id, to_user_id, amount, transaction_type, payment_ref, created_at)
		 VALUES (?, ?, NULL, NULL, ?, ?, NULL, ?)`,
		uuid.New().String(), room.ID, rec.HouseAmount,
		string(models.TxHouseFee), now,
	)
	if err != nil {
		return persistErr("append house fee", err)
	}

	if err := dbTx.Commit(); err != nil {
		return persistErr("commit settlement", err)
	}
	return nil
}

// FindTransactionByPaymentRef returns the entry-fee transaction for the
// payment reference, or (nil, nil) when the payment was never seen.
func (s *SQLiteStore) FindTransactionByPaymentRef(ctx context.Context, ref string) (*models.Transaction, error) {
	tx := &models.Transaction{}
	var txType string
	var fromUser, toUser sql.NullInt64
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, from_user_id, to_user_id, amount, transaction_type, created_at
		 FROM transactions WHERE payment_ref = ?`,
		ref,
	).Scan(&tx.ID, &tx.RoomID, &fromUser, &toUser, &tx.Amount, &txType, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("find transaction by payment ref", err)
	}

	if fromUser.Valid {
		tx.FromUserID = &fromUser.Int64
	}
	if toUser.Valid {
		tx.ToUserID = &toUser.Int64
	}
	tx.Type = models.TransactionType(txType)
	tx.PaymentRef = ref
	tx.CreatedAt = time.Unix(createdAt, 0)
	return tx, nil
}
