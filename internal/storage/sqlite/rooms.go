package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/klimaz/starlotto/internal/models"
)

// UpsertRoom writes the room's current snapshot. Snapshots are written
// after the registry lock is released, so concurrent joins can deliver
// them out of order. Pool and status only move forward in a room's
// lifetime, so a write that would regress either is a late snapshot of
// an older state and is dropped; without the guard, a room durably
// drawing could be overwritten back to waiting and recovery would
// restore a full room that can neither settle nor accept joins.
func (s *SQLiteStore) UpsertRoom(ctx context.Context, room *models.Room) error {
	var winnerID, winnerAmount, houseAmount interface{}
	if room.Winner != nil {
		winnerID = room.Winner.WinnerID
		winnerAmount = room.Winner.WinnerAmount
		houseAmount = room.Winner.HouseAmount
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (room_id, entry_fee, status, total_pool, winner_user_id, winner_amount, house_amount, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(room_id) DO UPDATE SET
		     status = excluded.status,
		     total_pool = excluded.total_pool,
		     winner_user_id = excluded.winner_user_id,
		     winner_amount = excluded.winner_amount,
		     house_amount = excluded.house_amount,
		     completed_at = excluded.completed_at
		 WHERE excluded.total_pool >= rooms.total_pool
		   AND CASE excluded.status WHEN 'waiting' THEN 0 WHEN 'drawing' THEN 1 ELSE 2 END
		       >= CASE rooms.status WHEN 'waiting' THEN 0 WHEN 'drawing' THEN 1 ELSE 2 END`,
		room.ID, room.EntryFee, string(room.Status), room.TotalPool,
		winnerID, winnerAmount, houseAmount,
		room.CreatedAt.Unix(), unixOrNil(room.CompletedAt),
	)
	if err != nil {
		return persistErr("upsert room", err)
	}
	return nil
}

// AddRoomParticipant records a participant's membership in a room.
func (s *SQLiteStore) AddRoomParticipant(ctx context.Context, roomID string, p models.Participant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO room_participants (room_id, user_id, username, first_name, payment_ref, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		roomID, p.UserID, p.Username, p.FirstName, p.PaymentRef, p.JoinedAt.Unix(),
	)
	if err != nil {
		return persistErr("add room participant", err)
	}
	return nil
}

// ListUnfinishedRooms returns every durably waiting or drawing room
// with its participants in join order. Used at startup to rebuild the
// in-memory registry after a crash.
func (s *SQLiteStore) ListUnfinishedRooms(ctx context.Context) ([]*models.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, entry_fee, status, total_pool, created_at
		 FROM rooms WHERE status NOT IN (?, ?) ORDER BY created_at`,
		string(models.RoomCompleted), string(models.RoomExpired),
	)
	if err != nil {
		return nil, persistErr("list unfinished rooms", err)
	}
	defer rows.Close()

	var result []*models.Room
	for rows.Next() {
		var room models.Room
		var status string
		var createdAt int64
		if err := rows.Scan(&room.ID, &room.EntryFee, &status, &room.TotalPool, &createdAt); err != nil {
			return nil, persistErr("scan room", err)
		}
		room.Status = models.RoomStatus(status)
		room.CreatedAt = time.Unix(createdAt, 0)
		result = append(result, &room)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate rooms", err)
	}

	for _, room := range result {
		participants, err := s.roomParticipants(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		room.Participants = participants
	}
	return result, nil
}

func (s *SQLiteStore) roomParticipants(ctx context.Context, roomID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, username, first_name, payment_ref, joined_at
		 FROM room_participants WHERE room_id = ? ORDER BY joined_at, rowid`,
		roomID,
	)
	if err != nil {
		return nil, persistErr("get room participants", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		var username, firstName sql.NullString
		var joinedAt int64
		if err := rows.Scan(&p.UserID, &username, &firstName, &p.PaymentRef, &joinedAt); err != nil {
			return nil, persistErr("scan participant", err)
		}
		p.Username = username.String
		p.FirstName = firstName.String
		p.JoinedAt = time.Unix(joinedAt, 0)
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate participants", err)
	}
	return participants, nil
}
