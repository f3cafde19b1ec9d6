package sqlite

import (
	"context"
	"time"

	"github.com/klimaz/starlotto/internal/models"
)

// GetOrCreateUser inserts the user if unseen and refreshes their
// display fields otherwise.
func (s *SQLiteStore) GetOrCreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, first_name, last_name, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		     username = excluded.username,
		     first_name = excluded.first_name,
		     last_name = excluded.last_name`,
		user.ID, user.Username, user.FirstName, user.LastName, user.CreatedAt.Unix(),
	)
	if err != nil {
		return persistErr("get or create user", err)
	}
	return nil
}
