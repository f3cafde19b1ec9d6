package sqlite

import "database/sql"

// schema contains the SQL statements to set up the ledger tables.
// These run on startup to ensure tables exist.
//
// The unique index on payment_ref is what makes payment delivery
// idempotent, and the unique settlement index guarantees at most one
// winner_payout and one house_fee row per room even if the commit is
// retried.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id INTEGER PRIMARY KEY,
    username TEXT,
    first_name TEXT,
    last_name TEXT,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
    room_id TEXT PRIMARY KEY,
    entry_fee INTEGER NOT NULL,
    status TEXT NOT NULL,
    total_pool INTEGER NOT NULL,
    winner_user_id INTEGER,
    winner_amount INTEGER,
    house_amount INTEGER,
    created_at INTEGER NOT NULL,
    completed_at INTEGER,
    FOREIGN KEY (winner_user_id) REFERENCES users(user_id)
);

CREATE TABLE IF NOT EXISTS room_participants (
    room_id TEXT NOT NULL,
    user_id INTEGER NOT NULL,
    username TEXT,
    first_name TEXT,
    payment_ref TEXT NOT NULL,
    joined_at INTEGER NOT NULL,
    PRIMARY KEY (room_id, user_id),
    FOREIGN KEY (room_id) REFERENCES rooms(room_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    room_id TEXT NOT NULL,
    from_user_id INTEGER,
    to_user_id INTEGER,
    amount INTEGER NOT NULL,
    transaction_type TEXT NOT NULL,
    payment_ref TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (room_id) REFERENCES rooms(room_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_payment_ref
    ON transactions(payment_ref) WHERE payment_ref IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_settlement
    ON transactions(room_id, transaction_type)
    WHERE transaction_type IN ('winner_payout', 'house_fee');
CREATE INDEX IF NOT EXISTS idx_rooms_status ON rooms(status);
CREATE INDEX IF NOT EXISTS idx_room_participants_user_id ON room_participants(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_room_id ON transactions(room_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
