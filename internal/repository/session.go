package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the database representation of an account.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

// GetUserByID fetches a user by primary key.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	const query = `SELECT id, email, name, created_at FROM users WHERE id = $1`
	var u User
	err := q.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.CreatedAt,
	)
	return u, err
}

// GetUserBySessionTokenHash resolves a user from a session token hash,
// ignoring expired sessions. Returns sql.ErrNoRows for unknown or expired
// tokens.
func (q *Queries) GetUserBySessionTokenHash(ctx context.Context, tokenHash string) (User, error) {
	const query = `SELECT u.id, u.email, u.name, u.created_at
FROM users u
JOIN sessions s ON s.user_id = u.id
WHERE s.token_hash = $1 AND s.expires_at > now()`
	var u User
	err := q.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.CreatedAt,
	)
	return u, err
}

// DeleteExpiredSessions removes sessions past their expiry. Run
// opportunistically by the background worker.
func (q *Queries) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= now()`
	result, err := q.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
