package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/xid"
	"github.com/sakif/secret-share/internal/apperror"
	"github.com/sakif/secret-share/internal/model"
	"github.com/sakif/secret-share/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// pgForeignKeyViolation is the SQLSTATE for foreign_key_violation.
const pgForeignKeyViolation = "23503"

// Upsert inserts the user or refreshes the profile of the row with the same
// github_id. The existing id and created_at survive the update.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (id, github_id, login, email, avatar_url, last_user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (github_id) DO UPDATE
		   SET login = EXCLUDED.login,
		       email = EXCLUDED.email,
		       avatar_url = EXCLUDED.avatar_url,
		       updated_at = now()
		 RETURNING id, last_user_agent, created_at, updated_at`,
		xid.New().String(),
		user.GitHubID,
		user.Login,
		user.Email,
		user.AvatarURL,
		user.LastUserAgent,
	).Scan(&user.ID, &user.LastUserAgent, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upserting user (githubID=%d): %w", user.GitHubID, err)
	}
	return nil
}

// GetUserByID retrieves a user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, login, email, avatar_url, last_user_agent, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(
		&u.ID,
		&u.GitHubID,
		&u.Login,
		&u.Email,
		&u.AvatarURL,
		&u.LastUserAgent,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("postgres: getting user %s: %w", id, err)
	}
	return &u, nil
}

// UpdateUserAgent stores the latest client string for the user.
func (db *DB) UpdateUserAgent(ctx context.Context, id, userAgent string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_user_agent = $1, updated_at = now() WHERE id = $2`,
		userAgent, id,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating user agent for %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// DeleteUser removes a user. The items foreign key is ON DELETE RESTRICT;
// its violation is reported as a Conflict.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperror.Conflict("user", id)
		}
		return fmt.Errorf("postgres: deleting user %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
