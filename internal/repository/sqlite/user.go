package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/secret-share/internal/apperror"
	"github.com/sakif/secret-share/internal/dbx"
	"github.com/sakif/secret-share/internal/model"
	"github.com/sakif/secret-share/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

// Upsert inserts or updates a user keyed by GitHub ID.
//
// The existing internal ID is kept on update, so items already pointing at
// it stay attached to the same owner.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	var (
		existingID string
		createdAt  time.Time
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID, &createdAt)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	now := time.Now().UTC()

	if existingID != "" {
		// Refresh the profile in case login/email/avatar changed on GitHub.
		user.ID = existingID
		user.CreatedAt = createdAt
		user.UpdatedAt = now
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET login = ?, email = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Login,
			user.Email,
			user.AvatarURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, email, avatar_url, last_user_agent, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.GitHubID,
		user.Login,
		user.Email,
		user.AvatarURL,
		user.LastUserAgent,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, login, email, avatar_url, last_user_agent, created_at, updated_at
		 FROM users WHERE id = ?`,
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
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}

// UpdateUserAgent records the client the user last arrived with. It is a
// no-op when the value is unchanged.
func (db *DB) UpdateUserAgent(ctx context.Context, id, userAgent string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_user_agent = ?, updated_at = ?
		 WHERE id = ? AND last_user_agent <> ?`,
		userAgent, time.Now().UTC(), id, userAgent,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user agent for %s: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Either unchanged or missing; only the latter is an error.
		var exists int
		err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("user", id)
		}
		if err != nil {
			return fmt.Errorf("sqlite: checking user %s: %w", id, err)
		}
	}
	return nil
}

// DeleteUser removes a user who owns no items.
//
// items.owner_id is ON DELETE RESTRICT, but the count is checked first inside
// the same transaction so the caller gets a Conflict rather than a driver
// constraint error.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var owned int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM items WHERE owner_id = ?`, id,
		).Scan(&owned); err != nil {
			return err
		}
		if owned > 0 {
			return apperror.Conflict("user", id)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return apperror.NotFound("user", id)
		}
		return nil
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	return nil
}
