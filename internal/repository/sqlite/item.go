package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"
	"github.com/sakif/secret-share/internal/apperror"
	"github.com/sakif/secret-share/internal/dbx"
	"github.com/sakif/secret-share/internal/model"
	"github.com/sakif/secret-share/internal/repository"
)

var _ repository.ItemRepository = (*DB)(nil)

const itemColumns = `id, uuid, owner_id, created_at, password_hash, url, file_key, file_name, file_size, visit_count`

// Insert stores a new item.
//
// ID is an xid (sortable, internal only); UUID is a random v4 UUID and is the
// only handle an anonymous visitor ever sees.
func (db *DB) Insert(ctx context.Context, item *model.Item) error {
	if item.Payload == nil {
		return apperror.ValidationFailed("payload", model.ErrPayloadMissing.Error())
	}

	item.ID = xid.New().String()
	item.UUID = uuid.NewString()
	item.CreatedAt = db.opts.Now().UTC()
	item.VisitCount = 0

	url, fileKey, fileName, fileSize := model.EncodePayload(item.Payload)

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		item.ID,
		item.UUID,
		item.OwnerID,
		item.CreatedAt.UnixNano(),
		item.PasswordHash,
		url,
		fileKey,
		fileName,
		fileSize,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting item: %w", err)
	}

	return nil
}

// FindActiveByUUID applies the active-window filter in SQL: a row older than
// the lifetime is indistinguishable from a missing one.
func (db *DB) FindActiveByUUID(ctx context.Context, itemUUID string) (*model.Item, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE uuid = ? AND created_at >= ?`,
		itemUUID,
		db.opts.Cutoff().UnixNano(),
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ItemNotFound()
		}
		return nil, fmt.Errorf("sqlite: finding active item: %w", err)
	}
	return item, nil
}

// FindAnyByUUID returns the item regardless of age.
func (db *DB) FindAnyByUUID(ctx context.Context, itemUUID string) (*model.Item, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE uuid = ?`,
		itemUUID,
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ItemNotFound()
		}
		return nil, fmt.Errorf("sqlite: finding item: %w", err)
	}
	return item, nil
}

// RecordVisit bumps visit_count inside a transaction.
//
// The increment is a single UPDATE ... SET visit_count = visit_count + 1, so
// SQLite's database-level write lock makes read-increment-write indivisible.
// The transaction makes the "exactly one row" check part of the same unit.
func (db *DB) RecordVisit(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE items SET visit_count = visit_count + 1 WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return apperror.NotFound("item", id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("sqlite: recording visit for item %s: %w", id, err)
	}
	return nil
}

// ListVisited feeds the stats aggregation. No active-window filter.
func (db *DB) ListVisited(ctx context.Context) ([]model.Item, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE visit_count > 0
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing visited items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListByOwner pages through the owner's items, newest first.
func (db *DB) ListByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Item, error) {
	limit, offset := opts.Normalize()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE owner_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	var (
		item      model.Item
		createdAt int64
		url       sql.NullString
		fileKey   sql.NullString
		fileName  string
		fileSize  int64
	)

	err := s.Scan(
		&item.ID,
		&item.UUID,
		&item.OwnerID,
		&createdAt,
		&item.PasswordHash,
		&url,
		&fileKey,
		&fileName,
		&fileSize,
		&item.VisitCount,
	)
	if err != nil {
		return nil, err
	}

	item.CreatedAt = time.Unix(0, createdAt).UTC()
	item.Payload, err = model.DecodePayload(nullString(url), nullString(fileKey), fileName, fileSize)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}

	return &item, nil
}

func collectItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}
	return items, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
