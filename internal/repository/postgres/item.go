package postgres

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

// Insert stores a new item with a fresh xid and UUID.
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0)`,
		item.ID,
		item.UUID,
		item.OwnerID,
		item.CreatedAt,
		item.PasswordHash,
		url,
		fileKey,
		fileName,
		fileSize,
	)
	if err != nil {
		return fmt.Errorf("postgres: inserting item: %w", err)
	}

	return nil
}

// FindActiveByUUID returns the item only inside its active window.
func (db *DB) FindActiveByUUID(ctx context.Context, itemUUID string) (*model.Item, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE uuid = $1 AND created_at >= $2`,
		itemUUID,
		db.opts.Cutoff().UTC(),
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ItemNotFound()
		}
		return nil, fmt.Errorf("postgres: finding active item: %w", err)
	}
	return item, nil
}

// FindAnyByUUID returns the item regardless of age.
func (db *DB) FindAnyByUUID(ctx context.Context, itemUUID string) (*model.Item, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE uuid = $1`,
		itemUUID,
	)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ItemNotFound()
		}
		return nil, fmt.Errorf("postgres: finding item: %w", err)
	}
	return item, nil
}

// RecordVisit reads the counter under a row lock and writes back count+1.
//
// SELECT ... FOR UPDATE blocks every other RecordVisit on the same row until
// this transaction commits, so concurrent visits serialize instead of both
// reading the same value.
func (db *DB) RecordVisit(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var count int64
		err := tx.QueryRowContext(ctx,
			`SELECT visit_count FROM items WHERE id = $1 FOR UPDATE`, id,
		).Scan(&count)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("item", id)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE items SET visit_count = $1 WHERE id = $2`, count+1, id)
		return err
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("postgres: recording visit for item %s: %w", id, err)
	}
	return nil
}

// ListVisited returns every visited item, expired or not.
func (db *DB) ListVisited(ctx context.Context) ([]model.Item, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE visit_count > 0
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing visited items: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListByOwner pages through the owner's items, newest first.
func (db *DB) ListByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Item, error) {
	limit, offset := opts.Normalize()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE owner_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing items for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	return collectItems(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*model.Item, error) {
	var (
		item      model.Item
		createdAt time.Time
		url       sql.NullString
		fileKey   sql.NullString
		fileName  string
		fileSize  int64
	)

	if err := s.Scan(
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
	); err != nil {
		return nil, err
	}

	item.CreatedAt = createdAt.UTC()

	var urlPtr, keyPtr *string
	if url.Valid {
		urlPtr = &url.String
	}
	if fileKey.Valid {
		keyPtr = &fileKey.String
	}

	payload, err := model.DecodePayload(urlPtr, keyPtr, fileName, fileSize)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", item.ID, err)
	}
	item.Payload = payload

	return &item, nil
}

func collectItems(rows *sql.Rows) ([]model.Item, error) {
	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating items: %w", err)
	}
	return items, nil
}
