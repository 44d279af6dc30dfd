// Package repository declares the storage contracts the services depend on.
// Concrete implementations live in the sqlite and postgres subpackages.
package repository

import (
	"context"
	"time"

	"github.com/sakif/secret-share/internal/model"
)

// DefaultItemLifetime is how long an item stays retrievable after creation.
const DefaultItemLifetime = 24 * time.Hour

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize clamps Limit to [1, 100] (default 20) and Offset to >= 0.
func (o ListOptions) Normalize() (limit, offset int) {
	limit = o.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset = o.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ItemRepository persists items.
//
// Two read paths exist on purpose and are named apart: FindActiveByUUID
// applies the active-window filter and is the only lookup anonymous retrieval
// may use; FindAnyByUUID ignores it and serves owner-facing paths.
type ItemRepository interface {
	// Insert assigns ID, UUID and CreatedAt, forces VisitCount to 0, and
	// persists the item. The caller's struct is updated in place.
	Insert(ctx context.Context, item *model.Item) error

	// FindActiveByUUID returns the item only while it is inside the active
	// window. Expired and absent rows both yield apperror.ItemNotFound.
	FindActiveByUUID(ctx context.Context, uuid string) (*model.Item, error)

	// FindAnyByUUID returns the item whether or not it has expired.
	FindAnyByUUID(ctx context.Context, uuid string) (*model.Item, error)

	// RecordVisit increments visit_count by exactly one inside a single
	// transaction. Concurrent calls for the same id never lose an update.
	RecordVisit(ctx context.Context, id string) error

	// ListVisited returns every item with visit_count > 0, expired or not.
	ListVisited(ctx context.Context) ([]model.Item, error)

	// ListByOwner returns one page of the owner's items, newest first,
	// expired ones included.
	ListByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]model.Item, error)
}

// UserRepository persists item owners.
type UserRepository interface {
	// Upsert inserts a user by GitHub ID, or refreshes the profile of the
	// existing row. ID and timestamps are written back into user.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserAgent(ctx context.Context, id, userAgent string) error

	// DeleteUser removes a user. It fails with apperror.ErrConflict while
	// the user still owns items.
	DeleteUser(ctx context.Context, id string) error
}

// StoreOptions is the resolved configuration shared by item stores.
type StoreOptions struct {
	Lifetime time.Duration
	Now      func() time.Time
}

// Option configures an item store.
type Option func(*StoreOptions)

// WithItemLifetime sets the active window. Non-positive values are ignored.
func WithItemLifetime(d time.Duration) Option {
	return func(o *StoreOptions) {
		if d > 0 {
			o.Lifetime = d
		}
	}
}

// WithClock replaces time.Now. Tests use it to step across the lifetime
// boundary.
func WithClock(now func() time.Time) Option {
	return func(o *StoreOptions) {
		if now != nil {
			o.Now = now
		}
	}
}

// ApplyOptions resolves opts over the defaults.
func ApplyOptions(opts ...Option) StoreOptions {
	o := StoreOptions{Lifetime: DefaultItemLifetime, Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Cutoff is the oldest created_at still inside the active window at now.
func (o StoreOptions) Cutoff() time.Time {
	return o.Now().Add(-o.Lifetime)
}
