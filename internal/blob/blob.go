// Package blob stores the bytes behind file items. The item row only keeps
// the opaque key returned by Put.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Open when no object exists under the key.
var ErrNotFound = errors.New("blob: not found")

// ErrInvalidKey is returned for keys that were not produced by NewKey.
var ErrInvalidKey = errors.New("blob: invalid key")

// Store is a flat key/value store for uploaded files.
type Store interface {
	// Put stores the contents of r and returns the new key and the number
	// of bytes written. name is the client-side file name; backends may
	// record it but never use it to build the key.
	Put(ctx context.Context, name string, r io.Reader) (key string, size int64, err error)

	// Open returns a reader for the object. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NewKey builds a key of the form "yyyy/mm/dd/<uuid>" so a directory never
// collects more than a day of uploads.
func NewKey(now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("%04d/%02d/%02d/%s", now.Year(), int(now.Month()), now.Day(), uuid.NewString())
}

// ValidateKey rejects anything that could escape the store root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return ErrInvalidKey
		}
	}
	return nil
}
