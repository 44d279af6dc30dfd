// Package model defines the data structures used throughout the application.
package model

import (
	"errors"
	"time"
)

// PayloadKind names the variant carried by a Payload.
type PayloadKind string

const (
	PayloadURL  PayloadKind = "url"
	PayloadFile PayloadKind = "file"
)

// Payload is what an Item grants access to: a URL or a stored file, never both.
//
// SEALED INTERFACE:
// isPayload is unexported, so only URLPayload and FilePayload (declared in this
// package) can satisfy Payload. Code elsewhere cannot construct a third variant,
// and an Item cannot hold "both" or "neither" once it has been built.
type Payload interface {
	Kind() PayloadKind
	isPayload()
}

// URLPayload redirects the visitor to URL.
type URLPayload struct {
	URL string
}

func (URLPayload) Kind() PayloadKind { return PayloadURL }
func (URLPayload) isPayload()        {}

// FilePayload points at bytes held by a blob.Store.
type FilePayload struct {
	Key  string // blob storage key, opaque to everything but the blob store
	Name string // original file name, used for Content-Disposition
	Size int64
}

func (FilePayload) Kind() PayloadKind { return PayloadFile }
func (FilePayload) isPayload()        {}

var (
	ErrPayloadMissing = errors.New("model: item has neither url nor file")
	ErrPayloadBoth    = errors.New("model: item has both url and file")
)

// DecodePayload rebuilds a Payload from the two nullable storage columns.
// Rows that violate the exclusivity invariant are reported, not repaired.
func DecodePayload(url, fileKey *string, fileName string, fileSize int64) (Payload, error) {
	hasURL := url != nil && *url != ""
	hasFile := fileKey != nil && *fileKey != ""

	switch {
	case hasURL && hasFile:
		return nil, ErrPayloadBoth
	case hasURL:
		return URLPayload{URL: *url}, nil
	case hasFile:
		return FilePayload{Key: *fileKey, Name: fileName, Size: fileSize}, nil
	default:
		return nil, ErrPayloadMissing
	}
}

// EncodePayload is the inverse of DecodePayload: it splits a Payload into
// the url and file columns. Exactly one of the returned pointers is non-nil.
func EncodePayload(p Payload) (url, fileKey *string, fileName string, fileSize int64) {
	switch v := p.(type) {
	case URLPayload:
		return &v.URL, nil, "", 0
	case FilePayload:
		return nil, &v.Key, v.Name, v.Size
	}
	return nil, nil, "", 0
}

// Item is a stored secret: a password-gated URL or file.
//
// ID is the storage primary key and never leaves the service; UUID is the
// only identifier an anonymous visitor can use.
type Item struct {
	ID           string
	UUID         string
	OwnerID      string
	CreatedAt    time.Time
	PasswordHash string
	Payload      Payload
	VisitCount   int64
}

// IsLink reports whether the item carries a URL payload.
func (i *Item) IsLink() bool {
	return i.Payload != nil && i.Payload.Kind() == PayloadURL
}

// ExpiresAt is the last instant at which the item is still retrievable.
func (i *Item) ExpiresAt(lifetime time.Duration) time.Time {
	return i.CreatedAt.Add(lifetime)
}

// ActiveAt reports whether the item is inside its active window at now.
// The boundary itself (now - created_at == lifetime) is still active.
func (i *Item) ActiveAt(now time.Time, lifetime time.Duration) bool {
	return !now.After(i.ExpiresAt(lifetime))
}

// String mirrors what the admin listing shows: the URL or the file name.
func (i *Item) String() string {
	switch p := i.Payload.(type) {
	case URLPayload:
		return p.URL
	case FilePayload:
		return p.Name
	}
	return i.UUID
}
