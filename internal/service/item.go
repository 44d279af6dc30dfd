// Package service contains the business logic of the secret-share server.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services accept interfaces (repository.ItemRepository, blob.Store, ...) so
// tests can pass in-memory fakes and main.go can choose SQLite or Postgres,
// local disk or S3, without this package knowing.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/secret-share/internal/apperror"
	"github.com/sakif/secret-share/internal/auth"
	"github.com/sakif/secret-share/internal/blob"
	"github.com/sakif/secret-share/internal/model"
	"github.com/sakif/secret-share/internal/repository"
)

const (
	MaxURLLength      = 2048
	MaxFileNameLength = 255
)

// PasswordGenerator produces item passwords.
type PasswordGenerator interface {
	Generate() string
}

// PasswordHasher hashes and verifies item passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	// VerifyDecoy spends the same work as Verify and always fails.
	VerifyDecoy(plaintext string) bool
}

// FileUpload is an uploaded file on its way to the blob store.
type FileUpload struct {
	Name    string
	Content io.Reader
}

// PayloadChoice is what the creator submitted. Exactly one of URL and File
// must be set; Create turns it into a model.Payload.
type PayloadChoice struct {
	URL  string
	File *FileUpload
}

// Retrieval is the result of a successful Retrieve. For links only URL is
// set; for files Content streams the bytes and must be closed by the caller.
type Retrieval struct {
	Kind     model.PayloadKind
	URL      string
	Content  io.ReadCloser
	FileName string
	Size     int64
}

// ItemInfo is the owner's view of an item. It never includes the password
// or its hash.
type ItemInfo struct {
	UUID       string            `json:"uuid"`
	Kind       model.PayloadKind `json:"kind"`
	URL        string            `json:"url,omitempty"`
	FileName   string            `json:"fileName,omitempty"`
	FileSize   int64             `json:"fileSize,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	ExpiresAt  time.Time         `json:"expiresAt"`
	Active     bool              `json:"active"`
	VisitCount int64             `json:"visitCount"`
}

// ItemService orchestrates item creation and password-gated retrieval.
type ItemService struct {
	items     repository.ItemRepository
	blobs     blob.Store
	generator PasswordGenerator
	hasher    PasswordHasher
	lifetime  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewItemService wires an ItemService. lifetime is only used to report
// expiry to owners; the store enforces the active window itself.
func NewItemService(
	items repository.ItemRepository,
	blobs blob.Store,
	generator PasswordGenerator,
	hasher PasswordHasher,
	lifetime time.Duration,
	logger *slog.Logger,
) *ItemService {
	if lifetime <= 0 {
		lifetime = repository.DefaultItemLifetime
	}
	return &ItemService{
		items:     items,
		blobs:     blobs,
		generator: generator,
		hasher:    hasher,
		lifetime:  lifetime,
		now:       time.Now,
		logger:    logger,
	}
}

// Create stores a new item for ownerID and returns it together with the
// plaintext password. This is the only time the plaintext is available.
//
// An empty requestedPassword means "generate one".
//
// Order matters: the payload choice is validated before any password is
// generated or hashed, and nothing is persisted unless every step succeeds.
func (s *ItemService) Create(ctx context.Context, ownerID string, choice PayloadChoice, requestedPassword string) (*model.Item, string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, "", apperror.Unauthorized("an owner is required to create items")
	}

	kind, err := validateChoice(choice)
	if err != nil {
		return nil, "", err
	}

	password := requestedPassword
	if password == "" {
		password = s.generator.Generate()
	} else if len(password) > auth.MaxPasswordBytes {
		return nil, "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("service/item: hashing password: %w", err)
	}

	item := &model.Item{
		OwnerID:      ownerID,
		PasswordHash: hash,
	}

	switch kind {
	case model.PayloadURL:
		item.Payload = model.URLPayload{URL: strings.TrimSpace(choice.URL)}
	case model.PayloadFile:
		payload, err := s.storeFile(ctx, choice.File)
		if err != nil {
			return nil, "", err
		}
		item.Payload = payload
	}

	if err := s.items.Insert(ctx, item); err != nil {
		if fp, ok := item.Payload.(model.FilePayload); ok {
			s.discardBlob(fp.Key)
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, "", err
		}
		return nil, "", apperror.Storage("creating item", err)
	}

	s.logger.Info("item created",
		slog.String("uuid", item.UUID),
		slog.String("owner", ownerID),
		slog.String("kind", string(kind)),
	)

	return item, password, nil
}

// validateChoice enforces "exactly one of url or file" and checks the chosen
// half. It does no I/O.
func validateChoice(choice PayloadChoice) (model.PayloadKind, error) {
	hasURL := strings.TrimSpace(choice.URL) != ""
	hasFile := choice.File != nil

	switch {
	case hasURL && hasFile:
		return "", apperror.ValidationFailed("payload", "exactly one of url or file required: both provided")
	case !hasURL && !hasFile:
		return "", apperror.ValidationFailed("payload", "exactly one of url or file required: neither provided")
	case hasURL:
		if err := validateURL(strings.TrimSpace(choice.URL)); err != nil {
			return "", err
		}
		return model.PayloadURL, nil
	default:
		if choice.File.Content == nil {
			return "", apperror.ValidationFailed("file", "file content is missing")
		}
		return model.PayloadFile, nil
	}
}

func validateURL(raw string) error {
	if len(raw) > MaxURLLength {
		return apperror.ValidationFailed("url",
			fmt.Sprintf("url must be at most %d characters", MaxURLLength))
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.ValidationFailed("url", "url must be an absolute http or https URL")
	}
	return nil
}

// storeFile writes the upload to the blob store. Empty files are rejected
// after the fact because the size is only known once the stream is drained.
func (s *ItemService) storeFile(ctx context.Context, f *FileUpload) (model.FilePayload, error) {
	name := cleanFileName(f.Name)

	key, size, err := s.blobs.Put(ctx, name, f.Content)
	if err != nil {
		return model.FilePayload{}, apperror.Storage("storing file", err)
	}
	if size == 0 {
		s.discardBlob(key)
		return model.FilePayload{}, apperror.ValidationFailed("file", "the submitted file is empty")
	}

	return model.FilePayload{Key: key, Name: name, Size: size}, nil
}

// cleanFileName keeps only the last path element of a client-supplied name.
func cleanFileName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	if name == "." || name == ".." || name == "/" || name == "" {
		name = "file"
	}
	if len(name) > MaxFileNameLength {
		name = name[len(name)-MaxFileNameLength:]
	}
	return name
}

// discardBlob removes an orphaned blob. It runs detached from the request
// context so a cancelled request still cleans up.
func (s *ItemService) discardBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete orphaned blob",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

// Retrieve grants access to an active item when password matches.
//
// Missing, expired and wrong-password all return the same
// apperror.ItemNotFound, and each of them spends one bcrypt comparison, so
// neither the response nor its timing tells a caller whether the UUID exists.
//
// The visit is recorded before the payload is handed out. If recording fails
// the whole call fails: access is never granted uncounted.
func (s *ItemService) Retrieve(ctx context.Context, itemUUID, password string) (*Retrieval, error) {
	// Postgres rejects invalid UTF-8 in a text parameter, so malformed
	// identifiers never reach the store.
	if _, err := uuid.Parse(itemUUID); err != nil {
		s.hasher.VerifyDecoy(password)
		return nil, apperror.ItemNotFound()
	}

	item, err := s.items.FindActiveByUUID(ctx, itemUUID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.hasher.VerifyDecoy(password)
			return nil, apperror.ItemNotFound()
		}
		return nil, apperror.Storage("looking up item", err)
	}

	if !s.hasher.Verify(password, item.PasswordHash) {
		s.logger.Debug("item password mismatch", slog.String("uuid", itemUUID))
		return nil, apperror.ItemNotFound()
	}

	if err := s.items.RecordVisit(ctx, item.ID); err != nil {
		return nil, apperror.Storage("recording visit", err)
	}

	s.logger.Info("item retrieved",
		slog.String("uuid", item.UUID),
		slog.String("kind", string(item.Payload.Kind())),
	)

	switch p := item.Payload.(type) {
	case model.URLPayload:
		return &Retrieval{Kind: model.PayloadURL, URL: p.URL}, nil
	case model.FilePayload:
		rc, err := s.blobs.Open(ctx, p.Key)
		if err != nil {
			return nil, apperror.Storage("opening file", err)
		}
		return &Retrieval{Kind: model.PayloadFile, Content: rc, FileName: p.Name, Size: p.Size}, nil
	default:
		return nil, apperror.Storage("reading item", model.ErrPayloadMissing)
	}
}

// Describe returns the owner's view of one item, expired or not. Items of
// other owners are reported as not found.
func (s *ItemService) Describe(ctx context.Context, ownerID, itemUUID string) (*ItemInfo, error) {
	if _, err := uuid.Parse(itemUUID); err != nil {
		return nil, apperror.ItemNotFound()
	}
	item, err := s.items.FindAnyByUUID(ctx, itemUUID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ItemNotFound()
		}
		return nil, apperror.Storage("looking up item", err)
	}
	if item.OwnerID != ownerID {
		return nil, apperror.ItemNotFound()
	}

	info := s.info(item, s.now())
	return &info, nil
}

// ListOwned returns one page of the owner's items, newest first.
func (s *ItemService) ListOwned(ctx context.Context, ownerID string, opts repository.ListOptions) ([]ItemInfo, error) {
	items, err := s.items.ListByOwner(ctx, ownerID, opts)
	if err != nil {
		return nil, apperror.Storage("listing items", err)
	}

	now := s.now()
	infos := make([]ItemInfo, 0, len(items))
	for i := range items {
		infos = append(infos, s.info(&items[i], now))
	}
	return infos, nil
}

func (s *ItemService) info(item *model.Item, now time.Time) ItemInfo {
	info := ItemInfo{
		UUID:       item.UUID,
		CreatedAt:  item.CreatedAt,
		ExpiresAt:  item.ExpiresAt(s.lifetime),
		Active:     item.ActiveAt(now, s.lifetime),
		VisitCount: item.VisitCount,
	}
	switch p := item.Payload.(type) {
	case model.URLPayload:
		info.Kind = model.PayloadURL
		info.URL = p.URL
	case model.FilePayload:
		info.Kind = model.PayloadFile
		info.FileName = p.Name
		info.FileSize = p.Size
	}
	return info
}
