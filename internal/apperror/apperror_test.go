package apperror

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ItemNotFound wraps ErrNotFound",
			err:       ItemNotFound(),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("url", "exactly one of url or file required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Storage wraps ErrStorage",
			err:       Storage("recording visit", sql.ErrConnDone),
			target:    ErrStorage,
			wantMatch: true,
		},
		{
			name:      "Storage keeps the driver cause",
			err:       Storage("recording visit", sql.ErrConnDone),
			target:    sql.ErrConnDone,
			wantMatch: true,
		},
		{
			name:      "Storage survives fmt wrapping",
			err:       fmt.Errorf("creating item: %w", Storage("inserting item", errors.New("disk full"))),
			target:    ErrStorage,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("user", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "ValidationFailed does NOT match ErrNotFound",
			err:       ValidationFailed("url", "bad url"),
			target:    ErrNotFound,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("user", "abc123"),
			wantMessage: "user not found with id abc123",
		},
		{
			name:        "ItemNotFound names nothing",
			err:         ItemNotFound(),
			wantMessage: "item not found",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("url", "url is invalid"),
			wantMessage: "url is invalid",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "abc123"),
			wantMessage: "user conflict with id abc123",
		},
		{
			name:        "Storage message carries the cause",
			err:         Storage("inserting item", errors.New("disk full")),
			wantMessage: "inserting item failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestItemNotFound_Uniform(t *testing.T) {
	// Every retrieval miss must look the same to a caller.
	a, b := ItemNotFound(), ItemNotFound()
	if a.Error() != b.Error() || a.Field != b.Field {
		t.Errorf("ItemNotFound() values differ: %q vs %q", a.Error(), b.Error())
	}
}

func TestStorage_MessageHidesCause(t *testing.T) {
	err := Storage("recording visit", errors.New("pq: deadlock detected"))
	if err.Message != "recording visit failed" {
		t.Errorf("Message = %q, want %q", err.Message, "recording visit failed")
	}
	if err.Cause() == nil {
		t.Error("Cause() = nil, want underlying error")
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("password", "password must be 72 bytes or fewer")

	if err.Field != "password" {
		t.Errorf("Field = %q, want %q", err.Field, "password")
	}
}
