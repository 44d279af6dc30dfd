package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/secret-share/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{name: "validation", err: apperror.ValidationFailed("url", "bad url"), wantStatus: http.StatusBadRequest, wantType: "validation_error", wantMsg: "bad url"},
		{name: "unauthorized", err: apperror.Unauthorized("not authenticated"), wantStatus: http.StatusUnauthorized, wantType: "unauthorized"},
		{name: "forbidden", err: apperror.Forbidden("nope"), wantStatus: http.StatusForbidden, wantType: "forbidden"},
		{name: "item not found", err: apperror.ItemNotFound(), wantStatus: http.StatusNotFound, wantType: "not_found", wantMsg: "item not found"},
		{name: "conflict", err: apperror.Conflict("user", "u1"), wantStatus: http.StatusConflict, wantType: "conflict"},
		{name: "wrapped storage", err: fmt.Errorf("ctx: %w", apperror.Storage("recording visit", errors.New("database is locked"))), wantStatus: http.StatusInternalServerError, wantType: "storage_error", wantMsg: "recording visit failed"},
		{name: "plain error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantType: "internal_error", wantMsg: "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var res ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
			assert.Equal(t, tt.wantType, res.Error)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, res.Message)
			}
			assert.NotContains(t, res.Message, "database is locked", "causes must not leak")
		})
	}
}
