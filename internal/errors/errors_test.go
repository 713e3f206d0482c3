package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "invalid credentials",
			err:        ErrInvalidCredentials,
			wantStatus: http.StatusOK,
			wantCode:   "INVALID_CREDENTIALS",
			wantMsg:    ErrInvalidCredentials.Error(),
		},
		{
			name:       "wrapped duplicate email",
			err:        fmt.Errorf("create user: %w", ErrDuplicateEmail),
			wantStatus: http.StatusOK,
			wantCode:   "DUPLICATE_EMAIL",
			wantMsg:    ErrDuplicateEmail.Error(),
		},
		{
			name:       "storage error is hidden",
			err:        NewStorageError("find user", errors.New("dial tcp 10.0.0.3:3306: connection refused")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    UnknownErrorMessage,
		},
		{
			name:       "no user is a programmer error",
			err:        ErrNoUser,
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
			wantMsg:    UnknownErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
			assert.Equal(t, tt.wantMsg, httpErr.Message)
		})
	}
}

func TestMapErrorToHTTP_ValidationFields(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"password": "Password must contain at least 8 characters"}}

	httpErr := MapErrorToHTTP(err)
	resp := httpErr.ToErrorResponse()

	assert.Equal(t, http.StatusOK, httpErr.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
	assert.Equal(t, "Password must contain at least 8 characters", resp.FieldErrors["password"])
	assert.True(t, IsExpected(err))
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewStorageError("insert session", cause)

	var serr *StorageError
	assert.True(t, errors.As(err, &serr))
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, NewStorageError("noop", nil))
	assert.False(t, IsExpected(err))
}
