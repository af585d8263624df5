package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := NotFound("course", "c-1")
	assert.Contains(t, e.Error(), "NOT_FOUND")
	assert.Contains(t, e.Error(), "c-1")

	wrapped := &AppError{Code: "X", Message: "y", Err: errors.New("boom")}
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestAppError_Unwrap(t *testing.T) {
	assert.ErrorIs(t, NotFound("course", "c-1"), ErrNotFound)
	assert.ErrorIs(t, InvalidInput("bad rating"), ErrInvalidInput)
	assert.ErrorIs(t, Conflict("course", "c-1"), ErrConflict)
	assert.ErrorIs(t, InsufficientBalance(500, 10), ErrInsufficientBalance)
	assert.ErrorIs(t, InvalidTransition("redemption request", "approved", "rejected"), ErrInvalidTransition)
}

func TestInsufficientBalance_Message(t *testing.T) {
	e := InsufficientBalance(500, 490)
	assert.Equal(t, http.StatusUnprocessableEntity, e.Status)
	assert.Contains(t, e.Message, "500")
	assert.Contains(t, e.Message, "490")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidTransition, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{errors.New("anything else"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{InvalidTransition("redemption request", "approved", "rejected"), http.StatusConflict},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), "error: %v", tt.err)
	}
}
