package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/resume-rag/internal/store"
	"github.com/jonathan/resume-rag/internal/types"
)

func TestHTTPStatus(t *testing.T) {
	validationErr := (&types.LoginRequest{}).Validate()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", types.NewInvalidArgument("limit", "must be >= 0"), http.StatusBadRequest},
		{"validator", validationErr, http.StatusBadRequest},
		{"not found wrapped", fmt.Errorf("get: %w", &types.NotFoundError{Kind: "job", ID: "1"}), http.StatusNotFound},
		{"unauthorized", &types.UnauthorizedError{}, http.StatusUnauthorized},
		{"credentials", &ErrInvalidCredentials{}, http.StatusUnauthorized},
		{"forbidden", &types.ForbiddenError{Action: "upload"}, http.StatusForbidden},
		{"conflict", &types.ConflictError{Message: "key reused"}, http.StatusConflict},
		{"email taken", fmt.Errorf("create: %w", &store.ErrEmailTaken{Email: "a@b.c"}), http.StatusConflict},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestValidationMessage(t *testing.T) {
	err := (&types.LoginRequest{Password: "x"}).Validate()
	assert.Equal(t, "validation error: Email - required", validationMessage(err))

	plain := types.NewInvalidArgument("k", "must not be negative, got -1")
	assert.Equal(t, "invalid k: must not be negative, got -1", validationMessage(plain))
}
