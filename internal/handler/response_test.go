package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/sakif/sneaker-rotation/internal/apperror"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{"validation", apperror.ValidationFailed("tag", "tag is required"), http.StatusBadRequest, "validation_error", "tag is required"},
		{"unauthorized", apperror.Unauthorized("invalid email or password"), http.StatusUnauthorized, "unauthorized", "invalid email or password"},
		{"forbidden", apperror.Forbidden("you can only edit your own sneakers"), http.StatusForbidden, "forbidden", "you can only edit your own sneakers"},
		{"not found", apperror.NotFound("sneaker", "x"), http.StatusNotFound, "not_found", "sneaker not found with id x"},
		{"conflict", apperror.Conflict("user", "a@b.c"), http.StatusConflict, "conflict", "user conflict with id a@b.c"},
		{"upstream", apperror.Upstream("image upload failed", errors.New("s3 down")), http.StatusBadGateway, "upstream_error", "image upload failed"},
		{"wrapped", fmt.Errorf("service: %w", apperror.NotFound("profile", "p")), http.StatusNotFound, "not_found", "profile not found with id p"},
		{"unknown", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "internal_error", internalErrorMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorResponse(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKind, body.Error)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestErrorResponse_Fields(t *testing.T) {
	_, single := errorResponse(apperror.ValidationFailed("rating", "rating must be a number"))
	assert.Equal(t, map[string]string{"rating": "rating must be a number"}, single.Fields)

	_, multi := errorResponse(apperror.ValidationWithFields("validation failed", map[string]string{"brand": "is required"}))
	assert.Equal(t, map[string]string{"brand": "is required"}, multi.Fields)

	_, none := errorResponse(apperror.ValidationFailed("", "nothing to update"))
	assert.Nil(t, none.Fields)
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, zaptest.NewLogger(t), errors.New("open /var/lib/secret.db: permission denied"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "secret.db")
}
