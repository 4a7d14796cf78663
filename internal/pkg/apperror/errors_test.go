package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("usecase: %w", ErrListingLocked)
	assert.Equal(t, ErrCodeConflict, CodeOf(wrapped))
	assert.True(t, IsConflict(wrapped))
	assert.ErrorIs(t, wrapped, ErrListingLocked)

	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ErrBookingNotFound, http.StatusNotFound},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrNotAccepting, http.StatusBadRequest},
		{ErrVersionConflict, http.StatusConflict},
		{New(ErrCodeIllegalTransition, "x"), http.StatusConflict},
		{Wrap(errors.New("pq"), ErrCodeDatabaseError, "x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus, string(tt.err.Code))
	}
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeDatabaseError, "не удалось получить заявку")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")

	v := Validation("оценка должна быть от %d до %d", 1, 5)
	assert.Equal(t, "оценка должна быть от 1 до 5", v.Message)
	assert.True(t, IsValidation(v))
}
