package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidLat, http.StatusBadRequest},
		{ErrCodeValidationDateRangeTooLong, http.StatusBadRequest},
		{ErrCodeValidationBatchSize, http.StatusBadRequest},
		{ErrCodeRateLimit, http.StatusTooManyRequests},
		{ErrCodeUpstreamGeocoding, http.StatusBadGateway},
		{ErrCodeInternalInferenceFailed, http.StatusInternalServerError},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrorCode("something_unrecognized"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestAppErrorError(t *testing.T) {
	err := NewAppError(ErrCodeValidationInvalidDate, "start_date must be formatted YYYY-MM-DD", nil)
	assert.Equal(t, "validation_invalid_date: start_date must be formatted YYYY-MM-DD", err.Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewAppError(ErrCodeInternalDB, "failed to query geocode cache", inner)

	assert.ErrorIs(t, err, inner)

	var appErr *AppError
	require.True(t, errors.As(error(err), &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus())
}

func TestNewAppErrorWithDetails(t *testing.T) {
	err := NewAppErrorWithDetails(ErrCodeValidationBatchSize, "too many locations", nil,
		map[string]any{"max": 25, "got": 26})

	assert.Equal(t, 25, err.Details["max"])
	assert.Equal(t, 26, err.Details["got"])
}
