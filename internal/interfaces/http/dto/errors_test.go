package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"INVALID_CONSUMPTION", http.StatusBadRequest},
		{"INVALID_DATE_RANGE", http.StatusBadRequest},
		{"INVALID_TARIFF", http.StatusBadRequest},
		{"MISSING_JUSTIFICATION", http.StatusBadRequest},
		{"IMMUTABLE_INVOICE_STATE", http.StatusUnprocessableEntity},
		{"INVALID_STATE", http.StatusUnprocessableEntity},
		{"NOT_FOUND", http.StatusNotFound},
		{"CLIENT_NOT_FOUND", http.StatusNotFound},
		{"ALREADY_EXISTS", http.StatusConflict},
		{"CONCURRENCY_CONFLICT", http.StatusConflict},
		{"DUPLICATE_REQUEST", http.StatusConflict},
		{"INVALID_CREDENTIALS", http.StatusUnauthorized},
		{"FORBIDDEN", http.StatusForbidden},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		pages    int
	}{
		{0, 20, 0},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
		assert.True(t, resp.Success)
		assert.Equal(t, tt.pages, resp.Meta.TotalPages)
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	single := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "due_date", Message: "Must be a date in YYYY-MM-DD format"},
	})
	assert.False(t, single.Success)
	assert.Equal(t, ErrCodeValidation, single.Error.Code)
	assert.Equal(t, "due_date", single.Error.Field)
	assert.Equal(t, "req-1", single.Error.RequestID)

	multi := NewValidationErrorResponse("Request validation failed", "", []ValidationDetail{
		{Field: "a"}, {Field: "b"},
	})
	assert.Empty(t, multi.Error.Field)
	assert.Len(t, multi.Error.Details, 2)
}

func TestNormalizePage(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, PageSize: 20}, NormalizePage(0, 0))
	assert.Equal(t, Pagination{Page: 3, PageSize: 50}, NormalizePage(3, 50))
}
