package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	statuses := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeIdempotency:   http.StatusConflict,
		CodeRateLimit:     http.StatusTooManyRequests,
		CodeInternal:      http.StatusInternalServerError,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range statuses {
		meta := MetadataFor(code)
		assert.Equal(t, status, meta.HTTPStatus, code)
		assert.NotEmpty(t, meta.PublicMessage, code)
		assert.Equal(t, status >= http.StatusInternalServerError, meta.Retryable, code)
	}

	assert.True(t, MetadataFor(CodeValidation).DetailsAllowed)
	assert.False(t, MetadataFor(CodeForbidden).DetailsAllowed)
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestWithDetailsCopies(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	detailed := base.WithDetails(map[string]any{"field": "foo"})

	assert.Nil(t, base.Details(), "receiver untouched")
	assert.NotNil(t, detailed.Details())
	assert.Equal(t, "missing foo", detailed.Message())
	assert.Equal(t, "VALIDATION_ERROR: missing foo", detailed.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "save cart")

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "CONFLICT: save cart: boom", wrapped.Error())
	assert.Nil(t, Wrap(CodeConflict, nil, "x").Unwrap())
}

func TestIsMatchesSentinelsByReason(t *testing.T) {
	notShipped := Define(CodeStateConflict, "INVALID_STATE", "order is not shipped")
	cartEmpty := Define(CodeStateConflict, "CART_EMPTY", "cart is empty")
	derived := notShipped.WithDetails(map[string]any{"status": "PROCESSING"}).WithCause(stdErrors.New("x"))

	assert.ErrorIs(t, derived, notShipped)
	assert.ErrorIs(t, fmt.Errorf("cancel: %w", derived), notShipped)
	assert.NotErrorIs(t, derived, cartEmpty)
	assert.NotErrorIs(t, New(CodeNotFound, "order is not shipped"), notShipped)
	assert.Equal(t, "INVALID_STATE", derived.Reason())
}

func TestAsAndIsCode(t *testing.T) {
	err := fmt.Errorf("gateway: %w", Wrap(CodeDependency, stdErrors.New("timeout"), "refund failed"))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, CodeDependency, typed.Code())
	assert.True(t, IsCode(err, CodeDependency))
	assert.False(t, IsCode(stdErrors.New("plain"), CodeDependency))
	assert.Nil(t, As(nil))
}

func TestNilErrorAccessors(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Reason())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.Details())
	assert.Nil(t, e.WithDetails("x"))
}
