package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	netErr := &NetworkError{Op: "GET /properties", BaseURL: "http://localhost:8080/api", Err: context.DeadlineExceeded}
	wrapped := fmt.Errorf("refresh: %w", netErr)

	assert.True(t, IsNetwork(wrapped))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
	assert.False(t, IsAPI(wrapped))
	assert.Contains(t, netErr.Error(), "http://localhost:8080/api")

	nf := &NotFoundError{Path: "/properties/9", Message: "Property not found with id: 9"}
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsNetwork(nf))
	assert.Equal(t, "Property not found with id: 9", Message(nf))

	crit := NewCriteriaError("priceRange", "min exceeds max")
	assert.True(t, IsInvalidCriteria(crit))
	assert.Equal(t, "propview: invalid criteria: priceRange: min exceeds max", crit.Error())

	assert.True(t, IsForbidden(fmt.Errorf("admin: %w", ErrForbidden)))
}

func TestAPIError(t *testing.T) {
	e := NewAPIError(0, "  ")
	assert.Equal(t, DefaultAPIMessage, e.Message)
	assert.True(t, IsAPI(e))
	assert.Equal(t, "propview: api error: "+DefaultAPIMessage, e.Error())

	e = NewAPIError(500, "Database down")
	assert.Equal(t, "propview: api error (status 500): Database down", e.Error())
	assert.Equal(t, "Database down", Message(fmt.Errorf("wrap: %w", e)))

	assert.Equal(t, "", Message(errors.New("plain")))
}

func TestFieldErrors(t *testing.T) {
	fe := FieldErrors{}
	assert.NoError(t, fe.Err())

	fe["title"] = "Title is required"
	fe["price"] = "Price must be positive"
	err := fe.Err()
	assert.True(t, IsValidation(err))
	assert.Equal(t, "propview: validation failed: price: Price must be positive; title: Title is required", err.Error())
	assert.Equal(t, fe, Fields(fmt.Errorf("create: %w", err)))
	assert.Nil(t, Fields(ErrAPI))
}
