package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnavailableWrapsTransportErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := Unavailable("bookings.create", cause)

	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bookings.create")
}

func TestUnavailableKeepsDomainErrors(t *testing.T) {
	err := Unavailable("users.promote", NotFound("user", "u1"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrStoreUnavailable)

	assert.Nil(t, Unavailable("noop", nil))
}

func TestInvalid(t *testing.T) {
	err := Invalid("patient name is required")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "patient name is required")
}
