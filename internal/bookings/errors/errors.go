package errors

import (
	"errors"

	"seatbook/pkg/model"
)

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrInvalidInterval = model.ErrInvalidInterval

	ErrUnknownCaller = errors.New("caller could not be resolved to a user")

	ErrSeatAlreadyBooked = errors.New("seat is already booked for an overlapping interval")

	// ErrConflict is raised by storage when a uniqueness constraint rejects an insert.
	ErrConflict = errors.New("booking conflicts with a stored booking")

	// ErrSerializationFailure marks a seat unit that lost a write race and may be retried as a whole.
	ErrSerializationFailure = errors.New("concurrent admission on the same seat")

	ErrStorageUnavailable = errors.New("booking storage unavailable")
)
