// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the reservation coordinator to distinguish between
// different failure scenarios with errors.Is instead of string
// matching. For example, ErrVersionConflict tells the coordinator
// that another writer got to the inventory row first and the
// operation should be retried from a fresh read.
package repository

import "errors"

// ErrEventNotFound is returned when no event row matches the requested id.
var ErrEventNotFound = errors.New("event not found")

// ErrInventoryNotFound is returned when an event has no inventory row,
// either because the event was deleted or the row was never created.
var ErrInventoryNotFound = errors.New("inventory not found")

// ErrRecordNotFound is returned when no reservation record exists for the
// given idempotency key.
var ErrRecordNotFound = errors.New("reservation record not found")

// ErrVersionConflict is returned by CompareAndAdjust when the stored
// version no longer matches the expected one. The caller should re-read
// the inventory and retry.
var ErrVersionConflict = errors.New("version conflict")

// ErrWouldViolateBounds is returned by CompareAndAdjust when applying the
// delta would push available_seats below zero or above capacity. No
// change is made.
var ErrWouldViolateBounds = errors.New("adjustment out of bounds")

// ErrDuplicateKey is returned when a reservation record with the same
// idempotency key was committed concurrently. Callers should look the
// record up and treat the call as a replay.
var ErrDuplicateKey = errors.New("duplicate idempotency key")

// ErrAlreadyReleased is returned when a release finds the record no longer
// in the ACCEPTED state. The release is a no-op in that case.
var ErrAlreadyReleased = errors.New("reservation already released")

// ErrNoChange indicates an UPDATE attempted to set fields equal to their
// current values.
var ErrNoChange = errors.New("no change")
