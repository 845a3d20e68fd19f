package model

import "time"

// Reservation outcomes stored in reservation_records.outcome.  A key maps to
// at most one terminal outcome; ACCEPTED is the only outcome that can still
// transition, and only to RELEASED.
const (
    OutcomeAccepted = "ACCEPTED" // seats deducted from the inventory
    OutcomeRejected = "REJECTED" // insufficient seats at decision time; nothing deducted
    OutcomeReleased = "RELEASED" // a previously accepted reservation was reversed
)

// EventInventory tracks the seat counter for one event.  There is exactly one
// row per event, created together with the event and removed with it.
//
// Fields:
//  EventID        – the event this counter belongs to.
//  Capacity       – total seats; immutable after creation.
//  AvailableSeats – seats still open; always within [0, Capacity].
//  Version        – bumped on every committed adjustment, used to detect
//                   concurrent writers.
type EventInventory struct {
    EventID        uint64 // event_inventory.event_id
    Capacity       uint32 // event_inventory.capacity
    AvailableSeats uint32 // event_inventory.available_seats
    Version        uint64 // event_inventory.version
}

// ReservationRecord is the durable trace of one logical booking attempt,
// keyed by the caller-supplied idempotency key.  Replays of the same key
// return the stored record instead of re-running the mutation.
//
// Fields:
//  IdempotencyKey – caller-supplied token identifying the attempt.
//  EventID        – event the attempt targets.
//  SeatsRequested – seats asked for; authoritative for the release path.
//  Outcome        – one of the Outcome* constants above.
//  CreatedAt      – when the record was first written.
type ReservationRecord struct {
    IdempotencyKey string    // reservation_records.idempotency_key
    EventID        uint64    // reservation_records.event_id
    SeatsRequested uint32    // reservation_records.seats_requested
    Outcome        string    // reservation_records.outcome
    CreatedAt      time.Time // reservation_records.created_at
}
