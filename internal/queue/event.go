// Package queue defines message payloads exchanged over the message broker.
package queue

// SeatsReservedEvent is published after a reservation commits.  It carries
// enough information for downstream consumers (audit log, notifications,
// analytics) without querying the primary database.
type SeatsReservedEvent struct {
    EventID        uint64 `json:"event_id"`
    Seats          uint32 `json:"seats"`
    IdempotencyKey string `json:"idempotency_key"`
    AvailableSeats uint32 `json:"available_seats"`
}

// SeatsReleasedEvent is published after a compensating release commits.
type SeatsReleasedEvent struct {
    EventID        uint64 `json:"event_id"`
    Seats          uint32 `json:"seats"`
    IdempotencyKey string `json:"idempotency_key"`
    AvailableSeats uint32 `json:"available_seats"`
}
