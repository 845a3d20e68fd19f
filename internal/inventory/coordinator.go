// Package inventory implements the reservation coordinator: the only
// component allowed to change an event's available seat count. Reserve and
// release are idempotent state transitions driven by version-guarded
// conditional writes against the seat ledger, so no lock is held while a
// request is in flight and concurrent writers are detected at commit time.
package inventory

import (
    "context"
    "errors"
    "math/rand"
    "time"

    "github.com/evently/ticketing/internal/model"
    "github.com/evently/ticketing/internal/repository"
)

// ErrTransientConflict is returned when the retry budget is exhausted while
// racing other writers.  The caller may retry the whole call with the same
// idempotency key.
var ErrTransientConflict = errors.New("transient conflict, retry")

// ErrSeatsMismatch is returned when a release names a seat count different
// from the one stored in the accepted record it refers to.
var ErrSeatsMismatch = errors.New("seat count does not match original reservation")

// Ledger is the durable storage the coordinator drives.  Production code
// uses *repository.InventoryRepo; tests substitute an in-memory fake.
type Ledger interface {
    // ReadInventory returns the current counter state for an event.
    ReadInventory(ctx context.Context, eventID uint64) (*model.EventInventory, error)
    // LookupRecord returns the terminal record for an idempotency key, or
    // repository.ErrRecordNotFound.
    LookupRecord(ctx context.Context, key string) (*model.ReservationRecord, error)
    // AppendRecord idempotently inserts a terminal record; on a duplicate
    // key it returns the stored record and repository.ErrDuplicateKey.
    AppendRecord(ctx context.Context, rec *model.ReservationRecord) (*model.ReservationRecord, error)
    // CompareAndAdjust conditionally applies a seat delta, committing the
    // given record in the same transaction when non-nil.
    CompareAndAdjust(ctx context.Context, eventID uint64, delta int64, expectedVersion uint64, rec *model.ReservationRecord) (uint32, uint64, error)
}

// Result is the definitive outcome of a reserve or release call.  Replayed
// marks calls that returned a previously stored outcome instead of
// performing new work.
type Result struct {
    Outcome        string // one of the model.Outcome* constants
    AvailableSeats uint32 // seat count after the call, best effort on replays
    Replayed       bool   // true when no fresh mutation happened
}

// Coordinator serializes nothing up front; it reads, attempts a conditional
// write and retries on conflict, bounded by maxAttempts with jittered
// backoff between attempts.
type Coordinator struct {
    ledger      Ledger
    maxAttempts int
    retryBase   time.Duration
}

// NewCoordinator constructs a Coordinator over the given ledger with the
// default retry budget of five attempts starting at a 10ms backoff.
func NewCoordinator(ledger Ledger) *Coordinator {
    return &Coordinator{
        ledger:      ledger,
        maxAttempts: 5,
        retryBase:   10 * time.Millisecond,
    }
}

// Reserve deducts seats from an event's inventory under the caller's
// idempotency key.  Replays of a key that already reached a terminal
// outcome return that outcome without touching the counter.  When the
// request cannot be satisfied a REJECTED record is written and the counter
// is left unchanged.
func (c *Coordinator) Reserve(ctx context.Context, eventID uint64, seats uint32, key string) (*Result, error) {
    if rec, err := c.ledger.LookupRecord(ctx, key); err == nil {
        return c.replay(ctx, rec)
    } else if !errors.Is(err, repository.ErrRecordNotFound) {
        return nil, err
    }

    for attempt := 0; attempt < c.maxAttempts; attempt++ {
        inv, err := c.ledger.ReadInventory(ctx, eventID)
        if err != nil {
            return nil, err
        }
        if seats > inv.AvailableSeats {
            return c.reject(ctx, eventID, seats, key, inv.AvailableSeats)
        }

        rec := &model.ReservationRecord{
            IdempotencyKey: key,
            EventID:        eventID,
            SeatsRequested: seats,
            Outcome:        model.OutcomeAccepted,
        }
        remaining, _, err := c.ledger.CompareAndAdjust(ctx, eventID, -int64(seats), inv.Version, rec)
        switch {
        case err == nil:
            return &Result{Outcome: model.OutcomeAccepted, AvailableSeats: remaining}, nil
        case errors.Is(err, repository.ErrVersionConflict):
            if err := c.backoff(ctx, attempt); err != nil {
                return nil, err
            }
        case errors.Is(err, repository.ErrWouldViolateBounds):
            // Lost a race for the last seats; the next read will see the
            // shortage and take the rejection path.
        case errors.Is(err, repository.ErrDuplicateKey):
            // A concurrent call with the same key committed first.
            stored, lookErr := c.ledger.LookupRecord(ctx, key)
            if lookErr != nil {
                return nil, lookErr
            }
            return c.replay(ctx, stored)
        default:
            return nil, err
        }
    }
    return nil, ErrTransientConflict
}

// Release reverses a previously accepted reservation.  A release for a key
// that was never accepted, was rejected, or was already released is a no-op
// success.  The seat count restored is the one stored in the accepted
// record; a caller-supplied count that disagrees is refused.
func (c *Coordinator) Release(ctx context.Context, eventID uint64, seats uint32, key string) (*Result, error) {
    rec, err := c.ledger.LookupRecord(ctx, key)
    if err != nil {
        if errors.Is(err, repository.ErrRecordNotFound) {
            return &Result{Outcome: model.OutcomeReleased, Replayed: true}, nil
        }
        return nil, err
    }
    if rec.Outcome != model.OutcomeAccepted {
        return c.replayRelease(ctx, rec)
    }
    if rec.EventID != eventID || (seats != 0 && seats != rec.SeatsRequested) {
        return nil, ErrSeatsMismatch
    }

    for attempt := 0; attempt < c.maxAttempts; attempt++ {
        inv, err := c.ledger.ReadInventory(ctx, eventID)
        if err != nil {
            return nil, err
        }
        flip := &model.ReservationRecord{
            IdempotencyKey: key,
            EventID:        eventID,
            SeatsRequested: rec.SeatsRequested,
            Outcome:        model.OutcomeReleased,
        }
        remaining, _, err := c.ledger.CompareAndAdjust(ctx, eventID, int64(rec.SeatsRequested), inv.Version, flip)
        switch {
        case err == nil:
            return &Result{Outcome: model.OutcomeReleased, AvailableSeats: remaining}, nil
        case errors.Is(err, repository.ErrVersionConflict):
            if err := c.backoff(ctx, attempt); err != nil {
                return nil, err
            }
        case errors.Is(err, repository.ErrAlreadyReleased):
            // A concurrent release won the record flip; nothing left to do.
            return &Result{Outcome: model.OutcomeReleased, AvailableSeats: inv.AvailableSeats, Replayed: true}, nil
        default:
            return nil, err
        }
    }
    return nil, ErrTransientConflict
}

// Availability returns the current counter state for display purposes.
func (c *Coordinator) Availability(ctx context.Context, eventID uint64) (*model.EventInventory, error) {
    return c.ledger.ReadInventory(ctx, eventID)
}

// reject durably records an insufficient-seats outcome.  A duplicate key
// here means a concurrent call with the same key finished first, so the
// stored outcome wins.
func (c *Coordinator) reject(ctx context.Context, eventID uint64, seats uint32, key string, available uint32) (*Result, error) {
    rec := &model.ReservationRecord{
        IdempotencyKey: key,
        EventID:        eventID,
        SeatsRequested: seats,
        Outcome:        model.OutcomeRejected,
    }
    stored, err := c.ledger.AppendRecord(ctx, rec)
    if err != nil {
        if errors.Is(err, repository.ErrDuplicateKey) {
            return c.replay(ctx, stored)
        }
        return nil, err
    }
    return &Result{Outcome: stored.Outcome, AvailableSeats: available}, nil
}

// replay returns the stored outcome for an idempotency key without
// re-executing anything.  The seat count is filled from a fresh read when
// possible; it is informational on this path.
func (c *Coordinator) replay(ctx context.Context, rec *model.ReservationRecord) (*Result, error) {
    res := &Result{Outcome: rec.Outcome, Replayed: true}
    if inv, err := c.ledger.ReadInventory(ctx, rec.EventID); err == nil {
        res.AvailableSeats = inv.AvailableSeats
    }
    return res, nil
}

// replayRelease maps a non-ACCEPTED record to the idempotent release
// response: the reservation holds no seats, so there is nothing to undo.
func (c *Coordinator) replayRelease(ctx context.Context, rec *model.ReservationRecord) (*Result, error) {
    res := &Result{Outcome: model.OutcomeReleased, Replayed: true}
    if inv, err := c.ledger.ReadInventory(ctx, rec.EventID); err == nil {
        res.AvailableSeats = inv.AvailableSeats
    }
    return res, nil
}

// backoff sleeps between conflict retries.  The delay grows with the
// attempt number and carries jitter so callers racing for the same event
// do not retry in lockstep.
func (c *Coordinator) backoff(ctx context.Context, attempt int) error {
    d := c.retryBase << uint(attempt)
    d += time.Duration(rand.Int63n(int64(c.retryBase)))
    timer := time.NewTimer(d)
    defer timer.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-timer.C:
        return nil
    }
}
