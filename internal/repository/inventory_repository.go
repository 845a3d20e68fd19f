// Package repository contains data access logic for the seat inventory
// ledger. This file is the only place that writes to event_inventory and
// reservation_records; every seat count mutation flows through
// CompareAndAdjust so the version check cannot be bypassed.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction
    "errors"       // errors for sentinel comparisons

    "github.com/go-sql-driver/mysql" // mysql driver error codes (1062 duplicate key)

    "github.com/evently/ticketing/internal/model"
)

const mysqlErrDuplicateEntry = 1062

// InventoryRepo manages persistence for event_inventory counters and the
// reservation_records audit trail.  Reads go straight to the pool; the
// conditional write runs inside its own short transaction so the counter
// adjustment and its terminal record commit together.
type InventoryRepo struct {
    db *sql.DB
}

// NewInventoryRepo constructs an InventoryRepo with the given DB handle.
func NewInventoryRepo(db *sql.DB) *InventoryRepo {
    return &InventoryRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories, such as creating an event
// together with its inventory row.
func (r *InventoryRepo) DB() *sql.DB {
    return r.db
}

// CreateTx inserts the inventory row for a freshly created event using the
// provided transaction.  Available seats start equal to capacity and the
// version starts at zero.  The caller must commit or roll back.
func (r *InventoryRepo) CreateTx(ctx context.Context, tx *sql.Tx, eventID uint64, capacity uint32) error {
    const q = `INSERT INTO event_inventory (event_id, capacity, available_seats, version) VALUES (?, ?, ?, 0)`
    _, err := tx.ExecContext(ctx, q, eventID, capacity, capacity)
    return err
}

// DeleteTx removes the inventory row for an event within the caller's
// transaction.  Reservation records are kept for audit; only the live
// counter goes away with the event.
func (r *InventoryRepo) DeleteTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
    const q = `DELETE FROM event_inventory WHERE event_id = ?`
    _, err := tx.ExecContext(ctx, q, eventID)
    return err
}

// ReadInventory fetches the current counter state for an event.  It returns
// ErrInventoryNotFound when the event has no inventory row.
func (r *InventoryRepo) ReadInventory(ctx context.Context, eventID uint64) (*model.EventInventory, error) {
    const q = `SELECT event_id, capacity, available_seats, version FROM event_inventory WHERE event_id = ?`
    var inv model.EventInventory
    err := r.db.QueryRowContext(ctx, q, eventID).Scan(&inv.EventID, &inv.Capacity, &inv.AvailableSeats, &inv.Version)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrInventoryNotFound
        }
        return nil, err
    }
    return &inv, nil
}

// LookupRecord fetches the reservation record for an idempotency key.  It
// returns ErrRecordNotFound when the key has never produced a terminal
// outcome.
func (r *InventoryRepo) LookupRecord(ctx context.Context, key string) (*model.ReservationRecord, error) {
    const q = `SELECT idempotency_key, event_id, seats_requested, outcome, created_at
               FROM reservation_records WHERE idempotency_key = ?`
    var rec model.ReservationRecord
    err := r.db.QueryRowContext(ctx, q, key).Scan(&rec.IdempotencyKey, &rec.EventID, &rec.SeatsRequested, &rec.Outcome, &rec.CreatedAt)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrRecordNotFound
        }
        return nil, err
    }
    return &rec, nil
}

// AppendRecord inserts a terminal reservation record.  The insert is
// idempotent: when a record with the same key already exists, the stored
// record is returned together with ErrDuplicateKey and nothing is written.
// This is the path rejections take; accepted and released records are
// written by CompareAndAdjust so they commit with the counter change.
func (r *InventoryRepo) AppendRecord(ctx context.Context, rec *model.ReservationRecord) (*model.ReservationRecord, error) {
    const q = `INSERT INTO reservation_records (idempotency_key, event_id, seats_requested, outcome) VALUES (?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q, rec.IdempotencyKey, rec.EventID, rec.SeatsRequested, rec.Outcome)
    if err != nil {
        if isDuplicateEntry(err) {
            existing, lookErr := r.LookupRecord(ctx, rec.IdempotencyKey)
            if lookErr != nil {
                return nil, lookErr
            }
            return existing, ErrDuplicateKey
        }
        return nil, err
    }
    return r.LookupRecord(ctx, rec.IdempotencyKey)
}

// CompareAndAdjust applies available_seats += delta to an event's inventory
// row, but only when the stored version equals expectedVersion and the
// result stays within [0, capacity].  On success it returns the new seat
// count and version.  When rec is non-nil, the record write commits in the
// same transaction as the adjustment:
//
//   - rec.Outcome == ACCEPTED: the record is inserted; a concurrent insert
//     of the same key aborts the adjustment with ErrDuplicateKey.
//   - rec.Outcome == RELEASED: the stored record is flipped from ACCEPTED
//     to RELEASED; if it is not in the ACCEPTED state the adjustment is
//     aborted with ErrAlreadyReleased.
//
// When the conditional update matches no row, the failure is diagnosed
// against a fresh read and reported as ErrInventoryNotFound,
// ErrVersionConflict or ErrWouldViolateBounds.  In every failure case the
// database is left untouched.
func (r *InventoryRepo) CompareAndAdjust(ctx context.Context, eventID uint64, delta int64, expectedVersion uint64, rec *model.ReservationRecord) (uint32, uint64, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if rec != nil {
        if err := r.writeRecordTx(ctx, tx, rec); err != nil {
            return 0, 0, err
        }
    }

    // CAST keeps the bounds check in signed arithmetic; once it passes,
    // the assignment itself cannot underflow.
    const adjust = `UPDATE event_inventory
                    SET available_seats = available_seats + ?, version = version + 1
                    WHERE event_id = ? AND version = ?
                      AND CAST(available_seats AS SIGNED) + ? BETWEEN 0 AND capacity`
    res, err := tx.ExecContext(ctx, adjust, delta, eventID, expectedVersion, delta)
    if err != nil {
        return 0, 0, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return 0, 0, err
    }
    if n == 0 {
        return 0, 0, r.diagnoseTx(ctx, tx, eventID, expectedVersion)
    }

    const sel = `SELECT available_seats, version FROM event_inventory WHERE event_id = ?`
    var seats uint32
    var version uint64
    if err := tx.QueryRowContext(ctx, sel, eventID).Scan(&seats, &version); err != nil {
        return 0, 0, err
    }
    if err := tx.Commit(); err != nil {
        return 0, 0, err
    }
    committed = true
    return seats, version, nil
}

// writeRecordTx performs the record side of CompareAndAdjust inside the
// caller's transaction.
func (r *InventoryRepo) writeRecordTx(ctx context.Context, tx *sql.Tx, rec *model.ReservationRecord) error {
    if rec.Outcome == model.OutcomeReleased {
        const flip = `UPDATE reservation_records SET outcome = ? WHERE idempotency_key = ? AND outcome = ?`
        res, err := tx.ExecContext(ctx, flip, model.OutcomeReleased, rec.IdempotencyKey, model.OutcomeAccepted)
        if err != nil {
            return err
        }
        n, err := res.RowsAffected()
        if err != nil {
            return err
        }
        if n == 0 {
            return ErrAlreadyReleased
        }
        return nil
    }
    const ins = `INSERT INTO reservation_records (idempotency_key, event_id, seats_requested, outcome) VALUES (?, ?, ?, ?)`
    if _, err := tx.ExecContext(ctx, ins, rec.IdempotencyKey, rec.EventID, rec.SeatsRequested, rec.Outcome); err != nil {
        if isDuplicateEntry(err) {
            return ErrDuplicateKey
        }
        return err
    }
    return nil
}

// diagnoseTx figures out why the conditional update matched nothing.  The
// read happens inside the same transaction so the answer reflects the state
// the update saw.
func (r *InventoryRepo) diagnoseTx(ctx context.Context, tx *sql.Tx, eventID, expectedVersion uint64) error {
    const q = `SELECT version FROM event_inventory WHERE event_id = ?`
    var version uint64
    err := tx.QueryRowContext(ctx, q, eventID).Scan(&version)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrInventoryNotFound
        }
        return err
    }
    if version != expectedVersion {
        return ErrVersionConflict
    }
    return ErrWouldViolateBounds
}

// isDuplicateEntry reports whether err is a MySQL duplicate key violation.
func isDuplicateEntry(err error) bool {
    var me *mysql.MySQLError
    return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}
