// Package repository contains data access logic for event metadata. This
// file defines repository methods for the events table. Seat counts are
// deliberately absent from this repository; they belong to the inventory
// ledger and must not be edited through metadata updates.
package repository

import (
    "context"      // context for controlling query lifetime
    "database/sql" // sql provides DB abstraction
    "errors"       // errors for sentinel comparisons
    "strings"      // strings joins and splits the tags column

    "github.com/evently/ticketing/internal/model"
)

// EventFilter captures the optional list parameters supported by
// GET /v1/events: category and status filters, a case-insensitive search
// over title and description, a sort option and pagination.
type EventFilter struct {
    Category string // exact category match when non-empty
    Status   string // exact status match when non-empty
    Search   string // LIKE match against title and description
    Sort     string // date (default), date-desc, price-asc, price-desc
    Page     int    // 1-based page number
    Limit    int    // page size
}

// EventRepo manages persistence for events.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
    return &EventRepo{db: db}
}

// DB exposes the underlying sql.DB so handlers can begin transactions that
// span the event and inventory repositories.
func (r *EventRepo) DB() *sql.DB {
    return r.db
}

const eventColumns = `id, title, description, category, venue, date, time, capacity, price_cents,
                      image_url, organizer, tags, status, created_by, created_at, updated_at`

// scanEvent reads one row of eventColumns into a model.Event.
func scanEvent(row interface{ Scan(...interface{}) error }) (*model.Event, error) {
    var e model.Event
    var tags string
    err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.Venue, &e.Date, &e.Time,
        &e.Capacity, &e.PriceCents, &e.ImageURL, &e.Organizer, &tags, &e.Status, &e.CreatedBy,
        &e.CreatedAt, &e.UpdatedAt)
    if err != nil {
        return nil, err
    }
    if tags != "" {
        e.Tags = strings.Split(tags, ",")
    }
    return &e, nil
}

// CreateTx inserts a new event using the provided transaction and assigns
// the generated ID and DB-default fields back to the struct.  It runs in
// the caller's transaction so the inventory row can be created atomically
// with the event.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.Event) error {
    const q = `INSERT INTO events (title, description, category, venue, date, time, capacity,
                                   price_cents, image_url, organizer, tags, created_by)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q, e.Title, e.Description, e.Category, e.Venue, e.Date, e.Time,
        e.Capacity, e.PriceCents, e.ImageURL, e.Organizer, strings.Join(e.Tags, ","), e.CreatedBy)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ID = uint64(id)
    // Fetch the freshly inserted row to populate defaults (status, timestamps).
    sel := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
    created, err := scanEvent(tx.QueryRowContext(ctx, sel, e.ID))
    if err != nil {
        return err
    }
    *e = *created
    return nil
}

// GetByID retrieves an event by its ID.  It returns ErrEventNotFound if
// there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
    q := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
    e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrEventNotFound
        }
        return nil, err
    }
    return e, nil
}

// List returns events matching the filter plus the total count before
// pagination.  When nothing matches it returns an empty slice.
func (r *EventRepo) List(ctx context.Context, f EventFilter) ([]model.Event, int, error) {
    where := make([]string, 0, 3)
    args := make([]interface{}, 0, 4)
    if f.Category != "" {
        where = append(where, "category = ?")
        args = append(args, f.Category)
    }
    if f.Status != "" {
        where = append(where, "status = ?")
        args = append(args, f.Status)
    }
    if f.Search != "" {
        where = append(where, "(title LIKE ? OR description LIKE ?)")
        like := "%" + f.Search + "%"
        args = append(args, like, like)
    }
    cond := ""
    if len(where) > 0 {
        cond = " WHERE " + strings.Join(where, " AND ")
    }

    var total int
    if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+cond, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    order := " ORDER BY date ASC" // upcoming first by default
    switch f.Sort {
    case "date-desc":
        order = " ORDER BY date DESC"
    case "price-asc":
        order = " ORDER BY price_cents ASC"
    case "price-desc":
        order = " ORDER BY price_cents DESC"
    }

    page := f.Page
    if page < 1 {
        page = 1
    }
    limit := f.Limit
    if limit < 1 {
        limit = 10
    }
    listArgs := append(args, limit, (page-1)*limit)

    q := `SELECT ` + eventColumns + ` FROM events` + cond + order + ` LIMIT ? OFFSET ?`
    rows, err := r.db.QueryContext(ctx, q, listArgs...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()
    events := make([]model.Event, 0, limit)
    for rows.Next() {
        e, err := scanEvent(rows)
        if err != nil {
            return nil, 0, err
        }
        events = append(events, *e)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    return events, total, nil
}

// Update rewrites the mutable columns of an event.  Capacity is not in the
// column list on purpose; it is fixed at creation because the inventory row
// was sized from it.  Returns ErrEventNotFound when the id does not exist.
func (r *EventRepo) Update(ctx context.Context, e *model.Event) error {
    const q = `UPDATE events
               SET title = ?, description = ?, category = ?, venue = ?, date = ?, time = ?,
                   price_cents = ?, image_url = ?, organizer = ?, tags = ?, status = ?
               WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, e.Title, e.Description, e.Category, e.Venue, e.Date, e.Time,
        e.PriceCents, e.ImageURL, e.Organizer, strings.Join(e.Tags, ","), e.Status, e.ID)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        // Either the row is missing or the update was a no-op; distinguish
        // so handlers can return 404 only when the event truly is gone.
        if _, getErr := r.GetByID(ctx, e.ID); getErr != nil {
            return getErr
        }
        return ErrNoChange
    }
    updated, err := r.GetByID(ctx, e.ID)
    if err != nil {
        return err
    }
    *e = *updated
    return nil
}

// DeleteTx removes an event within the caller's transaction so the
// inventory row can be removed in the same commit.  Returns
// ErrEventNotFound when nothing was deleted.
func (r *EventRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrEventNotFound
    }
    return nil
}
