package repository

import (
    "context"
    "database/sql"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/evently/ticketing/internal/model"
)

func newMockInventoryRepo(t *testing.T) (*InventoryRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    return NewInventoryRepo(db), mock
}

func TestInventoryRepo_ReadInventory(t *testing.T) {
    repo, mock := newMockInventoryRepo(t)
    ctx := context.Background()

    mock.ExpectQuery(`SELECT event_id, capacity, available_seats, version FROM event_inventory`).
        WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"event_id", "capacity", "available_seats", "version"}).
            AddRow(7, 100, 42, 9))

    inv, err := repo.ReadInventory(ctx, 7)
    require.NoError(t, err)
    assert.Equal(t, uint64(7), inv.EventID)
    assert.Equal(t, uint32(100), inv.Capacity)
    assert.Equal(t, uint32(42), inv.AvailableSeats)
    assert.Equal(t, uint64(9), inv.Version)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepo_ReadInventory_NotFound(t *testing.T) {
    repo, mock := newMockInventoryRepo(t)

    mock.ExpectQuery(`SELECT event_id, capacity, available_seats, version FROM event_inventory`).
        WithArgs(uint64(7)).
        WillReturnError(sql.ErrNoRows)

    _, err := repo.ReadInventory(context.Background(), 7)
    assert.ErrorIs(t, err, ErrInventoryNotFound)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepo_CompareAndAdjust_AcceptCommitsRecordAndCounter(t *testing.T) {
    repo, mock := newMockInventoryRepo(t)
    rec := &model.ReservationRecord{
        IdempotencyKey: "k1",
        EventID:        7,
        SeatsRequested: 3,
        Outcome:        model.OutcomeAccepted,
    }

    mock.ExpectBegin()
    mock.ExpectExec(`INSERT INTO reservation_records`).
        WithArgs("k1", uint64(7), uint32(3), model.OutcomeAccepted).
        WillReturnResult(sqlmock.NewResult(1, 1))
    mock.ExpectExec(`UPDATE event_inventory`).
        WithArgs(int64(-3), uint64(7), uint64(9), int64(-3)).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectQuery(`SELECT available_seats, version FROM event_inventory`).
        WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"available_seats", "version"}).AddRow(39, 10))
    mock.ExpectCommit()

    seats, version, err := repo.CompareAndAdjust(context.Background(), 7, -3, 9, rec)
    require.NoError(t, err)
    assert.Equal(t, uint32(39), seats)
    assert.Equal(t, uint64(10), version)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepo_CompareAndAdjust_VersionConflict(t *testing.T) {
    repo, mock := newMockInventoryRepo(t)

    mock.ExpectBegin()
    mock.ExpectExec(`UPDATE event_inventory`).
        WithArgs(int64(-1), uint64(7), uint64(4), int64(-1)).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectQuery(`SELECT version FROM event_inventory`).
        WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(5))
    mock.ExpectRollback()

    _, _, err := repo.CompareAndAdjust(context.Background(), 7, -1, 4, nil)
    assert.ErrorIs(t, err, ErrVersionConflict)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepo_CompareAndAdjust_Bounds(t *testing.T) {
    repo, mock := newMockInventoryRepo(t)

    mock.ExpectBegin()
    mock.ExpectExec(`UPDATE event_inventory`).
        WithArgs(int64(-5), uint64(7), uint64(4), int64(-5)).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectQuery(`SELECT version FROM event_inventory`).
        WithArgs(uint64(7)).
        WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(4))
    mock.ExpectRollback()

    _, _, err := repo.CompareAndAdjust(context.Background(), 7, -5, 4, nil)
    assert.ErrorIs(t, err, ErrWouldViolateBounds)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepo_CompareAndAdjust_InventoryGone(t *testing.T) {
    repo, mock := newMockInventoryRepo(t)

    mock.ExpectBegin()
    mock.ExpectExec(`UPDATE event_inventory`).
        WithArgs(int64(2), uint64(7), uint64(4), int64(2)).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectQuery(`SELECT version FROM event_inventory`).
        WithArgs(uint64(7)).
        WillReturnError(sql.ErrNoRows)
    mock.ExpectRollback()

    _, _, err := repo.CompareAndAdjust(context.Background(), 7, 2, 4, nil)
    assert.ErrorIs(t, err, ErrInventoryNotFound)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepo_CompareAndAdjust_DuplicateKeyAborts(t *testing.T) {
    repo, mock := newMockInventoryRepo(t)
    rec := &model.ReservationRecord{
        IdempotencyKey: "k1",
        EventID:        7,
        SeatsRequested: 3,
        Outcome:        model.OutcomeAccepted,
    }

    mock.ExpectBegin()
    mock.ExpectExec(`INSERT INTO reservation_records`).
        WithArgs("k1", uint64(7), uint32(3), model.OutcomeAccepted).
        WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate entry"})
    mock.ExpectRollback()

    _, _, err := repo.CompareAndAdjust(context.Background(), 7, -3, 9, rec)
    assert.ErrorIs(t, err, ErrDuplicateKey)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepo_CompareAndAdjust_ReleaseFlipsOnce(t *testing.T) {
    repo, mock := newMockInventoryRepo(t)
    flip := &model.ReservationRecord{
        IdempotencyKey: "k1",
        EventID:        7,
        SeatsRequested: 3,
        Outcome:        model.OutcomeReleased,
    }

    // Record already released: the flip matches nothing and the counter
    // adjustment never runs.
    mock.ExpectBegin()
    mock.ExpectExec(`UPDATE reservation_records SET outcome`).
        WithArgs(model.OutcomeReleased, "k1", model.OutcomeAccepted).
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectRollback()

    _, _, err := repo.CompareAndAdjust(context.Background(), 7, 3, 9, flip)
    assert.ErrorIs(t, err, ErrAlreadyReleased)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestInventoryRepo_AppendRecord_DuplicateReturnsExisting(t *testing.T) {
    repo, mock := newMockInventoryRepo(t)
    created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

    mock.ExpectExec(`INSERT INTO reservation_records`).
        WithArgs("k2", uint64(7), uint32(2), model.OutcomeRejected).
        WillReturnError(&mysql.MySQLError{Number: 1062, Message: "duplicate entry"})
    mock.ExpectQuery(`SELECT idempotency_key, event_id, seats_requested, outcome, created_at`).
        WithArgs("k2").
        WillReturnRows(sqlmock.NewRows([]string{"idempotency_key", "event_id", "seats_requested", "outcome", "created_at"}).
            AddRow("k2", 7, 2, model.OutcomeRejected, created))

    rec := &model.ReservationRecord{IdempotencyKey: "k2", EventID: 7, SeatsRequested: 2, Outcome: model.OutcomeRejected}
    existing, err := repo.AppendRecord(context.Background(), rec)
    assert.ErrorIs(t, err, ErrDuplicateKey)
    require.NotNil(t, existing)
    assert.Equal(t, model.OutcomeRejected, existing.Outcome)
    assert.Equal(t, created, existing.CreatedAt)
    require.NoError(t, mock.ExpectationsWereMet())
}
