package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/evently/ticketing/internal/inventory"
    "github.com/evently/ticketing/internal/model"
    "github.com/evently/ticketing/internal/repository"
)

// memLedger is a minimal single-event ledger backing the handler tests.
// The coordinator's concurrency behavior has its own tests; here the
// interesting part is request validation and status mapping.
type memLedger struct {
    inv     model.EventInventory
    records map[string]*model.ReservationRecord
}

func newMemLedger(eventID uint64, capacity uint32) *memLedger {
    return &memLedger{
        inv:     model.EventInventory{EventID: eventID, Capacity: capacity, AvailableSeats: capacity},
        records: make(map[string]*model.ReservationRecord),
    }
}

func (m *memLedger) ReadInventory(ctx context.Context, eventID uint64) (*model.EventInventory, error) {
    if eventID != m.inv.EventID {
        return nil, repository.ErrInventoryNotFound
    }
    cp := m.inv
    return &cp, nil
}

func (m *memLedger) LookupRecord(ctx context.Context, key string) (*model.ReservationRecord, error) {
    if rec, ok := m.records[key]; ok {
        cp := *rec
        return &cp, nil
    }
    return nil, repository.ErrRecordNotFound
}

func (m *memLedger) AppendRecord(ctx context.Context, rec *model.ReservationRecord) (*model.ReservationRecord, error) {
    if existing, ok := m.records[rec.IdempotencyKey]; ok {
        cp := *existing
        return &cp, repository.ErrDuplicateKey
    }
    cp := *rec
    m.records[rec.IdempotencyKey] = &cp
    out := cp
    return &out, nil
}

func (m *memLedger) CompareAndAdjust(ctx context.Context, eventID uint64, delta int64, expectedVersion uint64, rec *model.ReservationRecord) (uint32, uint64, error) {
    if eventID != m.inv.EventID {
        return 0, 0, repository.ErrInventoryNotFound
    }
    if m.inv.Version != expectedVersion {
        return 0, 0, repository.ErrVersionConflict
    }
    next := int64(m.inv.AvailableSeats) + delta
    if next < 0 || next > int64(m.inv.Capacity) {
        return 0, 0, repository.ErrWouldViolateBounds
    }
    if rec != nil {
        if rec.Outcome == model.OutcomeReleased {
            stored, ok := m.records[rec.IdempotencyKey]
            if !ok || stored.Outcome != model.OutcomeAccepted {
                return 0, 0, repository.ErrAlreadyReleased
            }
            stored.Outcome = model.OutcomeReleased
        } else {
            if _, ok := m.records[rec.IdempotencyKey]; ok {
                return 0, 0, repository.ErrDuplicateKey
            }
            cp := *rec
            m.records[rec.IdempotencyKey] = &cp
        }
    }
    m.inv.AvailableSeats = uint32(next)
    m.inv.Version++
    return m.inv.AvailableSeats, m.inv.Version, nil
}

func doSeatRequest(t *testing.T, h echo.HandlerFunc, eventID, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
    req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetParamNames("id")
    c.SetParamValues(eventID)
    require.NoError(t, h(c))

    var payload map[string]interface{}
    if rec.Body.Len() > 0 {
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
    }
    return rec, payload
}

func TestInventoryHandler_ReserveValidation(t *testing.T) {
    h := NewInventoryHandler(inventory.NewCoordinator(newMemLedger(1, 10)))

    tests := []struct {
        name    string
        eventID string
        body    string
        wantMsg string
    }{
        {"bad event id", "abc", `{"seats":1,"idempotency_key":"k"}`, "invalid event id"},
        {"zero seats", "1", `{"seats":0,"idempotency_key":"k"}`, "seats must be a positive integer"},
        {"missing key", "1", `{"seats":1}`, "idempotency_key is required"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            rec, payload := doSeatRequest(t, h.Reserve, tt.eventID, tt.body)
            assert.Equal(t, http.StatusBadRequest, rec.Code)
            assert.Equal(t, tt.wantMsg, payload["error"])
        })
    }
}

func TestInventoryHandler_ReserveFlow(t *testing.T) {
    ledger := newMemLedger(1, 5)
    h := NewInventoryHandler(inventory.NewCoordinator(ledger))

    // Fresh acceptance.
    rec, payload := doSeatRequest(t, h.Reserve, "1", `{"seats":3,"idempotency_key":"b-1"}`)
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.Equal(t, model.OutcomeAccepted, payload["outcome"])
    assert.Equal(t, float64(2), payload["available_seats"])
    assert.Equal(t, false, payload["already_processed"])

    // Replay returns the stored outcome with 200.
    rec, payload = doSeatRequest(t, h.Reserve, "1", `{"seats":3,"idempotency_key":"b-1"}`)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, true, payload["already_processed"])

    // Not enough seats left for a bigger request.
    rec, payload = doSeatRequest(t, h.Reserve, "1", `{"seats":3,"idempotency_key":"b-2"}`)
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Equal(t, "insufficient seats", payload["error"])
    assert.Equal(t, float64(2), payload["available_seats"])

    // Unknown event.
    rec, _ = doSeatRequest(t, h.Reserve, "99", `{"seats":1,"idempotency_key":"b-3"}`)
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInventoryHandler_ReleaseFlow(t *testing.T) {
    ledger := newMemLedger(1, 5)
    h := NewInventoryHandler(inventory.NewCoordinator(ledger))

    _, _ = doSeatRequest(t, h.Reserve, "1", `{"seats":2,"idempotency_key":"b-1"}`)

    rec, payload := doSeatRequest(t, h.Release, "1", `{"seats":2,"idempotency_key":"b-1"}`)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, model.OutcomeReleased, payload["outcome"])
    assert.Equal(t, float64(5), payload["available_seats"])

    // Releasing an unknown key is a no-op success.
    rec, payload = doSeatRequest(t, h.Release, "1", `{"seats":2,"idempotency_key":"ghost"}`)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, true, payload["already_processed"])

    // Mismatched seat count is refused.
    _, _ = doSeatRequest(t, h.Reserve, "1", `{"seats":2,"idempotency_key":"b-2"}`)
    rec, _ = doSeatRequest(t, h.Release, "1", `{"seats":4,"idempotency_key":"b-2"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryHandler_GetAvailability(t *testing.T) {
    ledger := newMemLedger(1, 5)
    h := NewInventoryHandler(inventory.NewCoordinator(ledger))

    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetParamNames("id")
    c.SetParamValues("1")
    require.NoError(t, h.GetAvailability(c))
    assert.Equal(t, http.StatusOK, rec.Code)

    var payload map[string]interface{}
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
    assert.Equal(t, float64(5), payload["capacity"])
    assert.Equal(t, float64(5), payload["available_seats"])

    c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
    rec2 := httptest.NewRecorder()
    c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec2)
    c.SetParamNames("id")
    c.SetParamValues("42")
    require.NoError(t, h.GetAvailability(c))
    assert.Equal(t, http.StatusNotFound, rec2.Code)
}
