package handler

import (
    "errors"   // errors.Is comparisons against sentinel values
    "net/http" // HTTP status codes
    "strconv"  // parsing path parameters

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/evently/ticketing/internal/inventory"
    "github.com/evently/ticketing/internal/model"
    "github.com/evently/ticketing/internal/queue"
    "github.com/evently/ticketing/internal/repository"
    queue_publisher "github.com/evently/ticketing/internal/service"
)

// InventoryHandler is the boundary the booking collaborator calls.  It
// validates input, invokes the coordinator and translates coordinator
// outcomes into the HTTP error taxonomy.  Reserve and release are expected
// to be retried by callers with the same idempotency key after any
// ambiguous failure, so every response is safe to receive more than once.
type InventoryHandler struct {
    Coordinator *inventory.Coordinator
}

// NewInventoryHandler constructs an InventoryHandler.  The coordinator must
// be non-nil.
func NewInventoryHandler(coord *inventory.Coordinator) *InventoryHandler {
    if coord == nil {
        panic("nil coordinator passed to NewInventoryHandler")
    }
    return &InventoryHandler{Coordinator: coord}
}

// seatRequest is the JSON body shared by reserve and release calls.
type seatRequest struct {
    Seats          uint32 `json:"seats"`
    IdempotencyKey string `json:"idempotency_key"`
}

// bindSeatRequest parses the event id and body common to both mutation
// endpoints.  A nil return from this helper means a response has already
// been written.
func bindSeatRequest(c echo.Context) (uint64, *seatRequest, error) {
    eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || eventID == 0 {
        return 0, nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body seatRequest
    if err := c.Bind(&body); err != nil {
        return 0, nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Seats == 0 {
        return 0, nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "seats must be a positive integer"})
    }
    if body.IdempotencyKey == "" {
        return 0, nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "idempotency_key is required"})
    }
    return eventID, &body, nil
}

// Reserve handles POST /internal/v1/events/:id/reserve.  A fresh
// acceptance returns 201; a replayed terminal outcome returns 200 with
// already_processed set.  Insufficient seats return 409 and leave the
// counter unchanged.  A 503 means the retry budget was exhausted racing
// other writers and the caller should retry with the same key.
func (h *InventoryHandler) Reserve(c echo.Context) error {
    eventID, body, done := bindSeatRequest(c)
    if body == nil {
        return done
    }
    res, err := h.Coordinator.Reserve(c.Request().Context(), eventID, body.Seats, body.IdempotencyKey)
    if err != nil {
        return writeCoordinatorError(c, err)
    }
    if res.Outcome == model.OutcomeRejected {
        return c.JSON(http.StatusConflict, echo.Map{
            "error":             "insufficient seats",
            "outcome":           res.Outcome,
            "available_seats":   res.AvailableSeats,
            "already_processed": res.Replayed,
        })
    }
    status := http.StatusCreated
    if res.Replayed {
        status = http.StatusOK
    } else {
        // Best effort: the reservation is durable regardless of whether the
        // event reaches the broker.
        _ = queue_publisher.PublishSeatsReserved(c.Request().Context(), queue.SeatsReservedEvent{
            EventID:        eventID,
            Seats:          body.Seats,
            IdempotencyKey: body.IdempotencyKey,
            AvailableSeats: res.AvailableSeats,
        })
    }
    return c.JSON(status, echo.Map{
        "outcome":           res.Outcome,
        "available_seats":   res.AvailableSeats,
        "already_processed": res.Replayed,
    })
}

// Release handles POST /internal/v1/events/:id/release.  Releasing a key
// that was never accepted, or releasing twice, is a no-op success so the
// booking collaborator can compensate failed bookings blindly.
func (h *InventoryHandler) Release(c echo.Context) error {
    eventID, body, done := bindSeatRequest(c)
    if body == nil {
        return done
    }
    res, err := h.Coordinator.Release(c.Request().Context(), eventID, body.Seats, body.IdempotencyKey)
    if err != nil {
        return writeCoordinatorError(c, err)
    }
    if !res.Replayed {
        _ = queue_publisher.PublishSeatsReleased(c.Request().Context(), queue.SeatsReleasedEvent{
            EventID:        eventID,
            Seats:          body.Seats,
            IdempotencyKey: body.IdempotencyKey,
            AvailableSeats: res.AvailableSeats,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{
        "outcome":           res.Outcome,
        "available_seats":   res.AvailableSeats,
        "already_processed": res.Replayed,
    })
}

// GetAvailability handles GET /v1/events/:id/availability.  Display only;
// callers must never derive booking decisions from it.
func (h *InventoryHandler) GetAvailability(c echo.Context) error {
    eventID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || eventID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    inv, err := h.Coordinator.Availability(c.Request().Context(), eventID)
    if err != nil {
        if errors.Is(err, repository.ErrInventoryNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read availability"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "event_id":        inv.EventID,
        "capacity":        inv.Capacity,
        "available_seats": inv.AvailableSeats,
    })
}

// writeCoordinatorError maps coordinator failures onto HTTP statuses.
func writeCoordinatorError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrInventoryNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    case errors.Is(err, inventory.ErrSeatsMismatch):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat count does not match original reservation"})
    case errors.Is(err, inventory.ErrTransientConflict):
        c.Response().Header().Set("Retry-After", "1")
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry with the same idempotency key"})
    default:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
}
