package handler

import (
    "errors"   // errors.Is comparisons against sentinel values
    "net/http" // HTTP status codes
    "strconv"  // parsing path and query parameters
    "time"     // date validation

    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/evently/ticketing/internal/model"
    "github.com/evently/ticketing/internal/repository"
)

// EventHandler implements the event metadata CRUD endpoints.  Create and
// delete run in a transaction spanning the event row and its inventory row
// so an event can never exist without a seat counter or vice versa.
// Capacity is accepted only at creation; the inventory row is sized from it
// and metadata updates cannot change it.
type EventHandler struct {
    EventRepo     *repository.EventRepo
    InventoryRepo *repository.InventoryRepo
}

// NewEventHandler constructs an EventHandler with the provided
// repositories.  All dependencies must be non-nil.
func NewEventHandler(eventRepo *repository.EventRepo, inventoryRepo *repository.InventoryRepo) *EventHandler {
    if eventRepo == nil || inventoryRepo == nil {
        panic("nil repository passed to NewEventHandler")
    }
    return &EventHandler{EventRepo: eventRepo, InventoryRepo: inventoryRepo}
}

// eventRequest is the JSON body accepted by create and update.
type eventRequest struct {
    Title       string   `json:"title"`
    Description string   `json:"description"`
    Category    string   `json:"category"`
    Venue       string   `json:"venue"`
    Date        string   `json:"date"` // "2006-01-02"
    Time        string   `json:"time"`
    Capacity    uint32   `json:"capacity"`
    PriceCents  uint32   `json:"price_cents"`
    ImageURL    string   `json:"image_url"`
    Organizer   string   `json:"organizer"`
    Tags        []string `json:"tags"`
    Status      string   `json:"status"`
}

// validate checks the shared field constraints and returns a user-facing
// message when a constraint is violated.
func (r *eventRequest) validate(create bool) string {
    if r.Title == "" || len(r.Title) > 100 {
        return "title is required and cannot exceed 100 characters"
    }
    if r.Description == "" || len(r.Description) > 2000 {
        return "description is required and cannot exceed 2000 characters"
    }
    if r.Category == "" {
        r.Category = "other"
    }
    if !model.EventCategories[r.Category] {
        return "unknown category"
    }
    if r.Venue == "" {
        return "venue is required"
    }
    day, err := time.Parse("2006-01-02", r.Date)
    if err != nil {
        return "date must be formatted YYYY-MM-DD"
    }
    if create && !day.After(time.Now().UTC()) {
        return "event date must be in the future"
    }
    if r.Time == "" {
        return "time is required"
    }
    if r.Organizer == "" {
        return "organizer is required"
    }
    if create && r.Capacity == 0 {
        return "capacity must be at least 1"
    }
    if r.Status != "" && !model.EventStatuses[r.Status] {
        return "unknown status"
    }
    return ""
}

// toModel copies the request into an Event.  The date has already been
// validated.
func (r *eventRequest) toModel() model.Event {
    day, _ := time.Parse("2006-01-02", r.Date)
    return model.Event{
        Title:       r.Title,
        Description: r.Description,
        Category:    r.Category,
        Venue:       r.Venue,
        Date:        day,
        Time:        r.Time,
        Capacity:    r.Capacity,
        PriceCents:  r.PriceCents,
        ImageURL:    r.ImageURL,
        Organizer:   r.Organizer,
        Tags:        r.Tags,
        Status:      r.Status,
    }
}

// ListEvents handles GET /v1/events.  Supports category, status and search
// filters, date/price sorting and page/limit pagination.
func (h *EventHandler) ListEvents(c echo.Context) error {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    f := repository.EventFilter{
        Category: c.QueryParam("category"),
        Status:   c.QueryParam("status"),
        Search:   c.QueryParam("search"),
        Sort:     c.QueryParam("sort"),
        Page:     page,
        Limit:    limit,
    }
    events, total, err := h.EventRepo.List(c.Request().Context(), f)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch events"})
    }
    if f.Limit < 1 {
        f.Limit = 10
    }
    if f.Page < 1 {
        f.Page = 1
    }
    pages := (total + f.Limit - 1) / f.Limit
    return c.JSON(http.StatusOK, echo.Map{
        "events": events,
        "pagination": echo.Map{
            "total": total,
            "page":  f.Page,
            "pages": pages,
        },
    })
}

// GetEvent handles GET /v1/events/:id.  The response carries the live seat
// availability alongside the metadata so listing pages can render both
// from one call.
func (h *EventHandler) GetEvent(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx := c.Request().Context()
    event, err := h.EventRepo.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch event"})
    }
    resp := echo.Map{"event": event}
    if inv, invErr := h.InventoryRepo.ReadInventory(ctx, id); invErr == nil {
        resp["available_seats"] = inv.AvailableSeats
    }
    return c.JSON(http.StatusOK, resp)
}

// CreateEvent handles POST /v1/events (admin only).  The event row and its
// inventory row commit together; available seats start equal to capacity.
func (h *EventHandler) CreateEvent(c echo.Context) error {
    var body eventRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if msg := body.validate(true); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    event := body.toModel()
    if sub, ok := c.Get("user_id").(string); ok {
        event.CreatedBy = sub
    }
    if event.CreatedBy == "" {
        event.CreatedBy = "system"
    }

    ctx := c.Request().Context()
    tx, err := h.EventRepo.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := h.EventRepo.CreateTx(ctx, tx, &event); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
    }
    if err := h.InventoryRepo.CreateTx(ctx, tx, event.ID, event.Capacity); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create inventory"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true
    return c.JSON(http.StatusCreated, echo.Map{
        "message": "event created successfully",
        "event":   event,
    })
}

// UpdateEvent handles PUT /v1/events/:id (admin only).  Capacity changes
// are refused because the seat counter was sized at creation.
func (h *EventHandler) UpdateEvent(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var body eventRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if msg := body.validate(false); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    ctx := c.Request().Context()
    existing, err := h.EventRepo.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch event"})
    }
    if body.Capacity != 0 && body.Capacity != existing.Capacity {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity cannot be changed"})
    }

    event := body.toModel()
    event.ID = id
    if event.Status == "" {
        event.Status = existing.Status
    }
    if err := h.EventRepo.Update(ctx, &event); err != nil {
        switch {
        case errors.Is(err, repository.ErrEventNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        case errors.Is(err, repository.ErrNoChange):
            event = *existing
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update event"})
        }
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": "event updated successfully",
        "event":   event,
    })
}

// DeleteEvent handles DELETE /v1/events/:id (admin only).  The inventory
// row goes away with the event in one commit; reservation records are kept
// for audit.
func (h *EventHandler) DeleteEvent(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    ctx := c.Request().Context()
    tx, err := h.EventRepo.DB().BeginTx(ctx, nil)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := h.EventRepo.DeleteTx(ctx, tx, id); err != nil {
        if errors.Is(err, repository.ErrEventNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete event"})
    }
    if err := h.InventoryRepo.DeleteTx(ctx, tx, id); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete inventory"})
    }
    if err := tx.Commit(); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
    }
    committed = true
    return c.NoContent(http.StatusNoContent)
}
