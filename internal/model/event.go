package model

import "time"

// Event categories accepted by the API.  The list mirrors the values the
// front end offers in its category filter.
var EventCategories = map[string]bool{
    "conference": true,
    "workshop":   true,
    "seminar":    true,
    "concert":    true,
    "sports":     true,
    "festival":   true,
    "other":      true,
}

// Event statuses an event moves through over its lifetime.
var EventStatuses = map[string]bool{
    "upcoming":  true,
    "ongoing":   true,
    "completed": true,
    "cancelled": true,
}

// Event describes a single listed event.  Seat availability is not part of
// this model; it lives in EventInventory and is only ever changed through
// the reservation coordinator.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – display name of the event (max 100 chars).
//  Description – long-form description (max 2000 chars).
//  Category    – one of EventCategories.
//  Venue       – where the event takes place.
//  Date        – day the event takes place, stored UTC.
//  Time        – human-entered start time string such as "19:30".
//  Capacity    – total seats; fixed at creation, copied into the inventory row.
//  PriceCents  – ticket price in cents.
//  ImageURL    – promotional image, optional.
//  Organizer   – organizer display name.
//  Tags        – free-form labels, stored comma separated.
//  Status      – one of EventStatuses.
//  CreatedBy   – identifier of the admin that created the event.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
    ID          uint64    `json:"id"`
    Title       string    `json:"title"`
    Description string    `json:"description"`
    Category    string    `json:"category"`
    Venue       string    `json:"venue"`
    Date        time.Time `json:"date"`
    Time        string    `json:"time"`
    Capacity    uint32    `json:"capacity"`
    PriceCents  uint32    `json:"price_cents"`
    ImageURL    string    `json:"image_url,omitempty"`
    Organizer   string    `json:"organizer"`
    Tags        []string  `json:"tags,omitempty"`
    Status      string    `json:"status"`
    CreatedBy   string    `json:"created_by"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}
