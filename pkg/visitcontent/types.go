package visitcontent

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the moderation state of an event.
type EventStatus string

// Event status constants (typed).
const (
	EventStatusPending   EventStatus = "pending"
	EventStatusPublished EventStatus = "published"
)

// IsValid reports whether s is a known event status.
func (s EventStatus) IsValid() bool {
	switch s {
	case EventStatusPending, EventStatusPublished:
		return true
	default:
		return false
	}
}

// PlaceKind selects one of the two disjoint place collections.
type PlaceKind string

const (
	PlaceKindDining  PlaceKind = "dining"
	PlaceKindLodging PlaceKind = "lodging"
)

// IsValid reports whether k is a known place kind.
func (k PlaceKind) IsValid() bool {
	return k == PlaceKindDining || k == PlaceKindLodging
}

// Event origins other than an ingestion source name.
const (
	OriginSubmission = "submission"
	OriginOperator   = "operator"
)

// Date and time layouts accepted for events.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// GeoPoint is an optional map position.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is a dated happening in or around town.
//
// Date and Time are kept as local calendar values without a time zone, the
// way they are entered on the submission form.
type Event struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Date        string      `json:"date"`
	Time        string      `json:"time"`
	Location    string      `json:"location"`
	Description string      `json:"description"`
	ImageURL    string      `json:"image_url"`
	WebsiteURL  string      `json:"website_url,omitempty"`
	Status      EventStatus `json:"status"`
	OwnerID     string      `json:"owner_id,omitempty"`
	Origin      string      `json:"origin,omitempty"`
	Geo         *GeoPoint   `json:"geo,omitempty"`
	Revision    int64       `json:"revision"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IsPublic reports whether the event may be shown on public pages.
func (e *Event) IsPublic() bool {
	return e.Status == EventStatusPublished
}

// Place is a dining or lodging listing.
type Place struct {
	ID         uuid.UUID `json:"id"`
	Kind       PlaceKind `json:"kind"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Feature    string    `json:"feature"`
	ImageURL   string    `json:"image_url"`
	WebsiteURL string    `json:"website_url"`
	Revision   int64     `json:"revision"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Landmark is a point of interest shown on the town map.
type Landmark struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Distance    string    `json:"distance,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	KeyInfo     string    `json:"key_info,omitempty"`
	Revision    int64     `json:"revision"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Identity is an authenticated account. Any identity is an operator.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IsZero reports whether no identity is present.
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// CandidateEvent is an externally sourced event before it enters the queue.
// It carries no status and no owner.
type CandidateEvent struct {
	ExternalID  string    `json:"external_id,omitempty"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	WebsiteURL  string    `json:"website_url,omitempty"`
	Geo         *GeoPoint `json:"geo,omitempty"`
}

// EventOrder selects the ordering of an event listing.
type EventOrder string

const (
	// OrderByDate lists by date then time, earliest first.
	OrderByDate EventOrder = "date_asc"
	// OrderByCreatedDesc lists newest first.
	OrderByCreatedDesc EventOrder = "created_desc"
)

// EventFilter narrows an event listing.
type EventFilter struct {
	Status EventStatus
	Order  EventOrder
}
