package visitcontent

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// AssetFile is a binary handed to the asset store.
type AssetFile struct {
	Name        string // original filename, used for the extension
	ContentType string
	Size        int64
	Body        io.Reader
}

// AssetCacheControl is attached to every stored asset.
const AssetCacheControl = "public, max-age=3600"

// AssetStore accepts an image and returns a publicly resolvable URL.
// Implementations pick a non-colliding object name themselves.
type AssetStore interface {
	Store(ctx context.Context, file AssetFile) (string, error)
}

// EventStore persists events.
type EventStore interface {
	ListEvents(ctx context.Context, filter EventFilter) ([]*Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)

	// InsertEvents stores every event or none of them.
	InsertEvents(ctx context.Context, events []*Event) error

	// UpdateEvent writes content fields when the stored revision equals
	// expectedRevision. Status, ID and OwnerID are never written. On success
	// event.Revision is advanced to the stored value.
	UpdateEvent(ctx context.Context, event *Event, expectedRevision int64) error

	// TransitionEventStatus moves an event from one status to another in a
	// single guarded write and returns the updated record.
	TransitionEventStatus(ctx context.Context, id uuid.UUID, from, to EventStatus) (*Event, error)

	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

// PlaceStore persists dining and lodging places.
type PlaceStore interface {
	ListPlaces(ctx context.Context, kind PlaceKind) ([]*Place, error)
	GetPlace(ctx context.Context, kind PlaceKind, id uuid.UUID) (*Place, error)
	InsertPlace(ctx context.Context, place *Place) error
	UpdatePlace(ctx context.Context, place *Place, expectedRevision int64) error
	DeletePlace(ctx context.Context, kind PlaceKind, id uuid.UUID) error
}

// LandmarkStore persists landmarks.
type LandmarkStore interface {
	ListLandmarks(ctx context.Context) ([]*Landmark, error)
	GetLandmark(ctx context.Context, id uuid.UUID) (*Landmark, error)
	InsertLandmark(ctx context.Context, landmark *Landmark) error
	UpdateLandmark(ctx context.Context, landmark *Landmark, expectedRevision int64) error
	DeleteLandmark(ctx context.Context, id uuid.UUID) error
}

// ContentStore is the authoritative record collection for all four entity types.
type ContentStore interface {
	EventStore
	PlaceStore
	LandmarkStore
}

// Ingester produces candidate events from a remote source in one shot.
// It never writes to the content store and does not deduplicate.
type Ingester interface {
	Name() string
	Sync(ctx context.Context) ([]RawCandidate, error)
}

// AuthProvider is the narrow view of the identity provider.
type AuthProvider interface {
	// Current returns the identity bound to ctx, if any.
	Current(ctx context.Context) (*Identity, bool)

	// OnChange registers fn to be called when an identity signs in or out.
	// The returned function removes the registration.
	OnChange(fn func(identity *Identity)) (cancel func())

	// SignOut ends the session bound to ctx.
	SignOut(ctx context.Context) error
}

// EventSink receives the audit feed of pipeline actions
type EventSink interface {
	EventSubmitted(ctx context.Context, event *Event) error
	EventsSynced(ctx context.Context, source string, events []*Event) error
	EventApproved(ctx context.Context, event *Event) error
	EventRejected(ctx context.Context, event *Event) error
	EventEdited(ctx context.Context, event *Event) error
	ListingChanged(ctx context.Context, change ListingChange) error
}

// ListingAction names a change to a place or landmark.
type ListingAction string

const (
	ListingCreated ListingAction = "created"
	ListingEdited  ListingAction = "edited"
	ListingDeleted ListingAction = "deleted"
)

// ListingChange describes a place or landmark mutation for the audit feed.
type ListingChange struct {
	Action   ListingAction `json:"action"`
	Kind     string        `json:"kind"` // dining, lodging or landmark
	ID       uuid.UUID     `json:"id"`
	Name     string        `json:"name"`
	Revision int64         `json:"revision"`
}
