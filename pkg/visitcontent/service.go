package visitcontent

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the intake, moderation and directory operations
type Service interface {
	// Submission intake
	Submit(ctx context.Context, req SubmitEventRequest) (*Event, error)
	StoreAsset(ctx context.Context, file AssetFile) (string, error)
	QueueCandidates(ctx context.Context, source string, candidates []CandidateEvent, operator Identity) ([]*Event, error)

	// Event moderation
	ListPending(ctx context.Context) ([]*Event, error)
	ListPublished(ctx context.Context) ([]*Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	GetPublishedEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	ApproveEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	RejectEvent(ctx context.Context, id uuid.UUID) error
	EditEvent(ctx context.Context, id uuid.UUID, patch EventPatch) (*Event, error)

	// Place operations
	ListPlaces(ctx context.Context, kind PlaceKind) ([]*Place, error)
	GetPlace(ctx context.Context, kind PlaceKind, id uuid.UUID) (*Place, error)
	CreatePlace(ctx context.Context, req CreatePlaceRequest) (*Place, error)
	EditPlace(ctx context.Context, kind PlaceKind, id uuid.UUID, patch PlacePatch) (*Place, error)
	DeletePlace(ctx context.Context, kind PlaceKind, id uuid.UUID) error

	// Landmark operations
	ListLandmarks(ctx context.Context) ([]*Landmark, error)
	GetLandmark(ctx context.Context, id uuid.UUID) (*Landmark, error)
	CreateLandmark(ctx context.Context, req CreateLandmarkRequest) (*Landmark, error)
	EditLandmark(ctx context.Context, id uuid.UUID, patch LandmarkPatch) (*Landmark, error)
	DeleteLandmark(ctx context.Context, id uuid.UUID) error

	// Typed views for the console
	Events() Moderatable[Event, EventPatch]
	Places(kind PlaceKind) Repository[Place, PlacePatch]
	Landmarks() Repository[Landmark, LandmarkPatch]
}

// Moderatable is a collection whose records wait for approval before they
// become public.
type Moderatable[T any, P any] interface {
	ListPending(ctx context.Context) ([]*T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Approve(ctx context.Context, id uuid.UUID) (*T, error)
	Reject(ctx context.Context, id uuid.UUID) error
	Edit(ctx context.Context, id uuid.UUID, patch P) (*T, error)
}

// Repository is a collection whose records are public as soon as they exist.
// It has no approval step.
type Repository[T any, P any] interface {
	List(ctx context.Context) ([]*T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Edit(ctx context.Context, id uuid.UUID, patch P) (*T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
