package visitcontent

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Place operations

func (s *service) ListPlaces(ctx context.Context, kind PlaceKind) ([]*Place, error) {
	if !kind.IsValid() {
		return nil, &ValidationError{Field: "kind", Reason: "must be dining or lodging"}
	}
	places, err := s.store.ListPlaces(ctx, kind)
	if err != nil {
		return nil, storeErr("list places", err)
	}
	return places, nil
}

func (s *service) GetPlace(ctx context.Context, kind PlaceKind, id uuid.UUID) (*Place, error) {
	if !kind.IsValid() {
		return nil, &ValidationError{Field: "kind", Reason: "must be dining or lodging"}
	}
	place, err := s.store.GetPlace(ctx, kind, id)
	if err != nil {
		return nil, storeErr("get place", err)
	}
	return place, nil
}

func (s *service) CreatePlace(ctx context.Context, req CreatePlaceRequest) (*Place, error) {
	if !req.Kind.IsValid() {
		return nil, &ValidationError{Field: "kind", Reason: "must be dining or lodging"}
	}
	if err := requireText("name", req.Name); err != nil {
		return nil, err
	}

	now := s.now()
	place := &Place{
		ID:         uuid.New(),
		Kind:       req.Kind,
		Name:       strings.TrimSpace(req.Name),
		Category:   req.Category,
		Feature:    req.Feature,
		ImageURL:   req.ImageURL,
		WebsiteURL: req.WebsiteURL,
		Revision:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.InsertPlace(ctx, place); err != nil {
		return nil, storeErr("insert place", err)
	}

	s.emitListing(ctx, ListingCreated, string(place.Kind), place.ID, place.Name, place.Revision)
	return place, nil
}

func (s *service) EditPlace(ctx context.Context, kind PlaceKind, id uuid.UUID, patch PlacePatch) (*Place, error) {
	current, err := s.GetPlace(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := checkRevision(patch.Revision, current.Revision); err != nil {
		return nil, err
	}

	next := *current
	if err := patch.apply(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	if err := s.store.UpdatePlace(ctx, &next, current.Revision); err != nil {
		return nil, storeErr("update place", err)
	}

	s.emitListing(ctx, ListingEdited, string(next.Kind), next.ID, next.Name, next.Revision)
	return &next, nil
}

// DeletePlace removes the place permanently.
func (s *service) DeletePlace(ctx context.Context, kind PlaceKind, id uuid.UUID) error {
	current, err := s.GetPlace(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePlace(ctx, kind, id); err != nil {
		return storeErr("delete place", err)
	}

	s.emitListing(ctx, ListingDeleted, string(kind), id, current.Name, current.Revision)
	return nil
}

// Landmark operations

func (s *service) ListLandmarks(ctx context.Context) ([]*Landmark, error) {
	landmarks, err := s.store.ListLandmarks(ctx)
	if err != nil {
		return nil, storeErr("list landmarks", err)
	}
	return landmarks, nil
}

func (s *service) GetLandmark(ctx context.Context, id uuid.UUID) (*Landmark, error) {
	landmark, err := s.store.GetLandmark(ctx, id)
	if err != nil {
		return nil, storeErr("get landmark", err)
	}
	return landmark, nil
}

func (s *service) CreateLandmark(ctx context.Context, req CreateLandmarkRequest) (*Landmark, error) {
	if err := requireText("name", req.Name); err != nil {
		return nil, err
	}
	if err := validateGeo(req.Lat, req.Lng); err != nil {
		return nil, err
	}

	now := s.now()
	landmark := &Landmark{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Lat:         req.Lat,
		Lng:         req.Lng,
		Description: req.Description,
		Category:    req.Category,
		Distance:    req.Distance,
		ImageURL:    req.ImageURL,
		KeyInfo:     req.KeyInfo,
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertLandmark(ctx, landmark); err != nil {
		return nil, storeErr("insert landmark", err)
	}

	s.emitListing(ctx, ListingCreated, "landmark", landmark.ID, landmark.Name, landmark.Revision)
	return landmark, nil
}

func (s *service) EditLandmark(ctx context.Context, id uuid.UUID, patch LandmarkPatch) (*Landmark, error) {
	current, err := s.GetLandmark(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkRevision(patch.Revision, current.Revision); err != nil {
		return nil, err
	}

	next := *current
	if err := patch.apply(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	if err := s.store.UpdateLandmark(ctx, &next, current.Revision); err != nil {
		return nil, storeErr("update landmark", err)
	}

	s.emitListing(ctx, ListingEdited, "landmark", next.ID, next.Name, next.Revision)
	return &next, nil
}

// DeleteLandmark removes the landmark permanently.
func (s *service) DeleteLandmark(ctx context.Context, id uuid.UUID) error {
	current, err := s.GetLandmark(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteLandmark(ctx, id); err != nil {
		return storeErr("delete landmark", err)
	}

	s.emitListing(ctx, ListingDeleted, "landmark", id, current.Name, current.Revision)
	return nil
}

func (s *service) emitListing(ctx context.Context, action ListingAction, kind string, id uuid.UUID, name string, revision int64) {
	change := ListingChange{Action: action, Kind: kind, ID: id, Name: name, Revision: revision}
	s.emit("listing_"+string(action), func(sink EventSink) error { return sink.ListingChanged(ctx, change) })
}

// placeDirectory exposes one place collection through the Repository interface.
type placeDirectory struct {
	svc  *service
	kind PlaceKind
}

func (d *placeDirectory) List(ctx context.Context) ([]*Place, error) {
	return d.svc.ListPlaces(ctx, d.kind)
}

func (d *placeDirectory) Get(ctx context.Context, id uuid.UUID) (*Place, error) {
	return d.svc.GetPlace(ctx, d.kind, id)
}

func (d *placeDirectory) Edit(ctx context.Context, id uuid.UUID, patch PlacePatch) (*Place, error) {
	return d.svc.EditPlace(ctx, d.kind, id, patch)
}

func (d *placeDirectory) Delete(ctx context.Context, id uuid.UUID) error {
	return d.svc.DeletePlace(ctx, d.kind, id)
}

// landmarkDirectory exposes landmarks through the Repository interface.
type landmarkDirectory struct {
	svc *service
}

func (d *landmarkDirectory) List(ctx context.Context) ([]*Landmark, error) {
	return d.svc.ListLandmarks(ctx)
}

func (d *landmarkDirectory) Get(ctx context.Context, id uuid.UUID) (*Landmark, error) {
	return d.svc.GetLandmark(ctx, id)
}

func (d *landmarkDirectory) Edit(ctx context.Context, id uuid.UUID, patch LandmarkPatch) (*Landmark, error) {
	return d.svc.EditLandmark(ctx, id, patch)
}

func (d *landmarkDirectory) Delete(ctx context.Context, id uuid.UUID) error {
	return d.svc.DeleteLandmark(ctx, id)
}
