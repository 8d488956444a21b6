package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/visit-content/pkg/visitcontent"
)

// Repository implements visitcontent.ContentStore using in-memory storage
type Repository struct {
	mu        sync.RWMutex
	events    map[uuid.UUID]*visitcontent.Event
	seq       map[uuid.UUID]uint64 // insertion order, breaks sort ties
	nextSeq   uint64
	places    map[visitcontent.PlaceKind]map[uuid.UUID]*visitcontent.Place
	landmarks map[uuid.UUID]*visitcontent.Landmark
}

// New creates a new in-memory content store
func New() *Repository {
	return &Repository{
		events: make(map[uuid.UUID]*visitcontent.Event),
		seq:    make(map[uuid.UUID]uint64),
		places: map[visitcontent.PlaceKind]map[uuid.UUID]*visitcontent.Place{
			visitcontent.PlaceKindDining:  make(map[uuid.UUID]*visitcontent.Place),
			visitcontent.PlaceKindLodging: make(map[uuid.UUID]*visitcontent.Place),
		},
		landmarks: make(map[uuid.UUID]*visitcontent.Landmark),
	}
}

var _ visitcontent.ContentStore = (*Repository)(nil)

// Event operations

func (r *Repository) ListEvents(ctx context.Context, filter visitcontent.EventFilter) ([]*visitcontent.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*visitcontent.Event, 0)
	for _, event := range r.events {
		if filter.Status != "" && event.Status != filter.Status {
			continue
		}
		result = append(result, copyEvent(event))
	}

	switch filter.Order {
	case visitcontent.OrderByCreatedDesc:
		sort.Slice(result, func(i, j int) bool {
			if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
				return result[i].CreatedAt.After(result[j].CreatedAt)
			}
			return r.seq[result[i].ID] > r.seq[result[j].ID]
		})
	default:
		sort.Slice(result, func(i, j int) bool {
			if result[i].Date != result[j].Date {
				return result[i].Date < result[j].Date
			}
			if result[i].Time != result[j].Time {
				return result[i].Time < result[j].Time
			}
			return r.seq[result[i].ID] < r.seq[result[j].ID]
		})
	}

	return result, nil
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*visitcontent.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, exists := r.events[id]
	if !exists {
		return nil, visitcontent.ErrNotFound
	}
	return copyEvent(event), nil
}

func (r *Repository) InsertEvents(ctx context.Context, events []*visitcontent.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check the whole batch first so a bad record leaves nothing behind
	seen := make(map[uuid.UUID]bool, len(events))
	for _, event := range events {
		if !event.Status.IsValid() {
			return fmt.Errorf("%w: %q", visitcontent.ErrInvalidStatus, event.Status)
		}
		if _, exists := r.events[event.ID]; exists || seen[event.ID] {
			return fmt.Errorf("event %s already exists", event.ID)
		}
		seen[event.ID] = true
	}
	for _, event := range events {
		r.nextSeq++
		r.events[event.ID] = copyEvent(event)
		r.seq[event.ID] = r.nextSeq
	}
	return nil
}

func (r *Repository) UpdateEvent(ctx context.Context, event *visitcontent.Event, expectedRevision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.events[event.ID]
	if !exists {
		return visitcontent.ErrNotFound
	}
	if stored.Revision != expectedRevision {
		return visitcontent.ErrRevisionConflict
	}

	// Status, ID, owner and origin stay as stored
	next := copyEvent(event)
	next.Status = stored.Status
	next.OwnerID = stored.OwnerID
	next.Origin = stored.Origin
	next.CreatedAt = stored.CreatedAt
	next.Revision = stored.Revision + 1
	r.events[event.ID] = next

	event.Revision = next.Revision
	return nil
}

func (r *Repository) TransitionEventStatus(ctx context.Context, id uuid.UUID, from, to visitcontent.EventStatus) (*visitcontent.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.events[id]
	if !exists {
		return nil, visitcontent.ErrNotFound
	}
	if stored.Status != from {
		return nil, fmt.Errorf("%w: event is %s, expected %s", visitcontent.ErrInvalidTransition, stored.Status, from)
	}

	stored.Status = to
	stored.Revision++
	stored.UpdatedAt = time.Now().UTC()
	return copyEvent(stored), nil
}

func (r *Repository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[id]; !exists {
		return visitcontent.ErrNotFound
	}
	delete(r.events, id)
	delete(r.seq, id)
	return nil
}

// Place operations

func (r *Repository) ListPlaces(ctx context.Context, kind visitcontent.PlaceKind) ([]*visitcontent.Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*visitcontent.Place, 0)
	for _, place := range r.places[kind] {
		placeCopy := *place
		result = append(result, &placeCopy)
	}

	// Sort by name ascending
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

func (r *Repository) GetPlace(ctx context.Context, kind visitcontent.PlaceKind, id uuid.UUID) (*visitcontent.Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	place, exists := r.places[kind][id]
	if !exists {
		return nil, visitcontent.ErrNotFound
	}
	placeCopy := *place
	return &placeCopy, nil
}

func (r *Repository) InsertPlace(ctx context.Context, place *visitcontent.Place) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	collection, ok := r.places[place.Kind]
	if !ok {
		return fmt.Errorf("unknown place kind %q", place.Kind)
	}
	if _, exists := collection[place.ID]; exists {
		return fmt.Errorf("place %s already exists", place.ID)
	}
	placeCopy := *place
	collection[place.ID] = &placeCopy
	return nil
}

func (r *Repository) UpdatePlace(ctx context.Context, place *visitcontent.Place, expectedRevision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.places[place.Kind][place.ID]
	if !exists {
		return visitcontent.ErrNotFound
	}
	if stored.Revision != expectedRevision {
		return visitcontent.ErrRevisionConflict
	}

	next := *place
	next.CreatedAt = stored.CreatedAt
	next.Revision = stored.Revision + 1
	r.places[place.Kind][place.ID] = &next

	place.Revision = next.Revision
	return nil
}

func (r *Repository) DeletePlace(ctx context.Context, kind visitcontent.PlaceKind, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.places[kind][id]; !exists {
		return visitcontent.ErrNotFound
	}
	delete(r.places[kind], id)
	return nil
}

// Landmark operations

func (r *Repository) ListLandmarks(ctx context.Context) ([]*visitcontent.Landmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*visitcontent.Landmark, 0, len(r.landmarks))
	for _, landmark := range r.landmarks {
		landmarkCopy := *landmark
		result = append(result, &landmarkCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result, nil
}

func (r *Repository) GetLandmark(ctx context.Context, id uuid.UUID) (*visitcontent.Landmark, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	landmark, exists := r.landmarks[id]
	if !exists {
		return nil, visitcontent.ErrNotFound
	}
	landmarkCopy := *landmark
	return &landmarkCopy, nil
}

func (r *Repository) InsertLandmark(ctx context.Context, landmark *visitcontent.Landmark) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.landmarks[landmark.ID]; exists {
		return fmt.Errorf("landmark %s already exists", landmark.ID)
	}
	landmarkCopy := *landmark
	r.landmarks[landmark.ID] = &landmarkCopy
	return nil
}

func (r *Repository) UpdateLandmark(ctx context.Context, landmark *visitcontent.Landmark, expectedRevision int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.landmarks[landmark.ID]
	if !exists {
		return visitcontent.ErrNotFound
	}
	if stored.Revision != expectedRevision {
		return visitcontent.ErrRevisionConflict
	}

	next := *landmark
	next.CreatedAt = stored.CreatedAt
	next.Revision = stored.Revision + 1
	r.landmarks[landmark.ID] = &next

	landmark.Revision = next.Revision
	return nil
}

func (r *Repository) DeleteLandmark(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.landmarks[id]; !exists {
		return visitcontent.ErrNotFound
	}
	delete(r.landmarks, id)
	return nil
}

// copyEvent returns a deep copy so callers cannot reach stored state
func copyEvent(event *visitcontent.Event) *visitcontent.Event {
	eventCopy := *event
	if event.Geo != nil {
		geo := *event.Geo
		eventCopy.Geo = &geo
	}
	return &eventCopy
}
