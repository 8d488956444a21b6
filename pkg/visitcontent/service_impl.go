package visitcontent

import (
	"fmt"
	"log/slog"
	"time"
)

// MaxImageSize is the largest image accepted for upload (5 MiB).
const MaxImageSize int64 = 5 << 20

// service implements the Service interface
type service struct {
	store        ContentStore
	assets       AssetStore
	eventSink    EventSink
	logger       *slog.Logger
	now          func() time.Time
	maxImageSize int64
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithContentStore sets the content store for the service
func WithContentStore(store ContentStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithAssetStore sets the asset store used for images
func WithAssetStore(assets AssetStore) Option {
	return func(s *service) {
		s.assets = assets
	}
}

// WithEventSink sets the audit sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithMaxImageSize overrides the upload size limit
func WithMaxImageSize(n int64) Option {
	return func(s *service) {
		s.maxImageSize = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		eventSink:    NewNoopEventSink(),
		logger:       slog.Default(),
		now:          func() time.Time { return time.Now().UTC() },
		maxImageSize: MaxImageSize,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if s.maxImageSize <= 0 {
		return nil, fmt.Errorf("max image size must be positive")
	}

	return s, nil
}

func (s *service) Events() Moderatable[Event, EventPatch] {
	return &eventQueue{svc: s}
}

func (s *service) Places(kind PlaceKind) Repository[Place, PlacePatch] {
	return &placeDirectory{svc: s, kind: kind}
}

func (s *service) Landmarks() Repository[Landmark, LandmarkPatch] {
	return &landmarkDirectory{svc: s}
}

// emit runs an audit callback. Sink failures are logged, never returned.
func (s *service) emit(action string, fn func(EventSink) error) {
	if s.eventSink == nil {
		return
	}
	if err := fn(s.eventSink); err != nil {
		s.logger.Warn("audit sink failed", "action", action, "err", err)
	}
}
