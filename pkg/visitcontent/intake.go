package visitcontent

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/google/uuid"
)

// Submit validates a visitor submission, uploads its image and queues the
// event as pending. Nothing reaches the asset or content store when a field
// fails validation.
//
// Upload and insert are independent steps: if the insert fails, the uploaded
// image stays behind and its URL is logged.
func (s *service) Submit(ctx context.Context, req SubmitEventRequest) (*Event, error) {
	if req.Owner.IsZero() {
		return nil, ErrAccessRestricted
	}
	if err := validateSubmission(req); err != nil {
		return nil, err
	}
	if err := s.checkImage(req.Image); err != nil {
		return nil, err
	}

	imageURL, err := s.upload(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	now := s.now()
	event := &Event{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(req.Title),
		Date:        req.Date,
		Time:        req.Time,
		Location:    strings.TrimSpace(req.Location),
		Description: strings.TrimSpace(req.Description),
		ImageURL:    imageURL,
		WebsiteURL:  strings.TrimSpace(req.WebsiteURL),
		Status:      EventStatusPending,
		OwnerID:     req.Owner.ID,
		Origin:      OriginSubmission,
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.InsertEvents(ctx, []*Event{event}); err != nil {
		s.logger.Warn("event insert failed after upload, asset left orphaned",
			"image_url", imageURL, "owner_id", req.Owner.ID, "err", err)
		return nil, storeErr("insert event", err)
	}

	s.logger.Info("event submitted", "event_id", event.ID, "owner_id", event.OwnerID)
	s.emit("submitted", func(sink EventSink) error { return sink.EventSubmitted(ctx, event) })

	return event, nil
}

// StoreAsset uploads an image for the operator edit forms.
func (s *service) StoreAsset(ctx context.Context, file AssetFile) (string, error) {
	if file.Body == nil || file.Size <= 0 {
		return "", &ValidationError{Field: "image", Reason: "is required"}
	}
	if err := s.checkImage(file); err != nil {
		return "", err
	}
	return s.upload(ctx, file)
}

// QueueCandidates turns decoded candidates into pending events owned by the
// operator who ran the sync. All of them are inserted in one call, so either
// every candidate is queued or none is.
func (s *service) QueueCandidates(ctx context.Context, source string, candidates []CandidateEvent, operator Identity) ([]*Event, error) {
	if operator.IsZero() {
		return nil, ErrAccessRestricted
	}
	if len(candidates) == 0 {
		return []*Event{}, nil
	}

	now := s.now()
	events := make([]*Event, 0, len(candidates))
	for _, c := range candidates {
		// The external id is dropped; the store gets a fresh one.
		e := &Event{
			ID:          uuid.New(),
			Title:       c.Title,
			Date:        c.Date,
			Time:        c.Time,
			Location:    c.Location,
			Description: c.Description,
			ImageURL:    c.ImageURL,
			WebsiteURL:  c.WebsiteURL,
			Status:      EventStatusPending,
			OwnerID:     operator.ID,
			Origin:      source,
			Revision:    1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if c.Geo != nil {
			g := *c.Geo
			e.Geo = &g
		}
		events = append(events, e)
	}

	if err := s.store.InsertEvents(ctx, events); err != nil {
		return nil, storeErr("insert synced events", err)
	}

	s.logger.Info("candidates queued", "source", source, "count", len(events), "operator_id", operator.ID)
	s.emit("synced", func(sink EventSink) error { return sink.EventsSynced(ctx, source, events) })

	return events, nil
}

func validateSubmission(req SubmitEventRequest) error {
	fields := []struct {
		name  string
		value string
	}{
		{"title", req.Title},
		{"date", req.Date},
		{"time", req.Time},
		{"location", req.Location},
		{"description", req.Description},
	}
	for _, f := range fields {
		if err := requireText(f.name, f.value); err != nil {
			return err
		}
	}
	if req.Image.Body == nil || req.Image.Size <= 0 {
		return &ValidationError{Field: "image", Reason: "is required"}
	}
	if err := validateDate(req.Date); err != nil {
		return err
	}
	return validateTime(req.Time)
}

// checkImage enforces the size and type limits before any upload.
func (s *service) checkImage(file AssetFile) error {
	if file.Size > s.maxImageSize {
		return &ValidationError{Field: "image", Reason: fmt.Sprintf("exceeds the %d byte limit", s.maxImageSize)}
	}
	mediaType, _, err := mime.ParseMediaType(file.ContentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return &ValidationError{Field: "image", Reason: "must be an image", Err: err}
	}
	return nil
}

func (s *service) upload(ctx context.Context, file AssetFile) (string, error) {
	if s.assets == nil {
		return "", &UploadError{Backend: "none", Key: file.Name, Err: errors.New("no asset store configured")}
	}
	url, err := s.assets.Store(ctx, file)
	if err != nil {
		var uploadErr *UploadError
		if errors.As(err, &uploadErr) {
			return "", err
		}
		return "", &UploadError{Backend: "asset", Key: file.Name, Err: err}
	}
	return url, nil
}
