package visitcontent

import (
	"context"

	"github.com/google/uuid"
)

// Event moderation

func (s *service) ListPending(ctx context.Context) ([]*Event, error) {
	events, err := s.store.ListEvents(ctx, EventFilter{Status: EventStatusPending, Order: OrderByCreatedDesc})
	if err != nil {
		return nil, storeErr("list pending events", err)
	}
	return events, nil
}

func (s *service) ListPublished(ctx context.Context) ([]*Event, error) {
	events, err := s.store.ListEvents(ctx, EventFilter{Status: EventStatusPublished, Order: OrderByDate})
	if err != nil {
		return nil, storeErr("list published events", err)
	}
	return events, nil
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, &EventError{EventID: id, Op: "get", Err: storeErr("get event", err)}
	}
	return event, nil
}

// GetPublishedEvent hides pending events behind ErrNotFound.
func (s *service) GetPublishedEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsPublic() {
		return nil, &EventError{EventID: id, Op: "get", Err: ErrNotFound}
	}
	return event, nil
}

// ApproveEvent publishes a pending event. The status write is guarded in the
// store, so of two concurrent approvals only one succeeds and the other gets
// ErrInvalidTransition.
func (s *service) ApproveEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok, err := canTransition(current.Status, EventStatusPublished); !ok {
		return nil, &EventError{EventID: id, Op: "approve", Err: err}
	}

	event, err := s.store.TransitionEventStatus(ctx, id, EventStatusPending, EventStatusPublished)
	if err != nil {
		return nil, &EventError{EventID: id, Op: "approve", Err: storeErr("approve event", err)}
	}

	s.logger.Info("event approved", "event_id", id)
	s.emit("approved", func(sink EventSink) error { return sink.EventApproved(ctx, event) })
	return event, nil
}

// RejectEvent deletes the event. No rejected state is kept; the audit sink
// receives the record before it is gone.
func (s *service) RejectEvent(ctx context.Context, id uuid.UUID) error {
	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return &EventError{EventID: id, Op: "reject", Err: storeErr("delete event", err)}
	}

	s.logger.Info("event rejected", "event_id", id, "status", current.Status)
	s.emit("rejected", func(sink EventSink) error { return sink.EventRejected(ctx, current) })
	return nil
}

// EditEvent replaces the provided content fields. Status, ID and owner are
// never touched; published events stay editable.
func (s *service) EditEvent(ctx context.Context, id uuid.UUID, patch EventPatch) (*Event, error) {
	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if ok, err := canEdit(current.Status); !ok {
		return nil, &EventError{EventID: id, Op: "edit", Err: err}
	}
	if err := checkRevision(patch.Revision, current.Revision); err != nil {
		return nil, &EventError{EventID: id, Op: "edit", Err: err}
	}

	next := *current
	if err := patch.apply(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()

	if err := s.store.UpdateEvent(ctx, &next, current.Revision); err != nil {
		return nil, &EventError{EventID: id, Op: "edit", Err: storeErr("update event", err)}
	}

	s.emit("edited", func(sink EventSink) error { return sink.EventEdited(ctx, &next) })
	return &next, nil
}

// eventQueue exposes events through the Moderatable interface.
type eventQueue struct {
	svc *service
}

func (q *eventQueue) ListPending(ctx context.Context) ([]*Event, error) {
	return q.svc.ListPending(ctx)
}

func (q *eventQueue) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	return q.svc.GetEvent(ctx, id)
}

func (q *eventQueue) Approve(ctx context.Context, id uuid.UUID) (*Event, error) {
	return q.svc.ApproveEvent(ctx, id)
}

func (q *eventQueue) Reject(ctx context.Context, id uuid.UUID) error {
	return q.svc.RejectEvent(ctx, id)
}

func (q *eventQueue) Edit(ctx context.Context, id uuid.UUID, patch EventPatch) (*Event, error) {
	return q.svc.EditEvent(ctx, id, patch)
}
