package visitcontent

import (
	"context"
	"errors"
	"log/slog"
)

// LogEventSink writes the audit feed to a structured logger.
type LogEventSink struct {
	logger *slog.Logger
}

// NewLogEventSink returns a sink that logs every action at info level.
func NewLogEventSink(logger *slog.Logger) *LogEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventSink{logger: logger.With("component", "audit")}
}

func (l *LogEventSink) EventSubmitted(ctx context.Context, event *Event) error {
	l.logger.InfoContext(ctx, "event.submitted", "event_id", event.ID, "owner_id", event.OwnerID, "title", event.Title)
	return nil
}

func (l *LogEventSink) EventsSynced(ctx context.Context, source string, events []*Event) error {
	l.logger.InfoContext(ctx, "event.synced", "source", source, "count", len(events))
	return nil
}

func (l *LogEventSink) EventApproved(ctx context.Context, event *Event) error {
	l.logger.InfoContext(ctx, "event.approved", "event_id", event.ID, "revision", event.Revision)
	return nil
}

func (l *LogEventSink) EventRejected(ctx context.Context, event *Event) error {
	l.logger.InfoContext(ctx, "event.rejected", "event_id", event.ID, "title", event.Title,
		"owner_id", event.OwnerID, "origin", event.Origin)
	return nil
}

func (l *LogEventSink) EventEdited(ctx context.Context, event *Event) error {
	l.logger.InfoContext(ctx, "event.edited", "event_id", event.ID, "revision", event.Revision)
	return nil
}

func (l *LogEventSink) ListingChanged(ctx context.Context, change ListingChange) error {
	l.logger.InfoContext(ctx, "listing."+string(change.Action), "kind", change.Kind, "id", change.ID, "name", change.Name)
	return nil
}

// MultiEventSink fans the audit feed out to several sinks.
type MultiEventSink []EventSink

func (m MultiEventSink) each(fn func(EventSink) error) error {
	var errs []error
	for _, sink := range m {
		if err := fn(sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiEventSink) EventSubmitted(ctx context.Context, event *Event) error {
	return m.each(func(s EventSink) error { return s.EventSubmitted(ctx, event) })
}

func (m MultiEventSink) EventsSynced(ctx context.Context, source string, events []*Event) error {
	return m.each(func(s EventSink) error { return s.EventsSynced(ctx, source, events) })
}

func (m MultiEventSink) EventApproved(ctx context.Context, event *Event) error {
	return m.each(func(s EventSink) error { return s.EventApproved(ctx, event) })
}

func (m MultiEventSink) EventRejected(ctx context.Context, event *Event) error {
	return m.each(func(s EventSink) error { return s.EventRejected(ctx, event) })
}

func (m MultiEventSink) EventEdited(ctx context.Context, event *Event) error {
	return m.each(func(s EventSink) error { return s.EventEdited(ctx, event) })
}

func (m MultiEventSink) ListingChanged(ctx context.Context, change ListingChange) error {
	return m.each(func(s EventSink) error { return s.ListingChanged(ctx, change) })
}
