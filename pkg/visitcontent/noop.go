package visitcontent

import "context"

// NoopEventSink is a no-operation implementation of EventSink
// Useful when no audit feed is configured or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) EventSubmitted(ctx context.Context, event *Event) error { return nil }

func (n *NoopEventSink) EventsSynced(ctx context.Context, source string, events []*Event) error {
	return nil
}

func (n *NoopEventSink) EventApproved(ctx context.Context, event *Event) error { return nil }

func (n *NoopEventSink) EventRejected(ctx context.Context, event *Event) error { return nil }

func (n *NoopEventSink) EventEdited(ctx context.Context, event *Event) error { return nil }

func (n *NoopEventSink) ListingChanged(ctx context.Context, change ListingChange) error { return nil }
