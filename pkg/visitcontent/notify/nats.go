// Package notify publishes the moderation audit feed to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// Subjects carried on the feed.
const (
	TopicEventSubmitted = "visit.event.submitted"
	TopicEventsSynced   = "visit.event.synced"
	TopicEventApproved  = "visit.event.approved"
	TopicEventRejected  = "visit.event.rejected"
	TopicEventEdited    = "visit.event.edited"

	// TopicListingPrefix is followed by the listing action.
	TopicListingPrefix = "visit.listing."

	// TopicAll matches every subject above.
	TopicAll = "visit.>"
)

// EventMessage is the payload for single-event subjects.
type EventMessage struct {
	Event *visitcontent.Event `json:"event"`
	At    time.Time           `json:"at"`
}

// SyncMessage is the payload for TopicEventsSynced.
type SyncMessage struct {
	Source   string      `json:"source"`
	Count    int         `json:"count"`
	EventIDs []uuid.UUID `json:"event_ids"`
	At       time.Time   `json:"at"`
}

// ListingMessage is the payload for visit.listing.* subjects.
type ListingMessage struct {
	visitcontent.ListingChange
	At time.Time `json:"at"`
}

// Sink publishes JSON-encoded audit messages to NATS subjects.
type Sink struct {
	conn *nats.Conn
	now  func() time.Time
}

var _ visitcontent.EventSink = (*Sink)(nil)

// NewSink connects to url with automatic reconnection.
func NewSink(url string, opts ...nats.Option) (*Sink, error) {
	defaults := []nats.Option{
		nats.Name("visit-content"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Sink{conn: nc, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Publish sends one JSON message.
func (s *Sink) Publish(ctx context.Context, topic string, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling %s message: %w", topic, err)
	}
	if err := s.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

func (s *Sink) EventSubmitted(ctx context.Context, event *visitcontent.Event) error {
	return s.Publish(ctx, TopicEventSubmitted, EventMessage{Event: event, At: s.now()})
}

func (s *Sink) EventsSynced(ctx context.Context, source string, events []*visitcontent.Event) error {
	ids := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return s.Publish(ctx, TopicEventsSynced, SyncMessage{Source: source, Count: len(events), EventIDs: ids, At: s.now()})
}

func (s *Sink) EventApproved(ctx context.Context, event *visitcontent.Event) error {
	return s.Publish(ctx, TopicEventApproved, EventMessage{Event: event, At: s.now()})
}

func (s *Sink) EventRejected(ctx context.Context, event *visitcontent.Event) error {
	return s.Publish(ctx, TopicEventRejected, EventMessage{Event: event, At: s.now()})
}

func (s *Sink) EventEdited(ctx context.Context, event *visitcontent.Event) error {
	return s.Publish(ctx, TopicEventEdited, EventMessage{Event: event, At: s.now()})
}

func (s *Sink) ListingChanged(ctx context.Context, change visitcontent.ListingChange) error {
	return s.Publish(ctx, TopicListingPrefix+string(change.Action), ListingMessage{ListingChange: change, At: s.now()})
}

// Flush waits until the server has processed everything published so far.
func (s *Sink) Flush() error {
	return s.conn.Flush()
}

// Close drains pending messages and closes the connection.
func (s *Sink) Close() error {
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
		return err
	}
	return nil
}

// Message is one delivery from a subscription.
type Message struct {
	Subject string
	Data    []byte
}

// Subscriber follows the audit feed.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber connects to url with automatic reconnection.
func NewSubscriber(url string, opts ...nats.Option) (*Subscriber, error) {
	defaults := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Subscriber{conn: nc}, nil
}

// Subscribe delivers messages on topic (wildcards allowed) until cancel is
// called. Messages are dropped when the channel is full.
func (s *Subscriber) Subscribe(topic string) (<-chan Message, func(), error) {
	ch := make(chan Message, 64)

	var (
		mu     sync.Mutex
		closed bool
		once   sync.Once
	)

	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- Message{Subject: msg.Subject, Data: msg.Data}:
		default:
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
	return ch, cancel, nil
}

func (s *Subscriber) Close() error {
	s.conn.Close()
	return nil
}
