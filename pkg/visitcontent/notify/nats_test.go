package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/visit-content/pkg/visitcontent"
	"github.com/tendant/visit-content/pkg/visitcontent/repo/memory"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestSink_PublishesEventMessages(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewSubscriber(url)
	require.NoError(t, err)
	defer sub.Close()
	ch, cancel, err := sub.Subscribe(TopicAll)
	require.NoError(t, err)
	defer cancel()

	sink, err := NewSink(url)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	event := &visitcontent.Event{ID: uuid.New(), Title: "Gold Hill Fair", Status: visitcontent.EventStatusPublished}

	require.NoError(t, sink.EventApproved(ctx, event))
	require.NoError(t, sink.Flush())

	msg := receive(t, ch)
	assert.Equal(t, TopicEventApproved, msg.Subject)

	var payload EventMessage
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	require.NotNil(t, payload.Event)
	assert.Equal(t, event.ID, payload.Event.ID)
	assert.Equal(t, "Gold Hill Fair", payload.Event.Title)
	assert.False(t, payload.At.IsZero())
}

func TestSink_SyncAndListingSubjects(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewSubscriber(url)
	require.NoError(t, err)
	defer sub.Close()
	ch, cancel, err := sub.Subscribe(TopicAll)
	require.NoError(t, err)
	defer cancel()

	sink, err := NewSink(url)
	require.NoError(t, err)
	defer sink.Close()
	ctx := context.Background()

	events := []*visitcontent.Event{{ID: uuid.New()}, {ID: uuid.New()}}
	require.NoError(t, sink.EventsSynced(ctx, "static", events))
	require.NoError(t, sink.Flush())

	msg := receive(t, ch)
	assert.Equal(t, TopicEventsSynced, msg.Subject)
	var synced SyncMessage
	require.NoError(t, json.Unmarshal(msg.Data, &synced))
	assert.Equal(t, "static", synced.Source)
	assert.Equal(t, 2, synced.Count)
	assert.Equal(t, []uuid.UUID{events[0].ID, events[1].ID}, synced.EventIDs)

	change := visitcontent.ListingChange{Action: visitcontent.ListingDeleted, Kind: "dining", ID: uuid.New(), Name: "The Mitre"}
	require.NoError(t, sink.ListingChanged(ctx, change))
	require.NoError(t, sink.Flush())

	msg = receive(t, ch)
	assert.Equal(t, "visit.listing.deleted", msg.Subject)
	var listing ListingMessage
	require.NoError(t, json.Unmarshal(msg.Data, &listing))
	assert.Equal(t, change.ID, listing.ID)
	assert.Equal(t, "dining", listing.Kind)
}

// TestSink_WiredIntoService drives the sink through a real service.
func TestSink_WiredIntoService(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewSubscriber(url)
	require.NoError(t, err)
	defer sub.Close()
	ch, cancel, err := sub.Subscribe("visit.event.*")
	require.NoError(t, err)
	defer cancel()

	sink, err := NewSink(url)
	require.NoError(t, err)
	defer sink.Close()

	svc, err := visitcontent.New(
		visitcontent.WithContentStore(memory.New()),
		visitcontent.WithEventSink(sink),
	)
	require.NoError(t, err)

	ctx := context.Background()
	operator := visitcontent.Identity{ID: "op-1"}
	queued, err := svc.QueueCandidates(ctx, "static", []visitcontent.CandidateEvent{
		{Title: "Gold Hill Fair", Date: "2024-07-07", Time: "10:00", Location: "Gold Hill"},
	}, operator)
	require.NoError(t, err)
	require.NoError(t, svc.RejectEvent(ctx, queued[0].ID))
	require.NoError(t, sink.Flush())

	assert.Equal(t, TopicEventsSynced, receive(t, ch).Subject)

	rejected := receive(t, ch)
	assert.Equal(t, TopicEventRejected, rejected.Subject)
	var payload EventMessage
	require.NoError(t, json.Unmarshal(rejected.Data, &payload))
	assert.Equal(t, "Gold Hill Fair", payload.Event.Title, "rejection carries the deleted record")
}

func TestSink_CancelledContext(t *testing.T) {
	url := startTestNATS(t)
	sink, err := NewSink(url)
	require.NoError(t, err)
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sink.EventSubmitted(ctx, &visitcontent.Event{ID: uuid.New()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSink_Unreachable(t *testing.T) {
	_, err := NewSink("nats://127.0.0.1:1", nats.Timeout(200*time.Millisecond))
	assert.Error(t, err)
}
