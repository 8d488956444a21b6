package visitcontent_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

var operator = visitcontent.Identity{ID: "op-1", Email: "ops@example.org"}

// staticAuth reports a fixed identity.
type staticAuth struct {
	identity  *visitcontent.Identity
	signedOut bool
}

func (a *staticAuth) Current(context.Context) (*visitcontent.Identity, bool) {
	if a.identity == nil || a.signedOut {
		return nil, false
	}
	return a.identity, true
}

func (a *staticAuth) OnChange(func(*visitcontent.Identity)) func() { return func() {} }

func (a *staticAuth) SignOut(context.Context) error {
	a.signedOut = true
	return nil
}

// stubIngester returns canned candidates or an error.
type stubIngester struct {
	name  string
	raws  []visitcontent.RawCandidate
	err   error
	block bool
}

func (s *stubIngester) Name() string { return s.name }

func (s *stubIngester) Sync(ctx context.Context) ([]visitcontent.RawCandidate, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.raws, s.err
}

func seedCandidates(source string) []visitcontent.RawCandidate {
	return []visitcontent.RawCandidate{
		visitcontent.NewEventCandidate(source, map[string]any{
			"id": "1", "title": "Open Air Theatre at the Abbey", "date": "2024-08-15", "time": "19:00",
			"location": "Shaftesbury Abbey", "description": "Shakespeare in the abbey gardens",
		}),
		visitcontent.NewEventCandidate(source, map[string]any{
			"id": "2", "title": "Gold Hill Fair", "date": "2024-07-07", "time": "10:00",
			"location": "Gold Hill", "description": "Annual fair",
		}),
		visitcontent.NewEventCandidate(source, map[string]any{
			"id": "3", "title": "Shaftesbury Food Festival", "date": "2024-05-12", "time": "09:00",
			"location": "High Street", "description": "Local producers",
		}),
	}
}

func newTestConsole(t *testing.T, opts ...visitcontent.ConsoleOption) (*visitcontent.Console, visitcontent.Service, *visitcontent.Session) {
	t.Helper()
	svc, _ := newTestService(t)
	base := []visitcontent.ConsoleOption{
		visitcontent.WithAuthProvider(&staticAuth{identity: &operator}),
		visitcontent.WithIngester(&stubIngester{name: "static", raws: seedCandidates("static")}),
	}
	console := visitcontent.NewConsole(svc, append(base, opts...)...)
	sess, err := console.Open(context.Background())
	require.NoError(t, err)
	return console, svc, sess
}

func TestConsoleOpen(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	t.Run("no provider", func(t *testing.T) {
		_, err := visitcontent.NewConsole(svc).Open(ctx)
		assert.ErrorIs(t, err, visitcontent.ErrAccessRestricted)
	})

	t.Run("signed out", func(t *testing.T) {
		console := visitcontent.NewConsole(svc, visitcontent.WithAuthProvider(&staticAuth{}))
		_, err := console.Open(ctx)
		assert.ErrorIs(t, err, visitcontent.ErrAccessRestricted)
	})

	t.Run("signed in", func(t *testing.T) {
		auth := &staticAuth{identity: &operator}
		console := visitcontent.NewConsole(svc, visitcontent.WithAuthProvider(auth))
		sess, err := console.Open(ctx)
		require.NoError(t, err)
		assert.Equal(t, operator, sess.Identity)

		require.NoError(t, console.SignOut(ctx, sess))
		assert.True(t, auth.signedOut)
		_, err = console.Open(ctx)
		assert.ErrorIs(t, err, visitcontent.ErrAccessRestricted)
	})
}

func TestConsoleRequiresSession(t *testing.T) {
	ctx := context.Background()
	console, _, _ := newTestConsole(t)
	id := uuid.New()

	actions := map[string]func(*visitcontent.Session) error{
		"load": func(s *visitcontent.Session) error {
			_, err := console.Load(ctx, s, visitcontent.TabEvents)
			return err
		},
		"approve": func(s *visitcontent.Session) error {
			_, err := console.Approve(ctx, s, id)
			return err
		},
		"reject": func(s *visitcontent.Session) error {
			_, err := console.Reject(ctx, s, id, true)
			return err
		},
		"sync": func(s *visitcontent.Session) error {
			_, err := console.Sync(ctx, s, "")
			return err
		},
		"upload": func(s *visitcontent.Session) error {
			_, err := console.UploadAsset(ctx, s, pngFile("x"))
			return err
		},
	}
	for name, action := range actions {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, action(nil), visitcontent.ErrAccessRestricted)
			assert.ErrorIs(t, action(&visitcontent.Session{}), visitcontent.ErrAccessRestricted)
		})
	}
}

func TestConsoleModeration(t *testing.T) {
	ctx := context.Background()
	console, svc, sess := newTestConsole(t)

	first := submitPending(t, svc)
	second := submitPending(t, svc)

	view, err := console.Load(ctx, sess, visitcontent.TabEvents)
	require.NoError(t, err)
	assert.Len(t, view.Events, 2)

	form, err := console.Editor(ctx, sess, visitcontent.TabEvents, first.ID)
	require.NoError(t, err)
	require.NotNil(t, form.Event)
	assert.Equal(t, first.ID, form.Event.ID)

	view, err = console.Approve(ctx, sess, first.ID)
	require.NoError(t, err)
	require.Len(t, view.Events, 1)
	assert.Equal(t, second.ID, view.Events[0].ID)

	t.Run("reject needs confirmation", func(t *testing.T) {
		_, err := console.Reject(ctx, sess, second.ID, false)
		assert.ErrorIs(t, err, visitcontent.ErrConfirmationRequired)

		_, err = svc.GetEvent(ctx, second.ID)
		require.NoError(t, err, "unconfirmed reject must not delete")
	})

	t.Run("confirmed reject deletes", func(t *testing.T) {
		view, err := console.Reject(ctx, sess, second.ID, true)
		require.NoError(t, err)
		assert.Empty(t, view.Events)

		_, err = svc.GetEvent(ctx, second.ID)
		assert.ErrorIs(t, err, visitcontent.ErrNotFound)
	})

	t.Run("save edits a published event", func(t *testing.T) {
		title := "Gold Hill Fair (rescheduled)"
		_, err := console.SaveEvent(ctx, sess, first.ID, visitcontent.EventPatch{Title: &title})
		require.NoError(t, err)

		got, err := svc.GetPublishedEvent(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)
	})
}

func TestConsoleDirectoryTabs(t *testing.T) {
	ctx := context.Background()
	console, _, sess := newTestConsole(t)

	view, err := console.CreatePlace(ctx, sess, visitcontent.CreatePlaceRequest{
		Kind: visitcontent.PlaceKindLodging, Name: "The Grosvenor", Category: "Hotel",
	})
	require.NoError(t, err)
	assert.Equal(t, visitcontent.TabLodging, view.Tab)
	require.Len(t, view.Places, 1)
	place := view.Places[0]

	dining, err := console.Load(ctx, sess, visitcontent.TabDining)
	require.NoError(t, err)
	assert.Empty(t, dining.Places)

	feature := "Coaching inn"
	view, err = console.SavePlace(ctx, sess, visitcontent.PlaceKindLodging, place.ID, visitcontent.PlacePatch{Feature: &feature})
	require.NoError(t, err)
	assert.Equal(t, feature, view.Places[0].Feature)

	form, err := console.Editor(ctx, sess, visitcontent.TabLodging, place.ID)
	require.NoError(t, err)
	require.NotNil(t, form.Place)

	view, err = console.DeletePlace(ctx, sess, visitcontent.PlaceKindLodging, place.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Places)

	view, err = console.CreateLandmark(ctx, sess, visitcontent.CreateLandmarkRequest{Name: "Gold Hill", Lat: 51.005, Lng: -2.198})
	require.NoError(t, err)
	require.Len(t, view.Landmarks, 1)
	landmark := view.Landmarks[0]

	distance := "0.2 miles"
	view, err = console.SaveLandmark(ctx, sess, landmark.ID, visitcontent.LandmarkPatch{Distance: &distance})
	require.NoError(t, err)
	assert.Equal(t, distance, view.Landmarks[0].Distance)

	view, err = console.DeleteLandmark(ctx, sess, landmark.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Landmarks)

	_, err = console.Load(ctx, sess, visitcontent.Tab("shops"))
	var verr *visitcontent.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "tab", verr.Field)
}

func TestConsoleUploadAsset(t *testing.T) {
	console, _, sess := newTestConsole(t)
	url, err := console.UploadAsset(context.Background(), sess, pngFile("image"))
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func TestConsoleSync(t *testing.T) {
	ctx := context.Background()

	t.Run("queues the seed candidates", func(t *testing.T) {
		console, svc, sess := newTestConsole(t)

		report, err := console.Sync(ctx, sess, "")
		require.NoError(t, err)
		assert.Equal(t, "static", report.Source)
		assert.Equal(t, 3, report.Fetched)
		assert.Len(t, report.Queued, 3)
		assert.Empty(t, report.Rejected)

		pending, err := svc.ListPending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		for _, e := range pending {
			assert.Equal(t, operator.ID, e.OwnerID)
			assert.Equal(t, "static", e.Origin)
		}
	})

	t.Run("malformed candidates are skipped", func(t *testing.T) {
		raws := append(seedCandidates("feed"), visitcontent.NewEventCandidate("feed", map[string]any{
			"id": "bad-1", "title": "No date", "time": "10:00", "location": "Somewhere",
		}))
		console, svc, sess := newTestConsole(t, visitcontent.WithIngester(&stubIngester{name: "feed", raws: raws}))

		report, err := console.Sync(ctx, sess, "feed")
		require.NoError(t, err)
		assert.Equal(t, 4, report.Fetched)
		assert.Len(t, report.Queued, 3)
		require.Len(t, report.Rejected, 1)
		assert.Equal(t, 3, report.Rejected[0].Index)
		assert.Equal(t, "bad-1", report.Rejected[0].ExternalID)
		assert.Contains(t, report.Rejected[0].Reason, "date")

		pending, err := svc.ListPending(ctx)
		require.NoError(t, err)
		assert.Len(t, pending, 3)
	})

	t.Run("fetch failure queues nothing", func(t *testing.T) {
		console, svc, sess := newTestConsole(t, visitcontent.WithIngester(&stubIngester{name: "down", err: errors.New("503 from feed")}))

		_, err := console.Sync(ctx, sess, "down")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503 from feed")

		pending, err := svc.ListPending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("unknown source", func(t *testing.T) {
		console, _, sess := newTestConsole(t)
		_, err := console.Sync(ctx, sess, "nope")
		assert.ErrorIs(t, err, visitcontent.ErrUnknownSource)
		assert.Equal(t, []string{"static"}, console.Sources())
	})

	t.Run("slow source times out", func(t *testing.T) {
		console, _, sess := newTestConsole(t,
			visitcontent.WithIngester(&stubIngester{name: "slow", block: true}),
			visitcontent.WithActionTimeout(20*time.Millisecond),
		)

		_, err := console.Sync(ctx, sess, "slow")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "try again")
		assert.True(t, visitcontent.IsRetryable(err))
	})
}
