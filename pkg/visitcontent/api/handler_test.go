package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/visit-content/pkg/visitcontent"
	"github.com/tendant/visit-content/pkg/visitcontent/auth"
	"github.com/tendant/visit-content/pkg/visitcontent/ingest"
	"github.com/tendant/visit-content/pkg/visitcontent/repo/memory"
	memorystorage "github.com/tendant/visit-content/pkg/visitcontent/storage/memory"
)

type testEnv struct {
	router http.Handler
	svc    visitcontent.Service
	assets *memorystorage.Backend
	auth   *auth.Provider
	token  string
}

// setupHandlerTest wires the handler over in-memory stores and signs in an
// operator.
func setupHandlerTest(t *testing.T) *testEnv {
	t.Helper()

	assets := memorystorage.New()
	svc, err := visitcontent.New(
		visitcontent.WithContentStore(memory.New()),
		visitcontent.WithAssetStore(assets),
	)
	require.NoError(t, err)

	provider, err := auth.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	console := visitcontent.NewConsole(svc,
		visitcontent.WithAuthProvider(provider),
		visitcontent.WithIngester(ingest.NewStaticSource()),
	)

	token, err := provider.Issue(visitcontent.Identity{ID: "op-1", Email: "ops@example.org"})
	require.NoError(t, err)

	handler := NewHandler(svc, console, WithVerifier(provider.Verifier()))
	return &testEnv{router: handler.Routes(), svc: svc, assets: assets, auth: provider, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) admin(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return e.do(t, method, path, body, contentType, e.token)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	return decode[ErrorResponse](t, w).Error
}

// syncSeed queues the three seed events and returns them.
func (e *testEnv) syncSeed(t *testing.T) []*visitcontent.Event {
	t.Helper()
	w := e.admin(t, http.MethodPost, "/admin/events/sync", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[visitcontent.SyncReport](t, w)
	require.Len(t, report.Queued, 3)
	return report.Queued
}

type submission struct {
	fields    map[string]string
	imageName string
	imageType string
	image     []byte
}

func validForm() submission {
	return submission{
		fields: map[string]string{
			"title":       "Gold Hill Fair",
			"date":        "2024-07-07",
			"time":        "10:00",
			"location":    "Gold Hill",
			"description": "Stalls and music on the hill.",
			"website_url": "https://example.org/fair",
		},
		imageName: "poster.png",
		imageType: "image/png",
		image:     []byte("\x89PNG\r\n\x1a\nimage-bytes"),
	}
}

func (s submission) encode(t *testing.T, fileField string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range s.fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if s.image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, s.imageName))
		if s.imageType != "" {
			header.Set("Content-Type", s.imageType)
		}
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(s.image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestPublicEvents_EmptyList(t *testing.T) {
	env := setupHandlerTest(t)

	w := env.do(t, http.MethodGet, "/events", nil, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAdmin_RequiresToken(t *testing.T) {
	env := setupHandlerTest(t)

	for _, path := range []string{"/admin/events", "/admin/landmarks"} {
		w := env.do(t, http.MethodGet, path, nil, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "unauthorized", errorCode(t, w).Code)
	}

	w := env.do(t, http.MethodPost, "/admin/events/sync", nil, "", "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	events, err := env.svc.ListPending(t.Context())
	require.NoError(t, err)
	assert.Empty(t, events, "nothing may be queued without a session")
}

func TestSyncApproveFlow(t *testing.T) {
	env := setupHandlerTest(t)
	queued := env.syncSeed(t)

	w := env.admin(t, http.MethodGet, "/admin/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[visitcontent.TabView](t, w)
	require.Len(t, view.Events, 3)
	for _, ev := range view.Events {
		assert.Equal(t, visitcontent.EventStatusPending, ev.Status)
		assert.Equal(t, "op-1", ev.OwnerID)
	}

	target := queued[0]
	w = env.do(t, http.MethodGet, "/events/"+target.ID.String(), nil, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "pending events are not public")

	w = env.admin(t, http.MethodPost, "/admin/events/"+target.ID.String()+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view = decode[visitcontent.TabView](t, w)
	assert.Len(t, view.Events, 2)

	w = env.do(t, http.MethodGet, "/events", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	published := decode[[]*visitcontent.Event](t, w)
	require.Len(t, published, 1)
	assert.Equal(t, target.ID, published[0].ID)

	w = env.do(t, http.MethodGet, "/events/"+target.ID.String(), nil, "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.admin(t, http.MethodPost, "/admin/events/"+target.ID.String()+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", errorCode(t, w).Code)
}

func TestSync_UnknownSource(t *testing.T) {
	env := setupHandlerTest(t)

	w := env.admin(t, http.MethodPost, "/admin/events/sync?source=scraper", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown_source", errorCode(t, w).Code)
}

func TestRejectEvent(t *testing.T) {
	env := setupHandlerTest(t)
	queued := env.syncSeed(t)
	path := "/admin/events/" + queued[1].ID.String()

	w := env.admin(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	assert.Equal(t, "confirmation_required", errorCode(t, w).Code)

	w = env.admin(t, http.MethodDelete, path+"?confirm=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[visitcontent.TabView](t, w)
	assert.Len(t, view.Events, 2)

	w = env.admin(t, http.MethodDelete, path+"?confirm=true", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.admin(t, http.MethodDelete, "/admin/events/not-a-uuid?confirm=true", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditEvent(t *testing.T) {
	env := setupHandlerTest(t)
	target := env.syncSeed(t)[0]
	path := "/admin/events/" + target.ID.String()

	w := env.admin(t, http.MethodPatch, path, map[string]any{"title": "Renamed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.admin(t, http.MethodPatch, path, map[string]any{"location": "Park Walk"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.admin(t, http.MethodGet, "/admin/events/"+target.ID.String()+"/editor", nil)
	require.Equal(t, http.StatusOK, w.Code)
	form := decode[visitcontent.EditForm](t, w)
	require.NotNil(t, form.Event)
	assert.Equal(t, "Renamed", form.Event.Title)
	assert.Equal(t, "Park Walk", form.Event.Location)
	assert.Equal(t, target.Date, form.Event.Date)
	assert.Equal(t, target.Time, form.Event.Time)
	assert.Equal(t, target.Description, form.Event.Description)
	assert.Equal(t, visitcontent.EventStatusPending, form.Event.Status)

	w = env.admin(t, http.MethodPatch, path, map[string]any{"title": "Stale", "revision": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "revision_conflict", errorCode(t, w).Code)

	w = env.admin(t, http.MethodPatch, path, map[string]any{"date": "07/07/2024"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "date", errorCode(t, w).Field)

	w = env.do(t, http.MethodPatch, path, strings.NewReader("{"), "application/json", env.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", errorCode(t, w).Code)
}

func TestEditEvent_IgnoresIdentityAndStatusFields(t *testing.T) {
	env := setupHandlerTest(t)
	target := env.syncSeed(t)[0]
	id := target.ID.String()

	w := env.admin(t, http.MethodPost, "/admin/events/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	other := uuid.New()
	w = env.admin(t, http.MethodPatch, "/admin/events/"+id, map[string]any{
		"status":   "pending",
		"id":       other.String(),
		"owner_id": "x",
		"title":    "T",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/events/"+id, nil, "", "")
	require.Equal(t, http.StatusOK, w.Code, "event must stay published")
	event := decode[visitcontent.Event](t, w)
	assert.Equal(t, target.ID, event.ID)
	assert.Equal(t, visitcontent.EventStatusPublished, event.Status)
	assert.Equal(t, "op-1", event.OwnerID)
	assert.Equal(t, "T", event.Title)

	w = env.do(t, http.MethodGet, "/events/"+other.String(), nil, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	pending, err := env.svc.ListPending(t.Context())
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestAdmin_RejectsCookieSession(t *testing.T) {
	env := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/events/sync", nil)
	req.Header.Set("Origin", "https://attacker.example.com")
	req.AddCookie(&http.Cookie{Name: "jwt", Value: env.token})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	pending, err := env.svc.ListPending(t.Context())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmitEvent(t *testing.T) {
	env := setupHandlerTest(t)

	body, contentType := validForm().encode(t, "image")
	w := env.do(t, http.MethodPost, "/events/submissions", body, contentType, env.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	event := decode[visitcontent.Event](t, w)
	assert.Equal(t, visitcontent.EventStatusPending, event.Status)
	assert.Equal(t, "op-1", event.OwnerID)
	assert.Equal(t, "Gold Hill Fair", event.Title)
	assert.True(t, strings.HasSuffix(event.ImageURL, ".png"), event.ImageURL)
	assert.Len(t, env.assets.Keys(), 1)
}

func TestSubmitEvent_SniffsContentType(t *testing.T) {
	env := setupHandlerTest(t)

	form := validForm()
	form.imageType = ""
	body, contentType := form.encode(t, "image")
	w := env.do(t, http.MethodPost, "/events/submissions", body, contentType, env.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestSubmitEvent_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*submission)
		field  string
	}{
		{"missing title", func(s *submission) { delete(s.fields, "title") }, "title"},
		{"blank location", func(s *submission) { s.fields["location"] = "   " }, "location"},
		{"missing image", func(s *submission) { s.image = nil }, "image"},
		{"bad date", func(s *submission) { s.fields["date"] = "tomorrow" }, "date"},
		{"not an image", func(s *submission) { s.imageType = "application/pdf"; s.imageName = "a.pdf" }, "image"},
		{"image over 5 MiB", func(s *submission) { s.image = bytes.Repeat([]byte{0x1}, 6<<20) }, "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupHandlerTest(t)
			form := validForm()
			tt.mutate(&form)

			body, contentType := form.encode(t, "image")
			w := env.do(t, http.MethodPost, "/events/submissions", body, contentType, env.token)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
			assert.Equal(t, tt.field, errorCode(t, w).Field)

			assert.Empty(t, env.assets.Keys(), "no upload may happen")
			pending, err := env.svc.ListPending(t.Context())
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestSubmitEvent_RequiresToken(t *testing.T) {
	env := setupHandlerTest(t)

	body, contentType := validForm().encode(t, "image")
	w := env.do(t, http.MethodPost, "/events/submissions", body, contentType, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.assets.Keys())
}

func TestPlaces(t *testing.T) {
	env := setupHandlerTest(t)

	w := env.admin(t, http.MethodPost, "/admin/places/dining", map[string]any{
		"name":     "The Mitre",
		"category": "Pub",
		"feature":  "Views over Blackmore Vale",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[visitcontent.TabView](t, w)
	require.Len(t, view.Places, 1)
	place := view.Places[0]
	assert.Equal(t, visitcontent.PlaceKindDining, place.Kind)

	w = env.admin(t, http.MethodPost, "/admin/places/dining", map[string]any{"name": "Abbey Tea Rooms"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/places/dining", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	places := decode[[]*visitcontent.Place](t, w)
	require.Len(t, places, 2)
	assert.Equal(t, "Abbey Tea Rooms", places[0].Name)

	w = env.do(t, http.MethodGet, "/places/lodging", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.admin(t, http.MethodPatch, "/admin/places/dining/"+place.ID.String(), map[string]any{"category": "Inn"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.admin(t, http.MethodDelete, "/admin/places/dining/"+place.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.admin(t, http.MethodGet, "/admin/dining/"+place.ID.String()+"/editor", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "place delete is permanent")

	w = env.do(t, http.MethodGet, "/places/spa", nil, "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "kind", errorCode(t, w).Field)
}

func TestLandmarks(t *testing.T) {
	env := setupHandlerTest(t)

	w := env.admin(t, http.MethodPost, "/admin/landmarks", map[string]any{
		"name":        "Gold Hill",
		"lat":         51.0046,
		"lng":         -2.1983,
		"description": "Steep cobbled street.",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	view := decode[visitcontent.TabView](t, w)
	require.Len(t, view.Landmarks, 1)
	id := view.Landmarks[0].ID.String()

	w = env.do(t, http.MethodGet, "/landmarks/"+id, nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.admin(t, http.MethodPatch, "/admin/landmarks/"+id, map[string]any{"lat": 120})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.admin(t, http.MethodPatch, "/admin/landmarks/"+id, map[string]any{"key_info": "Free"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.admin(t, http.MethodDelete, "/admin/landmarks/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/landmarks", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestUploadAsset(t *testing.T) {
	env := setupHandlerTest(t)

	body, contentType := validForm().encode(t, "file")
	w := env.do(t, http.MethodPost, "/admin/assets", body, contentType, env.token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[UploadResponse](t, w)
	assert.NotEmpty(t, resp.URL)

	keys := env.assets.Keys()
	require.Len(t, keys, 1)
	obj, ok := env.assets.Get(keys[0])
	require.True(t, ok)
	assert.Equal(t, visitcontent.AssetCacheControl, obj.CacheControl)
}

func TestLoadTab_Unknown(t *testing.T) {
	env := setupHandlerTest(t)

	w := env.admin(t, http.MethodGet, "/admin/bookings", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "tab", errorCode(t, w).Field)
}

func TestSignOut(t *testing.T) {
	env := setupHandlerTest(t)

	w := env.admin(t, http.MethodPost, "/auth/signout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.admin(t, http.MethodGet, "/admin/events", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSchedulerRoutes(t *testing.T) {
	env := setupHandlerTest(t)

	provider, err := auth.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	svc := env.svc
	console := visitcontent.NewConsole(svc,
		visitcontent.WithAuthProvider(provider),
		visitcontent.WithIngester(ingest.NewStaticSource()),
	)
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-KEY") != "cron-key" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	router := NewHandler(svc, console).SchedulerRoutes(guard, auth.WithIdentity)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set("X-API-KEY", "cron-key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	pending, err := svc.ListPending(t.Context())
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for _, ev := range pending {
		assert.Equal(t, SchedulerIdentity.ID, ev.OwnerID)
	}
}
