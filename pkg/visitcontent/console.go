package visitcontent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultActionTimeout bounds every console action.
const DefaultActionTimeout = 15 * time.Second

// Tab is one of the console's entity views.
type Tab string

const (
	TabEvents    Tab = "events"
	TabDining    Tab = "dining"
	TabLodging   Tab = "lodging"
	TabLandmarks Tab = "landmarks"
)

// ParseTab validates a tab name.
func ParseTab(name string) (Tab, error) {
	switch t := Tab(name); t {
	case TabEvents, TabDining, TabLodging, TabLandmarks:
		return t, nil
	default:
		return "", &ValidationError{Field: "tab", Reason: fmt.Sprintf("unknown tab %q", name)}
	}
}

// PlaceKind returns the place collection behind a dining or lodging tab.
func (t Tab) PlaceKind() (PlaceKind, bool) {
	switch t {
	case TabDining:
		return PlaceKindDining, true
	case TabLodging:
		return PlaceKindLodging, true
	default:
		return "", false
	}
}

// Session carries the signed-in operator into every console action.
type Session struct {
	Identity Identity  `json:"identity"`
	OpenedAt time.Time `json:"opened_at"`
}

// TabView is the list shown for a tab. Only the field matching Tab is set.
type TabView struct {
	Tab       Tab         `json:"tab"`
	Events    []*Event    `json:"events,omitempty"`
	Places    []*Place    `json:"places,omitempty"`
	Landmarks []*Landmark `json:"landmarks,omitempty"`
}

// EditForm is a record loaded for editing.
type EditForm struct {
	Tab      Tab       `json:"tab"`
	Event    *Event    `json:"event,omitempty"`
	Place    *Place    `json:"place,omitempty"`
	Landmark *Landmark `json:"landmark,omitempty"`
}

// SyncReport summarizes one ingestion run.
type SyncReport struct {
	Source   string               `json:"source"`
	Fetched  int                  `json:"fetched"`
	Queued   []*Event             `json:"queued"`
	Rejected []CandidateRejection `json:"rejected,omitempty"`
}

// CandidateRejection explains why one candidate was skipped.
type CandidateRejection struct {
	Index      int    `json:"index"`
	ExternalID string `json:"external_id,omitempty"`
	Reason     string `json:"reason"`
}

// Console coordinates the operator's review work across the four tabs.
// It holds no identity of its own; each action receives a Session.
type Console struct {
	svc           Service
	auth          AuthProvider
	ingesters     map[string]Ingester
	defaultSource string
	timeout       time.Duration
	logger        *slog.Logger
}

// ConsoleOption configures a Console
type ConsoleOption func(*Console)

// WithAuthProvider sets the identity provider used by Open and SignOut
func WithAuthProvider(auth AuthProvider) ConsoleOption {
	return func(c *Console) {
		c.auth = auth
	}
}

// WithIngester registers an ingestion source. The first one registered is
// used when Sync is called without a source name.
func WithIngester(ing Ingester) ConsoleOption {
	return func(c *Console) {
		if c.defaultSource == "" {
			c.defaultSource = ing.Name()
		}
		c.ingesters[ing.Name()] = ing
	}
}

// WithActionTimeout overrides DefaultActionTimeout. Zero disables it.
func WithActionTimeout(d time.Duration) ConsoleOption {
	return func(c *Console) {
		c.timeout = d
	}
}

// WithConsoleLogger sets the console logger
func WithConsoleLogger(logger *slog.Logger) ConsoleOption {
	return func(c *Console) {
		c.logger = logger
	}
}

// NewConsole creates an operator console over svc.
func NewConsole(svc Service, opts ...ConsoleOption) *Console {
	c := &Console{
		svc:       svc,
		ingesters: make(map[string]Ingester),
		timeout:   DefaultActionTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts a session for the identity bound to ctx.
func (c *Console) Open(ctx context.Context) (*Session, error) {
	if c.auth == nil {
		return nil, ErrAccessRestricted
	}
	identity, ok := c.auth.Current(ctx)
	if !ok || identity == nil || identity.IsZero() {
		return nil, ErrAccessRestricted
	}
	return &Session{Identity: *identity, OpenedAt: time.Now().UTC()}, nil
}

// SignOut ends the provider session behind ctx.
func (c *Console) SignOut(ctx context.Context, sess *Session) error {
	if err := authorize(sess); err != nil {
		return err
	}
	if c.auth == nil {
		return nil
	}
	return c.auth.SignOut(ctx)
}

// Sources lists the registered ingestion sources.
func (c *Console) Sources() []string {
	names := make([]string, 0, len(c.ingesters))
	for name := range c.ingesters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load fetches the list for a tab. Nothing is cached between calls.
func (c *Console) Load(ctx context.Context, sess *Session, tab Tab) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	view, err := c.load(ctx, tab)
	return view, c.finish("load "+string(tab), err)
}

// Editor loads one record for the edit form.
func (c *Console) Editor(ctx context.Context, sess *Session, tab Tab, id uuid.UUID) (*EditForm, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	form := &EditForm{Tab: tab}
	switch tab {
	case TabEvents:
		form.Event, err = c.svc.Events().Get(ctx, id)
	case TabLandmarks:
		form.Landmark, err = c.svc.Landmarks().Get(ctx, id)
	default:
		kind, ok := tab.PlaceKind()
		if !ok {
			return nil, &ValidationError{Field: "tab", Reason: fmt.Sprintf("unknown tab %q", tab)}
		}
		form.Place, err = c.svc.Places(kind).Get(ctx, id)
	}
	if err != nil {
		return nil, c.finish("open editor", err)
	}
	return form, nil
}

// Approve publishes a pending event and returns the refreshed queue.
func (c *Console) Approve(ctx context.Context, sess *Session, id uuid.UUID) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if _, err := c.svc.Events().Approve(ctx, id); err != nil {
		return nil, c.finish("approve", err)
	}
	c.logger.Info("operator approved event", "event_id", id, "operator_id", sess.Identity.ID)
	return c.refresh(ctx, TabEvents)
}

// Reject deletes an event. It refuses to act unless confirmed is true.
func (c *Console) Reject(ctx context.Context, sess *Session, id uuid.UUID, confirmed bool) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if !confirmed {
		return nil, fmt.Errorf("%w: rejecting event %s deletes it permanently", ErrConfirmationRequired, id)
	}
	if err := c.svc.Events().Reject(ctx, id); err != nil {
		return nil, c.finish("reject", err)
	}
	c.logger.Info("operator rejected event", "event_id", id, "operator_id", sess.Identity.ID)
	return c.refresh(ctx, TabEvents)
}

// SaveEvent applies an edit form and returns the refreshed queue.
func (c *Console) SaveEvent(ctx context.Context, sess *Session, id uuid.UUID, patch EventPatch) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if _, err := c.svc.Events().Edit(ctx, id, patch); err != nil {
		return nil, c.finish("save event", err)
	}
	return c.refresh(ctx, TabEvents)
}

// CreatePlace adds a dining or lodging place.
func (c *Console) CreatePlace(ctx context.Context, sess *Session, req CreatePlaceRequest) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if _, err := c.svc.CreatePlace(ctx, req); err != nil {
		return nil, c.finish("create place", err)
	}
	return c.refresh(ctx, Tab(req.Kind))
}

// SavePlace applies a place edit form.
func (c *Console) SavePlace(ctx context.Context, sess *Session, kind PlaceKind, id uuid.UUID, patch PlacePatch) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if _, err := c.svc.Places(kind).Edit(ctx, id, patch); err != nil {
		return nil, c.finish("save place", err)
	}
	return c.refresh(ctx, Tab(kind))
}

// DeletePlace removes a place permanently.
func (c *Console) DeletePlace(ctx context.Context, sess *Session, kind PlaceKind, id uuid.UUID) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := c.svc.Places(kind).Delete(ctx, id); err != nil {
		return nil, c.finish("delete place", err)
	}
	return c.refresh(ctx, Tab(kind))
}

// CreateLandmark adds a landmark.
func (c *Console) CreateLandmark(ctx context.Context, sess *Session, req CreateLandmarkRequest) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if _, err := c.svc.CreateLandmark(ctx, req); err != nil {
		return nil, c.finish("create landmark", err)
	}
	return c.refresh(ctx, TabLandmarks)
}

// SaveLandmark applies a landmark edit form.
func (c *Console) SaveLandmark(ctx context.Context, sess *Session, id uuid.UUID, patch LandmarkPatch) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if _, err := c.svc.Landmarks().Edit(ctx, id, patch); err != nil {
		return nil, c.finish("save landmark", err)
	}
	return c.refresh(ctx, TabLandmarks)
}

// DeleteLandmark removes a landmark permanently.
func (c *Console) DeleteLandmark(ctx context.Context, sess *Session, id uuid.UUID) (*TabView, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := c.svc.Landmarks().Delete(ctx, id); err != nil {
		return nil, c.finish("delete landmark", err)
	}
	return c.refresh(ctx, TabLandmarks)
}

// UploadAsset stores an image chosen on an edit form and returns its URL.
func (c *Console) UploadAsset(ctx context.Context, sess *Session, file AssetFile) (string, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return "", err
	}
	defer cancel()

	url, err := c.svc.StoreAsset(ctx, file)
	return url, c.finish("upload asset", err)
}

// Sync pulls candidates from an ingestion source and queues them as pending
// events owned by the operator. A fetch failure aborts the run. Candidates
// that fail to decode are skipped and listed in the report; the rest are
// inserted in a single call. Repeated syncs queue duplicates.
func (c *Console) Sync(ctx context.Context, sess *Session, source string) (*SyncReport, error) {
	ctx, cancel, err := c.begin(ctx, sess)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if source == "" {
		source = c.defaultSource
	}
	ing, ok := c.ingesters[source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}

	raws, err := ing.Sync(ctx)
	if err != nil {
		return nil, c.finish("sync "+source, fmt.Errorf("fetching candidates from %s: %w", source, err))
	}

	report := &SyncReport{Source: ing.Name(), Fetched: len(raws)}
	candidates := make([]CandidateEvent, 0, len(raws))
	for i, raw := range raws {
		candidate, err := raw.Decode()
		if err != nil {
			report.Rejected = append(report.Rejected, CandidateRejection{
				Index:      i,
				ExternalID: externalID(raw),
				Reason:     err.Error(),
			})
			continue
		}
		candidate.ExternalID = ""
		candidates = append(candidates, candidate)
	}

	queued, err := c.svc.QueueCandidates(ctx, ing.Name(), candidates, sess.Identity)
	if err != nil {
		return nil, c.finish("sync "+source, err)
	}
	report.Queued = queued

	if len(report.Rejected) > 0 {
		c.logger.Warn("sync skipped malformed candidates", "source", source, "rejected", len(report.Rejected))
	}
	c.logger.Info("sync finished", "source", source, "fetched", report.Fetched, "queued", len(queued),
		"operator_id", sess.Identity.ID)
	return report, nil
}

func (c *Console) load(ctx context.Context, tab Tab) (*TabView, error) {
	view := &TabView{Tab: tab}
	var err error
	switch tab {
	case TabEvents:
		view.Events, err = c.svc.Events().ListPending(ctx)
	case TabLandmarks:
		view.Landmarks, err = c.svc.Landmarks().List(ctx)
	default:
		kind, ok := tab.PlaceKind()
		if !ok {
			return nil, &ValidationError{Field: "tab", Reason: fmt.Sprintf("unknown tab %q", tab)}
		}
		view.Places, err = c.svc.Places(kind).List(ctx)
	}
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (c *Console) refresh(ctx context.Context, tab Tab) (*TabView, error) {
	view, err := c.load(ctx, tab)
	return view, c.finish("refresh "+string(tab), err)
}

// begin checks the session before any store call and applies the timeout.
func (c *Console) begin(ctx context.Context, sess *Session) (context.Context, context.CancelFunc, error) {
	if err := authorize(sess); err != nil {
		return ctx, func() {}, err
	}
	if c.timeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return ctx, cancel, nil
}

func (c *Console) finish(action string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn("console action timed out", "action", action, "timeout", c.timeout)
		return fmt.Errorf("%s timed out after %s, try again: %w", action, c.timeout, err)
	}
	return err
}

func authorize(sess *Session) error {
	if sess == nil || sess.Identity.IsZero() {
		return ErrAccessRestricted
	}
	return nil
}

func externalID(raw RawCandidate) string {
	if v, ok := raw.Fields["id"]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
