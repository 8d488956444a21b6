package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/visit-content/pkg/visitcontent"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements visitcontent.ContentStore using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL content store
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL content store with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

var _ visitcontent.ContentStore = (*Repository)(nil)

// Postgres caps a statement at 65535 bind parameters.
const maxBindParams = 65535

const eventColumns = `id, title, to_char(event_date, 'YYYY-MM-DD'), event_time, location, description,
	image_url, website_url, status, owner_id, origin, lat, lng, revision, created_at, updated_at`

const eventInsertColumns = 16

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "23514": // check_violation
			return fmt.Errorf("%s violates constraint %s", operation, pgErr.ConstraintName)
		case "22007", "22008": // invalid_datetime_format, datetime_field_overflow
			return fmt.Errorf("invalid date in %s: %s", operation, pgErr.Message)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// missingOrConflict explains why a guarded write touched no row.
func (r *Repository) missingOrConflict(ctx context.Context, operation, existsQuery string, args ...interface{}) error {
	var exists bool
	if err := r.db.QueryRow(ctx, existsQuery, args...).Scan(&exists); err != nil {
		return r.handlePostgresError(operation, err)
	}
	if !exists {
		return visitcontent.ErrNotFound
	}
	return visitcontent.ErrRevisionConflict
}

// Event operations

func scanEvent(row pgx.Row) (*visitcontent.Event, error) {
	var event visitcontent.Event
	var status string
	var lat, lng *float64
	err := row.Scan(
		&event.ID, &event.Title, &event.Date, &event.Time, &event.Location, &event.Description,
		&event.ImageURL, &event.WebsiteURL, &status, &event.OwnerID, &event.Origin,
		&lat, &lng, &event.Revision, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, err
	}
	event.Status = visitcontent.EventStatus(status)
	if lat != nil && lng != nil {
		event.Geo = &visitcontent.GeoPoint{Lat: *lat, Lng: *lng}
	}
	return &event, nil
}

func geoArgs(geo *visitcontent.GeoPoint) (lat, lng *float64) {
	if geo == nil {
		return nil, nil
	}
	return &geo.Lat, &geo.Lng
}

func (r *Repository) ListEvents(ctx context.Context, filter visitcontent.EventFilter) ([]*visitcontent.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []interface{}
	if filter.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	switch filter.Order {
	case visitcontent.OrderByCreatedDesc:
		query += ` ORDER BY created_at DESC, seq DESC`
	default:
		query += ` ORDER BY event_date ASC, event_time ASC, seq ASC`
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list events", err)
	}
	defer rows.Close()

	events := make([]*visitcontent.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan event", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list events", err)
	}
	return events, nil
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*visitcontent.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, visitcontent.ErrNotFound
		}
		return nil, r.handlePostgresError("get event", err)
	}
	return event, nil
}

// InsertEvents writes the batch with one multi-row INSERT, so the batch
// lands atomically.
func (r *Repository) InsertEvents(ctx context.Context, events []*visitcontent.Event) error {
	if len(events) == 0 {
		return nil
	}
	if len(events)*eventInsertColumns > maxBindParams {
		return fmt.Errorf("batch of %d events exceeds the statement parameter limit", len(events))
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO events (
		id, title, event_date, event_time, location, description, image_url, website_url,
		status, owner_id, origin, lat, lng, revision, created_at, updated_at
	) VALUES `)

	args := make([]interface{}, 0, len(events)*eventInsertColumns)
	for i, event := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < eventInsertColumns; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*eventInsertColumns+j+1)
		}
		sb.WriteString(")")

		lat, lng := geoArgs(event.Geo)
		args = append(args,
			event.ID, event.Title, event.Date, event.Time, event.Location, event.Description,
			event.ImageURL, event.WebsiteURL, string(event.Status), event.OwnerID, event.Origin,
			lat, lng, event.Revision, event.CreatedAt, event.UpdatedAt)
	}

	if _, err := r.db.Exec(ctx, sb.String(), args...); err != nil {
		return r.handlePostgresError("insert events", err)
	}
	return nil
}

func (r *Repository) UpdateEvent(ctx context.Context, event *visitcontent.Event, expectedRevision int64) error {
	query := `
		UPDATE events SET
			title = $2, event_date = $3, event_time = $4, location = $5, description = $6,
			image_url = $7, website_url = $8, lat = $9, lng = $10, updated_at = $11,
			revision = revision + 1
		WHERE id = $1 AND revision = $12`

	lat, lng := geoArgs(event.Geo)
	tag, err := r.db.Exec(ctx, query,
		event.ID, event.Title, event.Date, event.Time, event.Location, event.Description,
		event.ImageURL, event.WebsiteURL, lat, lng, event.UpdatedAt, expectedRevision)
	if err != nil {
		return r.handlePostgresError("update event", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, "update event",
			`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, event.ID)
	}

	event.Revision = expectedRevision + 1
	return nil
}

func (r *Repository) TransitionEventStatus(ctx context.Context, id uuid.UUID, from, to visitcontent.EventStatus) (*visitcontent.Event, error) {
	query := `
		UPDATE events SET status = $3, revision = revision + 1, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + eventColumns

	event, err := scanEvent(r.db.QueryRow(ctx, query, id, string(from), string(to)))
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, r.handlePostgresError("transition event", err)
	}

	var current string
	err = r.db.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, visitcontent.ErrNotFound
		}
		return nil, r.handlePostgresError("transition event", err)
	}
	return nil, fmt.Errorf("%w: event is %s, expected %s", visitcontent.ErrInvalidTransition, current, from)
}

func (r *Repository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return visitcontent.ErrNotFound
	}
	return nil
}

// Place operations

const placeColumns = `id, kind, name, category, feature, image_url, website_url, revision, created_at, updated_at`

func scanPlace(row pgx.Row) (*visitcontent.Place, error) {
	var place visitcontent.Place
	var kind string
	err := row.Scan(&place.ID, &kind, &place.Name, &place.Category, &place.Feature,
		&place.ImageURL, &place.WebsiteURL, &place.Revision, &place.CreatedAt, &place.UpdatedAt)
	if err != nil {
		return nil, err
	}
	place.Kind = visitcontent.PlaceKind(kind)
	return &place, nil
}

func (r *Repository) ListPlaces(ctx context.Context, kind visitcontent.PlaceKind) ([]*visitcontent.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places WHERE kind = $1 ORDER BY lower(name) ASC`
	rows, err := r.db.Query(ctx, query, string(kind))
	if err != nil {
		return nil, r.handlePostgresError("list places", err)
	}
	defer rows.Close()

	places := make([]*visitcontent.Place, 0)
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan place", err)
		}
		places = append(places, place)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list places", err)
	}
	return places, nil
}

func (r *Repository) GetPlace(ctx context.Context, kind visitcontent.PlaceKind, id uuid.UUID) (*visitcontent.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places WHERE id = $1 AND kind = $2`
	place, err := scanPlace(r.db.QueryRow(ctx, query, id, string(kind)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, visitcontent.ErrNotFound
		}
		return nil, r.handlePostgresError("get place", err)
	}
	return place, nil
}

func (r *Repository) InsertPlace(ctx context.Context, place *visitcontent.Place) error {
	query := `
		INSERT INTO places (` + placeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		place.ID, string(place.Kind), place.Name, place.Category, place.Feature,
		place.ImageURL, place.WebsiteURL, place.Revision, place.CreatedAt, place.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("insert place", err)
	}
	return nil
}

func (r *Repository) UpdatePlace(ctx context.Context, place *visitcontent.Place, expectedRevision int64) error {
	query := `
		UPDATE places SET
			name = $3, category = $4, feature = $5, image_url = $6, website_url = $7,
			updated_at = $8, revision = revision + 1
		WHERE id = $1 AND kind = $2 AND revision = $9`

	tag, err := r.db.Exec(ctx, query,
		place.ID, string(place.Kind), place.Name, place.Category, place.Feature,
		place.ImageURL, place.WebsiteURL, place.UpdatedAt, expectedRevision)
	if err != nil {
		return r.handlePostgresError("update place", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, "update place",
			`SELECT EXISTS(SELECT 1 FROM places WHERE id = $1 AND kind = $2)`, place.ID, string(place.Kind))
	}

	place.Revision = expectedRevision + 1
	return nil
}

func (r *Repository) DeletePlace(ctx context.Context, kind visitcontent.PlaceKind, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM places WHERE id = $1 AND kind = $2`, id, string(kind))
	if err != nil {
		return r.handlePostgresError("delete place", err)
	}
	if tag.RowsAffected() == 0 {
		return visitcontent.ErrNotFound
	}
	return nil
}

// Landmark operations

const landmarkColumns = `id, name, lat, lng, description, category, distance, image_url, key_info,
	revision, created_at, updated_at`

func scanLandmark(row pgx.Row) (*visitcontent.Landmark, error) {
	var l visitcontent.Landmark
	err := row.Scan(&l.ID, &l.Name, &l.Lat, &l.Lng, &l.Description, &l.Category, &l.Distance,
		&l.ImageURL, &l.KeyInfo, &l.Revision, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repository) ListLandmarks(ctx context.Context) ([]*visitcontent.Landmark, error) {
	rows, err := r.db.Query(ctx, `SELECT `+landmarkColumns+` FROM landmarks ORDER BY lower(name) ASC`)
	if err != nil {
		return nil, r.handlePostgresError("list landmarks", err)
	}
	defer rows.Close()

	landmarks := make([]*visitcontent.Landmark, 0)
	for rows.Next() {
		l, err := scanLandmark(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan landmark", err)
		}
		landmarks = append(landmarks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list landmarks", err)
	}
	return landmarks, nil
}

func (r *Repository) GetLandmark(ctx context.Context, id uuid.UUID) (*visitcontent.Landmark, error) {
	l, err := scanLandmark(r.db.QueryRow(ctx, `SELECT `+landmarkColumns+` FROM landmarks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, visitcontent.ErrNotFound
		}
		return nil, r.handlePostgresError("get landmark", err)
	}
	return l, nil
}

func (r *Repository) InsertLandmark(ctx context.Context, l *visitcontent.Landmark) error {
	query := `
		INSERT INTO landmarks (` + landmarkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		l.ID, l.Name, l.Lat, l.Lng, l.Description, l.Category, l.Distance,
		l.ImageURL, l.KeyInfo, l.Revision, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("insert landmark", err)
	}
	return nil
}

func (r *Repository) UpdateLandmark(ctx context.Context, l *visitcontent.Landmark, expectedRevision int64) error {
	query := `
		UPDATE landmarks SET
			name = $2, lat = $3, lng = $4, description = $5, category = $6, distance = $7,
			image_url = $8, key_info = $9, updated_at = $10, revision = revision + 1
		WHERE id = $1 AND revision = $11`

	tag, err := r.db.Exec(ctx, query,
		l.ID, l.Name, l.Lat, l.Lng, l.Description, l.Category, l.Distance,
		l.ImageURL, l.KeyInfo, l.UpdatedAt, expectedRevision)
	if err != nil {
		return r.handlePostgresError("update landmark", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, "update landmark",
			`SELECT EXISTS(SELECT 1 FROM landmarks WHERE id = $1)`, l.ID)
	}

	l.Revision = expectedRevision + 1
	return nil
}

func (r *Repository) DeleteLandmark(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM landmarks WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete landmark", err)
	}
	if tag.RowsAffected() == 0 {
		return visitcontent.ErrNotFound
	}
	return nil
}
