package visitcontent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CandidateKind tags the shape of a raw ingested record.
type CandidateKind string

const (
	CandidateKindEvent CandidateKind = "event"
)

// RawCandidate is a loosely typed record as delivered by an ingester.
// Decode turns it into a CandidateEvent or explains why it cannot.
type RawCandidate struct {
	Source string
	Kind   CandidateKind
	Fields map[string]any
}

// NewEventCandidate tags fields as an event candidate from source.
func NewEventCandidate(source string, fields map[string]any) RawCandidate {
	return RawCandidate{Source: source, Kind: CandidateKindEvent, Fields: fields}
}

// Decode validates the raw fields and converts them into a CandidateEvent.
// Title, date, time and location are required; date and time must use the
// event layouts.
func (r RawCandidate) Decode() (CandidateEvent, error) {
	if r.Kind != CandidateKindEvent {
		return CandidateEvent{}, malformed("kind", fmt.Sprintf("unsupported kind %q", r.Kind))
	}
	if r.Fields == nil {
		return CandidateEvent{}, malformed("fields", "empty record")
	}

	var c CandidateEvent
	var err error
	if c.ExternalID, err = r.optionalString("id"); err != nil {
		return CandidateEvent{}, err
	}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"title", &c.Title},
		{"date", &c.Date},
		{"time", &c.Time},
		{"location", &c.Location},
	} {
		v, err := r.optionalString(f.key)
		if err != nil {
			return CandidateEvent{}, err
		}
		if strings.TrimSpace(v) == "" {
			return CandidateEvent{}, malformed(f.key, "is required")
		}
		*f.dst = strings.TrimSpace(v)
	}
	if err := validateDate(c.Date); err != nil {
		return CandidateEvent{}, asMalformed(err)
	}
	if err := validateTime(c.Time); err != nil {
		return CandidateEvent{}, asMalformed(err)
	}
	if c.Description, err = r.optionalString("description"); err != nil {
		return CandidateEvent{}, err
	}
	if c.ImageURL, err = r.optionalString("image_url"); err != nil {
		return CandidateEvent{}, err
	}
	if c.WebsiteURL, err = r.optionalString("website_url"); err != nil {
		return CandidateEvent{}, err
	}

	lat, hasLat, err := r.optionalNumber("lat")
	if err != nil {
		return CandidateEvent{}, err
	}
	lng, hasLng, err := r.optionalNumber("lng")
	if err != nil {
		return CandidateEvent{}, err
	}
	if hasLat != hasLng {
		return CandidateEvent{}, malformed("lat", "lat and lng must be given together")
	}
	if hasLat {
		if err := validateGeo(lat, lng); err != nil {
			return CandidateEvent{}, asMalformed(err)
		}
		c.Geo = &GeoPoint{Lat: lat, Lng: lng}
	}
	return c, nil
}

// optionalString accepts strings and numbers (feeds often send numeric ids).
func (r RawCandidate) optionalString(key string) (string, error) {
	v, ok := r.Fields[key]
	if !ok || v == nil {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", malformed(key, fmt.Sprintf("expected text, got %T", v))
	}
}

func (r RawCandidate) optionalNumber(key string) (float64, bool, error) {
	v, ok := r.Fields[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch t := v.(type) {
	case float64:
		return t, true, nil
	case int:
		return float64(t), true, nil
	case int64:
		return float64(t), true, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false, malformed(key, err.Error())
		}
		return f, true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false, malformed(key, "expected a number")
		}
		return f, true, nil
	default:
		return 0, false, malformed(key, fmt.Sprintf("expected a number, got %T", v))
	}
}

func malformed(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Err: ErrMalformedCandidate}
}

func asMalformed(err error) error {
	if ve, ok := err.(*ValidationError); ok {
		return malformed(ve.Field, ve.Reason)
	}
	return fmt.Errorf("%w: %v", ErrMalformedCandidate, err)
}
