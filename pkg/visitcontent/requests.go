package visitcontent

import (
	"strings"
	"time"
)

// Request/patch DTOs

// SubmitEventRequest carries a visitor's event submission.
type SubmitEventRequest struct {
	Title       string
	Date        string
	Time        string
	Location    string
	Description string
	WebsiteURL  string
	Image       AssetFile
	Owner       Identity
}

// EventPatch lists the content fields to replace on an event. Nil fields are
// left as they are. Revision, when set, must match the stored revision.
type EventPatch struct {
	Title       *string   `json:"title,omitempty"`
	Date        *string   `json:"date,omitempty"`
	Time        *string   `json:"time,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	WebsiteURL  *string   `json:"website_url,omitempty"`
	Geo         *GeoPoint `json:"geo,omitempty"`
	Revision    *int64    `json:"revision,omitempty"`
}

// CreatePlaceRequest contains parameters for adding a place
type CreatePlaceRequest struct {
	Kind       PlaceKind `json:"kind"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Feature    string    `json:"feature"`
	ImageURL   string    `json:"image_url"`
	WebsiteURL string    `json:"website_url"`
}

// PlacePatch lists the place fields to replace.
type PlacePatch struct {
	Name       *string `json:"name,omitempty"`
	Category   *string `json:"category,omitempty"`
	Feature    *string `json:"feature,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
	WebsiteURL *string `json:"website_url,omitempty"`
	Revision   *int64  `json:"revision,omitempty"`
}

// CreateLandmarkRequest contains parameters for adding a landmark
type CreateLandmarkRequest struct {
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Distance    string  `json:"distance,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	KeyInfo     string  `json:"key_info,omitempty"`
}

// LandmarkPatch lists the landmark fields to replace.
type LandmarkPatch struct {
	Name        *string  `json:"name,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Distance    *string  `json:"distance,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty"`
	KeyInfo     *string  `json:"key_info,omitempty"`
	Revision    *int64   `json:"revision,omitempty"`
}

// requireText rejects blank values.
func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

func validateDate(value string) error {
	if _, err := time.Parse(DateLayout, value); err != nil {
		return &ValidationError{Field: "date", Reason: "must be formatted YYYY-MM-DD", Err: err}
	}
	return nil
}

func validateTime(value string) error {
	if _, err := time.Parse(TimeLayout, value); err != nil {
		return &ValidationError{Field: "time", Reason: "must be formatted HH:MM", Err: err}
	}
	return nil
}

func validateGeo(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return &ValidationError{Field: "lat", Reason: "must be between -90 and 90"}
	}
	if lng < -180 || lng > 180 {
		return &ValidationError{Field: "lng", Reason: "must be between -180 and 180"}
	}
	return nil
}

// apply validates the patch and copies the provided fields onto e.
// Status, ID and OwnerID are not part of a patch.
func (p EventPatch) apply(e *Event) error {
	if p.Title != nil {
		if err := requireText("title", *p.Title); err != nil {
			return err
		}
	}
	if p.Location != nil {
		if err := requireText("location", *p.Location); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := requireText("description", *p.Description); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := validateDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Time != nil {
		if err := validateTime(*p.Time); err != nil {
			return err
		}
	}
	if p.Geo != nil {
		if err := validateGeo(p.Geo.Lat, p.Geo.Lng); err != nil {
			return err
		}
	}

	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Time != nil {
		e.Time = *p.Time
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	// An empty image on the edit form keeps the current one.
	if p.ImageURL != nil && *p.ImageURL != "" {
		e.ImageURL = *p.ImageURL
	}
	if p.WebsiteURL != nil {
		e.WebsiteURL = *p.WebsiteURL
	}
	if p.Geo != nil {
		g := *p.Geo
		e.Geo = &g
	}
	return nil
}

func (p PlacePatch) apply(pl *Place) error {
	if p.Name != nil {
		if err := requireText("name", *p.Name); err != nil {
			return err
		}
		pl.Name = *p.Name
	}
	if p.Category != nil {
		pl.Category = *p.Category
	}
	if p.Feature != nil {
		pl.Feature = *p.Feature
	}
	if p.ImageURL != nil && *p.ImageURL != "" {
		pl.ImageURL = *p.ImageURL
	}
	if p.WebsiteURL != nil {
		pl.WebsiteURL = *p.WebsiteURL
	}
	return nil
}

func (p LandmarkPatch) apply(l *Landmark) error {
	if p.Name != nil {
		if err := requireText("name", *p.Name); err != nil {
			return err
		}
	}
	lat, lng := l.Lat, l.Lng
	if p.Lat != nil {
		lat = *p.Lat
	}
	if p.Lng != nil {
		lng = *p.Lng
	}
	if err := validateGeo(lat, lng); err != nil {
		return err
	}

	if p.Name != nil {
		l.Name = *p.Name
	}
	l.Lat, l.Lng = lat, lng
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.Category != nil {
		l.Category = *p.Category
	}
	if p.Distance != nil {
		l.Distance = *p.Distance
	}
	if p.ImageURL != nil && *p.ImageURL != "" {
		l.ImageURL = *p.ImageURL
	}
	if p.KeyInfo != nil {
		l.KeyInfo = *p.KeyInfo
	}
	return nil
}

func checkRevision(expected *int64, current int64) error {
	if expected != nil && *expected != current {
		return ErrRevisionConflict
	}
	return nil
}
