package ingest

import (
	"context"
	"time"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// StaticSourceName is the name the built-in seed source registers under.
const StaticSourceName = "static"

// StaticSource replays a fixed set of candidates. It stands in for a real
// scraper in demos and local development.
type StaticSource struct {
	name    string
	records []map[string]any
	delay   time.Duration
}

// StaticOption configures a StaticSource.
type StaticOption func(*StaticSource)

// WithName registers the source under a different name.
func WithName(name string) StaticOption {
	return func(s *StaticSource) { s.name = name }
}

// WithDelay makes Sync wait before answering, like a remote fetch would.
func WithDelay(d time.Duration) StaticOption {
	return func(s *StaticSource) { s.delay = d }
}

// WithRecords replaces the seed records.
func WithRecords(records []map[string]any) StaticOption {
	return func(s *StaticSource) { s.records = records }
}

// NewStaticSource returns the seed source with the three Shaftesbury events.
func NewStaticSource(opts ...StaticOption) *StaticSource {
	s := &StaticSource{name: StaticSourceName, records: seedRecords()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Sync(ctx context.Context) ([]visitcontent.RawCandidate, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([]visitcontent.RawCandidate, 0, len(s.records))
	for _, rec := range s.records {
		fields := make(map[string]any, len(rec))
		for k, v := range rec {
			fields[k] = v
		}
		out = append(out, visitcontent.NewEventCandidate(s.name, fields))
	}
	return out, nil
}

func seedRecords() []map[string]any {
	return []map[string]any{
		{
			"id":          "ext-1",
			"title":       "Open Air Theatre at the Abbey",
			"date":        "2024-08-15",
			"time":        "19:00",
			"location":    "Shaftesbury Abbey Gardens",
			"description": "A magical evening of Shakespeare under the stars in the historic ruins.",
			"image_url":   "https://picsum.photos/seed/abbey/800/500",
		},
		{
			"id":          "ext-2",
			"title":       "Gold Hill Fair",
			"date":        "2024-07-07",
			"time":        "10:00",
			"location":    "Gold Hill",
			"description": "The annual community celebration on Britain's most famous hill.",
			"image_url":   "https://picsum.photos/seed/goldhill/800/500",
		},
		{
			"id":          "ext-3",
			"title":       "Shaftesbury Food Festival",
			"date":        "2024-05-12",
			"time":        "09:00",
			"location":    "High Street",
			"description": "Local Dorset producers showcasing the best cheese, bread, and ales.",
			"image_url":   "https://picsum.photos/seed/food/800/500",
		},
	}
}
