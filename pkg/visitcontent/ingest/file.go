package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// FileSource reads candidates from a TOML file of [[event]] tables:
//
//	[[event]]
//	id = "fair-2024"
//	title = "Gold Hill Fair"
//	date = 2024-07-07
//	time = "10:00"
//	location = "Gold Hill"
type FileSource struct {
	name string
	path string
}

// NewFileSource returns a source reading path on every sync.
func NewFileSource(name, path string) (*FileSource, error) {
	if name == "" {
		return nil, errors.New("source name is required")
	}
	if path == "" {
		return nil, fmt.Errorf("source %s: path is required", name)
	}
	return &FileSource{name: name, path: path}, nil
}

func (s *FileSource) Name() string { return s.name }

func (s *FileSource) Sync(ctx context.Context) ([]visitcontent.RawCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc struct {
		Event []map[string]any `toml:"event"`
	}
	if _, err := toml.DecodeFile(s.path, &doc); err != nil {
		return nil, fmt.Errorf("source %s: read %s: %w", s.name, s.path, err)
	}

	out := make([]visitcontent.RawCandidate, 0, len(doc.Event))
	for _, rec := range doc.Event {
		out = append(out, visitcontent.NewEventCandidate(s.name, normalize(rec)))
	}
	return out, nil
}

// normalize turns TOML dates and times into the event layouts. A bare local
// time parses with year zero; a bare local date parses at midnight.
func normalize(rec map[string]any) map[string]any {
	for k, v := range rec {
		t, ok := v.(time.Time)
		if !ok {
			continue
		}
		switch {
		case t.Year() == 0:
			rec[k] = t.Format(visitcontent.TimeLayout)
		case t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0:
			rec[k] = t.Format(visitcontent.DateLayout)
		default:
			rec[k] = t.Format(time.RFC3339)
		}
	}
	return rec
}
