package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// MaxFeedSize caps how much of a feed response is read.
const MaxFeedSize = 8 << 20

// HTTPConfig configures an HTTPSource.
type HTTPConfig struct {
	Name     string
	URL      string
	Timeout  time.Duration
	Headers  map[string]string
	Attempts int // transport attempts; 4xx answers are never retried
}

// HTTPSource fetches a JSON feed: either an array of event objects or an
// object with an "events" array.
type HTTPSource struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTPSource validates cfg and builds the source.
func NewHTTPSource(cfg HTTPConfig) (*HTTPSource, error) {
	if cfg.Name == "" {
		return nil, errors.New("source name is required")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("source %s: url is required", cfg.Name)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	return &HTTPSource{cfg: cfg, client: NewHTTPClient(cfg.Timeout)}, nil
}

func (s *HTTPSource) Name() string { return s.cfg.Name }

func (s *HTTPSource) Sync(ctx context.Context) ([]visitcontent.RawCandidate, error) {
	var body []byte
	err := retry(ctx, s.cfg.Attempts, 250*time.Millisecond, 2*time.Second, func() error {
		b, err := s.fetch(ctx)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	items, err := parseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", s.cfg.Name, err)
	}
	return candidates(s.cfg.Name, items), nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return nil, &permanentError{fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &permanentError{err}
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("source %s: http %d: %s", s.cfg.Name, resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode < 500 {
			return nil, &permanentError{err}
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFeedSize+1))
	if err != nil {
		return nil, fmt.Errorf("source %s: read body: %w", s.cfg.Name, err)
	}
	if len(body) > MaxFeedSize {
		return nil, &permanentError{fmt.Errorf("source %s: feed larger than %d bytes", s.cfg.Name, MaxFeedSize)}
	}
	return body, nil
}

// parseFeed accepts `[...]` or `{"events": [...]}`.
func parseFeed(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty feed")
	}

	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode feed: %w", err)
		}
		return items, nil
	}

	var envelope struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	if envelope.Events == nil {
		return nil, errors.New(`feed has no "events" array`)
	}
	return envelope.Events, nil
}

// candidates keeps every item, including ones that are not objects; those
// carry no fields and are rejected individually on decode.
func candidates(source string, items []json.RawMessage) []visitcontent.RawCandidate {
	out := make([]visitcontent.RawCandidate, 0, len(items))
	for _, item := range items {
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil {
			fields = nil
		}
		out = append(out, visitcontent.NewEventCandidate(source, fields))
	}
	return out
}
