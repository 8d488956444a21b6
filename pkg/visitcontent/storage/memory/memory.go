// Package memory is an in-process asset store for tests and local runs.
package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/tendant/visit-content/pkg/visitcontent"
	"github.com/tendant/visit-content/pkg/visitcontent/objectkey"
)

const backendName = "memory"

var errObjectExists = errors.New("object already exists")

// Object is a stored asset.
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// Backend is an in-memory implementation of the visitcontent.AssetStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]Object
	keys    objectkey.Generator
	baseURL string
}

// Option configures a Backend.
type Option func(*Backend)

// WithKeyGenerator replaces the default timestamp generator.
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(b *Backend) { b.keys = g }
}

// WithPublicBaseURL makes Store return <base>/<key> instead of memory://<key>.
func WithPublicBaseURL(base string) Option {
	return func(b *Backend) { b.baseURL = strings.TrimRight(base, "/") }
}

var _ visitcontent.AssetStore = (*Backend)(nil)

// New creates a new in-memory storage backend
func New(opts ...Option) *Backend {
	b := &Backend{
		objects: make(map[string]Object),
		keys:    objectkey.NewTimestampGenerator(objectkey.DefaultPrefix),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Store keeps the asset under a fresh key. An existing key is never replaced.
func (b *Backend) Store(ctx context.Context, file visitcontent.AssetFile) (string, error) {
	key, err := b.keys.GenerateKey(&objectkey.KeyMetadata{FileName: file.Name, ContentType: file.ContentType})
	if err != nil {
		return "", &visitcontent.UploadError{Backend: backendName, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: err}
	}

	var buf bytes.Buffer
	if file.Body != nil {
		if _, err := io.Copy(&buf, file.Body); err != nil {
			return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: err}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[key]; exists {
		return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: errObjectExists}
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.objects[key] = Object{
		Data:         buf.Bytes(),
		ContentType:  contentType,
		CacheControl: visitcontent.AssetCacheControl,
	}
	return b.URL(key), nil
}

// URL returns the public address of key.
func (b *Backend) URL(key string) string {
	if b.baseURL != "" {
		return b.baseURL + "/" + key
	}
	return "memory://" + key
}

// Get returns a copy of the object stored under key.
func (b *Backend) Get(key string) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[key]
	if !ok {
		return Object{}, false
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, true
}

// Keys lists stored keys in no particular order.
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}
