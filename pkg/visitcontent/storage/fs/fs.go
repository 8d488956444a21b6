// Package fs stores assets on the local filesystem and can serve them over HTTP.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/visit-content/pkg/visitcontent"
	"github.com/tendant/visit-content/pkg/visitcontent/objectkey"
)

const backendName = "fs"

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // Public URL the base directory is served under
	Prefix    string // Key prefix, defaults to objectkey.DefaultPrefix
	Keys      objectkey.Generator
}

// Backend is a filesystem implementation of the visitcontent.AssetStore interface
type Backend struct {
	baseDir   string
	urlPrefix string
	keys      objectkey.Generator
}

var _ visitcontent.AssetStore = (*Backend)(nil)

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	keys := config.Keys
	if keys == nil {
		prefix := config.Prefix
		if prefix == "" {
			prefix = objectkey.DefaultPrefix
		}
		keys = objectkey.NewTimestampGenerator(prefix)
	}

	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimRight(config.URLPrefix, "/"),
		keys:      keys,
	}, nil
}

// Store writes the asset to a fresh file. O_EXCL guarantees an existing file
// is never replaced; a partial file is removed on failure.
func (b *Backend) Store(ctx context.Context, asset visitcontent.AssetFile) (string, error) {
	key, err := b.keys.GenerateKey(&objectkey.KeyMetadata{FileName: asset.Name, ContentType: asset.ContentType})
	if err != nil {
		return "", &visitcontent.UploadError{Backend: backendName, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: err}
	}

	filePath, err := b.path(key)
	if err != nil {
		return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: fmt.Errorf("create directory: %w", err)}
	}

	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: err}
	}

	var body io.Reader = asset.Body
	if body == nil {
		body = strings.NewReader("")
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(filePath)
		return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: fmt.Errorf("write file: %w", err)}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(filePath)
		return "", &visitcontent.UploadError{Backend: backendName, Key: key, Err: fmt.Errorf("close file: %w", err)}
	}

	return b.URL(key), nil
}

// URL returns the public address of key: URLPrefix/key when configured,
// otherwise a file:// URL.
func (b *Backend) URL(key string) string {
	if b.urlPrefix != "" {
		return b.urlPrefix + "/" + key
	}
	abs, err := filepath.Abs(filepath.Join(b.baseDir, filepath.FromSlash(key)))
	if err != nil {
		abs = filepath.Join(b.baseDir, filepath.FromSlash(key))
	}
	return "file://" + filepath.ToSlash(abs)
}

// Handler serves stored assets read-only with the asset cache headers. The
// browser may not sniff a stored file or run scripts from it.
func (b *Backend) Handler() http.Handler {
	files := http.FileServer(http.Dir(b.baseDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", visitcontent.AssetCacheControl)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
		files.ServeHTTP(w, r)
	})
}

func (b *Backend) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(b.baseDir, clean), nil
}
