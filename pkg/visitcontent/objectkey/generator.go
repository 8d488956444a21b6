// Package objectkey names asset objects so that uploads never collide.
package objectkey

import (
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the lowercase base36 set used for random suffixes.
	Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	// SuffixLength is the number of random characters after the timestamp.
	SuffixLength = 7
	// DefaultPrefix is the folder assets land in.
	DefaultPrefix = "events"
	// FallbackExtension is used when neither name nor type tell us anything.
	FallbackExtension = "bin"
)

// Generator defines the interface for object key generation strategies
type Generator interface {
	GenerateKey(meta *KeyMetadata) (string, error)
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	FileName    string
	ContentType string
}

// TimestampGenerator produces <prefix>/<unix-millis>-<suffix>.<ext>.
type TimestampGenerator struct {
	Prefix string
	Length int
	Now    func() time.Time
}

func NewTimestampGenerator(prefix string) *TimestampGenerator {
	return &TimestampGenerator{
		Prefix: prefix,
		Length: SuffixLength,
		Now:    time.Now,
	}
}

func (g *TimestampGenerator) GenerateKey(meta *KeyMetadata) (string, error) {
	length := g.Length
	if length <= 0 {
		length = SuffixLength
	}
	suffix, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate key suffix: %w", err)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	name := fmt.Sprintf("%d-%s.%s", now().UnixMilli(), suffix, Extension(meta))
	prefix := strings.Trim(sanitizePathComponent(g.Prefix), "/")
	if prefix == "" {
		return name, nil
	}
	return path.Join(prefix, name), nil
}

// FuncGenerator allows callers to provide their own key generation function
type FuncGenerator func(meta *KeyMetadata) (string, error)

func (f FuncGenerator) GenerateKey(meta *KeyMetadata) (string, error) {
	return f(meta)
}

var imageExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/avif":    "avif",
	"image/svg+xml": "svg",
	"image/heic":    "heic",
}

// Extension picks the file extension. A known image content type wins, then
// the original name when it carries an image extension, then
// FallbackExtension. Served files get their MIME type from the extension, so
// a client-chosen name never yields a non-image extension.
func Extension(meta *KeyMetadata) string {
	if meta == nil {
		return FallbackExtension
	}
	mediaType, _, err := mime.ParseMediaType(meta.ContentType)
	if err == nil {
		if ext, ok := imageExtensions[mediaType]; ok {
			return ext
		}
	}
	if ext := cleanExtension(filepath.Ext(meta.FileName)); IsImageExtension(ext) {
		return ext
	}
	if err == nil && strings.HasPrefix(mediaType, "image/") {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil {
			for _, e := range exts {
				if ext := cleanExtension(e); IsImageExtension(ext) {
					return ext
				}
			}
		}
	}
	return FallbackExtension
}

// IsImageExtension reports whether ext (without the dot) names an image format.
func IsImageExtension(ext string) bool {
	if ext == "" {
		return false
	}
	for _, known := range imageExtensions {
		if ext == known {
			return true
		}
	}
	switch ext {
	case "bmp", "tif", "tiff", "ico":
		return true
	}
	return false
}

func cleanExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

func sanitizePathComponent(component string) string {
	replacer := strings.NewReplacer(
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
		"..", "_",
	)
	return strings.ToLower(replacer.Replace(component))
}
