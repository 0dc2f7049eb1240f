// Package fetch retrieves snapshot images from a URL.
package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Fetcher downloads a whole blob. There is no streaming contract: the complete
// image is returned or an error.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Config selects transport settings.
type Config struct {
	HTTPTimeout time.Duration
	S3          S3Config
}

// Mux routes a URL to the fetcher registered for its scheme.
type Mux struct {
	schemes map[string]Fetcher
}

// New creates a Mux with file, http(s) and s3 transports.
// The S3 client is only built when the first s3:// URL is fetched.
func New(cfg Config) *Mux {
	httpFetcher := NewHTTP(cfg.HTTPTimeout)
	m := &Mux{schemes: map[string]Fetcher{}}
	m.Register("", File{})
	m.Register("file", File{})
	m.Register("http", httpFetcher)
	m.Register("https", httpFetcher)
	m.Register("s3", NewS3(cfg.S3))
	return m
}

// Register sets the fetcher for a scheme, replacing any existing one.
func (m *Mux) Register(scheme string, f Fetcher) {
	m.schemes[scheme] = f
}

// Fetch implements Fetcher.
func (m *Mux) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot url %q: %w", rawURL, err)
	}
	f, ok := m.schemes[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported snapshot url scheme: %q", u.Scheme)
	}
	return f.Fetch(ctx, rawURL)
}

// File reads snapshots from the local file system.
type File struct{}

// Fetch implements Fetcher. Accepts file:// URLs and bare paths.
func (File) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
