// Package source resolves image references to bytes, from a local image root
// or over HTTP.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a reference does not resolve to an image.
	ErrNotFound = errors.New("image not found")
	// ErrTainted is returned when a cross-origin response does not grant
	// anonymous access; its pixels may be displayed but not exported.
	ErrTainted = errors.New("cross-origin image without CORS grant")
)

// Mode selects how a remote image is requested.
type Mode int

const (
	// ModeDefault fetches the image for display.
	ModeDefault Mode = iota
	// ModeAnonymousCORS requests cross-origin-safe access: no credentials are
	// sent and the response must carry a matching Access-Control-Allow-Origin.
	ModeAnonymousCORS
)

func (m Mode) String() string {
	if m == ModeAnonymousCORS {
		return "anonymous"
	}
	return "default"
}

// Opener opens the bytes of an image reference.
type Opener interface {
	Open(ctx context.Context, ref string, mode Mode) (io.ReadCloser, error)
}

// Fetcher resolves references. Absolute http(s) URLs are fetched directly;
// other references resolve against Origin when set, otherwise against Root on
// the local filesystem.
type Fetcher struct {
	Root   string
	Origin *url.URL
	Client *http.Client
	Logger *slog.Logger
}

// NewFetcher creates a fetcher for an image root and an optional page origin.
func NewFetcher(root, origin string, logger *slog.Logger) (*Fetcher, error) {
	f := &Fetcher{
		Root:   root,
		Logger: logger,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if origin != "" {
		u, err := url.Parse(origin)
		if err != nil {
			return nil, fmt.Errorf("invalid origin %q: %w", origin, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("origin %q must be an http(s) URL", origin)
		}
		f.Origin = u
	}
	return f, nil
}

// Open returns a reader for ref. The caller must close it.
func (f *Fetcher) Open(ctx context.Context, ref string, mode Mode) (io.ReadCloser, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	if u, ok := f.remote(ref); ok {
		return f.fetch(ctx, u, mode)
	}
	return f.openLocal(ref)
}

func (f *Fetcher) remote(ref string) (*url.URL, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, false
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u, true
	}
	if f.Origin != nil && u.Scheme == "" {
		return f.Origin.ResolveReference(u), true
	}
	return nil, false
}

func (f *Fetcher) openLocal(ref string) (io.ReadCloser, error) {
	root := f.Root
	if root == "" {
		root = "."
	}
	name := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(ref)), "/")

	file, err := os.OpenInRoot(root, filepath.FromSlash(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("failed to open %s: %w", ref, err)
	}
	return file, nil
}

func (f *Fetcher) fetch(ctx context.Context, u *url.URL, mode Mode) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", u, err)
	}

	crossOrigin := !f.sameOrigin(u)
	if mode == ModeAnonymousCORS && crossOrigin {
		req.Header.Set("Origin", f.originString())
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	f.log().Debug("Fetching image", "url", u.String(), "mode", mode.String(), "cross_origin", crossOrigin)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to fetch %s: status %d", u, resp.StatusCode)
	}

	if mode == ModeAnonymousCORS && crossOrigin && !f.allowed(resp.Header.Get("Access-Control-Allow-Origin")) {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrTainted, u)
	}

	return resp.Body, nil
}

func (f *Fetcher) sameOrigin(u *url.URL) bool {
	if f.Origin == nil {
		return false
	}
	return strings.EqualFold(u.Scheme, f.Origin.Scheme) && strings.EqualFold(u.Host, f.Origin.Host)
}

func (f *Fetcher) originString() string {
	if f.Origin == nil {
		return "null"
	}
	return f.Origin.Scheme + "://" + f.Origin.Host
}

func (f *Fetcher) allowed(acao string) bool {
	acao = strings.TrimSpace(acao)
	return acao == "*" || (acao != "" && strings.EqualFold(acao, f.originString()))
}

func (f *Fetcher) log() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}
