package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// ErrTooLarge is returned when a remote image exceeds the configured size.
var ErrTooLarge = errors.New("image exceeds size limit")

const (
	defaultMaxAttempts = 3
	defaultMaxBytes    = 10 << 20
)

// FetchedImage is the raw encoded body of a remote image.
type FetchedImage struct {
	Data        []byte
	ContentType string
	// Name is the last path element of the source, used as the report filename.
	Name string
}

type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (*FetchedImage, error)
}

// HTTPImageFetcher downloads images with bounded retries on transient errors.
type HTTPImageFetcher struct {
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
	maxBytes    int64
}

// HTTPOption customises an HTTPImageFetcher.
type HTTPOption func(*HTTPImageFetcher)

// WithBackoff sets the base delay; attempt n waits n*base before retrying.
func WithBackoff(base time.Duration) HTTPOption {
	return func(h *HTTPImageFetcher) { h.backoff = base }
}

// WithMaxBytes bounds the accepted body size.
func WithMaxBytes(n int64) HTTPOption {
	return func(h *HTTPImageFetcher) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithTimeout sets the whole-request client timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPImageFetcher) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher(opts ...HTTPOption) *HTTPImageFetcher {
	// Transport tuned for single image downloads
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	h := &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxAttempts: defaultMaxAttempts,
		backoff:     time.Second,
		maxBytes:    defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Fetch downloads imageURL. 5xx responses and transport errors are retried;
// 4xx responses fail immediately.
func (h *HTTPImageFetcher) Fetch(ctx context.Context, imageURL string) (*FetchedImage, error) {
	var lastErr error

	for attempt := 0; attempt < h.maxAttempts; attempt++ {
		img, retry, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !retry || attempt == h.maxAttempts-1 {
			break
		}

		// Sleep before next retry, unless the caller gives up first
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * h.backoff):
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.maxAttempts, lastErr)
}

func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) (*FetchedImage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "synthscan/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		// Cancellation is final; anything else on the wire is transient
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	if resp.ContentLength > h.maxBytes {
		return nil, false, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, false, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, h.maxBytes)
	}

	return &FetchedImage{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Name:        nameFromPath(req.URL.Path),
	}, false, nil
}

func nameFromPath(p string) string {
	name := path.Base(strings.TrimRight(p, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
