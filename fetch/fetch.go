// Package fetch implements the content-fetch client the dapps hosting layer
// downloads registered content and proxied pages with.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

const (
	DefaultTimeout = 30 * time.Second
	DefaultMaxSize = 64 * 1024 * 1024
)

var (
	ErrStatus  = errors.New("unexpected response status")
	ErrTooLong = errors.New("content exceeds size limit")
)

// Fetcher downloads the content behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Content, error)
}

// Content is a fetched document.
type Content struct {
	ContentType string
	Body        []byte
}

// Client is an HTTP Fetcher bounding request time and body size.
type Client struct {
	http    *http.Client
	maxSize int64
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a fetch client. Zero values select the defaults.
func NewClient(timeout time.Duration, maxSize int64) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

func (c *Client) Fetch(ctx context.Context, url string) (*Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrStatus, res.Status)
	}
	// Read one byte past the limit to tell a full body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(res.Body, c.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLong, c.maxSize)
	}
	log.Debug("Fetched content", "url", url, "size", len(body))
	return &Content{ContentType: res.Header.Get("Content-Type"), Body: body}, nil
}
