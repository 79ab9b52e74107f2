package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultTimeout bounds a single page request
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent with every request unless overridden
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Fetcher retrieves the raw body of a single page
type Fetcher interface {
	// Fetch returns the response body for url. A transport failure, a
	// timeout or a non-2xx status is returned as *FetchError.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Options configures either fetch engine
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

// FetchError describes a failed page request
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// New returns the fetcher for the named engine ("http" or "colly")
func New(engine string, opts Options) (Fetcher, error) {
	switch engine {
	case "", "http":
		return NewHTTPFetcher(opts), nil
	case "colly":
		return NewCollyFetcher(opts), nil
	default:
		return nil, eris.Errorf("fetcher: unknown engine %q", engine)
	}
}
