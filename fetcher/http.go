package fetcher

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
)

// HTTPFetcher fetches pages with a plain HTTP client
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given timeout and User-Agent
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	opts = opts.withDefaults()
	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")
	return &HTTPFetcher{client: client}
}

// Fetch implements the Fetcher interface
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &FetchError{URL: url, Err: eris.Wrap(err, "request failed")}
	}
	if !resp.IsSuccess() {
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Err:        eris.New(http.StatusText(resp.StatusCode())),
		}
	}
	return resp.Body(), nil
}
