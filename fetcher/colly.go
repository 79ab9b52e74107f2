package fetcher

import (
	"context"

	"github.com/gocolly/colly/v2"
	"github.com/rotisserie/eris"
)

// CollyFetcher implements the Fetcher interface using colly
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher creates a new CollyFetcher instance.
// Revisits are allowed so the same URL can be fetched by consecutive runs.
func NewCollyFetcher(opts Options) *CollyFetcher {
	opts = opts.withDefaults()
	c := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(opts.Timeout)

	return &CollyFetcher{
		collector: c,
	}
}

// Fetch implements the Fetcher interface
func (cf *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Err: eris.Wrap(err, "not started")}
	}

	// Callbacks are per request, so work on a clone sharing the HTTP backend
	c := cf.collector.Clone()
	c.Context = ctx

	var body []byte
	status := 0
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(url); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &FetchError{URL: url, StatusCode: status, Err: eris.Wrap(err, "visit failed")}
	}

	return body, nil
}
