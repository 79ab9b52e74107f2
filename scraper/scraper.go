package scraper

import (
	"context"
	"time"

	"page-scraper/fetcher"
	"page-scraper/models"
	"page-scraper/parser"

	"go.uber.org/zap"
)

// PageURLFunc returns the URL of a 1-based page number
type PageURLFunc func(page int) string

// ExtractFunc turns a parsed page into records. Items that could not be
// turned into a record are reported as errors and left out of the records.
type ExtractFunc func(doc *parser.Document) ([]models.Record, []error)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// PaginatedScraper walks numbered pages until one comes back empty or the
// page budget is spent. Pages are fetched one at a time.
type PaginatedScraper struct {
	fetcher fetcher.Fetcher
	log     *zap.Logger
	sleep   SleepFunc
}

// Option customises a PaginatedScraper
type Option func(*PaginatedScraper)

// WithLogger sets the logger (default zap.L())
func WithLogger(l *zap.Logger) Option {
	return func(s *PaginatedScraper) { s.log = l }
}

// WithSleep replaces the delay implementation, mainly for tests
func WithSleep(fn SleepFunc) Option {
	return func(s *PaginatedScraper) { s.sleep = fn }
}

// New creates a PaginatedScraper on top of the given fetcher
func New(f fetcher.Fetcher, opts ...Option) *PaginatedScraper {
	s := &PaginatedScraper{
		fetcher: f,
		log:     zap.L(),
		sleep:   Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run scrapes pages 1..maxPages in order and returns the collected session.
// The first page that yields no records, including a page whose fetch
// failed, ends the run. delay is waited between consecutive pages.
func (s *PaginatedScraper) Run(ctx context.Context, pageURL PageURLFunc, extract ExtractFunc, maxPages int, delay time.Duration) *models.Session {
	session := models.NewSession("")
	session.StopReason = models.StopPageBudget

	s.log.Info("starting scrape", zap.Int("max_pages", maxPages), zap.Duration("delay", delay))

	for page := 1; page <= maxPages; page++ {
		if ctx.Err() != nil {
			session.StopReason = models.StopCancelled
			break
		}

		url := pageURL(page)
		s.log.Info("scraping page", zap.Int("page", page), zap.String("url", url))

		session.Fetches++
		records, errs := s.scrapePage(ctx, url, extract)
		session.Errors = append(session.Errors, errs...)

		if len(records) == 0 {
			s.log.Info("no more records found, stopping", zap.Int("last_page", page-1))
			session.StopReason = models.StopEmptyPage
			break
		}

		session.Append(records...)
		session.Pages++

		if page == maxPages {
			break
		}
		// Be polite between requests
		if err := s.sleep(ctx, delay); err != nil {
			session.StopReason = models.StopCancelled
			break
		}
	}

	session.FinishedAt = time.Now()
	s.log.Info("scraping complete",
		zap.Int("records", session.Len()),
		zap.Int("pages", session.Pages),
		zap.Int("errors", len(session.Errors)),
		zap.String("stop_reason", string(session.StopReason)),
	)
	return session
}

// scrapePage fetches and extracts a single page. A fetch or parse failure
// is reported as the only error and yields no records.
func (s *PaginatedScraper) scrapePage(ctx context.Context, url string, extract ExtractFunc) ([]models.Record, []error) {
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.log.Warn("error fetching page", zap.String("url", url), zap.Error(err))
		return nil, []error{err}
	}

	doc, err := parser.Parse(body)
	if err != nil {
		s.log.Warn("error parsing page", zap.String("url", url), zap.Error(err))
		return nil, []error{err}
	}

	records, errs := extract(doc)
	for _, e := range errs {
		s.log.Warn("skipping malformed record", zap.String("url", url), zap.Error(e))
	}
	return records, errs
}

// Sleep waits for d unless ctx is cancelled first
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
