package sites

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"page-scraper/config"
	"page-scraper/models"
	"page-scraper/pageurl"
	"page-scraper/parser"
	"page-scraper/stats"
)

// Quotes builds the quotes site. rng picks the quotes shown in the report.
func Quotes(cfg config.QuotesConfig, rng *rand.Rand) (*Site, error) {
	pageURL, err := pageurl.Template("", cfg.PageTemplate)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Site{
		Name:     "quotes",
		PageURL:  pageURL,
		Extract:  ExtractQuotes,
		MaxPages: cfg.MaxPages,
		Output:   cfg.Output,
		Report: func(w io.Writer, session *models.Session) {
			sample := stats.Sample(session, cfg.SampleSize, rng)
			title := fmt.Sprintf("Random quotes (showing %d)", len(sample))
			stats.RenderRecords(w, title, sample, session.Len())
		},
	}, nil
}

// ExtractQuotes reads every quote block on a page
func ExtractQuotes(doc *parser.Document) ([]models.Record, []error) {
	var records []models.Record
	var errs []error

	for i, block := range doc.FindAll("div", "quote") {
		textEl := block.Find("span", "text")
		if textEl == nil {
			errs = append(errs, parser.Missing(i, "quote"))
			continue
		}
		authorEl := block.Find("small", "author")
		if authorEl == nil {
			errs = append(errs, parser.Missing(i, "author"))
			continue
		}

		var tags []string
		for _, tag := range block.FindAll("a", "tag") {
			tags = append(tags, strings.TrimSpace(tag.Text()))
		}

		records = append(records, models.NewRecord(
			models.Field{Name: "quote", Value: parser.TrimQuotes(textEl.Text())},
			models.Field{Name: "author", Value: strings.TrimSpace(authorEl.Text())},
			models.Field{Name: "tags", Value: parser.JoinValues(tags)},
		))
	}
	return records, errs
}
