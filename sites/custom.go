package sites

import (
	"io"
	"strings"

	"page-scraper/config"
	"page-scraper/models"
	"page-scraper/pageurl"
	"page-scraper/parser"
	"page-scraper/scraper"
	"page-scraper/stats"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Custom builds a site described entirely by configuration
func Custom(cfg config.CustomConfig, log *zap.Logger) (*Site, error) {
	if log == nil {
		log = zap.L()
	}
	if cfg.BaseURL == "" {
		return nil, eris.New("sites: custom base_url is empty")
	}

	extract, err := CustomExtractor(cfg.Item, cfg.Fields)
	if err != nil {
		return nil, err
	}

	maxPages := cfg.MaxPages
	var pageURL pageurl.Func
	switch {
	case cfg.PageTemplate != "":
		pageURL, err = pageurl.Template(cfg.BaseURL, cfg.PageTemplate)
	case cfg.PageParam != "":
		pageURL, err = pageurl.QueryParam(cfg.BaseURL, cfg.PageParam)
	default:
		pageURL = pageurl.Fixed(cfg.BaseURL)
		if maxPages > 1 {
			log.Warn("custom site has no pagination configured, scraping a single page",
				zap.Int("max_pages", maxPages))
			maxPages = 1
		}
	}
	if err != nil {
		return nil, err
	}

	displayRows := cfg.DisplayRows
	return &Site{
		Name:     "custom",
		PageURL:  pageURL,
		Extract:  extract,
		MaxPages: maxPages,
		Output:   cfg.Output,
		Report: func(w io.Writer, session *models.Session) {
			stats.RenderRecords(w, "Scraped data", stats.Head(session, displayRows), session.Len())
		},
	}, nil
}

// CustomExtractor validates the selectors up front and returns an extractor
// that turns each matching item into one record. Without fields each item
// yields its trimmed text.
func CustomExtractor(item config.SelectorRule, fields []config.FieldConfig) (scraper.ExtractFunc, error) {
	if _, err := parser.Compile(item.Tag, item.Class); err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, eris.New("sites: custom field without a name")
		}
		if _, err := parser.Compile(f.Tag, f.Class); err != nil {
			return nil, err
		}
	}

	return func(doc *parser.Document) ([]models.Record, []error) {
		var records []models.Record
		var errs []error

		for i, el := range doc.FindAll(item.Tag, item.Class) {
			if len(fields) == 0 {
				records = append(records, models.NewRecord(
					models.Field{Name: "text", Value: strings.TrimSpace(el.Text())},
				))
				continue
			}

			record, err := extractFields(i, el, fields)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			records = append(records, record)
		}
		return records, errs
	}, nil
}

func extractFields(index int, item *parser.Element, fields []config.FieldConfig) (models.Record, error) {
	record := make(models.Record, 0, len(fields))
	for _, f := range fields {
		target := item
		if f.Tag != "" || f.Class != "" {
			target = item.Find(f.Tag, f.Class)
		}

		value, ok := "", target != nil
		if ok {
			if f.Attr != "" {
				value, ok = target.Attr(f.Attr)
			} else {
				value = strings.TrimSpace(target.Text())
			}
		}
		if !ok && !f.Optional {
			return nil, parser.Missing(index, f.Name)
		}
		record = record.Set(f.Name, strings.TrimSpace(value))
	}
	return record, nil
}
