package sites

import (
	"io"
	"strings"

	"page-scraper/config"
	"page-scraper/models"
	"page-scraper/pageurl"
	"page-scraper/parser"
	"page-scraper/stats"
)

// PriceSymbol is stripped from book prices before parsing
const PriceSymbol = "£"

// BookStats configures the book statistics report
var BookStats = stats.Options{
	Title:         "Book scraping statistics",
	NumericField:  "price",
	CategoryField: "rating",
	LabelField:    "title",
	Prefix:        PriceSymbol,
}

// Books builds the book catalogue site
func Books(cfg config.BooksConfig) (*Site, error) {
	pageURL, err := pageurl.Template(cfg.FirstPage, cfg.PageTemplate)
	if err != nil {
		return nil, err
	}
	return &Site{
		Name:     "books",
		PageURL:  pageURL,
		Extract:  ExtractBooks,
		MaxPages: cfg.MaxPages,
		Output:   cfg.Output,
		Report: func(w io.Writer, session *models.Session) {
			stats.Render(w, stats.Compute(session, BookStats))
		},
	}, nil
}

// ExtractBooks reads every product card on a catalogue page
func ExtractBooks(doc *parser.Document) ([]models.Record, []error) {
	var records []models.Record
	var errs []error

	for i, card := range doc.FindAll("article", "product_pod") {
		record, err := extractBook(i, card)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, record)
	}
	return records, errs
}

func extractBook(index int, card *parser.Element) (models.Record, error) {
	title, ok := card.Find("h3", "").Find("a", "").Attr("title")
	if !ok {
		return nil, parser.Missing(index, "title")
	}

	priceEl := card.Find("p", "price_color")
	if priceEl == nil {
		return nil, parser.Missing(index, "price")
	}
	price, err := parser.ParsePrice(priceEl.Text(), PriceSymbol)
	if err != nil {
		return nil, &parser.ExtractionError{Field: "price", Index: index, Err: err}
	}

	ratingEl := card.Find("p", "star-rating")
	if ratingEl == nil {
		return nil, parser.Missing(index, "rating")
	}
	rating := parser.MapRating(strings.Join(ratingEl.Classes(), " "))

	availabilityEl := card.Find("p", "instock availability")
	if availabilityEl == nil {
		return nil, parser.Missing(index, "availability")
	}

	return models.NewRecord(
		models.Field{Name: "title", Value: title},
		models.Field{Name: "price", Value: price},
		models.Field{Name: "rating", Value: rating},
		models.Field{Name: "availability", Value: strings.TrimSpace(availabilityEl.Text())},
	), nil
}
