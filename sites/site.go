package sites

import (
	"io"

	"page-scraper/models"
	"page-scraper/pageurl"
	"page-scraper/scraper"
)

// Site bundles everything needed to scrape and report one website
type Site struct {
	Name     string
	PageURL  pageurl.Func
	Extract  scraper.ExtractFunc
	MaxPages int
	Output   string // file name written by the tabular sink
	Report   func(w io.Writer, session *models.Session)
}
