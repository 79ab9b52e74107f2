package pageurl

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Placeholder is replaced by the page number in URL templates
const Placeholder = "{page}"

// Func returns the URL of a 1-based page number
type Func = func(page int) string

// Fixed returns the same URL for every page
func Fixed(base string) Func {
	return func(int) string { return base }
}

// Template substitutes the page number for {page} in pattern.
// When first is non-empty it is used verbatim for page 1.
func Template(first, pattern string) (Func, error) {
	if !strings.Contains(pattern, Placeholder) {
		return nil, eris.Errorf("pageurl: template %q has no %s placeholder", pattern, Placeholder)
	}
	return func(page int) string {
		if page == 1 && first != "" {
			return first
		}
		return strings.ReplaceAll(pattern, Placeholder, strconv.Itoa(page))
	}, nil
}

// QueryParam sets param=page on base for every page after the first.
// Page 1 is base unchanged. Other query parameters are kept.
func QueryParam(base, param string) (Func, error) {
	if param == "" {
		return nil, eris.New("pageurl: empty page parameter")
	}
	parsedURL, err := url.Parse(base)
	if err != nil {
		return nil, eris.Wrapf(err, "pageurl: parse %q", base)
	}
	query := parsedURL.Query()

	return func(page int) string {
		if page == 1 {
			return base
		}

		// Clone the query parameters
		newQuery := make(url.Values, len(query)+1)
		for k, v := range query {
			newQuery[k] = v
		}
		newQuery.Set(param, strconv.Itoa(page))

		newParsedURL := *parsedURL
		newParsedURL.RawQuery = newQuery.Encode()
		return newParsedURL.String()
	}, nil
}
