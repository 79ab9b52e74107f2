package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ValueSeparator joins multi-valued fields such as tags into one cell
const ValueSeparator = ", "

// ratingWords is checked in order; matching is case-sensitive and whole-word
var ratingWords = []struct {
	word  string
	value int
}{
	{"One", 1},
	{"Two", 2},
	{"Three", 3},
	{"Four", 4},
	{"Five", 5},
}

// ExtractionError reports a record that could not be built from its element
type ExtractionError struct {
	Field string
	Index int // position of the item on its page
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract item %d field %q: %v", e.Index, e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ErrMissing is the cause used when an expected element or attribute is absent
var ErrMissing = eris.New("missing element")

// Missing builds an ExtractionError for an absent field
func Missing(index int, field string) *ExtractionError {
	return &ExtractionError{Field: field, Index: index, Err: ErrMissing}
}

// MapRating converts a rating word (or a class list containing one) to 1..5.
// Unrecognized input maps to 0.
func MapRating(text string) int {
	tokens := strings.Fields(text)
	for _, rw := range ratingWords {
		for _, tok := range tokens {
			if tok == rw.word {
				return rw.value
			}
		}
	}
	return 0
}

// ParsePrice strips a single leading currency symbol and parses the rest
func ParsePrice(text, symbol string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, symbol))
	price, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "parse price %q", text)
	}
	return price, nil
}

// JoinValues flattens a list into a single delimited string
func JoinValues(values []string) string {
	return strings.Join(values, ValueSeparator)
}

// TrimQuotes removes surrounding straight and curly quotation marks
func TrimQuotes(text string) string {
	return strings.Trim(strings.TrimSpace(text), "\"“”")
}
