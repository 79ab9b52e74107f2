package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/rotisserie/eris"
)

// Document is a parsed HTML page that supports class based lookups
type Document struct {
	doc *goquery.Document
}

// Element is a single node (or empty match) inside a Document
type Element struct {
	sel *goquery.Selection
}

// Parse builds a queryable Document from raw HTML
func Parse(raw []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(err, "parser: read html")
	}
	return &Document{doc: doc}, nil
}

// Selector builds a CSS selector from a tag and a space separated class list.
// Either part may be empty.
func Selector(tag, class string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(tag))
	for _, c := range strings.Fields(class) {
		b.WriteByte('.')
		b.WriteString(c)
	}
	if b.Len() == 0 {
		return "*"
	}
	return b.String()
}

// Compile validates a tag/class pair and returns the compiled matcher
func Compile(tag, class string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(Selector(tag, class))
	if err != nil {
		return nil, eris.Wrapf(err, "parser: invalid selector tag=%q class=%q", tag, class)
	}
	return sel, nil
}

// FindAll returns every element matching tag and class, in document order
func (d *Document) FindAll(tag, class string) []*Element {
	return findAll(d.doc.Selection, tag, class)
}

// Find returns the first element matching tag and class, or nil
func (d *Document) Find(tag, class string) *Element {
	return find(d.doc.Selection, tag, class)
}

// FindAll returns descendants matching tag and class
func (e *Element) FindAll(tag, class string) []*Element {
	if e == nil {
		return nil
	}
	return findAll(e.sel, tag, class)
}

// Find returns the first descendant matching tag and class, or nil.
// Calling Find on a nil element returns nil so lookups can be chained.
func (e *Element) Find(tag, class string) *Element {
	if e == nil {
		return nil
	}
	return find(e.sel, tag, class)
}

// Text returns the element text content
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	return e.sel.Text()
}

// Attr returns an attribute value and whether it was present
func (e *Element) Attr(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	return e.sel.Attr(name)
}

// Classes returns the element's class list
func (e *Element) Classes() []string {
	class, _ := e.Attr("class")
	return strings.Fields(class)
}

func findAll(s *goquery.Selection, tag, class string) []*Element {
	sel, err := Compile(tag, class)
	if err != nil {
		return nil
	}
	var out []*Element
	s.FindMatcher(sel).Each(func(_ int, m *goquery.Selection) {
		out = append(out, &Element{sel: m})
	})
	return out
}

func find(s *goquery.Selection, tag, class string) *Element {
	sel, err := Compile(tag, class)
	if err != nil {
		return nil
	}
	m := s.FindMatcher(sel).First()
	if m.Length() == 0 {
		return nil
	}
	return &Element{sel: m}
}
