package stats

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strconv"

	"page-scraper/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Options selects which record fields a Report summarises
type Options struct {
	Title         string
	NumericField  string // min/mean/max and the max record
	CategoryField string // frequency table
	LabelField    string // names the max record
	Prefix        string // printed before numeric values, e.g. a currency sign
}

// Numeric summarises the values of one numeric field
type Numeric struct {
	Field string
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

// Bucket is one row of a frequency table
type Bucket struct {
	Key   string
	Count int
}

// Report holds the statistics of one session
type Report struct {
	Options     Options
	Count       int
	Numeric     *Numeric // nil when no record carries a numeric value
	Frequencies []Bucket // sorted by key descending
	MaxRecord   models.Record
}

// Compute builds a Report. It does not modify the session.
func Compute(session *models.Session, opts Options) Report {
	report := Report{
		Options: opts,
		Count:   session.Len(),
	}

	var sum float64
	counts := make(map[string]int)
	for _, record := range session.Records {
		if opts.NumericField != "" {
			if v, ok := record.Get(opts.NumericField); ok {
				if n, ok := models.Float(v); ok {
					sum += n
					if report.Numeric == nil {
						report.Numeric = &Numeric{Field: opts.NumericField, Min: n, Max: n}
						report.MaxRecord = record
					}
					report.Numeric.Count++
					if n < report.Numeric.Min {
						report.Numeric.Min = n
					}
					// strict comparison keeps the first occurrence on ties
					if n > report.Numeric.Max {
						report.Numeric.Max = n
						report.MaxRecord = record
					}
				}
			}
		}

		if opts.CategoryField != "" {
			if v, ok := record.Get(opts.CategoryField); ok {
				counts[models.FormatValue(v)]++
			}
		}
	}

	if report.Numeric != nil {
		report.Numeric.Mean = sum / float64(report.Numeric.Count)
	}

	for key, count := range counts {
		report.Frequencies = append(report.Frequencies, Bucket{Key: key, Count: count})
	}
	sort.Slice(report.Frequencies, func(i, j int) bool {
		return keyGreater(report.Frequencies[i].Key, report.Frequencies[j].Key)
	})

	return report
}

// keyGreater orders numerically when both keys are numbers
func keyGreater(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa > fb
	}
	return a > b
}

// Head returns the first n records
func Head(session *models.Session, n int) []models.Record {
	if n < 0 {
		n = 0
	}
	if n > session.Len() {
		n = session.Len()
	}
	return session.Records[:n]
}

// Sample returns min(n, len) distinct records chosen at random
func Sample(session *models.Session, n int, rng *rand.Rand) []models.Record {
	if n > session.Len() {
		n = session.Len()
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.Record, 0, n)
	for _, i := range rng.Perm(session.Len())[:n] {
		out = append(out, session.Records[i])
	}
	return out
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// Render prints the report as tables
func Render(w io.Writer, r Report) {
	if r.Count == 0 {
		fmt.Fprintln(w, "No data available!")
		return
	}

	opts := r.Options
	summary := newTable(w, opts.Title)
	summary.AppendRow(table.Row{"Total records", r.Count})
	if r.Numeric != nil {
		summary.AppendSeparator()
		summary.AppendRow(table.Row{"Average " + r.Numeric.Field, formatNumber(opts.Prefix, r.Numeric.Mean)})
		summary.AppendRow(table.Row{"Minimum " + r.Numeric.Field, formatNumber(opts.Prefix, r.Numeric.Min)})
		summary.AppendRow(table.Row{"Maximum " + r.Numeric.Field, formatNumber(opts.Prefix, r.Numeric.Max)})
		if opts.LabelField != "" {
			summary.AppendSeparator()
			summary.AppendRow(table.Row{"Highest " + r.Numeric.Field, r.MaxRecord.String(opts.LabelField)})
		}
	}
	summary.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	summary.Render()

	if len(r.Frequencies) > 0 {
		freq := newTable(w, opts.CategoryField+" distribution")
		freq.AppendHeader(table.Row{opts.CategoryField, "count"})
		for _, b := range r.Frequencies {
			freq.AppendRow(table.Row{b.Key, b.Count})
		}
		freq.Render()
	}
}

// RenderRecords prints records as a table followed by the session total
func RenderRecords(w io.Writer, title string, records []models.Record, total int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No data available!")
		return
	}

	header := (&models.Session{Records: records}).FieldNames()
	t := newTable(w, title)
	row := make(table.Row, len(header))
	for i, name := range header {
		row[i] = name
	}
	t.AppendHeader(row)
	for _, record := range records {
		row := make(table.Row, len(header))
		for i, name := range header {
			row[i] = record.String(name)
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("Total items: %d", total)})
	t.Render()
}

func formatNumber(prefix string, v float64) string {
	return prefix + strconv.FormatFloat(v, 'f', 2, 64)
}
