package models

import "time"

// StopReason tells why a scrape run stopped requesting pages
type StopReason string

const (
	StopEmptyPage  StopReason = "empty_page"  // a page produced no records
	StopPageBudget StopReason = "page_budget" // maxPages reached
	StopCancelled  StopReason = "cancelled"   // context cancelled between pages
)

// Session accumulates the records of a single scrape run.
// It is owned by one run and never shared between goroutines.
type Session struct {
	Site       string
	Records    []Record
	Errors     []error
	Pages      int // pages that produced at least one record
	Fetches    int // fetch attempts issued
	StopReason StopReason
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewSession creates an empty session for the given site
func NewSession(site string) *Session {
	return &Session{
		Site:      site,
		StartedAt: time.Now(),
	}
}

// Append adds records from one page
func (s *Session) Append(records ...Record) {
	s.Records = append(s.Records, records...)
}

// Len returns the number of collected records
func (s *Session) Len() int {
	return len(s.Records)
}

// FieldNames returns the union of record field names in first-seen order
func (s *Session) FieldNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range s.Records {
		for _, f := range r {
			if !seen[f.Name] {
				seen[f.Name] = true
				names = append(names, f.Name)
			}
		}
	}
	return names
}

// Rows returns the records as string rows aligned with FieldNames
func (s *Session) Rows() (header []string, rows [][]string) {
	header = s.FieldNames()
	rows = make([][]string, 0, len(s.Records))
	for _, r := range s.Records {
		row := make([]string, len(header))
		for i, name := range header {
			row[i] = r.String(name)
		}
		rows = append(rows, row)
	}
	return header, rows
}
