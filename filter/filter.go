package filter

import (
	"page-scraper/config"
	"page-scraper/models"

	"go.uber.org/zap"
)

// Filter applies numeric range rules to records
type Filter struct {
	rules []config.FilterRule
	log   *zap.Logger
}

// NewFilter creates a new Filter instance
func NewFilter(rules []config.FilterRule, log *zap.Logger) *Filter {
	if log == nil {
		log = zap.L()
	}
	return &Filter{
		rules: rules,
		log:   log,
	}
}

// Apply returns the records that match every rule, in their original order
func (f *Filter) Apply(records []models.Record) []models.Record {
	if len(f.rules) == 0 {
		return records
	}

	var filtered []models.Record
	for _, record := range records {
		if f.matches(record) {
			filtered = append(filtered, record)
		}
	}

	f.log.Info("applied filters",
		zap.Int("rules", len(f.rules)),
		zap.Int("before", len(records)),
		zap.Int("after", len(filtered)),
	)
	return filtered
}

// ApplySession filters the session records in place
func (f *Filter) ApplySession(session *models.Session) {
	session.Records = f.Apply(session.Records)
}

// matches checks a record against all rules
func (f *Filter) matches(record models.Record) bool {
	for _, rule := range f.rules {
		// Only filter on values we could read; a missing or non-numeric
		// field never excludes the record
		v, ok := record.Get(rule.Field)
		if !ok {
			continue
		}
		n, ok := models.Float(v)
		if !ok {
			continue
		}

		if rule.Min != nil && n < *rule.Min {
			return false
		}
		if rule.Max != nil && n > *rule.Max {
			return false
		}
	}
	return true
}
