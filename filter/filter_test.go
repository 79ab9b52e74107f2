package filter

import (
	"testing"

	"page-scraper/config"
	"page-scraper/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func ptr(f float64) *float64 { return &f }

func book(title string, price float64, rating int) models.Record {
	return models.NewRecord(
		models.Field{Name: "title", Value: title},
		models.Field{Name: "price", Value: price},
		models.Field{Name: "rating", Value: rating},
	)
}

func titles(records []models.Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.String("title"))
	}
	return out
}

func TestApply(t *testing.T) {
	records := []models.Record{
		book("cheap", 5, 1),
		book("mid", 25, 3),
		book("pricey", 55, 5),
		models.NewRecord(models.Field{Name: "title", Value: "no price"}),
		models.NewRecord(
			models.Field{Name: "title", Value: "text price"},
			models.Field{Name: "price", Value: "n/a"},
		),
	}

	tests := []struct {
		name     string
		rules    []config.FilterRule
		expected []string
	}{
		{
			name:     "no rules keeps everything",
			rules:    nil,
			expected: []string{"cheap", "mid", "pricey", "no price", "text price"},
		},
		{
			name:     "min only",
			rules:    []config.FilterRule{{Field: "price", Min: ptr(10)}},
			expected: []string{"mid", "pricey", "no price", "text price"},
		},
		{
			name:     "min and max inclusive",
			rules:    []config.FilterRule{{Field: "price", Min: ptr(5), Max: ptr(25)}},
			expected: []string{"cheap", "mid", "no price", "text price"},
		},
		{
			name: "rules combine",
			rules: []config.FilterRule{
				{Field: "price", Max: ptr(50)},
				{Field: "rating", Min: ptr(2)},
			},
			expected: []string{"mid", "no price", "text price"},
		},
		{
			name:     "unknown field",
			rules:    []config.FilterRule{{Field: "weight", Min: ptr(1)}},
			expected: []string{"cheap", "mid", "pricey", "no price", "text price"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.rules, zap.NewNop())
			assert.Equal(t, tt.expected, titles(f.Apply(records)))
		})
	}
}

func TestApplySession(t *testing.T) {
	session := models.NewSession("books")
	session.Append(book("a", 1, 1), book("b", 100, 2))

	NewFilter([]config.FilterRule{{Field: "price", Max: ptr(10)}}, nil).ApplySession(session)

	assert.Equal(t, []string{"a"}, titles(session.Records))
}
