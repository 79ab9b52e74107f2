package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"page-scraper/models"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Sink persists the records of a finished session
type Sink interface {
	Write(ctx context.Context, session *models.Session) error
}

// ErrEmptySession is returned when there is nothing to save
var ErrEmptySession = eris.New("no data to save")

// WriteError reports a failed write to a sink target
type WriteError struct {
	Sink   string // csv, xlsx, sql, sheets
	Target string // file path, table or spreadsheet
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s sink: write %s: %v", e.Sink, e.Target, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewFile returns the file sink for format ("csv" or "xlsx") writing name
// under dir. An xlsx sink swaps the file extension.
func NewFile(format, dir, name string) (Sink, error) {
	path := filepath.Join(dir, name)
	switch strings.ToLower(format) {
	case "", "csv":
		return NewCSV(path), nil
	case "xlsx":
		return NewXLSX(strings.TrimSuffix(path, filepath.Ext(path))+".xlsx", ""), nil
	default:
		return nil, eris.Errorf("sink: unknown output format %q", format)
	}
}

// Multi writes to every sink in order. A failing sink is logged and does
// not stop the others; the first error is returned.
type Multi struct {
	sinks []Sink
	log   *zap.Logger
}

// NewMulti combines sinks
func NewMulti(log *zap.Logger, sinks ...Sink) *Multi {
	if log == nil {
		log = zap.L()
	}
	return &Multi{sinks: sinks, log: log}
}

// Add appends another sink
func (m *Multi) Add(s Sink) {
	m.sinks = append(m.sinks, s)
}

// Len returns the number of sinks
func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) Write(ctx context.Context, session *models.Session) error {
	var first error
	for _, s := range m.sinks {
		if err := s.Write(ctx, session); err != nil {
			m.log.Error("sink write failed", zap.String("sink", fmt.Sprintf("%T", s)), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
