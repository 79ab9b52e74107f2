package sink

import (
	"context"
	"encoding/csv"
	"os"

	"page-scraper/models"

	"github.com/rotisserie/eris"
)

// CSV writes a session as a comma separated file. The header is the union
// of record fields in first-seen order; missing fields are left empty.
type CSV struct {
	Path string
}

// NewCSV creates a CSV sink for path
func NewCSV(path string) *CSV {
	return &CSV{Path: path}
}

func (c *CSV) Write(ctx context.Context, session *models.Session) error {
	if session.Len() == 0 {
		return ErrEmptySession
	}
	if err := ctx.Err(); err != nil {
		return &WriteError{Sink: "csv", Target: c.Path, Err: err}
	}

	header, rows := session.Rows()

	f, err := os.Create(c.Path)
	if err != nil {
		return &WriteError{Sink: "csv", Target: c.Path, Err: eris.Wrap(err, "create file")}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return &WriteError{Sink: "csv", Target: c.Path, Err: eris.Wrap(err, "write header")}
	}
	if err := w.WriteAll(rows); err != nil {
		return &WriteError{Sink: "csv", Target: c.Path, Err: eris.Wrap(err, "write rows")}
	}

	if err := f.Close(); err != nil {
		return &WriteError{Sink: "csv", Target: c.Path, Err: eris.Wrap(err, "close file")}
	}
	return nil
}
