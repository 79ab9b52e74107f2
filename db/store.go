package db

import (
	"context"

	"page-scraper/models"
	"page-scraper/sink"

	"go.uber.org/zap"
)

// Store adapts DB to the sink interface
type Store struct {
	db *DB
}

// NewStore wraps an open database as a sink
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) Write(ctx context.Context, session *models.Session) error {
	if session.Len() == 0 {
		return sink.ErrEmptySession
	}
	run, err := s.db.SaveSession(ctx, session)
	if err != nil {
		return &sink.WriteError{Sink: "sql", Target: "scrape_runs", Err: err}
	}
	s.db.log.Info("saved run to database",
		zap.Int64("run_id", run.ID),
		zap.String("site", run.Site),
		zap.Int("records", run.RecordCount),
	)
	return nil
}
