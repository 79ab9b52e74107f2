package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB wraps the database connection
type DB struct {
	conn   *sql.DB
	driver string
	log    *zap.Logger
}

// Open connects to the database and initializes the schema
func Open(ctx context.Context, driver, dsn string, log *zap.Logger) (*DB, error) {
	if log == nil {
		log = zap.L()
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, eris.Errorf("db: unsupported driver %q", driver)
	}
	if dsn == "" {
		return nil, eris.New("db: empty dsn")
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "db: open")
	}
	if driver == DriverSQLite {
		// a single connection keeps :memory: databases alive and serializes writers
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "db: ping")
	}

	db := &DB{conn: conn, driver: driver, log: log}

	// Initialize schema
	if err := db.initSchema(ctx); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "db: initialize schema")
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id           BIGSERIAL PRIMARY KEY,
	site         TEXT NOT NULL,
	stop_reason  VARCHAR(20) NOT NULL,
	pages        INTEGER NOT NULL DEFAULT 0,
	fetches      INTEGER NOT NULL DEFAULT 0,
	record_count INTEGER NOT NULL DEFAULT 0,
	error_count  INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scrape_records (
	id       BIGSERIAL PRIMARY KEY,
	run_id   BIGINT NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	data     JSONB NOT NULL
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	site         TEXT NOT NULL,
	stop_reason  TEXT NOT NULL,
	pages        INTEGER NOT NULL DEFAULT 0,
	fetches      INTEGER NOT NULL DEFAULT 0,
	record_count INTEGER NOT NULL DEFAULT 0,
	error_count  INTEGER NOT NULL DEFAULT 0,
	started_at   DATETIME NOT NULL,
	finished_at  DATETIME NOT NULL,
	created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scrape_records (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   INTEGER NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	data     TEXT NOT NULL
);
`

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema(ctx context.Context) error {
	schema := sqliteSchema
	if db.driver == DriverPostgres {
		schema = postgresSchema
	}

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return eris.Wrap(err, "create tables")
		}
	}

	// Create indexes
	_, err := db.conn.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_scrape_runs_site ON scrape_runs(site)`)
	if err != nil {
		db.log.Warn("failed to create index on scrape_runs.site", zap.Error(err))
	}
	_, err = db.conn.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_scrape_records_run_id ON scrape_records(run_id)`)
	if err != nil {
		db.log.Warn("failed to create index on scrape_records.run_id", zap.Error(err))
	}

	return nil
}

// rebind rewrites ? placeholders to $n for postgres
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
