package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"page-scraper/config"
	"page-scraper/db"
	"page-scraper/models"
	"page-scraper/sites"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func bookServer(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/catalogue/page-1.html": "books-page-1.html",
		"/catalogue/page-2.html": "books-page-2.html",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join("sites", "testdata", name))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, srv *httptest.Server) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Scrape.Delay = 0
	cfg.Output.Dir = t.TempDir()
	cfg.Sites.Books.FirstPage = ""
	cfg.Sites.Books.PageTemplate = srv.URL + "/catalogue/page-{page}.html"
	return cfg
}

func TestRunSiteWritesCSV(t *testing.T) {
	cfg := testConfig(t, bookServer(t))
	site, err := sites.Books(cfg.Sites.Books)
	require.NoError(t, err)

	var out bytes.Buffer
	session := runSite(context.Background(), cfg, site, &out, zap.NewNop())
	require.NotNil(t, session)

	assert.Equal(t, "books", session.Site)
	assert.Equal(t, 3, session.Len())
	assert.Equal(t, models.StopEmptyPage, session.StopReason)
	assert.Contains(t, out.String(), "Tipping the Velvet")

	raw, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "books_data.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "title,price,rating,availability", lines[0])
}

func TestRunSiteAppliesFilters(t *testing.T) {
	cfg := testConfig(t, bookServer(t))
	minPrice := 51.0
	cfg.Filters = []config.FilterRule{{Field: "price", Min: &minPrice}}
	site, err := sites.Books(cfg.Sites.Books)
	require.NoError(t, err)

	session := runSite(context.Background(), cfg, site, &bytes.Buffer{}, zap.NewNop())
	require.NotNil(t, session)
	assert.Equal(t, 2, session.Len())
	for _, r := range session.Records {
		assert.NotEqual(t, "Soumission", r.String("title"))
	}
}

func TestRunSiteStoresInDatabase(t *testing.T) {
	cfg := testConfig(t, bookServer(t))
	cfg.Database.Driver = db.DriverSQLite
	cfg.Database.DSN = filepath.Join(t.TempDir(), "runs.db")
	site, err := sites.Books(cfg.Sites.Books)
	require.NoError(t, err)

	runSite(context.Background(), cfg, site, &bytes.Buffer{}, zap.NewNop())

	database, err := db.Open(context.Background(), cfg.Database.Driver, cfg.Database.DSN, zap.NewNop())
	require.NoError(t, err)
	defer database.Close()

	runs, err := database.ListRuns(context.Background(), "books", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].RecordCount)
	assert.Equal(t, string(models.StopEmptyPage), runs[0].StopReason)
}

func TestRunsListAndShow(t *testing.T) {
	cfg := testConfig(t, bookServer(t))
	cfg.Database.Driver = db.DriverSQLite
	cfg.Database.DSN = filepath.Join(t.TempDir(), "runs.db")
	site, err := sites.Books(cfg.Sites.Books)
	require.NoError(t, err)
	runSite(context.Background(), cfg, site, &bytes.Buffer{}, zap.NewNop())

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, zap.NewNop())
	require.NoError(t, err)
	defer database.Close()

	var list bytes.Buffer
	require.NoError(t, listRuns(ctx, database, "books", 0, &list))
	assert.Contains(t, list.String(), "empty_page")

	runs, err := database.ListRuns(ctx, "books", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	var out bytes.Buffer
	require.NoError(t, showRun(ctx, database, runs[0].ID, &out))
	text := strings.ToLower(out.String())
	assert.Contains(t, text, "stop reason")
	assert.Contains(t, text, "a light in the attic")
	assert.Contains(t, text, "soumission")
	assert.Contains(t, text, "total items: 3")

	assert.Error(t, showRun(ctx, database, runs[0].ID+100, &bytes.Buffer{}))
}

func TestRunSiteEmptySessionSkipsSinks(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	cfg := testConfig(t, srv)
	site, err := sites.Books(cfg.Sites.Books)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	var out bytes.Buffer
	session := runSite(context.Background(), cfg, site, &out, zap.New(core))
	require.NotNil(t, session)

	assert.Equal(t, 0, session.Len())
	assert.Equal(t, 1, session.Fetches)
	assert.Contains(t, out.String(), "No data available!")
	assert.Equal(t, 1, logs.FilterMessage("no data to save").Len())

	_, err = os.Stat(filepath.Join(cfg.Output.Dir, "books_data.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSiteUnknownEngine(t *testing.T) {
	cfg := testConfig(t, bookServer(t))
	cfg.Fetch.Engine = "rod"
	site, err := sites.Books(cfg.Sites.Books)
	require.NoError(t, err)

	assert.Nil(t, runSite(context.Background(), cfg, site, &bytes.Buffer{}, zap.NewNop()))
}
