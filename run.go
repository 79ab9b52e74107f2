package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"page-scraper/config"
	"page-scraper/db"
	"page-scraper/fetcher"
	"page-scraper/filter"
	"page-scraper/models"
	"page-scraper/notify"
	"page-scraper/scheduler"
	"page-scraper/scraper"
	"page-scraper/sheets"
	"page-scraper/sink"
	"page-scraper/sites"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// schedule runs the site once, or repeatedly when an interval is set
func schedule(cmd *cobra.Command, site *sites.Site) {
	interval := cfg.Scrape.Every
	if cmd.Flags().Changed("every") {
		interval = every
	}

	job := func(ctx context.Context) {
		runSite(ctx, cfg, site, cmd.OutOrStdout(), zap.L())
	}
	scheduler.NewScheduler(interval, job, zap.L()).Run(cmd.Context())
}

// runSite scrapes one site, prints its report and hands the session to
// every configured sink. Nothing here is fatal.
func runSite(ctx context.Context, cfg *config.Config, site *sites.Site, out io.Writer, log *zap.Logger) *models.Session {
	log = log.With(zap.String("site", site.Name))

	f, err := fetcher.New(cfg.Fetch.Engine, fetcher.Options{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
	})
	if err != nil {
		log.Error("failed to create fetcher", zap.Error(err))
		return nil
	}

	s := scraper.New(f, scraper.WithLogger(log))
	session := s.Run(ctx, site.PageURL, site.Extract, site.MaxPages, cfg.Scrape.Delay)
	session.Site = site.Name

	filter.NewFilter(cfg.Filters, log).ApplySession(session)

	site.Report(out, session)

	output := ""
	if session.Len() == 0 {
		log.Warn("no data to save")
	} else {
		output = save(ctx, cfg, site, session, log)
	}

	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Endpoint, nil, log)
		if err != nil {
			log.Error("failed to create telegram notifier", zap.Error(err))
		} else if err := tg.Notify(ctx, session, output); err != nil {
			log.Error("failed to send telegram summary", zap.Error(err))
		}
	}

	return session
}

// save writes the session to the file sink plus any optional sinks and
// returns the path of the file written, or "" when that write failed
func save(ctx context.Context, cfg *config.Config, site *sites.Site, session *models.Session, log *zap.Logger) string {
	fileSink, err := sink.NewFile(cfg.Output.Format, cfg.Output.Dir, site.Output)
	if err != nil {
		log.Error("invalid output configuration", zap.Error(err))
		return ""
	}

	output := ""
	if err := fileSink.Write(ctx, session); err != nil {
		log.Error("failed to save data", zap.Error(err))
	} else {
		output = filePath(fileSink)
		log.Info("data saved", zap.String("path", output), zap.Int("records", session.Len()))
	}

	extra := sink.NewMulti(log)

	if cfg.Database.Driver != "" {
		database, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, log)
		if err != nil {
			log.Error("failed to open database", zap.Error(err))
		} else {
			defer database.Close()
			extra.Add(db.NewStore(database))
		}
	}

	if cfg.Sheets.SpreadsheetURL != "" {
		id := sheets.ExtractSpreadsheetID(cfg.Sheets.SpreadsheetURL)
		if id == "" {
			log.Error("could not extract spreadsheet id", zap.String("url", cfg.Sheets.SpreadsheetURL))
		} else if w, err := sheets.NewWriter(ctx, id, cfg.Sheets.CredentialsFile, log); err != nil {
			log.Error("failed to create sheets writer", zap.Error(err))
		} else if err := w.SetMode(cfg.Sheets.Mode); err != nil {
			log.Error("invalid sheets configuration", zap.Error(err))
		} else {
			extra.Add(w)
		}
	}

	if extra.Len() > 0 {
		// failures are logged by Multi
		_ = extra.Write(ctx, session)
	}
	return output
}

func filePath(s sink.Sink) string {
	var p string
	switch v := s.(type) {
	case *sink.CSV:
		p = v.Path
	case *sink.XLSX:
		p = v.Path
	}
	if abs, err := filepath.Abs(p); err == nil {
		if wd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(wd, abs); err == nil {
				return rel
			}
		}
	}
	return p
}
