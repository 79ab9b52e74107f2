package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"page-scraper/db"
	"page-scraper/models"
	"page-scraper/sites"
	"page-scraper/stats"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var every time.Duration

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Scrape the book catalogue and print price statistics",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		site, err := sites.Books(cfg.Sites.Books)
		if err != nil {
			zap.L().Error("invalid books configuration", zap.Error(err))
			return
		}
		schedule(cmd, site)
	},
}

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Scrape quotes and show a random sample",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		site, err := sites.Quotes(cfg.Sites.Quotes, nil)
		if err != nil {
			zap.L().Error("invalid quotes configuration", zap.Error(err))
			return
		}
		schedule(cmd, site)
	},
}

var customCmd = &cobra.Command{
	Use:   "custom",
	Short: "Scrape the site described under sites.custom",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		site, err := sites.Custom(cfg.Sites.Custom, zap.L())
		if err != nil {
			zap.L().Error("invalid custom site configuration", zap.Error(err))
			return
		}
		schedule(cmd, site)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out, err := cfg.YAML()
		if err != nil {
			zap.L().Error("failed to render config", zap.Error(err))
			return
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
	},
}

var runsSite string
var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs stored in the database",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		database, ok := openDatabase(cmd.Context())
		if !ok {
			return
		}
		defer database.Close()

		if err := listRuns(cmd.Context(), database, runsSite, runsLimit, cmd.OutOrStdout()); err != nil {
			zap.L().Error("failed to list runs", zap.Error(err))
		}
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one stored run and its records",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			zap.L().Error("invalid run id", zap.String("id", args[0]))
			return
		}

		database, ok := openDatabase(cmd.Context())
		if !ok {
			return
		}
		defer database.Close()

		if err := showRun(cmd.Context(), database, id, cmd.OutOrStdout()); err != nil {
			zap.L().Error("failed to show run", zap.Int64("id", id), zap.Error(err))
		}
	},
}

func openDatabase(ctx context.Context) (*db.DB, bool) {
	if cfg.Database.Driver == "" {
		zap.L().Warn("no database configured, set database.driver and database.dsn")
		return nil, false
	}
	database, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, zap.L())
	if err != nil {
		zap.L().Error("failed to open database", zap.Error(err))
		return nil, false
	}
	return database, true
}

func listRuns(ctx context.Context, database *db.DB, site string, limit int, w io.Writer) error {
	runs, err := database.ListRuns(ctx, site, limit)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Started", "Records", "Pages", "Errors", "Stop reason"})
	for _, r := range runs {
		t.AppendRow(table.Row{r.ID, r.StartedAt.Local().Format(time.DateTime), r.RecordCount, r.Pages, r.ErrorCount, r.StopReason})
	}
	t.Render()
	return nil
}

// showRun prints the run metadata followed by its records
func showRun(ctx context.Context, database *db.DB, id int64, w io.Writer) error {
	run, err := database.GetRun(ctx, id)
	if err != nil {
		return err
	}
	stored, err := database.GetRecords(ctx, id)
	if err != nil {
		return err
	}
	records := make([]models.Record, 0, len(stored))
	for _, sr := range stored {
		record, err := sr.Record()
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Run %d", run.ID))
	t.AppendRows([]table.Row{
		{"Site", run.Site},
		{"Started", run.StartedAt.Local().Format(time.DateTime)},
		{"Duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)},
		{"Pages", run.Pages},
		{"Fetches", run.Fetches},
		{"Records", run.RecordCount},
		{"Errors", run.ErrorCount},
		{"Stop reason", run.StopReason},
	})
	t.Render()

	stats.RenderRecords(w, "Stored records", records, len(records))
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{booksCmd, quotesCmd, customCmd} {
		cmd.Flags().DurationVar(&every, "every", 0, "Repeat the scrape on this interval (overrides scrape.every)")
	}
	runsCmd.Flags().StringVar(&runsSite, "site", "books", "Site name to list runs for")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
	runsCmd.AddCommand(runsShowCmd)
}
