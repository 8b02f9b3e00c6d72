package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/cache"
	"github.com/Sternrassler/cin7-report-sync/pkg/client"
	"github.com/Sternrassler/cin7-report-sync/pkg/logging"
	"github.com/Sternrassler/cin7-report-sync/pkg/pagination"
	"github.com/Sternrassler/cin7-report-sync/pkg/pipeline"
	"github.com/Sternrassler/cin7-report-sync/pkg/ratelimit"
	"github.com/Sternrassler/cin7-report-sync/pkg/report"
	"github.com/Sternrassler/cin7-report-sync/pkg/sink"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errAllFailed is returned when no account finished cleanly.
var errAllFailed = errors.New("every account failed")

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch all accounts and write the report",
		Example: `  cin7-sync run --variant sales-orders --range weekly
  cin7-sync run --variant purchase-orders --range fixed --start 2024-01-01 --end 2024-12-31
  cin7-sync run --variant received-purchase-orders --range month --month 2025-05`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, cmd)
		},
	}

	f := cmd.Flags()
	f.String("base-url", "", "Cin7 API base URL")
	f.String("variant", "", "report variant (see 'cin7-sync variants')")
	f.String("range", "", "date range preset: fixed, weekly, rolling-year, month")
	f.String("start", "", "range start, YYYY-MM-DD (fixed)")
	f.String("end", "", "range end, YYYY-MM-DD (fixed)")
	f.String("month", "", "calendar month, YYYY-MM (month; default previous month)")
	f.String("output", "", "output directory for CSV files")
	f.String("sqlite", "", "SQLite database recording the run (optional)")
	f.String("github-env", "", "GITHUB_ENV file to export the report path to")
	f.Int("pool", 0, "number of accounts processed concurrently")
	f.String("redis", "", "Redis address for the page cache (optional)")
	f.Bool("refresh-cache", false, "drop cached pages of every account before fetching")
	f.String("admin-addr", "", "address for the admin server (optional)")

	return cmd
}

func (a *app) run(ctx context.Context, cmd *cobra.Command) error {
	cfg := a.cfg
	logger := logging.NewLogger("cli")

	variant, err := report.Lookup(cfg.Report.Variant)
	if err != nil {
		return err
	}
	window, err := cfg.RangeSpec().Resolve(time.Now().UTC())
	if err != nil {
		return err
	}
	accounts, err := cfg.ResolveAccounts()
	if err != nil {
		return err
	}

	apiClient, err := client.New(client.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: "cin7-report-sync/" + version,
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	var opts []pagination.Option
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		defer rdb.Close()
		manager := cache.NewManager(rdb)
		if err := manager.Ping(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Page cache unavailable, continuing without it")
		} else {
			if cfg.Cache.Refresh {
				refreshCache(ctx, logger, manager, accounts, variant.Resource)
			}
			opts = append(opts, pagination.WithCache(manager, cfg.Cache.TTL))
		}
	}

	tracker := ratelimit.NewTracker(cfg.TrackerLimits(), logging.NewLogger("ratelimit"))
	if cfg.Admin.Addr != "" {
		stopAdmin := startAdmin(cfg.Admin.Addr, tracker)
		defer stopAdmin()
	}

	fetcher := pagination.NewHTTPFetcher(apiClient, pagination.Query{
		Resource: variant.Resource,
		Fields:   variant.Fields,
		Rows:     cfg.API.PageSize,
	}, opts...)

	runner := pipeline.NewAccountPipeline(pipeline.Deps{
		Tracker:  tracker,
		Fetcher:  fetcher,
		Filter:   report.NewFilter(variant),
		Expander: report.NewExpander(variant, cfg.Names()),
		Window:   window,
	})

	logger.Info().
		Str("variant", variant.Name).
		Str("range", window.String()).
		Int("accounts", len(accounts)).
		Int("pool", cfg.Pool.Size).
		Msg("Report run started")

	started := time.Now()
	rep := pipeline.NewAggregator(runner, cfg.Pool.Size).Run(ctx, accounts)
	failed := rep.Failed()

	files, err := sink.WriteFiles(cfg.Output.Dir, variant, window, rep.Rows, rep.Errors)
	if err != nil {
		return err
	}

	if cfg.Output.SQLite != "" {
		if err := saveRun(ctx, cfg.Output.SQLite, sink.Run{
			Variant:        variant.Name,
			Range:          window,
			StartedAt:      started,
			FinishedAt:     time.Now(),
			Accounts:       len(accounts),
			FailedAccounts: len(failed),
		}, variant, rep); err != nil {
			logger.Error().Err(err).Msg("Run not recorded")
		}
	}

	exportEnv(logger, cfg.Output.GitHubEnv, files.Rows)
	printSummary(cmd, files, rep)

	if len(accounts) > 0 && len(failed) == len(accounts) {
		return errAllFailed
	}
	return nil
}

// pageInvalidator drops an account's cached listing.
type pageInvalidator interface {
	Invalidate(ctx context.Context, account, resource string) (int, error)
}

func refreshCache(ctx context.Context, logger zerolog.Logger, pages pageInvalidator, accounts []client.Account, resource string) {
	for _, acct := range accounts {
		n, err := pages.Invalidate(ctx, acct.Name, resource)
		if err != nil {
			logger.Warn().Err(err).Str("account", acct.Name).Msg("Page cache refresh failed")
			continue
		}
		logger.Info().Str("account", acct.Name).Str("resource", resource).Int("pages", n).Msg("Cached pages dropped")
	}
}

func saveRun(ctx context.Context, path string, run sink.Run, v report.Variant, rep pipeline.Report) error {
	store, err := sink.OpenStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	// The run is recorded even when ctx was cancelled mid-fetch.
	saved, err := store.SaveRun(context.WithoutCancel(ctx), run, v, rep.Rows, rep.Errors)
	if err != nil {
		return err
	}
	cliLogger := logging.NewLogger("cli")
	cliLogger.Info().Str("run_id", saved.ID).Str("db", path).Msg("Run recorded")
	return nil
}

func exportEnv(logger zerolog.Logger, envFile, reportPath string) {
	if envFile == "" {
		envFile = os.Getenv("GITHUB_ENV")
	}
	if envFile == "" {
		logger.Debug().Msg("GITHUB_ENV not set, skipping export")
		return
	}
	if err := sink.ExportGitHubEnv(envFile, reportPath); err != nil {
		logger.Warn().Err(err).Str("file", envFile).Msg("GITHUB_ENV export failed")
	}
}

func printSummary(cmd *cobra.Command, files sink.Files, rep pipeline.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rows:   %d -> %s\n", len(rep.Rows), files.Rows)
	fmt.Fprintf(out, "errors: %d -> %s\n", len(rep.Errors), files.Errors)
	for _, res := range rep.Results {
		line := fmt.Sprintf("  %-24s %-6s pages=%d records=%d rows=%d", res.Account, res.Status, res.Pages, res.Records, len(res.Rows))
		if res.Err != nil {
			line += " err=" + res.Err.Error()
		}
		fmt.Fprintln(out, line)
	}
}
