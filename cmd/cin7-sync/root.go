package main

import (
	"fmt"
	"os"

	"github.com/Sternrassler/cin7-report-sync/pkg/config"
	"github.com/Sternrassler/cin7-report-sync/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"pretty":        "log.pretty",
	"base-url":      "api.base_url",
	"variant":       "report.variant",
	"range":         "report.range",
	"start":         "report.start",
	"end":           "report.end",
	"month":         "report.month",
	"output":        "output.dir",
	"sqlite":        "output.sqlite",
	"github-env":    "output.github_env",
	"pool":          "pool.size",
	"redis":         "cache.redis_addr",
	"refresh-cache": "cache.refresh",
	"admin-addr":    "admin.addr",
}

// app holds state shared by the subcommands.
type app struct {
	configFile string
	envFiles   []string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "cin7-sync",
		Short:         "Export Cin7 documents for many accounts as flat CSV reports",
		Long:          "cin7-sync pages Cin7 sales orders, credit notes and purchase orders for every configured account under per-account rate limits, and writes one row per line item.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./cin7-sync.yaml when present)")
	pf.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files loaded before reading the environment")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("pretty", false, "human-readable console logs")

	rootCmd.AddCommand(
		newVersionCmd(),
		newVariantsCmd(),
		newAccountsCmd(a),
		newRunCmd(a),
	)

	return rootCmd
}

// load reads .env files and configuration, then configures logging.
func (a *app) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFiles...); err != nil {
		return err
	}

	v := viper.New()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	cfg, err := config.Load(v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	return nil
}
