// Package config loads cin7-sync settings from an optional YAML file, the
// environment (prefix CIN7) and a local .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/cin7-report-sync/pkg/client"
	"github.com/Sternrassler/cin7-report-sync/pkg/pagination"
	"github.com/Sternrassler/cin7-report-sync/pkg/pipeline"
	"github.com/Sternrassler/cin7-report-sync/pkg/ratelimit"
	"github.com/Sternrassler/cin7-report-sync/pkg/report"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CIN7_POOL_SIZE.
const EnvPrefix = "CIN7"

// Config is the full application configuration.
type Config struct {
	API      APIConfig       `mapstructure:"api"`
	Limits   LimitsConfig    `mapstructure:"limits"`
	Pool     PoolConfig      `mapstructure:"pool"`
	Report   ReportConfig    `mapstructure:"report"`
	Output   OutputConfig    `mapstructure:"output"`
	Cache    CacheConfig     `mapstructure:"cache"`
	Log      LogConfig       `mapstructure:"log"`
	Admin    AdminConfig     `mapstructure:"admin"`
	Accounts []AccountConfig `mapstructure:"accounts"`
}

type APIConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
}

type LimitsConfig struct {
	Minute      int           `mapstructure:"minute"`
	Hour        int           `mapstructure:"hour"`
	Day         int           `mapstructure:"day"`
	MinInterval time.Duration `mapstructure:"min_interval"`
}

type PoolConfig struct {
	Size int `mapstructure:"size"`
}

type ReportConfig struct {
	Variant string `mapstructure:"variant"`
	Range   string `mapstructure:"range"`
	Start   string `mapstructure:"start"`
	End     string `mapstructure:"end"`
	Month   string `mapstructure:"month"`
}

type OutputConfig struct {
	Dir       string `mapstructure:"dir"`
	SQLite    string `mapstructure:"sqlite"`
	GitHubEnv string `mapstructure:"github_env"`
}

type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
	// Refresh drops each account's cached pages before the run.
	Refresh bool `mapstructure:"refresh"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

// AccountConfig names one tenant. The secret is never stored in the file:
// it is read from the KeyEnv variable, or CIN7_<NAME>_KEY when unset.
type AccountConfig struct {
	Name         string `mapstructure:"name"`
	Abbreviation string `mapstructure:"abbreviation"`
	KeyEnv       string `mapstructure:"key_env"`
}

var defaultAccounts = []map[string]any{
	{"name": "AlbertRogerUK", "abbreviation": "ARL", "key_env": "ARL_KEY"},
	{"name": "AlbertRogerFrancEU", "abbreviation": "ARF", "key_env": "ARF_KEY"},
	{"name": "AlbertRogerIberiEU", "abbreviation": "ARIB", "key_env": "ARIB_KEY"},
	{"name": "AlbertRogerNetheEU", "abbreviation": "ARNL", "key_env": "ARNL_KEY"},
}

// SetDefaults registers every key with its default so environment
// overrides are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", client.DefaultBaseURL)
	v.SetDefault("api.timeout", client.DefaultConfig().Timeout)
	v.SetDefault("api.page_size", pagination.DefaultPageSize)

	v.SetDefault("limits.minute", ratelimit.DefaultPerMinute)
	v.SetDefault("limits.hour", ratelimit.DefaultPerHour)
	v.SetDefault("limits.day", ratelimit.DefaultPerDay)
	v.SetDefault("limits.min_interval", ratelimit.DefaultMinInterval)

	v.SetDefault("pool.size", pipeline.DefaultPoolSize)

	v.SetDefault("report.variant", "sales-orders")
	v.SetDefault("report.range", string(report.PresetRollingYear))
	v.SetDefault("report.start", "")
	v.SetDefault("report.end", "")
	v.SetDefault("report.month", "")

	v.SetDefault("output.dir", "tmp_files")
	v.SetDefault("output.sqlite", "")
	v.SetDefault("output.github_env", "")

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("cache.refresh", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("admin.addr", "")

	v.SetDefault("accounts", defaultAccounts)
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration into a Config. configFile may be empty, in which
// case ./cin7-sync.yaml is used when present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("cin7-sync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, errors.New("api.page_size must be positive"))
	}
	if c.Pool.Size <= 0 {
		errs = append(errs, errors.New("pool.size must be positive"))
	}
	if c.Limits.MinInterval < 0 {
		errs = append(errs, errors.New("limits.min_interval must not be negative"))
	}
	if _, err := report.Lookup(c.Report.Variant); err != nil {
		errs = append(errs, err)
	}
	if len(c.Accounts) == 0 {
		errs = append(errs, errors.New("at least one account is required"))
	}
	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("accounts[%d].name is required", i))
			continue
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Errorf("account %q listed twice", a.Name))
		}
		seen[a.Name] = true
	}
	return errors.Join(errs...)
}

// SecretEnv returns the environment variable holding the account's key.
func (a AccountConfig) SecretEnv() string {
	if a.KeyEnv != "" {
		return a.KeyEnv
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(a.Name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return EnvPrefix + "_" + b.String() + "_KEY"
}

// ResolveAccounts pairs every configured account with its secret, in
// configuration order. All missing secrets are reported together.
func (c *Config) ResolveAccounts() ([]client.Account, error) {
	accounts := make([]client.Account, 0, len(c.Accounts))
	var missing []string
	for _, a := range c.Accounts {
		secret := os.Getenv(a.SecretEnv())
		if secret == "" {
			missing = append(missing, a.SecretEnv())
			continue
		}
		accounts = append(accounts, client.Account{Name: a.Name, Secret: secret})
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing account secrets: %s", strings.Join(missing, ", "))
	}
	return accounts, nil
}

// Names returns the account display-name mapping.
func (c *Config) Names() report.Names {
	names := make(report.Names, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.Abbreviation != "" {
			names[a.Name] = a.Abbreviation
		}
	}
	return names
}

// TrackerLimits returns the usage tracker capacities.
func (c *Config) TrackerLimits() ratelimit.Limits {
	return ratelimit.Limits{
		PerMinute:   c.Limits.Minute,
		PerHour:     c.Limits.Hour,
		PerDay:      c.Limits.Day,
		MinInterval: c.Limits.MinInterval,
	}
}

// RangeSpec returns the report date-range inputs.
func (c *Config) RangeSpec() report.RangeSpec {
	return report.RangeSpec{
		Preset: report.Preset(c.Report.Range),
		Start:  c.Report.Start,
		End:    c.Report.End,
		Month:  c.Report.Month,
	}
}
