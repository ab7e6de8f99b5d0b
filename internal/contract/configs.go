package contract

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // timezone lookups in minimal containers

	"github.com/huangsam/gitnote/schema"
)

// Default values for configuration.
const (
	DefaultRefPrefix   = "refs/heads/archived/"
	DefaultTimezone    = "UTC"
	DefaultInterval    = "24h"
	DefaultMetricsAddr = ":9464"
	DefaultTipRef      = "HEAD"
	DefaultLogLevel    = "warn"
	DefaultAuthorName  = "gitnote-archive"
	DefaultAuthorEmail = "gitnote-archive@example.com"
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	RepoPath string

	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	LogLevel   string

	EntryBackend   schema.DatabaseBackend
	EntryDBConnect string // Please use env var as this is plaintext

	ArchiveBackend   schema.DatabaseBackend
	ArchiveDBConnect string // Please use env var as this is plaintext

	RefPrefix   string
	Bucket      schema.BucketGranularity
	Location    *time.Location
	AuthorName  string
	AuthorEmail string
	TempDir     string

	Snapshot bool

	Interval    time.Duration
	MetricsAddr string
	TipRef      string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Repo             string `mapstructure:"repo"`
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	LogLevel         string `mapstructure:"log-level"`
	EntryBackend     string `mapstructure:"entry-backend"`
	EntryDBConnect   string `mapstructure:"entry-db-connect"`
	ArchiveBackend   string `mapstructure:"archive-backend"`
	ArchiveDBConnect string `mapstructure:"archive-db-connect"`
	RefPrefix        string `mapstructure:"ref-prefix"`
	Bucket           string `mapstructure:"bucket"`
	Timezone         string `mapstructure:"timezone"`
	AuthorName       string `mapstructure:"author-name"`
	AuthorEmail      string `mapstructure:"author-email"`
	TempDir          string `mapstructure:"temp-dir"`
	TipRef           string `mapstructure:"tip-ref"`

	// --- Fields from extractCmd.Flags() ---
	Snapshot bool `mapstructure:"snapshot"`

	// --- Fields from daemonCmd.Flags() ---
	Interval    string `mapstructure:"interval"`
	MetricsAddr string `mapstructure:"metrics-addr"`
}

// Clone returns a copy of the Config for per-request overrides.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processArchiveSettings(cfg, input); err != nil {
		return err
	}
	if err := processDaemonSettings(cfg, input); err != nil {
		return err
	}
	return nil
}

// ProcessProfilingConfig enables profiling when a prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates output and logging fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.TempDir = input.TempDir
	cfg.Snapshot = input.Snapshot

	repo := input.Repo
	if repo == "" {
		repo = "."
	}
	absRepo, err := filepath.Abs(repo)
	if err != nil {
		return fmt.Errorf("invalid repository path %q: %w", repo, err)
	}
	cfg.RepoPath = absRepo

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", input.Width)
	}

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	cfg.LogLevel = strings.ToLower(input.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "none":
	default:
		return fmt.Errorf("invalid log level '%s'. must be debug, info, warn, error, none", input.LogLevel)
	}

	return nil
}

// validateBackendConfigs validates entry and archive backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Entry Backend Validation ---
	cfg.EntryBackend = schema.DatabaseBackend(strings.ToLower(input.EntryBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.EntryBackend]; !ok {
		return fmt.Errorf("invalid entry backend '%s'. must be sqlite, mysql, postgresql, none", input.EntryBackend)
	}
	cfg.EntryDBConnect = input.EntryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.EntryBackend, cfg.EntryDBConnect); err != nil {
		return err
	}

	// --- Archive Backend Validation ---
	cfg.ArchiveBackend = schema.DatabaseBackend(strings.ToLower(input.ArchiveBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.ArchiveBackend]; !ok {
		return fmt.Errorf("invalid archive backend '%s'. must be sqlite, mysql, postgresql, none", input.ArchiveBackend)
	}
	cfg.ArchiveDBConnect = input.ArchiveDBConnect
	if err := ValidateDatabaseConnectionString(cfg.ArchiveBackend, cfg.ArchiveDBConnect); err != nil {
		return err
	}

	// Entries and runs live in different SQLite files
	if cfg.EntryBackend == schema.SQLiteBackend && cfg.ArchiveBackend == schema.SQLiteBackend {
		entryDBPath := cfg.EntryDBConnect
		if entryDBPath == "" {
			entryDBPath = GetEntryDBFilePath()
		}
		archiveDBPath := cfg.ArchiveDBConnect
		if archiveDBPath == "" {
			archiveDBPath = GetArchiveDBFilePath()
		}
		if entryDBPath == archiveDBPath && entryDBPath != ":memory:" {
			return fmt.Errorf("entry and archive storage must use different SQLite database files. Both resolve to %q", entryDBPath)
		}
	}

	return nil
}

// processArchiveSettings handles the compaction parameters.
func processArchiveSettings(cfg *Config, input *ConfigRawInput) error {
	cfg.RefPrefix = strings.TrimSpace(input.RefPrefix)
	if cfg.RefPrefix == "" {
		cfg.RefPrefix = DefaultRefPrefix
	}
	if !strings.HasPrefix(cfg.RefPrefix, "refs/") || !strings.HasSuffix(cfg.RefPrefix, "/") {
		return fmt.Errorf("ref prefix %q must start with 'refs/' and end with '/'", cfg.RefPrefix)
	}

	cfg.Bucket = schema.BucketGranularity(strings.ToLower(input.Bucket))
	if cfg.Bucket == "" {
		cfg.Bucket = schema.DayBucket
	}
	if _, ok := schema.ValidBucketGranularities[cfg.Bucket]; !ok {
		return fmt.Errorf("invalid bucket '%s'. must be hour, day, month", input.Bucket)
	}

	tz := input.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	cfg.Location = loc

	cfg.AuthorName = strings.TrimSpace(input.AuthorName)
	if cfg.AuthorName == "" {
		cfg.AuthorName = DefaultAuthorName
	}
	cfg.AuthorEmail = strings.TrimSpace(input.AuthorEmail)
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = DefaultAuthorEmail
	}
	if strings.ContainsAny(cfg.AuthorName+cfg.AuthorEmail, "<>\n") {
		return fmt.Errorf("author name and email cannot contain '<', '>' or newlines")
	}

	return nil
}

// processDaemonSettings handles the scheduler and metrics parameters.
func processDaemonSettings(cfg *Config, input *ConfigRawInput) error {
	interval := input.Interval
	if interval == "" {
		interval = DefaultInterval
	}
	d, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if d < time.Minute {
		return fmt.Errorf("interval must be at least 1m (received %s)", d)
	}
	cfg.Interval = d

	cfg.MetricsAddr = input.MetricsAddr
	cfg.TipRef = strings.TrimSpace(input.TipRef)
	if cfg.TipRef == "" {
		cfg.TipRef = DefaultTipRef
	}
	return nil
}
