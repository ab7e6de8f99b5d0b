package contract

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/gitnote/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validInput mirrors the defaults set in cmd.initConfig.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Repo:           ".",
		Output:         "text",
		Color:          "yes",
		LogLevel:       "warn",
		EntryBackend:   "sqlite",
		ArchiveBackend: "sqlite",
		Bucket:         "day",
		Timezone:       "UTC",
		Interval:       "24h",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "json output", mutate: func(in *ConfigRawInput) { in.Output = "JSON" }},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, expectError: true},
		{name: "invalid color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, expectError: true},
		{name: "negative width", mutate: func(in *ConfigRawInput) { in.Width = -1 }, expectError: true},
		{name: "invalid log level", mutate: func(in *ConfigRawInput) { in.LogLevel = "loud" }, expectError: true},
		{name: "invalid entry backend", mutate: func(in *ConfigRawInput) { in.EntryBackend = "redis" }, expectError: true},
		{name: "invalid archive backend", mutate: func(in *ConfigRawInput) { in.ArchiveBackend = "redis" }, expectError: true},
		{name: "mysql without connection", mutate: func(in *ConfigRawInput) { in.EntryBackend = "mysql" }, expectError: true},
		{
			name: "mysql with connection",
			mutate: func(in *ConfigRawInput) {
				in.EntryBackend = "mysql"
				in.EntryDBConnect = "root:pw@tcp(localhost:3306)/gitnote"
			},
		},
		{
			name: "same sqlite file",
			mutate: func(in *ConfigRawInput) {
				in.EntryDBConnect = "/tmp/gitnote.db"
				in.ArchiveDBConnect = "/tmp/gitnote.db"
			},
			expectError: true,
		},
		{
			name: "both in memory",
			mutate: func(in *ConfigRawInput) {
				in.EntryDBConnect = ":memory:"
				in.ArchiveDBConnect = ":memory:"
			},
		},
		{name: "none backends", mutate: func(in *ConfigRawInput) { in.EntryBackend, in.ArchiveBackend = "none", "none" }},
		{name: "bad ref prefix", mutate: func(in *ConfigRawInput) { in.RefPrefix = "archived/" }, expectError: true},
		{name: "ref prefix without slash", mutate: func(in *ConfigRawInput) { in.RefPrefix = "refs/archive" }, expectError: true},
		{name: "invalid bucket", mutate: func(in *ConfigRawInput) { in.Bucket = "week" }, expectError: true},
		{name: "invalid timezone", mutate: func(in *ConfigRawInput) { in.Timezone = "Mars/Olympus" }, expectError: true},
		{name: "invalid interval", mutate: func(in *ConfigRawInput) { in.Interval = "daily" }, expectError: true},
		{name: "interval too short", mutate: func(in *ConfigRawInput) { in.Interval = "5s" }, expectError: true},
		{name: "author with brackets", mutate: func(in *ConfigRawInput) { in.AuthorEmail = "<x@y>" }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(input)
			err := ProcessAndValidate(&Config{}, input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	input := validInput()
	input.Bucket = ""
	input.Timezone = ""
	input.Interval = ""
	input.LogLevel = ""
	require.NoError(t, ProcessAndValidate(cfg, input))

	abs, err := filepath.Abs(".")
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.RepoPath)
	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.True(t, cfg.UseColors)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultRefPrefix, cfg.RefPrefix)
	assert.Equal(t, schema.DayBucket, cfg.Bucket)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, DefaultAuthorName, cfg.AuthorName)
	assert.Equal(t, DefaultAuthorEmail, cfg.AuthorEmail)
	assert.Equal(t, 24*time.Hour, cfg.Interval)
	assert.Equal(t, DefaultTipRef, cfg.TipRef)
}

func TestProcessAndValidate_ArchiveSettings(t *testing.T) {
	cfg := &Config{}
	input := validInput()
	input.RefPrefix = "refs/archive/"
	input.Bucket = "Month"
	input.Timezone = "America/New_York"
	input.AuthorName = "Archiver"
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, "refs/archive/", cfg.RefPrefix)
	assert.Equal(t, schema.MonthBucket, cfg.Bucket)
	assert.Equal(t, "America/New_York", cfg.Location.String())
	assert.Equal(t, "Archiver", cfg.AuthorName)
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		name    string
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{"sqlite empty", schema.SQLiteBackend, "", false},
		{"none", schema.NoneBackend, "", false},
		{"mysql ok", schema.MySQLBackend, "u:p@tcp(h:3306)/db", false},
		{"mysql empty", schema.MySQLBackend, "", true},
		{"mysql no tcp", schema.MySQLBackend, "u:p@h/db", true},
		{"mysql no db", schema.MySQLBackend, "u:p@tcp(h:3306)", true},
		{"postgres ok", schema.PostgreSQLBackend, "host=h dbname=db", false},
		{"postgres empty", schema.PostgreSQLBackend, "", true},
		{"postgres no host", schema.PostgreSQLBackend, "dbname=db", true},
		{"postgres no db", schema.PostgreSQLBackend, "host=h", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessProfilingConfig(t *testing.T) {
	profile := &ProfileConfig{}
	require.NoError(t, ProcessProfilingConfig(profile, ""))
	assert.False(t, profile.Enabled)

	require.NoError(t, ProcessProfilingConfig(profile, "gitnote"))
	assert.True(t, profile.Enabled)
	assert.Equal(t, "gitnote", profile.Prefix)
}
