package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/gitnote/schema"
)

// Entry label constants.
const (
	ArticleValue = "Article" // Article added or replaced
	ConfigValue  = "Config"  // Group configuration added or replaced
	RemovedValue = "Removed" // Classified path deleted
)

// Color variables for console output.
var (
	ArticleColor = color.New(color.FgGreen)               // ArticleColor marks content that was written.
	ConfigColor  = color.New(color.FgYellow)              // ConfigColor marks group configuration.
	RemovedColor = color.New(color.FgRed, color.Bold)     // RemovedColor marks deletions.
	HeaderColor  = color.New(color.FgCyan, color.Bold)    // HeaderColor marks section titles.
	FailedColor  = color.New(color.FgMagenta, color.Bold) // FailedColor marks failed archive runs.
)

// GetPlainLabel returns a plain text label for an entry variant.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(kind schema.EntryKind) string {
	switch kind {
	case schema.ArticleChangedKind:
		return ArticleValue
	case schema.GroupConfigChangedKind:
		return ConfigValue
	default:
		return RemovedValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(kind schema.EntryKind) string {
	text := GetPlainLabel(kind)

	switch text {
	case ArticleValue:
		return ArticleColor.Sprint(text)
	case ConfigValue:
		return ConfigColor.Sprint(text)
	default:
		return RemovedColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetEntryDBFilePath returns the path to the SQLite DB file for entry storage.
func GetEntryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".gitnote_entries.db"
	}
	return filepath.Join(homeDir, ".gitnote_entries.db")
}

// GetArchiveDBFilePath returns the path to the SQLite DB file for archive run storage.
func GetArchiveDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".gitnote_archive.db"
	}
	return filepath.Join(homeDir, ".gitnote_archive.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 so the "..." prefix leaves room for content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
