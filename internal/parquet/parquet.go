// Package parquet provides data structures and functions for exporting gitnote
// entries and archive runs to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/gitnote/schema"
	"github.com/parquet-go/parquet-go"
)

// Group represents one group configuration.
// This struct maps to the gitnote_groups database table.
type Group struct {
	// GroupPath is the directory of the group, empty for the repository root
	GroupPath string `parquet:"group_path,snappy"`

	// ConfigPath is the tracked path of the configuration file
	ConfigPath string `parquet:"config_path,snappy"`

	// RawConfig is the configuration text as committed
	RawConfig string `parquet:"raw_config,snappy"`

	// Title is decoded from the configuration (nullable)
	Title *string `parquet:"title,optional,snappy"`

	// Description is decoded from the configuration (nullable)
	Description *string `parquet:"description,optional,snappy"`

	// UpdatedAt is the commit time of the last change
	UpdatedAt time.Time `parquet:"updated_at,snappy"`
}

// Article represents the latest content of one article.
// This struct maps to the gitnote_articles database table.
type Article struct {
	Path      string    `parquet:"path,snappy"`
	GroupPath string    `parquet:"group_path,snappy"`
	Name      string    `parquet:"name,snappy"`
	Content   string    `parquet:"content,snappy"`
	ChangedAt time.Time `parquet:"changed_at,snappy"`
}

// ArchiveRun represents a single compaction run with its outcome.
// This struct maps to the gitnote_archive_runs database table.
type ArchiveRun struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// Label names the archive branch
	Label string `parquet:"label,snappy"`

	// RefName is the published archive reference, empty until the run succeeds
	RefName string `parquet:"ref_name,snappy"`

	// Boundary is the revision the history was replayed up to
	Boundary string `parquet:"boundary,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// DurationMs is the duration of the run in milliseconds (nullable)
	DurationMs *int64 `parquet:"duration_ms,optional,snappy"`

	CommitsCreated int32  `parquet:"commits_created,snappy"`
	EntriesFolded  int32  `parquet:"entries_folded,snappy"`
	Status         string `parquet:"status,snappy"`

	// ErrorMessage is set for failed runs (nullable)
	ErrorMessage *string `parquet:"error_message,optional,snappy"`
}

// writeParquet writes rows to a Parquet file with the schema inferred from T.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to flush parquet file: %w", err)
	}

	return nil
}

// WriteGroupsParquet writes a slice of Group structs to a Parquet file.
func WriteGroupsParquet(data []Group, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteArticlesParquet writes a slice of Article structs to a Parquet file.
func WriteArticlesParquet(data []Article, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteArchiveRunsParquet writes a slice of ArchiveRun structs to a Parquet file.
func WriteArchiveRunsParquet(data []ArchiveRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertGroupRecords converts schema.GroupRecord to Group for Parquet export.
func ConvertGroupRecords(records []schema.GroupRecord) []Group {
	result := make([]Group, len(records))
	for i, record := range records {
		result[i] = Group{
			GroupPath:   record.GroupPath,
			ConfigPath:  record.ConfigPath,
			RawConfig:   record.RawConfig,
			Title:       record.Title,
			Description: record.Description,
			UpdatedAt:   record.UpdatedAt,
		}
	}
	return result
}

// ConvertArticleRecords converts schema.ArticleRecord to Article for Parquet export.
func ConvertArticleRecords(records []schema.ArticleRecord) []Article {
	result := make([]Article, len(records))
	for i, record := range records {
		result[i] = Article{
			Path:      record.Path,
			GroupPath: record.GroupPath,
			Name:      record.Name,
			Content:   record.Content,
			ChangedAt: record.ChangedAt,
		}
	}
	return result
}

// ConvertArchiveRunRecords converts schema.ArchiveRunRecord to ArchiveRun for Parquet export.
func ConvertArchiveRunRecords(records []schema.ArchiveRunRecord) []ArchiveRun {
	result := make([]ArchiveRun, len(records))
	for i, record := range records {
		result[i] = ArchiveRun{
			RunID:          record.RunID,
			Label:          record.Label,
			RefName:        record.RefName,
			Boundary:       record.Boundary,
			StartTime:      record.StartTime,
			EndTime:        record.EndTime,
			DurationMs:     record.DurationMs,
			CommitsCreated: record.CommitsCreated,
			EntriesFolded:  record.EntriesFolded,
			Status:         string(record.Status),
			ErrorMessage:   record.ErrorMessage,
		}
	}
	return result
}
