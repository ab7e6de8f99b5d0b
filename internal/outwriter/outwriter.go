// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/schema"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteChanges prints an extracted change set using the configured output format.
func (ow *OutWriter) WriteChanges(changes schema.ChangeSet, cfg *contract.Config, duration time.Duration) error {
	return WriteChangeSet(changes, cfg, duration)
}

// WriteArchive prints a compaction result using the configured output format.
func (ow *OutWriter) WriteArchive(info *schema.ArchivedInfo, cfg *contract.Config) error {
	return WriteArchivedInfo(info, cfg)
}

// WriteRuns prints recorded archive runs using the configured output format.
func (ow *OutWriter) WriteRuns(runs []schema.ArchiveRunRecord, cfg *contract.Config) error {
	return WriteArchiveRuns(runs, cfg)
}
