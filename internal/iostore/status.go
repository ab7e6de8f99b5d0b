package iostore

import (
	"fmt"
	"io"
	"slices"

	"github.com/huangsam/gitnote/schema"
)

// PrintEntryStatus prints entry store status information.
func PrintEntryStatus(w io.Writer, status schema.EntryStatus) {
	_, _ = fmt.Fprintf(w, "Entry Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Groups: %d\n", status.TotalGroups)
	_, _ = fmt.Fprintf(w, "Total Articles: %d\n", status.TotalArticles)
	if status.TotalArticles > 0 {
		_, _ = fmt.Fprintf(w, "Last Change: %s\n", status.LastChangeTime.Format("2006-01-02 15:04:05"))
	}
	if status.LastSynced != "" {
		_, _ = fmt.Fprintf(w, "Last Synced: %s\n", status.LastSynced)
	}
	_, _ = fmt.Fprintf(w, "Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintArchiveStatus prints archive store status information.
func PrintArchiveStatus(w io.Writer, status schema.ArchiveStatus) {
	_, _ = fmt.Fprintf(w, "Archive Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		_, _ = fmt.Fprintf(w, "Failed Runs: %d\n", status.FailedRuns)
		_, _ = fmt.Fprintf(w, "Last Run ID: %d (%s)\n", status.LastRunID, status.LastRunLabel)
		_, _ = fmt.Fprintf(w, "Last Run: %s\n", status.LastRunTime.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(w, "Oldest Run: %s\n", status.OldestRunTime.Format("2006-01-02 15:04:05"))
		_, _ = fmt.Fprintf(w, "Total Commits Created: %d\n", status.TotalCommits)
		_, _ = fmt.Fprintf(w, "Total Entries Folded: %d\n", status.TotalEntries)
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableSizes[table])
	}
}
