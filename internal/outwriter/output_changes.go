package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// ChangeRow is the flattened view of one entry shared by every output format.
type ChangeRow struct {
	Index     int       `json:"index"`
	Kind      string    `json:"kind"`
	Group     string    `json:"group"`
	Name      string    `json:"name,omitempty"`
	Path      string    `json:"path"`
	BlobHash  string    `json:"blob_hash,omitempty"`
	Content   *string   `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToChangeRows flattens the closed set of entry variants.
func ToChangeRows(changes schema.ChangeSet) []ChangeRow {
	rows := make([]ChangeRow, len(changes))
	for i, entry := range changes {
		row := ChangeRow{
			Index:     i + 1,
			Kind:      string(entry.Kind()),
			Path:      entry.EntryPath(),
			Timestamp: entry.ChangedAt(),
		}
		switch e := entry.(type) {
		case schema.ArticleChanged:
			row.Group, row.Name, row.BlobHash = e.Group, e.Name, e.BlobHash
			row.Content = &e.Content
		case schema.GroupConfigChanged:
			row.Group, row.BlobHash = e.Group, e.BlobHash
			row.Content = &e.Content
		case schema.Removed:
			row.Group = e.Group
			if e.Name != nil {
				row.Name = *e.Name
			}
		}
		rows[i] = row
	}
	return rows
}

// WriteChangeSet outputs an extracted change set, dispatching based on the output format configured.
func WriteChangeSet(changes schema.ChangeSet, cfg *contract.Config, duration time.Duration) error {
	rows := ToChangeRows(changes)
	return writeFormatted(cfg, renderers{
		json:     rows,
		csv:      func(w io.Writer) error { return writeChangeCSV(w, rows) },
		text:     func(w io.Writer) error { return writeChangeTable(w, changes, rows, cfg, duration) },
		textNote: "Wrote table",
	})
}

// writeChangeTable generates and writes the human-readable table.
func writeChangeTable(w io.Writer, changes schema.ChangeSet, rows []ChangeRow, cfg *contract.Config, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"#", "Kind", "Group", "Path", "Changed At"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	// # + Kind + Group + Changed At with borders/padding
	pathWidth := flexColumnWidth(cfg, 60)

	data := make([][]string, 0, len(rows))
	for i, row := range rows {
		group := row.Group
		if group == "" {
			group = "(root)"
		}
		data = append(data, []string{
			strconv.Itoa(row.Index),
			contract.GetColorLabel(changes[i].Kind()),
			contract.TruncatePath(group, 20),
			contract.TruncatePath(row.Path, pathWidth),
			row.Timestamp.Format(contract.DateTimeFormat),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	articles, configs, removals := changes.Counts()
	if _, err := fmt.Fprintf(w, "Extracted %d entries (%d articles, %d configs, %d removals)\n", len(changes), articles, configs, removals); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Extraction completed in %v\n", duration); err != nil {
		return err
	}
	return nil
}

// writeChangeCSV writes one line per entry without content.
func writeChangeCSV(w io.Writer, rows []ChangeRow) error {
	header := []string{"index", "kind", "group", "name", "path", "blob_hash", "changed_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, row := range rows {
			rec := []string{
				strconv.Itoa(row.Index),
				row.Kind,
				row.Group,
				row.Name,
				row.Path,
				row.BlobHash,
				row.Timestamp.Format(contract.DateTimeFormat),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
