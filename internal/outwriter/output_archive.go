package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/schema"
)

// WriteArchivedInfo outputs the result of one compaction run.
func WriteArchivedInfo(info *schema.ArchivedInfo, cfg *contract.Config) error {
	if info == nil {
		return fmt.Errorf("no archive result to write")
	}
	return writeFormatted(cfg, renderers{
		json:     info,
		csv:      func(w io.Writer) error { return writeArchiveCSV(w, info) },
		text:     func(w io.Writer) error { return writeArchiveText(w, info) },
		textNote: "Wrote summary",
	})
}

func writeArchiveText(w io.Writer, info *schema.ArchivedInfo) error {
	if !info.Published() {
		_, err := fmt.Fprintf(w, "Nothing to archive for %s (boundary %s)\n", info.Label, info.Boundary)
		return err
	}
	if _, err := fmt.Fprint(w, info.Summary()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "[tip]       => %s\n", info.TipCommit)
	return err
}

func writeArchiveCSV(w io.Writer, info *schema.ArchivedInfo) error {
	header := []string{"label", "ref_name", "boundary", "tip_commit", "commits_created", "entries_folded", "articles", "configs", "removals", "duration_ms", "finished_at"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		return cw.Write([]string{
			info.Label,
			info.RefName,
			info.Boundary,
			info.TipCommit,
			strconv.Itoa(info.CommitsCreated),
			strconv.Itoa(info.EntriesFolded),
			strconv.Itoa(info.Articles),
			strconv.Itoa(info.Configs),
			strconv.Itoa(info.Removals),
			strconv.FormatInt(info.Duration.Milliseconds(), 10),
			info.FinishedAt.Format(contract.DateTimeFormat),
		})
	})
}
