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

// WriteArchiveRuns outputs recorded archive runs, dispatching based on the output format configured.
func WriteArchiveRuns(runs []schema.ArchiveRunRecord, cfg *contract.Config) error {
	return writeFormatted(cfg, renderers{
		json:     runs,
		csv:      func(w io.Writer) error { return writeRunsCSV(w, runs) },
		text:     func(w io.Writer) error { return writeRunsTable(w, runs, cfg) },
		textNote: "Wrote table",
	})
}

// statusLabel colors the run status for console output.
func statusLabel(status schema.RunStatus) string {
	switch status {
	case schema.RunSucceeded:
		return contract.ArticleColor.Sprint(string(status))
	case schema.RunFailed:
		return contract.FailedColor.Sprint(string(status))
	default:
		return contract.ConfigColor.Sprint(string(status))
	}
}

// runDetail is the reference of a succeeded run or the error of a failed one.
func runDetail(run schema.ArchiveRunRecord) string {
	if run.ErrorMessage != nil {
		return *run.ErrorMessage
	}
	return run.RefName
}

func formatDuration(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return (time.Duration(*ms) * time.Millisecond).String()
}

func writeRunsTable(w io.Writer, runs []schema.ArchiveRunRecord, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Label", "Status", "Started", "Duration", "Commits", "Entries", "Detail"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// ID + Label + Status + Started + Duration + Commits + Entries
	detailWidth := flexColumnWidth(cfg, 90)

	data := make([][]string, 0, len(runs))
	for _, run := range runs {
		data = append(data, []string{
			strconv.FormatInt(run.RunID, 10),
			run.Label,
			statusLabel(run.Status),
			run.StartTime.Format(contract.DateTimeFormat),
			formatDuration(run.DurationMs),
			strconv.Itoa(int(run.CommitsCreated)),
			strconv.Itoa(int(run.EntriesFolded)),
			contract.TruncatePath(runDetail(run), detailWidth),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d archive runs\n", len(runs))
	return err
}

func writeRunsCSV(w io.Writer, runs []schema.ArchiveRunRecord) error {
	header := []string{"run_id", "label", "ref_name", "boundary", "status", "start_time", "end_time", "duration_ms", "commits_created", "entries_folded", "error_message"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, run := range runs {
			var endTime, duration, message string
			if run.EndTime != nil {
				endTime = run.EndTime.Format(contract.DateTimeFormat)
			}
			if run.DurationMs != nil {
				duration = strconv.FormatInt(*run.DurationMs, 10)
			}
			if run.ErrorMessage != nil {
				message = *run.ErrorMessage
			}
			rec := []string{
				strconv.FormatInt(run.RunID, 10),
				run.Label,
				run.RefName,
				run.Boundary,
				string(run.Status),
				run.StartTime.Format(contract.DateTimeFormat),
				endTime,
				duration,
				strconv.Itoa(int(run.CommitsCreated)),
				strconv.Itoa(int(run.EntriesFolded)),
				message,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
