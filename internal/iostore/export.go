package iostore

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/internal/parquet"
)

// ExecuteEntryExport writes groups and articles to Parquet files next to outputFile.
func ExecuteEntryExport(w io.Writer, store contract.EntryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get entry status: %w", err)
	}
	if status.TotalGroups == 0 && status.TotalArticles == 0 {
		return errors.New("no entry data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)

	groups, err := store.ListGroups()
	if err != nil {
		return fmt.Errorf("failed to retrieve groups: %w", err)
	}

	articles, err := store.ListAllArticles()
	if err != nil {
		return fmt.Errorf("failed to retrieve articles: %w", err)
	}

	groupsFile := outputFile + ".groups.parquet"
	if err := parquet.WriteGroupsParquet(parquet.ConvertGroupRecords(groups), groupsFile); err != nil {
		return fmt.Errorf("failed to write groups: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d groups to: %s\n", len(groups), groupsFile)

	articlesFile := outputFile + ".articles.parquet"
	if err := parquet.WriteArticlesParquet(parquet.ConvertArticleRecords(articles), articlesFile); err != nil {
		return fmt.Errorf("failed to write articles: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d articles to: %s\n", len(articles), articlesFile)

	return nil
}

// ExecuteArchiveExport writes the archive run history to a Parquet file next to outputFile.
func ExecuteArchiveExport(w io.Writer, store contract.ArchiveStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get archive status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no archive runs found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total archive runs: %d\n", status.TotalRuns)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve archive runs: %w", err)
	}

	runsFile := outputFile + ".archive_runs.parquet"
	if err := parquet.WriteArchiveRunsParquet(parquet.ConvertArchiveRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write archive runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d archive runs to: %s\n", len(runs), runsFile)

	return nil
}
