package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/gitnote/internal/contract"
	"github.com/huangsam/gitnote/schema"
	"golang.org/x/term"
)

// Column widths used when the terminal cannot be measured or is extreme.
const (
	fallbackTermWidth = 80
	minColumnWidth    = 15
	maxColumnWidth    = 70
	tableChrome       = 20 // borders, separators and padding
)

// renderers holds how one result is written in each output mode.
type renderers struct {
	json     any
	csv      func(io.Writer) error
	text     func(io.Writer) error
	textNote string
}

// writeFormatted writes with the renderer of cfg.Output to cfg.OutputFile or stdout.
func writeFormatted(cfg *contract.Config, r renderers) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error { return writeJSON(w, r.json) }, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, r.csv, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, r.text, r.textNote)
	}
	return nil
}

// writeWithFile runs write against the selected output and reports where a file went.
func writeWithFile(outputFile string, write func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	toStdout := file == os.Stdout
	if !toStdout {
		defer func() { _ = file.Close() }()
	}

	if err := write(file); err != nil {
		return err
	}
	if !toStdout {
		_, _ = fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes header and then whatever writeRows emits.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writeRows(cw); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// terminalWidth is the --width override, else the width of stdout, else a narrow default.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return fallbackTermWidth
}

// flexColumnWidth is the room left for the one variable-width column of a table.
func flexColumnWidth(cfg *contract.Config, fixedWidth int) int {
	available := terminalWidth(cfg) - fixedWidth - tableChrome
	return min(max(available, minColumnWidth), maxColumnWidth)
}
