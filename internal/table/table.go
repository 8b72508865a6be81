package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pencil-translator/internal/fileutil"
)

// Row is one line of the intermediate table.
type Row struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	OriginalText string `json:"original_text"`
	NewText      string `json:"new_text,omitempty"`
}

// Fixed column names.
const (
	ColID       = "id"
	ColPath     = "path"
	ColOriginal = "original_text"
	ColNew      = "new_text"
)

// Format is the on-disk encoding of a table.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrMissingColumn is returned when a CSV header lacks the id column.
var ErrMissingColumn = errors.New("missing required column")

const utf8BOM = "\ufeff"

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown table format %q (want csv or json)", s)
	}
}

// FormatFromPath picks JSON for .json files and CSV otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}

// Write encodes rows. The new_text column is only emitted when withNewText is set.
func Write(w io.Writer, rows []Row, f Format, withNewText bool) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if rows == nil {
			rows = []Row{}
		}
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	case FormatCSV, "":
		return writeCSV(w, rows, withNewText)
	default:
		return fmt.Errorf("unknown table format %q", f)
	}
}

func writeCSV(w io.Writer, rows []Row, withNewText bool) error {
	cw := csv.NewWriter(w)

	header := []string{ColID, ColPath, ColOriginal}
	if withNewText {
		header = append(header, ColNew)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, r := range rows {
		rec := []string{r.ID, r.Path, r.OriginalText}
		if withNewText {
			rec = append(rec, r.NewText)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write CSV row %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}

// Read decodes a table. CSV headers are matched by name in any order; unknown
// columns are ignored and a leading UTF-8 BOM is tolerated.
func Read(r io.Reader, f Format) ([]Row, error) {
	switch f {
	case FormatJSON:
		var rows []Row
		if err := json.NewDecoder(r).Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode JSON table: %w", err)
		}
		return rows, nil
	case FormatCSV, "":
		return readCSV(r)
	default:
		return nil, fmt.Errorf("unknown table format %q", f)
	}
}

func readCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s (empty table)", ErrMissingColumn, ColID)
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols[ColID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColID)
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{
			ID:           field(rec, ColID),
			Path:         field(rec, ColPath),
			OriginalText: field(rec, ColOriginal),
			NewText:      field(rec, ColNew),
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteFile writes the table to path only once it has been fully encoded.
func WriteFile(path string, rows []Row, f Format, withNewText bool) error {
	var buf bytes.Buffer
	if err := Write(&buf, rows, f, withNewText); err != nil {
		return err
	}
	return fileutil.WriteFile(path, buf.Bytes(), 0o644)
}

// ReadFile reads the table stored at path.
func ReadFile(path string, f Format) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer file.Close()

	rows, err := Read(file, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
