package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
)

// Reader loads the lake table from a delimited file.
// It implements pipeline.Extractor.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for path. Files ending in .tsv or .txt are read
// tab-delimited, everything else comma-delimited.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Extract returns every data row keyed by header name. A missing file or a
// header without the required columns fails the whole table; malformed rows
// are returned with whatever fields could be read so parsing reports them
// individually.
func (r *Reader) Extract(_ context.Context) ([]domain.RawLake, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open lake table: %w", err)
	}
	defer f.Close()

	rows, err := readRows(f, delimiterFor(r.path))
	if err != nil {
		return nil, fmt.Errorf("read lake table %s: %w", r.path, err)
	}
	r.logger.Info("lake table loaded", "path", r.path, "rows", len(rows))
	return rows, nil
}

func readRows(src io.Reader, comma rune) ([]domain.RawLake, error) {
	cr := csv.NewReader(src)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty table")
		}
		return nil, fmt.Errorf("header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	if err := requireColumns(header, domain.ColumnName, domain.ColumnArea); err != nil {
		return nil, err
	}

	var rows []domain.RawLake
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			rows = append(rows, domain.RawLake{Line: pe.StartLine, Fields: map[string]string{}})
			continue
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)

		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(record) {
				fields[h] = strings.TrimSpace(record[j])
			}
		}
		rows = append(rows, domain.RawLake{Line: line, Fields: fields})
	}
	return rows, nil
}

func requireColumns(header []string, required ...string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, c := range required {
		if !present[c] {
			missing = append(missing, fmt.Sprintf("%q", c))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required column(s) %s", strings.Join(missing, ", "))
	}
	return nil
}

func delimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return '\t'
	default:
		return ','
	}
}
