package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVTableWriter writes one tabular output file: header row first, then
// data rows. An empty table still produces a valid header-only file.
type CSVTableWriter struct {
	file   *os.File
	writer *csv.Writer
	closed bool
}

// NewCSVTableWriter creates (or truncates) the CSV file at the given path
// and writes the header row. Intermediate directories are created
// automatically.
func NewCSVTableWriter(path string, header []string) (*CSVTableWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: flush header: %w", err)
	}

	return &CSVTableWriter{file: f, writer: w}, nil
}

// Write appends one data row.
func (c *CSVTableWriter) Write(record []string) error {
	if err := c.writer.Write(record); err != nil {
		return fmt.Errorf("csv: write row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Safe to call twice.
func (c *CSVTableWriter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		_ = c.file.Close()
		return fmt.Errorf("csv: flush: %w", err)
	}
	return c.file.Close()
}
