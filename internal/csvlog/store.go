package csvlog

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"speed-monitor/internal/models"
)

// Store is an append-only CSV measurement log.
// It holds one append handle, owned by a single writer.
type Store struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// Open creates a Store for path. The file is not touched until Init.
func Open(path string) *Store {
	return &Store{path: path}
}

// Path returns the log location
func (s *Store) Path() string {
	return s.path
}

// Init ensures the header exists, drops a torn trailing row left by a crash
// and opens the append handle.
func (s *Store) Init() error {
	if s.file != nil {
		return nil
	}
	if err := EnsureInitialized(s.path); err != nil {
		return err
	}
	if err := repairTail(s.path); err != nil {
		return fmt.Errorf("repair %s: %w", s.path, err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	s.file = f
	s.writer = csv.NewWriter(f)
	return nil
}

// Append durably writes one record as a single row
func (s *Store) Append(record models.MeasurementRecord) error {
	if s.file == nil {
		return fmt.Errorf("append to %s: store not initialized", s.path)
	}
	if err := writeRow(s.writer, s.file, record.Row()); err != nil {
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	return nil
}

// Close releases the append handle
func (s *Store) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.writer = nil
	return err
}

// EnsureInitialized creates path with the header row if it does not exist.
// An existing file is left untouched.
func EnsureInitialized(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := writeRow(csv.NewWriter(f), f, models.Columns); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}
	return nil
}

// Append opens path, appends one record and closes it again
func Append(path string, record models.MeasurementRecord) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := writeRow(csv.NewWriter(f), f, record.Row()); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return f.Close()
}

// ReadAll parses every record in the log at path
func ReadAll(path string) ([]models.MeasurementRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = len(models.Columns)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(header, models.Columns) {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var records []models.MeasurementRecord
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		rec, err := models.ParseRow(row)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
}

func writeRow(w *csv.Writer, f *os.File, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Sync()
}

// repairTail drops a trailing row left incomplete by a crash. Rows written by
// Store always end in a newline, so only a file without one is repaired, and
// only its final row is removed. A malformed row before the final one is
// reported instead, leaving the file as it is.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}
	size := stat.Size()
	if size == 0 {
		return writeRow(csv.NewWriter(f), f, models.Columns)
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	var start int64
	for {
		start = r.InputOffset()
		_, err := r.Read()
		if r.InputOffset() >= size {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed row at offset %d: %w", start, err)
		}
	}

	if err := f.Truncate(start); err != nil {
		return err
	}
	if start == 0 {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return writeRow(csv.NewWriter(f), f, models.Columns)
	}
	return f.Sync()
}
