package records

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore reads and writes one table file. The format follows the file
// extension (.xlsx or .csv).
type FileStore struct {
	Path   string
	Schema Schema
}

// NewFileStore constructs a FileStore.
func NewFileStore(path string, schema Schema) *FileStore {
	return &FileStore{Path: path, Schema: schema}
}

// Exists reports whether the backing file is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Load reads and migrates the table. A missing file yields *NotFoundError.
func (s *FileStore) Load(ctx context.Context) (Table, error) {
	if err := ctx.Err(); err != nil {
		return Table{}, err
	}
	format, err := FormatOf(s.Path)
	if err != nil || format == FormatText {
		return Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFileType, s.Path)
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Table{}, &NotFoundError{Path: s.Path}
		}
		return Table{}, fmt.Errorf("records: open %s: %w", s.Path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	table, err := ReadTable(s.Path, f)
	if err != nil {
		return Table{}, err
	}
	return s.Schema.Migrate(table), nil
}

// LoadOrEmpty behaves like Load but returns an empty schema table when the
// file does not exist yet.
func (s *FileStore) LoadOrEmpty(ctx context.Context) (Table, error) {
	table, err := s.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return s.Schema.Empty(), nil
	}
	return table, err
}

// Save normalises and writes the table, replacing the file atomically.
func (s *FileStore) Save(ctx context.Context, t Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	format, err := FormatOf(s.Path)
	if err != nil || format == FormatText {
		return fmt.Errorf("%w: %s", ErrUnsupportedFileType, s.Path)
	}
	table := s.Schema.Migrate(t)
	buf := &bytes.Buffer{}
	switch format {
	case FormatXLSX:
		err = WriteXLSX(buf, table)
	default:
		err = WriteCSV(buf, table)
	}
	if err != nil {
		return fmt.Errorf("records: encode %s: %w", s.Path, err)
	}
	return WriteFileAtomic(s.Path, buf.Bytes())
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("records: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("records: temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("records: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("records: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("records: replace %s: %w", path, err)
	}
	return nil
}
