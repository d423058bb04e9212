package recall

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Sink is the persistence boundary for snapshots. Disk is the normal
// implementation; tests swap in an in-memory one.
type Sink interface {
	WriteSnapshot(data []byte) error
	ReadSnapshot() ([]byte, error)
}

// FileSink writes the snapshot as a single JSON file, creating parent
// directories on demand. Writes go through a temp file and rename so a
// crash mid-write leaves the previous snapshot intact.
type FileSink struct {
	Path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

func (f *FileSink) WriteSnapshot(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

// ReadSnapshot returns nil data (no error) when no snapshot exists yet.
func (f *FileSink) ReadSnapshot() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// MemorySink keeps the snapshot in memory. Test double.
type MemorySink struct {
	Data []byte
	Err  error
}

func (m *MemorySink) WriteSnapshot(data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.Data = append([]byte(nil), data...)
	return nil
}

func (m *MemorySink) ReadSnapshot() ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Data, nil
}
