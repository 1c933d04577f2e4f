package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pitabwire/sdui/model"
)

const fileExt = ".json"

// FileStorage keeps one JSON document per microapp in a directory. Writes go
// to a temporary file that is renamed into place, so readers never observe a
// partial entry.
type FileStorage struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStorage creates the directory if needed and returns a storage over it.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("file storage: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file storage: create %s: %w", dir, err)
	}
	return &FileStorage{dir: dir}, nil
}

func (s *FileStorage) path(code string) string {
	return filepath.Join(s.dir, fileName(code))
}

// fileName escapes code into a single visible file name. A leading dot is
// escaped too, so entries never look like hidden or temp files.
func fileName(code string) string {
	name := url.PathEscape(code)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return name + fileExt
}

// SaveMapped writes data atomically.
func (s *FileStorage) SaveMapped(_ context.Context, data *model.CachedMicroappData) error {
	if err := validateForSave(data); err != nil {
		return err
	}
	raw, err := encode(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("file storage: write %q: %w", data.MicroappCode, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("file storage: sync %q: %w", data.MicroappCode, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file storage: close %q: %w", data.MicroappCode, err)
	}
	if err := os.Rename(tmpName, s.path(data.MicroappCode)); err != nil {
		return fmt.Errorf("file storage: rename %q: %w", data.MicroappCode, err)
	}
	return nil
}

// LoadMapped reads the entry for code.
func (s *FileStorage) LoadMapped(_ context.Context, code string) (*model.CachedMicroappData, error) {
	s.mu.RLock()
	raw, err := os.ReadFile(s.path(code))
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(code)
	}
	if err != nil {
		return nil, fmt.Errorf("file storage: read %q: %w", code, err)
	}
	return decode(code, raw)
}

// GetAllCodes lists the codes of every stored entry.
func (s *FileStorage) GetAllCodes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	entries, err := os.ReadDir(s.dir)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("file storage: list %s: %w", s.dir, err)
	}

	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		code, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// Delete removes the entry for code.
func (s *FileStorage) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(code)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file storage: delete %q: %w", code, err)
	}
	return nil
}

// Contains reports whether an entry exists for code.
func (s *FileStorage) Contains(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	_, err := os.Stat(s.path(code))
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("file storage: stat %q: %w", code, err)
	}
	return true, nil
}

// HealthCheck verifies the directory is still reachable.
func (s *FileStorage) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("file storage: %w", err)
	}
	return nil
}
