package lockstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"appctl/internal/fileutil"
)

// FileStore keeps one file per marker inside a directory. The directory is
// created on the first write.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the marker directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

func (s *FileStore) Set(name, value string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("set marker %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) Get(name string) (string, bool, error) {
	path, err := s.path(name)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read marker %s: %w", name, err)
	}
	return strings.TrimRight(string(data), " \t\r\n"), true, nil
}

func (s *FileStore) Exists(name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat marker %s: %w", name, err)
	}
}

func (s *FileStore) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := fileutil.RemoveIfExists(path); err != nil {
		return fmt.Errorf("delete marker %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		// renameio leaves dot-prefixed temp files behind on crash.
		if de.IsDir() || ValidateName(name) != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat marker %s: %w", name, err)
		}
		value, ok, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		entries = append(entries, Entry{Name: name, Value: value, UpdatedAt: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
