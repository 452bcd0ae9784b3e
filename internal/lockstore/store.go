package lockstore

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"appctl/internal/config"
)

// Well-known marker names.
const (
	// MarkerService holds the supervised unit name.
	MarkerService = "service"
	// MarkerStartSkip holds the epoch seconds of the last manual start.
	MarkerStartSkip = "service-start-skip"
	// MarkerScreenMode selects the screen-session fallback when present.
	MarkerScreenMode = "screen-mode"
)

// ErrInvalidName is returned for marker names outside [A-Za-z0-9._-] or
// starting with a dot.
var ErrInvalidName = errors.New("invalid marker name")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Entry is a single marker with its last update time.
type Entry struct {
	Name      string
	Value     string
	UpdatedAt time.Time
}

// Store persists lock markers by name.
//
// Writes replace the whole value and the last writer wins. There is no
// read-modify-write atomicity; callers must treat any read as a snapshot.
type Store interface {
	Set(name, value string) error
	// Get reports ("", false, nil) when the marker is absent.
	Get(name string) (string, bool, error)
	Exists(name string) (bool, error)
	// Delete is a no-op for absent markers.
	Delete(name string) error
	// List returns markers sorted by name.
	List() ([]Entry, error)
}

// ValidateName checks that name can be used as a marker identifier.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Open returns the store selected by cfg.LockStore.Backend.
func Open(cfg *config.Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("lock store: config is nil")
	}
	switch cfg.LockStore.Backend {
	case config.LockStoreSQLite:
		return OpenSQLite(cfg.LockStore.SQLitePath)
	case config.LockStoreFile, "":
		return NewFileStore(cfg.Paths.LockDir), nil
	default:
		return nil, fmt.Errorf("lock store: unsupported backend %q", cfg.LockStore.Backend)
	}
}

// Close releases resources held by store when it has any.
func Close(store Store) error {
	if c, ok := store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
