// Package depgate decides whether the dependency manifest changed since the
// last successful install.
package depgate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"appctl/internal/fileutil"
)

// FingerprintSuffix is appended to the manifest path to locate the stored
// fingerprint.
const FingerprintSuffix = ".sha256"

// Gate compares manifests against their recorded fingerprints.
type Gate struct{}

// New returns a Gate.
func New() Gate { return Gate{} }

// FingerprintPath returns where the fingerprint for manifest is stored.
func FingerprintPath(manifest string) string {
	return manifest + FingerprintSuffix
}

// Fingerprint hashes the manifest's current contents.
func Fingerprint(manifest string) (string, error) {
	sum, err := fileutil.HashFile(manifest)
	if err != nil {
		return "", fmt.Errorf("fingerprint manifest: %w", err)
	}
	return sum, nil
}

// Stored returns the fingerprint recorded by the last successful install.
func Stored(manifest string) (string, bool, error) {
	data, err := os.ReadFile(FingerprintPath(manifest))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read stored fingerprint: %w", err)
	}
	sum := strings.TrimSpace(string(data))
	return sum, sum != "", nil
}

// NeedsInstall reports true when no fingerprint was recorded or the manifest
// changed since. A missing manifest is an error.
func (Gate) NeedsInstall(manifest string) (bool, error) {
	current, err := Fingerprint(manifest)
	if err != nil {
		return false, err
	}
	stored, ok, err := Stored(manifest)
	if err != nil {
		return false, err
	}
	return !ok || stored != current, nil
}

// RecordInstalled persists the manifest's current fingerprint. Call it only
// after the installer succeeded.
func (Gate) RecordInstalled(manifest string) error {
	current, err := Fingerprint(manifest)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(FingerprintPath(manifest), []byte(current+"\n"), 0o644); err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}
