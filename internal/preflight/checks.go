package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"appctl/internal/config"
	"appctl/internal/deps"
	"appctl/internal/vcs"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is an accessible directory or does
// not exist yet but its nearest existing ancestor is writable.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
		return CheckDirectoryAccess(name, path)
	}
	parent := filepath.Dir(path)
	for {
		if _, err := os.Stat(parent); err == nil {
			break
		}
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, parent, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first write)", path)}
}

// CheckReadableFile verifies that path is a readable regular file.
func CheckReadableFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckManifest verifies the dependency manifest can be fingerprinted.
func CheckManifest(path string) Result {
	r := CheckReadableFile("Manifest", path)
	if r.Passed {
		r.Detail = path + " (readable)"
	}
	return r
}

// CheckWorkingCopy verifies that dir is a git working copy with a checked-out branch.
func CheckWorkingCopy(ctx context.Context, dir, remote string) Result {
	const name = "Working copy"
	repo, err := vcs.Open(dir, remote)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}
	branch, err := repo.CurrentBranch(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (branch %s)", dir, branch)}
}

// CheckRequiredBinaries folds the non-optional binary requirements into one result.
func CheckRequiredBinaries(cfg *config.Config) Result {
	const name = "Binaries"
	missing := deps.MissingRequired(deps.CheckBinaries(deps.Requirements(cfg)))
	if len(missing) == 0 {
		return Result{Name: name, Passed: true, Detail: "all required binaries found"}
	}
	names := make([]string, len(missing))
	for i, m := range missing {
		names[i] = m.Name
	}
	return Result{Name: name, Detail: "missing: " + strings.Join(names, ", ")}
}
