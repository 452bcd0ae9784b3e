// Package preflight checks the filesystem and binaries appctl depends on
// before an operator relies on it.
//
// `appctl status` renders RunAll. Checks for backends that are not selected
// are skipped or reported as optional.
package preflight
