// Package lifecycle decides how to start, stop, restart and upgrade the
// managed application.
//
// Each call first asks the Detector whether a supervised unit exists. With a
// unit, the supervisor gets a single restart or stop verb and, unless silent,
// the Waiter blocks until the unit is active, failed or timed out. Without
// one, the Fallback runs the application directly.
//
// Start and supervised Restart stamp the start-skip marker. Upgrade with Auto
// set consumes a fresh marker and skips itself once, so a scheduled upgrade
// does not undo a manual start that just happened. Dependencies are
// reinstalled only when the Gate reports a changed manifest, and the new
// fingerprint is recorded only after the installer succeeds.
package lifecycle
