// Package scheduler runs automatic upgrades on an interval or cron cadence.
//
// A Scheduler holds an flock on the configured lock path for its whole
// lifetime so only one scheduler process is active per state directory. Runs
// never overlap; a run that is still going when the next tick arrives pushes
// that tick out. Manual invocations are not excluded by the lock.
package scheduler
