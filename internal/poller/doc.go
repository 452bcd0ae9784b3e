// Package poller waits for a supervised unit to become active.
//
// The wait is a small state machine: it starts in waiting and moves exactly
// once to active, failed or timed_out. Time comes from an injected Clock and
// observations from an injected sampler, so tests replay tick sequences
// without sleeping. "unit state" lines are logged only when the observed
// summary changes.
package poller
