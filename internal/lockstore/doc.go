// Package lockstore persists the small named markers appctl uses to
// coordinate independent invocations: the supervised unit name, the one-shot
// start-skip stamp, and the screen-mode flag.
//
// FileStore writes one file per marker with atomic replacement. SQLiteStore
// keeps the same contract in an embedded database. Neither offers a
// test-and-set primitive; the last writer wins.
package lockstore
