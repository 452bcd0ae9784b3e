// Package logging assembles the slog loggers used by appctl.
//
// Console output is one line per record with the component as a prefix. JSON
// output, and the optional log file, carries every field including the
// invocation id that ties together the lines of one CLI run. Warnings logged
// through WarnWithContext always carry an event type, a hint and an impact.
package logging
