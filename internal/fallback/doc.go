// Package fallback runs the application directly when no supervised unit is
// configured.
//
// Foreground mode keeps the process attached to the terminal and records its
// pid so a later stop can signal it: SIGTERM first, SIGKILL after the grace
// period. Screen mode starts a detached screen session instead and stops it by
// name. Extra start arguments are appended to the configured command verbatim.
package fallback
