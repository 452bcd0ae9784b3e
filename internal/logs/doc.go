// Package logs reads appctl's own log file for `appctl logs`.
//
// Last returns the trailing lines and the offset to continue from; Follow
// polls from that offset and delivers complete lines as they are appended.
package logs
