package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"appctl/internal/deps"
	"appctl/internal/lockstore"
)

// newStatusTable returns a rounded table whose header keeps its casing.
func newStatusTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row(header))
	return tw
}

// renderMarkerTable lists markers by name. The start-skip value is an epoch
// timestamp and is shown as RFC 3339.
func renderMarkerTable(entries []lockstore.Entry) string {
	tw := newStatusTable("Marker", "Value", "Updated")
	for _, e := range entries {
		value := e.Value
		if e.Name == lockstore.MarkerStartSkip {
			if secs, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
				value = time.Unix(secs, 0).UTC().Format(time.RFC3339)
			}
		}
		updated := ""
		if !e.UpdatedAt.IsZero() {
			updated = e.UpdatedAt.UTC().Format(time.RFC3339)
		}
		tw.AppendRow(table.Row{e.Name, value, updated})
	}
	return tw.Render()
}

// renderBinaryTable shows one row per required or optional executable.
func renderBinaryTable(statuses []deps.Status) string {
	tw := newStatusTable("Binary", "Command", "Status")
	for _, s := range statuses {
		state := "available"
		if !s.Available {
			state = s.Detail
			if s.Optional {
				state += " (optional)"
			}
		}
		tw.AppendRow(table.Row{s.Name, s.Command, state})
	}
	return tw.Render()
}
