package main

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

// statusStyles maps each kind to its badge text and ANSI color.
var statusStyles = map[statusKind]struct{ badge, color string }{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

// Labels are padded so badges line up across sections.
const statusLabelWidth = 18

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusStyles[kind]
	if !ok {
		style = statusStyles[statusInfo]
	}
	var b strings.Builder
	b.WriteString("  ")
	b.WriteString(label)
	b.WriteByte(':')
	if pad := statusLabelWidth - len(label) - 1; pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(" [")
	b.WriteString(style.badge)
	b.WriteByte(']')
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	return paint(b.String(), style.color, colorize)
}

func renderSectionHeader(title string, colorize bool) string {
	return paint("== "+strings.TrimSpace(title)+" ==", statusStyles[statusInfo].color, colorize)
}

func paint(text, color string, enabled bool) string {
	if !enabled || color == "" {
		return text
	}
	return color + text + ansiReset
}

// shouldColorize reports whether w is an interactive terminal.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
