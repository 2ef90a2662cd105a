package main

import (
	"fmt"
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

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func (k statusKind) label() string {
	switch k {
	case statusOK:
		return "[OK]"
	case statusWarn:
		return "[WARN]"
	case statusError:
		return "[ERROR]"
	default:
		return "[INFO]"
	}
}

func (k statusKind) color() string {
	switch k {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

// renderStatusLine formats one aligned status line. The label column is
// padded before the colored marker so markers line up regardless of color.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	marker := kind.label()
	if colorize {
		marker = kind.color() + marker + ansiReset
	}
	line := fmt.Sprintf("  %-18s %s", label+":", marker)
	if message != "" {
		line += " " + message
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	header := fmt.Sprintf("== %s ==", title)
	underline := strings.Repeat("-", len(header))
	if colorize {
		header = ansiBlue + header + ansiReset
	}
	return []string{header, underline}
}

// isTerminal reports whether writer is an interactive terminal, which
// gates both color output and progress bars.
func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
