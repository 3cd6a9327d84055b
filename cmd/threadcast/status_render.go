package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

var (
	statusInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	statusOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	statusWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	sectionStyle     = lipgloss.NewStyle().Bold(true)
)

var titleCaser = cases.Title(language.English)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if !colorize {
		return base
	}
	return statusKindStyle(kind).Render(base)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindStyle(kind statusKind) lipgloss.Style {
	switch kind {
	case statusOK:
		return statusOKStyle
	case statusWarn:
		return statusWarnStyle
	case statusError:
		return statusErrorStyle
	default:
		return statusInfoStyle
	}
}

func renderSectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		return sectionStyle.Render(line)
	}
	return line
}

// styleLabel renders a style identifier for display, e.g. "educational" as
// "Educational".
func styleLabel(style string) string {
	return titleCaser.String(strings.ReplaceAll(style, "_", " "))
}

func shouldColorize(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
