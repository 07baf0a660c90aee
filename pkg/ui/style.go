// Package ui holds the ANSI styling primitives shared by the interactive
// renderer.
package ui

import "strings"

const (
	Reset = "\033[0m"
	Bold  = "\033[1m"

	White   = "\033[38;5;255m"
	Gray    = "\033[38;5;244m"
	Cyan    = "\033[38;5;51m"
	Yellow  = "\033[38;5;226m"
	Red     = "\033[38;5;196m"
	Green   = "\033[38;5;121m"
	Magenta = "\033[38;5;177m"

	BgTitle  = "\033[48;5;93m\033[38;5;255m"
	BgLabel  = "\033[48;5;25m\033[38;5;255m"
	BgOK     = "\033[48;5;28m\033[38;5;255m"
	BgWarn   = "\033[48;5;178m\033[38;5;16m"
	BgCrit   = "\033[48;5;160m\033[38;5;255m"
	BgNeut   = "\033[48;5;250m\033[38;5;16m"
	BgSwap   = "\033[48;5;208m\033[38;5;16m"
	BgSelect = "\033[48;5;25m\033[38;5;255m\033[1m"
)

// Bar renders a fixed-width percent gauge.
func Bar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct/100.0*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Badge renders one " label value " header cell with separate label/value
// styling.
func Badge(label, value, labelStyle, valueStyle string) string {
	var b strings.Builder
	if label != "" {
		b.WriteString(labelStyle)
		b.WriteString(" ")
		b.WriteString(label)
		b.WriteString(" ")
	}
	b.WriteString(valueStyle)
	b.WriteString(" ")
	b.WriteString(value)
	b.WriteString(" ")
	b.WriteString(Reset)
	b.WriteString(" ")
	return b.String()
}

// Banner renders the ptop wordmark shown on the help screen.
func Banner() string {
	letters := []string{
		"█▀█ ▀█▀ █▀█ █▀█",
		"█▀▀  █  █ █ █▀▀",
		"▀    ▀  ▀▀▀ ▀  ",
	}
	gradient := []string{Magenta, Cyan, Green}
	var b strings.Builder
	for i, line := range letters {
		b.WriteString(Bold + gradient[i%len(gradient)] + line + Reset + "\r\n")
	}
	b.WriteString("\r\n" + Bold + Cyan + "ptop" + Reset + "  •  process groups at a glance\r\n")
	return b.String()
}
