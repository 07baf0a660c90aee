package tui

import (
	"bytes"
	"fmt"

	"github.com/spazyCZ/ptop3/pkg/types"
	"github.com/spazyCZ/ptop3/pkg/ui"
)

const (
	maxAppName = 24
	barWidth   = 10

	clearScreen = "\033[H\033[2J"
)

const helpLine = "↑/↓ PgUp/PgDn Home/End  Enter/l expand  h back  s sort  f filter" +
	"  r reset  +/- refresh  t tree  k/K kill  g kill-group  w swap-clean  d drop-caches  ? help  q quit"

// draw renders one full frame into a buffer and flushes it in a single
// write, so a slow terminal never shows a torn update.
func (u *UI) draw() {
	width, height := u.size()
	var buf bytes.Buffer
	buf.WriteString(clearScreen)

	u.drawHeader(&buf, width)

	switch u.mode {
	case ModeHelp:
		u.drawHelp(&buf)
	case ModeDetail:
		u.drawDetail(&buf, width, height)
	default:
		u.drawGroups(&buf, width, height)
	}

	u.drawFooter(&buf, width, height)
	fmt.Fprint(u.out, buf.String())
}

func (u *UI) drawHeader(buf *bytes.Buffer, width int) {
	memBG := ui.BgOK
	if u.sys.MemPercent > 90 {
		memBG = ui.BgCrit
	} else if u.sys.MemPercent > 70 {
		memBG = ui.BgWarn
	}
	swapBG := ui.BgSwap
	if u.sys.SwapPercent > 80 {
		swapBG = ui.BgCrit
	} else if u.sys.SwapPercent > 50 {
		swapBG = ui.BgWarn
	}
	loadBG := ui.BgOK
	if u.sys.CPUCount > 0 {
		perCore := u.sys.Load1 / float64(u.sys.CPUCount)
		if perCore > 2.0 {
			loadBG = ui.BgCrit
		} else if perCore > 1.0 {
			loadBG = ui.BgWarn
		}
	}

	filt := u.filterText
	if filt == "" {
		filt = "-"
	}
	buf.WriteString(ui.Badge("", "ptop3", ui.BgTitle, ui.BgTitle))
	buf.WriteString(ui.Badge("mem", fmt.Sprintf("%.1f/%.1fG", u.sys.MemUsedGB, u.sys.MemTotalGB), ui.BgLabel, memBG))
	buf.WriteString(ui.Badge("avl", fmt.Sprintf("%.1fG", u.sys.MemAvailableGB), ui.BgLabel, ui.BgNeut))
	buf.WriteString(ui.Badge("swap", fmt.Sprintf("%.1f/%.1fG", u.sys.SwapUsedGB, u.sys.SwapTotalGB), ui.BgLabel, swapBG))
	buf.WriteString(ui.Badge("load", fmt.Sprintf("%.2f %.2f %.2f", u.sys.Load1, u.sys.Load5, u.sys.Load15), ui.BgLabel, loadBG))
	buf.WriteString(ui.Badge("sort", string(u.sortKey), ui.BgLabel, ui.BgNeut))
	buf.WriteString(ui.Badge("ref", fmt.Sprintf("%.1fs", u.refresh.Seconds()), ui.BgLabel, ui.BgNeut))
	buf.WriteString(ui.Badge("filt", filt, ui.BgLabel, ui.BgNeut))
	buf.WriteString("\r\n")

	if u.mode == ModeFilterInput {
		fmt.Fprintf(buf, "%sFilter (regex):%s %s█", ui.Bold, ui.Reset, string(u.inputBuf))
		if u.inputErr != "" {
			fmt.Fprintf(buf, "   %s%s%s", ui.Red, u.inputErr, ui.Reset)
		}
		buf.WriteString("\r\n")
	} else {
		buf.WriteString("\r\n")
	}
}

func (u *UI) drawGroups(buf *bytes.Buffer, width, height int) {
	fmt.Fprintf(buf, "%s%-*s %5s %10s %10s %7s %-*s %7s %-*s %7s %7s%s\r\n",
		ui.Bold, maxAppName, "APP", "PROCS", "RSS(MiB)", "SWAP(MiB)",
		"%MEM", barWidth, "MEM", "%CPU", barWidth, "CPU", "IO_R", "IO_W", ui.Reset)

	rows := height - 8 - len(u.alerts)
	if rows < 1 {
		rows = 1
	}
	for i, g := range u.groups {
		if i >= rows {
			break
		}
		memBar := ui.Bar(g.MemPercent, barWidth)
		cpuBar := ui.Bar(g.CPUPercent, barWidth)
		line := fmt.Sprintf("%-*s %5d %10.1f %10.1f %7.1f %s %7.1f %s %7.1f %7.1f",
			maxAppName, clip(g.App, maxAppName), g.Procs, g.RSSMB, g.SwapMB,
			g.MemPercent, memBar, g.CPUPercent, cpuBar, g.IOReadMB, g.IOWriteMB)
		buf.WriteString(u.styleRow(i, u.groupStyle(g)))
		buf.WriteString(clip(line, width))
		buf.WriteString(ui.Reset + "\r\n")
	}
}

func (u *UI) drawDetail(buf *bytes.Buffer, width, height int) {
	mode := ""
	if u.treeMode {
		mode = " [TREE]"
	}
	fmt.Fprintf(buf, "%sApp: %s%s%s\r\n", ui.Bold, u.detailApp, mode, ui.Reset)

	rows := height - 9 - len(u.alerts)
	if rows < 1 {
		rows = 1
	}
	if u.treeMode {
		fmt.Fprintf(buf, "%s%7s %9s %6s %6s %6s  TREE%s\r\n",
			ui.Bold, "PID", "RSS(MiB)", "%CPU", "%MEM", "SWAP", ui.Reset)
		for i, row := range u.detailRows {
			if i >= rows {
				break
			}
			s := row.Sample
			label := s.Cmdline
			if label == "" {
				label = s.Name
			}
			line := fmt.Sprintf("%7d %9.1f %6.1f %6.1f %6.1f  %s%s",
				s.PID, s.RSSMB, s.CPUPercent, s.MemPercent, s.SwapMB, row.Prefix, label)
			buf.WriteString(u.styleRow(i, u.sampleStyle(*s)))
			buf.WriteString(clip(line, width))
			buf.WriteString(ui.Reset + "\r\n")
		}
		return
	}

	fmt.Fprintf(buf, "%s%7s %7s %9s %6s %6s %9s %7s %7s  CMD%s\r\n",
		ui.Bold, "PID", "PPID", "RSS(MiB)", "%CPU", "%MEM", "SWAP(MiB)", "IO_R", "IO_W", ui.Reset)
	for i, s := range u.detailList {
		if i >= rows {
			break
		}
		label := s.Cmdline
		if label == "" {
			label = s.Name
		}
		line := fmt.Sprintf("%7d %7d %9.1f %6.1f %6.1f %9.1f %7.1f %7.1f  %s",
			s.PID, s.PPID, s.RSSMB, s.CPUPercent, s.MemPercent, s.SwapMB,
			s.IOReadMB, s.IOWriteMB, label)
		buf.WriteString(u.styleRow(i, u.sampleStyle(s)))
		buf.WriteString(clip(line, width))
		buf.WriteString(ui.Reset + "\r\n")
	}
}

func (u *UI) drawHelp(buf *bytes.Buffer) {
	buf.WriteString(ui.Banner())
	buf.WriteString("\r\n")
	bindings := [][2]string{
		{"↑/↓/j, PgUp/PgDn, Home/End", "move selection"},
		{"Enter / l", "expand group, back from detail"},
		{"h / ←", "back to group list"},
		{"t", "toggle process tree view (detail)"},
		{"s", "cycle sort: mem cpu rss swap io net count"},
		{"f / r", "set / reset filter regex"},
		{"+ / -", "refresh interval up / down"},
		{"k / K", "send SIGTERM / SIGKILL"},
		{"g", "terminate whole group"},
		{"w", "run swap-clean (root helper)"},
		{"d", "run drop-caches (root helper)"},
		{"?", "this help"},
		{"q / Ctrl-C", "quit"},
	}
	for _, b := range bindings {
		fmt.Fprintf(buf, "  %s%-28s%s %s\r\n", ui.Bold, b[0], ui.Reset, b[1])
	}
	buf.WriteString("\r\nPress any key to return (f filters, q quits).\r\n")
}

func (u *UI) drawFooter(buf *bytes.Buffer, width, height int) {
	for _, a := range u.alerts {
		style := ui.White
		switch a.Severity {
		case types.SevWarn:
			style = ui.Yellow
		case types.SevCrit:
			style = ui.Red + ui.Bold
		}
		buf.WriteString(style)
		buf.WriteString(clip(a.Message, width))
		buf.WriteString(ui.Reset + "\r\n")
	}
	if u.status != "" && u.now().Sub(u.statusAt) < statusTTL {
		buf.WriteString(ui.Cyan)
		buf.WriteString(clip(u.status, width))
		buf.WriteString(ui.Reset + "\r\n")
	}
	buf.WriteString(ui.Green)
	buf.WriteString(clip(helpLine, width))
	buf.WriteString(ui.Reset)
}

func (u *UI) styleRow(i int, base string) string {
	if i == u.sel && u.mode != ModeFilterInput {
		return ui.BgSelect
	}
	return base
}

func (u *UI) groupStyle(g types.AppGroup) string {
	switch {
	case g.CPUPercent >= u.th.CPUHotPct*2 || g.RSSMB >= u.th.RSSHotMB*2 || g.SwapMB >= u.th.SwapHotMB*2:
		return ui.Red + ui.Bold
	case g.CPUPercent >= u.th.CPUHotPct || g.RSSMB >= u.th.RSSHotMB || g.SwapMB >= u.th.SwapHotMB:
		return ui.Yellow + ui.Bold
	}
	return ui.White
}

func (u *UI) sampleStyle(s types.ProcessSample) string {
	switch {
	case s.CPUPercent >= u.th.CPUHotPct*2 || s.RSSMB >= u.th.RSSHotMB*2 || s.SwapMB >= u.th.SwapHotMB*2:
		return ui.Red + ui.Bold
	case s.CPUPercent >= u.th.CPUHotPct || s.RSSMB >= u.th.RSSHotMB || s.SwapMB >= u.th.SwapHotMB:
		return ui.Yellow + ui.Bold
	}
	return ui.White
}

// clip truncates a line by rune count so wide frames never wrap.
func clip(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width-1 {
		return s
	}
	return string(runes[:width-1])
}
