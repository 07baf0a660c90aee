package report

import (
	"fmt"
	"sort"

	"github.com/spazyCZ/ptop3/pkg/types"
)

// maxAlerts bounds the alert pane so it never swallows the table.
const maxAlerts = 10

// EvaluateAlerts derives the warning set for one tick from the aggregated
// groups, the surviving samples, and the host stats. It is stateless: each
// tick's alerts are recomputed in full with no carry-over or deduplication
// against previous ticks.
func EvaluateAlerts(groups []types.AppGroup, samples []types.ProcessSample, sys types.SystemStats, th types.AlertThresholds) []types.Alert {
	alerts := make([]types.Alert, 0, maxAlerts)

	if sys.MemPercent > 95 {
		alerts = append(alerts, types.Alert{Severity: types.SevCrit,
			Message: fmt.Sprintf("SYSTEM: memory critical (%.1f%%)", sys.MemPercent)})
	} else if sys.MemPercent > 85 {
		alerts = append(alerts, types.Alert{Severity: types.SevWarn,
			Message: fmt.Sprintf("SYSTEM: high memory usage (%.1f%%)", sys.MemPercent)})
	}

	if sys.SwapTotalGB > 0 && sys.SwapPercent >= th.SwapSuggestPct {
		alerts = append(alerts, types.Alert{Severity: types.SevWarn,
			Message: fmt.Sprintf("SYSTEM: swap %.1f%% used, consider running swap-clean", sys.SwapPercent)})
	}

	if sys.DiskPercent > th.DiskCritPct {
		alerts = append(alerts, types.Alert{Severity: types.SevCrit,
			Message: fmt.Sprintf("SYSTEM: disk critical (%.1f%%)", sys.DiskPercent)})
	} else if sys.DiskPercent > th.DiskHighPct {
		alerts = append(alerts, types.Alert{Severity: types.SevWarn,
			Message: fmt.Sprintf("SYSTEM: high disk usage (%.1f%%)", sys.DiskPercent)})
	}

	var ioTotal float64
	zombies := 0
	for _, s := range samples {
		ioTotal += s.IOReadMB + s.IOWriteMB
		if s.Status == types.StatusZombie {
			zombies++
		}
	}
	if zombies > 0 {
		alerts = append(alerts, types.Alert{Severity: types.SevWarn,
			Message: fmt.Sprintf("SYSTEM: %d zombie processes detected", zombies)})
	}
	if ioTotal >= th.IOHotMB {
		alerts = append(alerts, types.Alert{Severity: types.SevWarn,
			Message: fmt.Sprintf("SYSTEM: high aggregate disk I/O (%.1f MB)", ioTotal)})
	}

	// Per-group alerts, hottest groups first so truncation keeps the worst.
	hot := make([]types.AppGroup, len(groups))
	copy(hot, groups)
	sort.Slice(hot, func(i, j int) bool {
		return hot[i].CPUPercent+hot[i].MemPercent > hot[j].CPUPercent+hot[j].MemPercent
	})
	for _, g := range hot {
		if len(alerts) >= maxAlerts {
			break
		}
		switch {
		case g.CPUPercent >= th.CPUHotPct*2:
			alerts = append(alerts, types.Alert{Severity: types.SevCrit,
				Message: fmt.Sprintf("group %s (%d procs): CPU critical (%.1f%%)", g.App, g.Procs, g.CPUPercent)})
		case g.CPUPercent >= th.CPUHotPct:
			alerts = append(alerts, types.Alert{Severity: types.SevWarn,
				Message: fmt.Sprintf("group %s (%d procs): high CPU (%.1f%%)", g.App, g.Procs, g.CPUPercent)})
		}
		if len(alerts) >= maxAlerts {
			break
		}
		switch {
		case g.MemPercent >= th.MemHotPct*2:
			alerts = append(alerts, types.Alert{Severity: types.SevCrit,
				Message: fmt.Sprintf("group %s (%d procs): memory critical (%.1f%%)", g.App, g.Procs, g.MemPercent)})
		case g.MemPercent >= th.MemHotPct:
			alerts = append(alerts, types.Alert{Severity: types.SevWarn,
				Message: fmt.Sprintf("group %s (%d procs): high memory (%.1f%%)", g.App, g.Procs, g.MemPercent)})
		}
		if len(alerts) >= maxAlerts {
			break
		}
		if g.SwapMB >= th.SwapHotMB*4 {
			alerts = append(alerts, types.Alert{Severity: types.SevCrit,
				Message: fmt.Sprintf("group %s (%d procs): swap critical (%.1f MB)", g.App, g.Procs, g.SwapMB)})
		}
	}

	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}
	return alerts
}
