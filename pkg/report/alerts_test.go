package report

import (
	"strings"
	"testing"

	"github.com/spazyCZ/ptop3/pkg/types"
)

func TestEvaluateAlertsSystemMemory(t *testing.T) {
	th := types.DefaultThresholds()

	alerts := EvaluateAlerts(nil, nil, types.SystemStats{MemPercent: 96}, th)
	if len(alerts) != 1 || alerts[0].Severity != types.SevCrit {
		t.Fatalf("alerts = %+v, want one critical", alerts)
	}

	alerts = EvaluateAlerts(nil, nil, types.SystemStats{MemPercent: 88}, th)
	if len(alerts) != 1 || alerts[0].Severity != types.SevWarn {
		t.Fatalf("alerts = %+v, want one warning", alerts)
	}

	alerts = EvaluateAlerts(nil, nil, types.SystemStats{MemPercent: 40}, th)
	if len(alerts) != 0 {
		t.Fatalf("alerts = %+v, want none", alerts)
	}
}

func TestEvaluateAlertsSwapSuggestsClean(t *testing.T) {
	th := types.DefaultThresholds()
	sys := types.SystemStats{SwapTotalGB: 8, SwapPercent: th.SwapSuggestPct}
	alerts := EvaluateAlerts(nil, nil, sys, th)
	if len(alerts) != 1 || !strings.Contains(alerts[0].Message, "swap-clean") {
		t.Fatalf("alerts = %+v, want swap-clean suggestion", alerts)
	}

	// A host with no swap configured never suggests cleaning it.
	sys = types.SystemStats{SwapTotalGB: 0, SwapPercent: 100}
	if alerts := EvaluateAlerts(nil, nil, sys, th); len(alerts) != 0 {
		t.Fatalf("alerts = %+v on swapless host, want none", alerts)
	}
}

func TestEvaluateAlertsZombiesAndIO(t *testing.T) {
	th := types.DefaultThresholds()
	samples := []types.ProcessSample{
		{PID: 1, Status: types.StatusZombie},
		{PID: 2, Status: types.StatusZombie},
		{PID: 3, IOReadMB: th.IOHotMB},
	}
	alerts := EvaluateAlerts(nil, samples, types.SystemStats{}, th)
	if len(alerts) != 2 {
		t.Fatalf("alerts = %+v, want zombie + io", alerts)
	}
	if !strings.Contains(alerts[0].Message, "2 zombie") {
		t.Fatalf("zombie alert = %q", alerts[0].Message)
	}
}

func TestEvaluateAlertsPerGroupSeverity(t *testing.T) {
	th := types.DefaultThresholds()
	groups := []types.AppGroup{
		{App: "burner", Procs: 3, CPUPercent: th.CPUHotPct * 2},
		{App: "warmish", Procs: 1, CPUPercent: th.CPUHotPct},
	}
	alerts := EvaluateAlerts(groups, nil, types.SystemStats{}, th)
	if len(alerts) != 2 {
		t.Fatalf("alerts = %+v, want 2", alerts)
	}
	// Hottest group first.
	if alerts[0].Severity != types.SevCrit || !strings.Contains(alerts[0].Message, "burner") {
		t.Fatalf("first alert = %+v, want critical for burner", alerts[0])
	}
	if alerts[1].Severity != types.SevWarn || !strings.Contains(alerts[1].Message, "warmish") {
		t.Fatalf("second alert = %+v, want warning for warmish", alerts[1])
	}
}

func TestEvaluateAlertsBounded(t *testing.T) {
	th := types.DefaultThresholds()
	groups := make([]types.AppGroup, 30)
	for i := range groups {
		groups[i] = types.AppGroup{
			App:        strings.Repeat("x", i+1),
			Procs:      1,
			CPUPercent: th.CPUHotPct * 3,
			MemPercent: th.MemHotPct * 3,
		}
	}
	sys := types.SystemStats{MemPercent: 99, SwapTotalGB: 4, SwapPercent: 99, DiskPercent: 99}
	alerts := EvaluateAlerts(groups, nil, sys, th)
	if len(alerts) > maxAlerts {
		t.Fatalf("alerts = %d, want at most %d", len(alerts), maxAlerts)
	}
}
