package report

import (
	"regexp"
	"testing"

	"github.com/spazyCZ/ptop3/pkg/types"
)

func sampleSet() []types.ProcessSample {
	return []types.ProcessSample{
		{PID: 100, Name: "web-server", Cmdline: "web-server", RSSMB: 300, MemPercent: 3.0, CPUPercent: 12},
		{PID: 101, PPID: 100, Name: "web-server", Cmdline: "web-server --worker", RSSMB: 200, MemPercent: 2.0, CPUPercent: 8},
		{PID: 200, Name: "postgres", Cmdline: "postgres -D /var/lib/pg", RSSMB: 900, MemPercent: 9.0, SwapMB: 40},
		{PID: 300, Name: "code", Cmdline: "code --serve", RSSMB: 500, MemPercent: 5.0},
		{PID: 301, Name: "defunct-child", Status: types.StatusZombie},
	}
}

func TestAggregatePartitionsEveryKeptSample(t *testing.T) {
	norm := NewNormalizer(nil)
	samples := sampleSet()
	groups, kept := Aggregate(norm, samples, nil)

	if len(kept) != len(samples) {
		t.Fatalf("kept %d samples, want %d", len(kept), len(samples))
	}
	total := 0
	for _, g := range groups {
		if g.Procs == 0 {
			t.Fatalf("empty group %q in output", g.App)
		}
		if g.Procs != len(g.PIDs) {
			t.Fatalf("group %q: Procs=%d but %d pids", g.App, g.Procs, len(g.PIDs))
		}
		total += g.Procs
	}
	if total != len(samples) {
		t.Fatalf("groups cover %d samples, want %d", total, len(samples))
	}
	// Each kept sample carries its group key.
	for _, s := range kept {
		if s.App == "" {
			t.Fatalf("pid %d missing app key", s.PID)
		}
	}
}

func TestAggregateGroupsWorkersUnderOneApp(t *testing.T) {
	norm := NewNormalizer(nil)
	groups, _ := Aggregate(norm, sampleSet(), nil)

	var web *types.AppGroup
	for i := range groups {
		if groups[i].App == "web-server" {
			web = &groups[i]
		}
	}
	if web == nil {
		t.Fatal("no web-server group")
	}
	if web.Procs != 2 {
		t.Fatalf("web-server Procs = %d, want 2", web.Procs)
	}
	if web.RSSMB != 500 {
		t.Fatalf("web-server RSSMB = %.1f, want 500", web.RSSMB)
	}
	if web.MemPercent != 5.0 {
		t.Fatalf("web-server MemPercent = %.1f, want 5.0", web.MemPercent)
	}
	if web.CPUPercent != 20 {
		t.Fatalf("web-server CPUPercent = %.1f, want 20", web.CPUPercent)
	}
}

func TestAggregateFilterOmitsNonMatchingGroups(t *testing.T) {
	norm := NewNormalizer(nil)
	filter := regexp.MustCompile(`(?i)postgres`)
	groups, kept := Aggregate(norm, sampleSet(), filter)

	if len(groups) != 1 || groups[0].App != "postgres" {
		t.Fatalf("groups = %+v, want only postgres", groups)
	}
	if len(kept) != 1 || kept[0].PID != 200 {
		t.Fatalf("kept = %+v, want only pid 200", kept)
	}
}

func TestAggregateFilterMatchesCmdline(t *testing.T) {
	norm := NewNormalizer(nil)
	filter := regexp.MustCompile(`(?i)--worker`)
	groups, kept := Aggregate(norm, sampleSet(), filter)

	if len(kept) != 1 || kept[0].PID != 101 {
		t.Fatalf("kept = %+v, want only the worker", kept)
	}
	if len(groups) != 1 || groups[0].Procs != 1 {
		t.Fatalf("groups = %+v, want one single-member group", groups)
	}
}

func TestAggregateCountsZombies(t *testing.T) {
	norm := NewNormalizer(nil)
	groups, _ := Aggregate(norm, sampleSet(), nil)
	zombies := 0
	for _, g := range groups {
		zombies += g.Zombies
	}
	if zombies != 1 {
		t.Fatalf("zombie count = %d, want 1", zombies)
	}
}

func TestSortGroupsTotalOrder(t *testing.T) {
	groups := []types.AppGroup{
		{App: "b", RSSMB: 100},
		{App: "a", RSSMB: 100},
		{App: "c", RSSMB: 900},
	}
	SortGroups(groups, types.SortRSS)
	got := []string{groups[0].App, groups[1].App, groups[2].App}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}

	// Sorting again must not change the order, and sorting a shuffled copy
	// must land in the same place: the tie-break makes the order total.
	shuffled := []types.AppGroup{groups[1], groups[2], groups[0]}
	SortGroups(shuffled, types.SortRSS)
	for i := range groups {
		if shuffled[i].App != groups[i].App {
			t.Fatalf("order not reproducible: %v vs %v", shuffled, groups)
		}
	}
}

func TestSortKeysSelectDifferentMetrics(t *testing.T) {
	groups := []types.AppGroup{
		{App: "cpu-heavy", CPUPercent: 90, RSSMB: 10, Procs: 1},
		{App: "mem-heavy", MemPercent: 50, RSSMB: 800, Procs: 2},
		{App: "crowded", Procs: 40},
	}
	for _, tc := range []struct {
		key  types.SortKey
		want string
	}{
		{types.SortCPU, "cpu-heavy"},
		{types.SortRSS, "mem-heavy"},
		{types.SortMem, "mem-heavy"},
		{types.SortCount, "crowded"},
	} {
		cp := make([]types.AppGroup, len(groups))
		copy(cp, groups)
		SortGroups(cp, tc.key)
		if cp[0].App != tc.want {
			t.Errorf("sort %s: first = %s, want %s", tc.key, cp[0].App, tc.want)
		}
	}
}

func TestGroupMembers(t *testing.T) {
	norm := NewNormalizer(nil)
	_, kept := Aggregate(norm, sampleSet(), nil)
	members := GroupMembers(kept, "web-server")
	if len(members) != 2 {
		t.Fatalf("members = %d, want 2", len(members))
	}
	for _, m := range members {
		if m.App != "web-server" {
			t.Fatalf("stray member %+v", m)
		}
	}
}
