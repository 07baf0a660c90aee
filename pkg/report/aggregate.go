// Package report turns one snapshot of process samples into the grouped,
// filtered, and ordered data the dashboard renders. Everything here is a
// pure function of its inputs; nothing persists between ticks.
package report

import (
	"regexp"
	"sort"

	"github.com/spazyCZ/ptop3/pkg/types"
)

// Aggregate partitions samples into application groups. When filter is
// non-nil it is applied to each sample's app key, executable name, and
// command line before grouping: non-matching samples contribute nothing,
// and a group whose members all fail the filter is omitted entirely.
//
// The returned kept slice holds the surviving samples with their App key
// filled in; it is the per-tick source for detail views and group kills.
func Aggregate(norm *Normalizer, samples []types.ProcessSample, filter *regexp.Regexp) (groups []types.AppGroup, kept []types.ProcessSample) {
	acc := make(map[string]*types.AppGroup, 64)
	kept = make([]types.ProcessSample, 0, len(samples))

	for _, s := range samples {
		if s.App == "" {
			s.App = norm.AppName(s.Name, s.Cmdline)
		}
		if filter != nil &&
			!filter.MatchString(s.App) &&
			!filter.MatchString(s.Name) &&
			!(s.Cmdline != "" && filter.MatchString(s.Cmdline)) {
			continue
		}
		kept = append(kept, s)

		g := acc[s.App]
		if g == nil {
			g = &types.AppGroup{App: s.App}
			acc[s.App] = g
		}
		g.PIDs = append(g.PIDs, s.PID)
		g.Procs++
		if s.Status == types.StatusZombie {
			g.Zombies++
		}
		g.RSSMB += s.RSSMB
		g.MemPercent += s.MemPercent
		g.CPUPercent += s.CPUPercent
		g.SwapMB += s.SwapMB
		g.IOReadMB += s.IOReadMB
		g.IOWriteMB += s.IOWriteMB
		g.NetSentMB += s.NetSentMB
		g.NetRecvMB += s.NetRecvMB
	}

	groups = make([]types.AppGroup, 0, len(acc))
	for _, g := range acc {
		groups = append(groups, *g)
	}
	return groups, kept
}

// GroupMetric returns the numeric value of the active sort key for a group.
func GroupMetric(g types.AppGroup, key types.SortKey) float64 {
	switch key {
	case types.SortMem:
		return g.MemPercent
	case types.SortCPU:
		return g.CPUPercent
	case types.SortRSS:
		return g.RSSMB
	case types.SortSwap:
		return g.SwapMB
	case types.SortIO:
		return g.IOReadMB + g.IOWriteMB
	case types.SortNet:
		return g.NetSentMB + g.NetRecvMB
	case types.SortCount:
		return float64(g.Procs)
	}
	return g.RSSMB
}

// SampleMetric returns the numeric value of the active sort key for one
// process sample.
func SampleMetric(s types.ProcessSample, key types.SortKey) float64 {
	switch key {
	case types.SortMem:
		return s.MemPercent
	case types.SortCPU:
		return s.CPUPercent
	case types.SortRSS:
		return s.RSSMB
	case types.SortSwap:
		return s.SwapMB
	case types.SortIO:
		return s.IOReadMB + s.IOWriteMB
	case types.SortNet:
		return s.NetSentMB + s.NetRecvMB
	case types.SortCount:
		return float64(s.PID)
	}
	return s.RSSMB
}

// SortGroups orders groups by the active key descending with the group key
// ascending as tie-break, which makes the order a total order reproducible
// across ticks carrying identical data.
func SortGroups(groups []types.AppGroup, key types.SortKey) {
	sort.Slice(groups, func(i, j int) bool {
		a, b := GroupMetric(groups[i], key), GroupMetric(groups[j], key)
		if a != b {
			return a > b
		}
		return groups[i].App < groups[j].App
	})
}

// SortSamples orders samples by the active key descending, pid ascending on
// ties.
func SortSamples(samples []types.ProcessSample, key types.SortKey) {
	sort.Slice(samples, func(i, j int) bool {
		a, b := SampleMetric(samples[i], key), SampleMetric(samples[j], key)
		if a != b {
			return a > b
		}
		return samples[i].PID < samples[j].PID
	})
}

// GroupMembers returns the samples belonging to one group key.
func GroupMembers(samples []types.ProcessSample, app string) []types.ProcessSample {
	members := make([]types.ProcessSample, 0, 16)
	for _, s := range samples {
		if s.App == app {
			members = append(members, s)
		}
	}
	return members
}
