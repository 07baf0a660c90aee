// Package proc adapts the OS process table into per-tick snapshots. It is
// the only component that touches the live system; everything downstream is
// a pure function of one snapshot.
package proc

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/spazyCZ/ptop3/pkg/types"
)

const (
	mib = 1024.0 * 1024.0
	gib = 1024.0 * 1024.0 * 1024.0

	// Lite mode skips expensive per-process reads below these RSS sizes.
	liteCmdlineMinMB = 2.0
	liteSwapMinMB    = 200.0
	swapMinMB        = 50.0
	ioMinMB          = 25.0

	maxCmdlineTokens = 10
)

// Options tune the per-tick sampling cost.
type Options struct {
	// Lite skips command line, I/O counters, and status for processes with a
	// small resident set, trading filter fidelity on tiny processes for a
	// cheaper walk on busy systems.
	Lite bool
}

// Collector samples the process table. CPU percentages are deltas between
// consecutive Snapshot calls, so the collector keeps process handles from
// the previous walk; the snapshots it returns are still fully independent.
type Collector struct {
	opts  Options
	procs map[int32]*process.Process
}

// New returns a Collector with the given options.
func New(opts Options) *Collector {
	return &Collector{opts: opts, procs: make(map[int32]*process.Process)}
}

// Snapshot walks the current process table and returns one immutable sample
// per reachable process. A process that vanishes between enumeration and
// field enrichment is dropped from this tick; churn never aborts the walk.
func (c *Collector) Snapshot(ctx context.Context) ([]types.ProcessSample, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	var invMemTotal float64
	if err == nil && vm.Total > 0 {
		invMemTotal = 100.0 / float64(vm.Total)
	}

	samples := make([]types.ProcessSample, 0, len(procs))
	alive := make(map[int32]*process.Process, len(procs))
	lite := c.opts.Lite

	for _, p := range procs {
		pid := p.Pid
		if prev, ok := c.procs[pid]; ok {
			p = prev
		}
		alive[pid] = p

		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue // gone or unreadable; skip this tick
		}
		mi, err := p.MemoryInfoWithContext(ctx)
		if err != nil || mi == nil {
			continue
		}
		rssMB := float64(mi.RSS) / mib

		s := types.ProcessSample{
			PID:    pid,
			Name:   name,
			RSSMB:  rssMB,
			VMSMB:  float64(mi.VMS) / mib,
			SwapMB: float64(mi.Swap) / mib,
			Status: "running",
		}
		if ppid, err := p.PpidWithContext(ctx); err == nil {
			s.PPID = ppid
		}
		s.MemPercent = float64(mi.RSS) * invMemTotal

		if !lite || rssMB >= liteCmdlineMinMB {
			if cpu, err := p.PercentWithContext(ctx, 0); err == nil {
				s.CPUPercent = cpu
			}
			if args, err := p.CmdlineSliceWithContext(ctx); err == nil {
				s.Cmdline = joinCmdline(args)
			}
			if st, err := p.StatusWithContext(ctx); err == nil {
				s.Status = sampleStatus(st)
			}
			if user, err := p.UsernameWithContext(ctx); err == nil {
				s.Username = user
			}
		}
		// VmSwap is only worth reading for processes big enough to have been
		// pushed out; threshold is higher in lite mode.
		if (lite && rssMB < liteSwapMinMB) || (!lite && rssMB < swapMinMB) {
			s.SwapMB = 0
		}
		if !lite && rssMB >= ioMinMB {
			if io, err := p.IOCountersWithContext(ctx); err == nil && io != nil {
				s.IOReadMB = float64(io.ReadBytes) / mib
				s.IOWriteMB = float64(io.WriteBytes) / mib
			}
		}

		samples = append(samples, s)
	}

	c.procs = alive
	return samples, nil
}

// SystemStats reads the host-level figures for the header and alerts.
func (c *Collector) SystemStats(ctx context.Context) types.SystemStats {
	stats := types.SystemStats{CPUCount: runtime.NumCPU()}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemTotalGB = float64(vm.Total) / gib
		stats.MemUsedGB = float64(vm.Used) / gib
		stats.MemAvailableGB = float64(vm.Available) / gib
		stats.MemFreeGB = float64(vm.Free) / gib
		stats.MemBuffersGB = float64(vm.Buffers) / gib
		stats.MemCachedGB = float64(vm.Cached) / gib
		stats.MemPercent = vm.UsedPercent
	}
	if sm, err := mem.SwapMemoryWithContext(ctx); err == nil {
		stats.SwapTotalGB = float64(sm.Total) / gib
		stats.SwapUsedGB = float64(sm.Used) / gib
		stats.SwapPercent = sm.UsedPercent
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		stats.Load1 = avg.Load1
		stats.Load5 = avg.Load5
		stats.Load15 = avg.Load15
	}
	if du, err := disk.UsageWithContext(ctx, "/"); err == nil && du != nil {
		stats.DiskPercent = du.UsedPercent
	}
	return stats
}

// SignalProcess sends SIGTERM (or SIGKILL) to one pid.
func SignalProcess(ctx context.Context, pid int32, kill bool) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	if kill {
		return p.KillWithContext(ctx)
	}
	return p.TerminateWithContext(ctx)
}

// SignalGroup signals every live process whose pid appears in pids and
// returns how many were signalled and how many were denied.
func SignalGroup(ctx context.Context, pids []int32, kill bool) (sent, denied int) {
	for _, pid := range pids {
		err := SignalProcess(ctx, pid, kill)
		switch {
		case err == nil:
			sent++
		case os.IsPermission(err), strings.Contains(strings.ToLower(err.Error()), "permission"):
			denied++
		}
		// Already-gone processes count as neither.
	}
	return sent, denied
}

// joinCmdline joins up to maxCmdlineTokens arguments, matching the capped
// command line the rest of the pipeline filters and renders.
func joinCmdline(args []string) string {
	if len(args) == 0 {
		return ""
	}
	if len(args) > maxCmdlineTokens {
		args = args[:maxCmdlineTokens]
	}
	return strings.Join(args, " ")
}

// sampleStatus maps gopsutil's status slice to one lifecycle word.
func sampleStatus(st []string) string {
	if len(st) == 0 {
		return "unknown"
	}
	return st[0]
}
