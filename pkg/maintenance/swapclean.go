package maintenance

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"
)

// x/sys/unix exposes only the raw syscall numbers for swapon/swapoff, so
// the flag layout comes from linux/swap.h.
const (
	swapFlagPrefer    = 0x8000
	swapFlagPrioMask  = 0x7fff
	swapFlagPrioShift = 0
)

// swapFlags encodes a /proc/swaps priority for the swapon syscall. Negative
// priorities are kernel-assigned; re-enabling without the prefer flag lets
// the kernel pick again.
func swapFlags(priority int) int {
	if priority < 0 {
		return 0
	}
	return swapFlagPrefer | ((priority << swapFlagPrioShift) & swapFlagPrioMask)
}

// Stubbed in tests so device cycling can be scripted without root.
var (
	swapOff = func(device string) error {
		p, err := unix.BytePtrFromString(device)
		if err != nil {
			return err
		}
		if _, _, errno := unix.Syscall(unix.SYS_SWAPOFF, uintptr(unsafe.Pointer(p)), 0, 0); errno != 0 {
			return errno
		}
		return nil
	}
	swapOn = func(device string, priority int) error {
		p, err := unix.BytePtrFromString(device)
		if err != nil {
			return err
		}
		if _, _, errno := unix.Syscall(unix.SYS_SWAPON, uintptr(unsafe.Pointer(p)), uintptr(swapFlags(priority)), 0); errno != 0 {
			return errno
		}
		return nil
	}
)

// SwapCleanOptions parameterize one swap-clean invocation.
type SwapCleanOptions struct {
	// SafetyMB is the memory margin that must remain free beyond the swapped
	// pages for the operation to proceed.
	SafetyMB uint64
	// Target restricts the cycle to one swap device; empty means all.
	Target  string
	DryRun  bool
	Verbose bool

	MeminfoPath string
	SwapsPath   string
}

func (o SwapCleanOptions) meminfoPath() string {
	if o.MeminfoPath != "" {
		return o.MeminfoPath
	}
	return DefaultMeminfoPath
}

func (o SwapCleanOptions) swapsPath() string {
	if o.SwapsPath != "" {
		return o.SwapsPath
	}
	return DefaultSwapsPath
}

// marginSatisfied is the safety boundary for swap-clean. It is deliberately
// strict: when available memory exactly equals used swap plus the margin,
// the operation does NOT proceed. Fail closed, never open.
func marginSatisfied(availableKB, usedKB, safetyKB uint64) bool {
	return availableKB > usedKB+safetyKB
}

// SwapClean cycles swap devices through disable-then-enable so their pages
// return to RAM. The memory-margin check always runs before any mutation
// (check-then-act); a disable that succeeds followed by an enable that
// fails is retried exactly once and otherwise reported as the distinct
// partial-failure exit code, since leaving swap disabled is worse than
// leaving it untouched.
func SwapClean(opts SwapCleanOptions, out, errw io.Writer) int {
	log := func(format string, args ...any) {
		if opts.Verbose {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}

	if geteuid() != 0 {
		fmt.Fprintln(errw, "error: must run as root to use swapoff/swapon")
		return ExitNotRoot
	}

	meminfo, err := readMeminfo(opts.meminfoPath())
	if err != nil {
		fmt.Fprintf(errw, "error: reading meminfo: %v\n", err)
		return ExitMutateFailed
	}
	availableKB, ok := meminfo["MemAvailable"]
	if !ok {
		fmt.Fprintln(errw, "error: failed to read MemAvailable from meminfo")
		return ExitMutateFailed
	}
	safetyKB := opts.SafetyMB * 1024

	devices, err := readSwaps(opts.swapsPath())
	if err != nil {
		fmt.Fprintf(errw, "error: reading swaps: %v\n", err)
		return ExitMutateFailed
	}

	if opts.Target != "" {
		resolved, err := filepath.EvalSymlinks(opts.Target)
		if err != nil {
			resolved = opts.Target
		}
		var target *SwapDevice
		for i := range devices {
			if devices[i].Filename == opts.Target || devices[i].Filename == resolved {
				target = &devices[i]
				break
			}
		}
		if target == nil {
			fmt.Fprintf(errw, "error: target swap not active: %s\n", opts.Target)
			return ExitInvalidParam
		}
		devices = []SwapDevice{*target}
	}

	var totalUsedKB uint64
	for _, d := range devices {
		totalUsedKB += d.UsedKB
	}
	if len(devices) == 0 || totalUsedKB == 0 {
		if len(devices) == 0 {
			fmt.Fprintln(out, "No swap configured. Nothing to do.")
		} else {
			fmt.Fprintln(out, "Swap is not in use. Nothing to do.")
		}
		return ExitOK
	}

	log("MemAvailable: %d kB", availableKB)
	log("SwapUsed:     %d kB", totalUsedKB)
	log("Safety:       %d kB", safetyKB)

	// Check-then-act: no device is touched unless the margin holds for the
	// whole batch.
	if !marginSatisfied(availableKB, totalUsedKB, safetyKB) {
		fmt.Fprintln(errw, "Not enough RAM to clean swap safely.")
		fmt.Fprintf(errw, "MemAvailable: %d kB\n", availableKB)
		fmt.Fprintf(errw, "SwapUsed:     %d kB\n", totalUsedKB)
		fmt.Fprintf(errw, "Safety:       %d kB\n", safetyKB)
		return ExitMarginShort
	}

	// Smallest devices first: each success frees margin for the next.
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].UsedKB != devices[j].UsedKB {
			return devices[i].UsedKB < devices[j].UsedKB
		}
		return devices[i].Filename < devices[j].Filename
	})

	cycled := 0
	disableFailed := 0
	partialFailed := 0
	for _, d := range devices {
		log("Disabling swap: %s", d.Filename)
		if opts.DryRun {
			fmt.Fprintf(out, "[dry-run] swapoff %s\n", d.Filename)
		} else if err := swapOff(d.Filename); err != nil {
			fmt.Fprintf(errw, "error: swapoff %s: %v\n", d.Filename, err)
			disableFailed++
			continue
		}

		log("Re-enabling swap: %s", d.Filename)
		if opts.DryRun {
			fmt.Fprintf(out, "[dry-run] swapon %s\n", d.Filename)
			cycled++
			continue
		}
		if err := swapOn(d.Filename, d.Priority); err != nil {
			// One retry: a device left disabled is the worst outcome.
			fmt.Fprintf(errw, "warning: swapon %s failed (%v), retrying once\n", d.Filename, err)
			if err := swapOn(d.Filename, d.Priority); err != nil {
				fmt.Fprintf(errw, "error: swapon %s failed after retry: %v; device left disabled\n", d.Filename, err)
				partialFailed++
				continue
			}
			fmt.Fprintf(out, "recovered: swapon %s succeeded on retry\n", d.Filename)
		}
		cycled++
	}

	switch {
	case partialFailed > 0:
		fmt.Fprintf(errw, "Swap clean partial failure: %d device(s) left disabled.\n", partialFailed)
		return ExitPartialFailure
	case disableFailed > 0 && cycled == 0:
		fmt.Fprintln(errw, "Swap clean failed: no device could be cycled.")
		return ExitMutateFailed
	case disableFailed > 0:
		fmt.Fprintf(out, "Swap clean completed with %d device(s) skipped on swapoff failure.\n", disableFailed)
		return ExitOK
	default:
		fmt.Fprintln(out, "Swap clean completed.")
		return ExitOK
	}
}
