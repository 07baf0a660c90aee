//go:build linux

// Command ptop-swap-clean cycles swap devices through swapoff/swapon so
// swapped pages return to RAM, refusing to act unless available memory can
// absorb the swapped pages plus a safety margin. It is one of the two
// root-only maintenance helpers delegated via /etc/sudoers.d/ptop3.
//
// Exit codes: 0 success, 1 not root, 2 invalid parameter, 3 operation
// failed, 4 insufficient memory margin, 5 partial failure (a device was
// left disabled after the enable retry).
package main

import (
	"flag"
	"os"

	"github.com/spazyCZ/ptop3/pkg/maintenance"
)

func main() {
	safetyMB := flag.Uint64("safety-mb", 512, "memory safety margin in MB")
	target := flag.String("target", "", "swap file/device to cycle (default: all)")
	dryRun := flag.Bool("dry-run", false, "show what would be done without making changes")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	os.Exit(maintenance.SwapClean(maintenance.SwapCleanOptions{
		SafetyMB: *safetyMB,
		Target:   *target,
		DryRun:   *dryRun,
		Verbose:  *verbose,
	}, os.Stdout, os.Stderr))
}
