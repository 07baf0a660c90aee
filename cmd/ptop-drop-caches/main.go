//go:build linux

// Command ptop-drop-caches frees kernel filesystem caches by writing to
// /proc/sys/vm/drop_caches. It is one of the two root-only maintenance
// helpers delegated via /etc/sudoers.d/ptop3.
//
// Exit codes: 0 success, 1 not root, 2 invalid level, 3 operation failed
// (a pre-check read or the write itself).
package main

import (
	"flag"
	"os"

	"github.com/spazyCZ/ptop3/pkg/maintenance"
)

func main() {
	level := flag.Int("level", 3, "cache drop level: 1 page cache, 2 dentries/inodes, 3 both")
	dryRun := flag.Bool("dry-run", false, "show what would be done without making changes")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	os.Exit(maintenance.DropCaches(maintenance.DropCachesOptions{
		Level:   *level,
		DryRun:  *dryRun,
		Verbose: *verbose,
	}, os.Stdout, os.Stderr))
}
