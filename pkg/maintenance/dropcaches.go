package maintenance

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Stubbed in tests so the mutation step can be asserted against.
var (
	syncFilesystems = unix.Sync
	writeDropCaches = func(path string, level int) error {
		return os.WriteFile(path, []byte(fmt.Sprintf("%d", level)), 0o644)
	}
)

// DropCachesOptions parameterize one drop-caches invocation.
type DropCachesOptions struct {
	// Level selects what to free: 1 page cache, 2 dentries and inodes,
	// 3 both. Any other value is rejected before the privilege check.
	Level   int
	DryRun  bool
	Verbose bool

	// Paths default to the live /proc files; tests point them elsewhere.
	MeminfoPath    string
	DropCachesPath string
}

func (o DropCachesOptions) meminfoPath() string {
	if o.MeminfoPath != "" {
		return o.MeminfoPath
	}
	return DefaultMeminfoPath
}

func (o DropCachesOptions) dropCachesPath() string {
	if o.DropCachesPath != "" {
		return o.DropCachesPath
	}
	return DefaultDropCachesPath
}

// DropCaches frees kernel filesystem caches by writing the level into the
// cache-control interface. The sequence is a flat list of checks, each with
// its own exit code: parameter validation, privilege, then the single
// mutating write. Dry-run performs every check and reports the write it
// would do without touching the kernel.
func DropCaches(opts DropCachesOptions, out, errw io.Writer) int {
	log := func(format string, args ...any) {
		if opts.Verbose {
			fmt.Fprintf(out, format+"\n", args...)
		}
	}

	if opts.Level < 1 || opts.Level > 3 {
		fmt.Fprintf(errw, "error: invalid level %d (must be 1, 2, or 3)\n", opts.Level)
		return ExitInvalidParam
	}
	if geteuid() != 0 {
		fmt.Fprintln(errw, "error: must run as root")
		return ExitNotRoot
	}

	memBefore, err := memAvailableKB(opts.meminfoPath())
	if err != nil {
		fmt.Fprintf(errw, "error: reading meminfo: %v\n", err)
		return ExitMutateFailed
	}
	log("MemAvailable before: %d kB", memBefore)

	log("Syncing filesystems...")
	if opts.DryRun {
		fmt.Fprintln(out, "[dry-run] sync")
	} else {
		syncFilesystems()
	}

	log("Dropping caches (level %d)...", opts.Level)
	if opts.DryRun {
		fmt.Fprintf(out, "[dry-run] echo %d > %s\n", opts.Level, opts.dropCachesPath())
	} else if err := writeDropCaches(opts.dropCachesPath(), opts.Level); err != nil {
		fmt.Fprintf(errw, "error: %v\n", err)
		return ExitMutateFailed
	}

	memAfter, err := memAvailableKB(opts.meminfoPath())
	if err != nil {
		memAfter = memBefore
	}
	freedKB := int64(memAfter) - int64(memBefore)
	log("MemAvailable after:  %d kB", memAfter)

	fmt.Fprintf(out, "Dropped caches (level %d), freed %d MB.\n", opts.Level, freedKB/1024)
	return ExitOK
}
