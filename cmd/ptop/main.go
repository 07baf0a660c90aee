//go:build linux

// Command ptop is an interactive terminal dashboard that samples the
// process table, groups processes into applications, and supports
// inspect/filter/sort/kill plus two sudo-delegated maintenance actions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/spazyCZ/ptop3/pkg/collector/proc"
	"github.com/spazyCZ/ptop3/pkg/config"
	"github.com/spazyCZ/ptop3/pkg/report"
	"github.com/spazyCZ/ptop3/pkg/sudoconf"
	"github.com/spazyCZ/ptop3/pkg/tui"
	"github.com/spazyCZ/ptop3/pkg/types"
)

type runConfig struct {
	once      bool
	filter    *regexp.Regexp
	filterStr string
	sortKey   types.SortKey
	top       int
	refresh   time.Duration
	lite      bool
	checkSudo bool
	initSudo  bool
	cfg       config.Config
}

func parseConfig() runConfig {
	once := flag.Bool("once", false, "print one-shot table and exit")
	filter := flag.String("filter", "", "regex to filter by app/name/cmd")
	sortKey := flag.String("sort", "", "sort key: mem, cpu, rss, swap, io, net, count")
	top := flag.Int("top", 0, "rows for -once")
	refresh := flag.Duration("refresh", 0, "refresh interval (e.g. 2s)")
	lite := flag.Bool("lite", false, "lite mode: skip cmdline/io for tiny procs")
	configPath := flag.String("config", "", "path to YAML config file")
	checkSudo := flag.Bool("check-sudo", false, "check sudo delegation for maintenance helpers")
	initSudo := flag.Bool("init-sudo", false, "write /etc/sudoers.d/ptop3 for maintenance helpers")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	rc := runConfig{
		once:      *once,
		sortKey:   types.SortKey(cfg.Sort),
		top:       cfg.TopRows,
		refresh:   cfg.Refresh(),
		lite:      cfg.Lite || *lite,
		checkSudo: *checkSudo,
		initSudo:  *initSudo,
		cfg:       cfg,
	}
	if *sortKey != "" {
		if k := types.SortKey(*sortKey); k.Valid() {
			rc.sortKey = k
		} else {
			fmt.Fprintf(os.Stderr, "unknown sort key %q; using %s\n", *sortKey, rc.sortKey)
		}
	}
	if *top > 0 {
		rc.top = *top
	}
	if *refresh > 0 {
		rc.refresh = *refresh
	}
	if *filter != "" {
		re, err := regexp.Compile("(?i)" + *filter)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Invalid regex for -filter; ignoring.")
		} else {
			rc.filter = re
			rc.filterStr = *filter
		}
	}
	return rc
}

func main() {
	rc := parseConfig()

	if rc.checkSudo {
		result := sudoconf.Check()
		allOK := true
		for _, name := range sudoconf.HelperNames {
			fmt.Printf("  %s: %s\n", name, result[name])
			if result[name] != sudoconf.StatusOK {
				allOK = false
			}
		}
		if !allOK {
			os.Exit(1)
		}
		return
	}
	if rc.initSudo {
		if err := sudoconf.Init(os.Stdout); err != nil {
			log.Fatalf("init-sudo: %v", err)
		}
		return
	}

	collector := proc.New(proc.Options{Lite: rc.lite})

	if rc.once {
		if err := printOnce(collector, rc); err != nil {
			log.Fatalf("sampling: %v", err)
		}
		return
	}

	runInteractive(collector, rc)
}

func printOnce(collector *proc.Collector, rc runConfig) error {
	ctx := context.Background()
	samples, err := collector.Snapshot(ctx)
	if err != nil {
		return err
	}
	norm := report.NewNormalizer(rc.cfg.Aliases)
	groups, _ := report.Aggregate(norm, samples, rc.filter)
	report.SortGroups(groups, rc.sortKey)
	if rc.top > 0 && len(groups) > rc.top {
		groups = groups[:rc.top]
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "APP\tPROCS\tRSS(MiB)\tSWAP(MiB)\t%MEM\t%CPU\tIO_R(MB)\tIO_W(MB)")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\n",
			g.App, g.Procs, g.RSSMB, g.SwapMB, g.MemPercent, g.CPUPercent,
			g.IOReadMB, g.IOWriteMB)
	}
	return tw.Flush()
}

func runInteractive(collector *proc.Collector, rc runConfig) {
	stdinFD := int(os.Stdin.Fd())
	stdoutFD := int(os.Stdout.Fd())
	if !term.IsTerminal(stdinFD) || !term.IsTerminal(stdoutFD) {
		log.Fatal("interactive mode requires a terminal (use -once for plain output)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The terminal is acquired exactly once and released on every exit
	// path: quit, error, and interrupt all funnel through this defer.
	restore, err := acquireTerminal(stdinFD)
	if err != nil {
		log.Fatalf("acquiring terminal: %v", err)
	}
	defer restore()

	ui := tui.New(os.Stdout, os.Stdin, collector, tui.Options{
		Filter:     rc.filter,
		FilterText: rc.filterStr,
		SortKey:    rc.sortKey,
		Refresh:    rc.refresh,
		Thresholds: rc.cfg.Thresholds,
		Aliases:    rc.cfg.Aliases,
	})
	if err := ui.Run(ctx); err != nil {
		restore()
		log.Fatalf("interactive loop: %v", err)
	}
}

// acquireTerminal switches to the alternate screen, hides the cursor, and
// puts stdin into raw mode. The returned func undoes all of it in reverse
// order and is safe to call more than once.
func acquireTerminal(stdinFD int) (func(), error) {
	oldState, err := term.MakeRaw(stdinFD)
	if err != nil {
		return nil, err
	}
	fmt.Print("\033[?1049h") // alternate buffer
	fmt.Print("\033[?25l")   // hide cursor

	released := false
	return func() {
		if released {
			return
		}
		released = true
		fmt.Print("\033[?25h")
		fmt.Print("\033[?1049l")
		_ = term.Restore(stdinFD, oldState)
	}, nil
}
