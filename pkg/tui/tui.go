// Package tui owns the interactive state machine: a single cooperative
// loop multiplexing key events and refresh ticks, the mutable view state,
// and the bridge to the privileged maintenance helpers.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"golang.org/x/term"

	"github.com/spazyCZ/ptop3/pkg/collector/proc"
	"github.com/spazyCZ/ptop3/pkg/config"
	"github.com/spazyCZ/ptop3/pkg/maintenance"
	"github.com/spazyCZ/ptop3/pkg/report"
	"github.com/spazyCZ/ptop3/pkg/types"
)

// Mode is the current view of the state machine.
type Mode int

const (
	ModeGroupList Mode = iota
	ModeDetail
	ModeFilterInput
	ModeHelp
)

const (
	statusTTL   = 8 * time.Second
	refreshStep = 500 * time.Millisecond
	pageStep    = 10
)

// Options seed the initial view state.
type Options struct {
	Filter     *regexp.Regexp
	FilterText string
	SortKey    types.SortKey
	Refresh    time.Duration
	Thresholds types.AlertThresholds
	Aliases    map[string]string
	DropLevel  int
	SafetyMB   uint64
}

// UI is the view model plus the interaction state machine. It is the only
// mutable state in the core and is owned exclusively by the Run loop.
type UI struct {
	out  io.Writer
	in   io.Reader
	norm *report.Normalizer
	th   types.AlertThresholds

	mode     Mode
	prevMode Mode
	sel      int
	sortKey  types.SortKey
	refresh  time.Duration

	filterRe   *regexp.Regexp
	filterText string
	inputBuf   []rune
	inputErr   string

	detailApp string
	treeMode  bool

	// Per-tick data, fully recomputed from each snapshot.
	raw        []types.ProcessSample
	samples    []types.ProcessSample
	groups     []types.AppGroup
	detailList []types.ProcessSample
	detailRows []report.TreeRow
	sys        types.SystemStats
	alerts     []types.Alert

	status   string
	statusAt time.Time

	dropLevel int
	safetyMB  uint64

	// Collaborators, replaceable in tests.
	snapshot    func(ctx context.Context) ([]types.ProcessSample, types.SystemStats, error)
	invoke      func(ctx context.Context, req maintenance.Request) maintenance.Result
	signalProc  func(ctx context.Context, pid int32, kill bool) error
	signalGroup func(ctx context.Context, pids []int32, kill bool) (sent, denied int)
	size        func() (width, height int)
	now         func() time.Time
}

// New wires a UI over the given collector. out receives frames; in
// delivers raw key bytes (the terminal in raw mode).
func New(out io.Writer, in io.Reader, coll *proc.Collector, opts Options) *UI {
	u := &UI{
		out:        out,
		in:         in,
		norm:       report.NewNormalizer(opts.Aliases),
		th:         opts.Thresholds,
		mode:       ModeGroupList,
		sortKey:    opts.SortKey,
		refresh:    opts.Refresh,
		filterRe:   opts.Filter,
		filterText: opts.FilterText,
		dropLevel:  opts.DropLevel,
		safetyMB:   opts.SafetyMB,
		invoke:     maintenance.Invoke,
		signalProc: proc.SignalProcess,
		signalGroup: func(ctx context.Context, pids []int32, kill bool) (int, int) {
			return proc.SignalGroup(ctx, pids, kill)
		},
		now: time.Now,
	}
	if !u.sortKey.Valid() {
		u.sortKey = types.SortMem
	}
	if u.refresh <= 0 {
		u.refresh = config.DefaultRefresh
	}
	if u.dropLevel == 0 {
		u.dropLevel = 3
	}
	if u.safetyMB == 0 {
		u.safetyMB = 512
	}
	u.snapshot = func(ctx context.Context) ([]types.ProcessSample, types.SystemStats, error) {
		samples, err := coll.Snapshot(ctx)
		if err != nil {
			return nil, types.SystemStats{}, err
		}
		return samples, coll.SystemStats(ctx), nil
	}
	u.size = func() (int, int) {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			return w, h
		}
		return 80, 24
	}
	return u
}

// Run drives the cooperative loop until quit or context cancellation. Each
// iteration blocks on exactly one select: a key event dispatches one
// transition then redraws; a timer expiry pulls a fresh snapshot,
// recomputes, and redraws. Privileged-helper calls block the loop by
// design and redraw immediately after.
func (u *UI) Run(ctx context.Context) error {
	keys := make(chan Key, 8)
	go readKeys(u.in, keys)

	u.tick(ctx)
	u.draw()

	timer := time.NewTimer(u.refresh)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			before := u.refresh
			if quit := u.handleKey(ctx, k); quit {
				return nil
			}
			// An interval change takes effect on the wait already in
			// progress, not after the old timer fires.
			if u.refresh != before {
				timer.Reset(u.refresh)
			}
			u.draw()
		case <-timer.C:
			u.tick(ctx)
			u.draw()
			timer.Reset(u.refresh)
		}
	}
}

// tick pulls one snapshot and recomputes every derived view in order:
// aggregation, alerts, then the view lists. Errors become a status line;
// the loop never dies on a failed sample.
func (u *UI) tick(ctx context.Context) {
	raw, sys, err := u.snapshot(ctx)
	if err != nil {
		u.setStatus(fmt.Sprintf("snapshot failed: %v", err))
		return
	}
	u.raw = raw
	u.sys = sys
	u.recompute()
}

// recompute rebuilds groups, alerts, and the detail view from the last raw
// snapshot. Called after every tick and after any filter/sort change.
func (u *UI) recompute() {
	groups, kept := report.Aggregate(u.norm, u.raw, u.filterRe)
	report.SortGroups(groups, u.sortKey)
	u.groups = groups
	u.samples = kept
	u.alerts = report.EvaluateAlerts(groups, kept, u.sys, u.th)

	if u.detailApp != "" {
		members := report.GroupMembers(kept, u.detailApp)
		if u.treeMode {
			u.detailRows = report.FlattenTree(report.BuildProcessTree(members, u.sortKey))
			u.detailList = members
		} else {
			report.SortSamples(members, u.sortKey)
			u.detailList = members
			u.detailRows = nil
		}
	} else {
		u.detailList = nil
		u.detailRows = nil
	}
	u.clampSel()
}

func (u *UI) length() int {
	switch u.mode {
	case ModeDetail:
		if u.treeMode {
			return len(u.detailRows)
		}
		return len(u.detailList)
	default:
		return len(u.groups)
	}
}

func (u *UI) clampSel() {
	if max := u.length() - 1; u.sel > max {
		u.sel = max
	}
	if u.sel < 0 {
		u.sel = 0
	}
}

func (u *UI) setStatus(msg string) {
	u.status = msg
	u.statusAt = u.now()
}

// handleKey dispatches exactly one transition or action. It returns true
// when the state machine reaches Quit.
func (u *UI) handleKey(ctx context.Context, k Key) bool {
	if k.Code == KeyCtrlC {
		return true
	}
	switch u.mode {
	case ModeFilterInput:
		u.handleFilterKey(k)
		return false
	case ModeHelp:
		if k.Code == KeyRune {
			switch k.Rune {
			case 'q':
				return true
			case 'f':
				// Filter opens from anywhere; prevMode still names the view
				// help was called from, so Enter/Esc land back there.
				u.mode = ModeFilterInput
				u.inputBuf = u.inputBuf[:0]
				u.inputErr = ""
				return false
			}
		}
		u.mode = u.prevMode
		return false
	}

	switch k.Code {
	case KeyDown:
		u.move(1)
	case KeyUp:
		u.move(-1)
	case KeyPgDn:
		u.move(pageStep)
	case KeyPgUp:
		u.move(-pageStep)
	case KeyHome:
		u.sel = 0
	case KeyEnd:
		u.sel = u.length() - 1
		u.clampSel()
	case KeyEnter, KeyRight:
		u.enterOrBack()
	case KeyLeft:
		if u.mode == ModeDetail {
			u.leaveDetail()
		}
	case KeyRune:
		return u.handleRune(ctx, k.Rune)
	}
	return false
}

func (u *UI) handleRune(ctx context.Context, r rune) bool {
	switch r {
	case 'q':
		return true
	case 'j':
		u.move(1)
	case 'l':
		u.enterOrBack()
	case 'h':
		if u.mode == ModeDetail {
			u.leaveDetail()
		}
	case 't':
		if u.mode == ModeDetail {
			u.treeMode = !u.treeMode
			u.sel = 0
			u.recompute()
			if u.treeMode {
				u.setStatus("Tree view: ON")
			} else {
				u.setStatus("Tree view: OFF")
			}
		}
	case 's':
		u.sortKey = u.sortKey.Next()
		u.sel = 0
		u.recompute()
		u.setStatus(fmt.Sprintf("Sort: %s", u.sortKey))
	case '+':
		u.adjustRefresh(refreshStep)
	case '-':
		u.adjustRefresh(-refreshStep)
	case 'f':
		u.prevMode = u.mode
		u.mode = ModeFilterInput
		u.inputBuf = u.inputBuf[:0]
		u.inputErr = ""
	case 'r':
		u.filterRe = nil
		u.filterText = ""
		u.sel = 0
		u.recompute()
		u.setStatus("Filter cleared")
	case 'k':
		u.killSelected(ctx, false)
	case 'K':
		u.killSelected(ctx, true)
	case 'g':
		if u.mode == ModeGroupList {
			u.killGroup(ctx, false)
		}
	case 'w':
		u.runMaintenance(ctx, maintenance.OpSwapClean)
	case 'd':
		u.runMaintenance(ctx, maintenance.OpDropCaches)
	case '?':
		u.prevMode = u.mode
		u.mode = ModeHelp
	}
	return false
}

func (u *UI) handleFilterKey(k Key) {
	switch k.Code {
	case KeyEsc:
		// Cancel: previous view, filter unchanged.
		u.mode = u.prevMode
		u.inputErr = ""
	case KeyBackspace:
		if len(u.inputBuf) > 0 {
			u.inputBuf = u.inputBuf[:len(u.inputBuf)-1]
		}
	case KeyEnter:
		text := string(u.inputBuf)
		if text == "" {
			u.filterRe = nil
			u.filterText = ""
			u.mode = u.prevMode
			u.sel = 0
			u.recompute()
			u.setStatus("Filter cleared")
			return
		}
		re, err := regexp.Compile("(?i)" + text)
		if err != nil {
			// Invalid pattern: stay in input, keep the buffer, show why.
			u.inputErr = fmt.Sprintf("invalid regex: %v", err)
			return
		}
		u.filterRe = re
		u.filterText = text
		u.mode = u.prevMode
		u.sel = 0
		u.recompute()
		u.setStatus(fmt.Sprintf("Filter: %s", text))
	case KeyRune:
		u.inputBuf = append(u.inputBuf, k.Rune)
		u.inputErr = ""
	}
}

func (u *UI) move(delta int) {
	u.sel += delta
	u.clampSel()
}

func (u *UI) enterOrBack() {
	switch u.mode {
	case ModeGroupList:
		if len(u.groups) == 0 {
			return
		}
		u.detailApp = u.groups[u.sel].App
		u.mode = ModeDetail
		u.sel = 0
		u.recompute()
	case ModeDetail:
		u.leaveDetail()
	}
}

func (u *UI) leaveDetail() {
	u.mode = ModeGroupList
	u.detailApp = ""
	u.treeMode = false
	u.sel = 0
	u.recompute()
}

func (u *UI) adjustRefresh(delta time.Duration) {
	u.refresh += delta
	if u.refresh < config.MinRefresh {
		u.refresh = config.MinRefresh
	}
	if u.refresh > config.MaxRefresh {
		u.refresh = config.MaxRefresh
	}
	u.setStatus(fmt.Sprintf("Refresh: %.1fs", u.refresh.Seconds()))
}

// killSelected signals the selected process (Detail) or every member of
// the selected group (GroupList). Outcome is a status line, never a view
// transition.
func (u *UI) killSelected(ctx context.Context, force bool) {
	sigName := "TERM"
	if force {
		sigName = "KILL"
	}
	switch u.mode {
	case ModeDetail:
		s := u.selectedSample()
		if s == nil {
			return
		}
		if err := u.signalProc(ctx, s.PID, force); err != nil {
			u.setStatus(fmt.Sprintf("signal %d failed: %v", s.PID, err))
			return
		}
		u.setStatus(fmt.Sprintf("Sent SIG%s to %d (%s)", sigName, s.PID, s.Name))
	case ModeGroupList:
		u.killGroup(ctx, force)
	}
}

func (u *UI) killGroup(ctx context.Context, force bool) {
	if u.mode != ModeGroupList || len(u.groups) == 0 {
		return
	}
	g := u.groups[u.sel]
	sigName := "TERM"
	if force {
		sigName = "KILL"
	}
	sent, denied := u.signalGroup(ctx, g.PIDs, force)
	msg := fmt.Sprintf("Sent SIG%s to '%s' (%d procs)", sigName, g.App, sent)
	if denied > 0 {
		msg += fmt.Sprintf(" [%d denied]", denied)
	}
	u.setStatus(msg)
}

func (u *UI) selectedSample() *types.ProcessSample {
	if u.treeMode {
		if u.sel < len(u.detailRows) {
			return u.detailRows[u.sel].Sample
		}
		return nil
	}
	if u.sel < len(u.detailList) {
		return &u.detailList[u.sel]
	}
	return nil
}

// runMaintenance blocks the loop for the duration of the helper call; the
// operations are short-lived and rare, and the screen is redrawn with the
// result immediately after.
func (u *UI) runMaintenance(ctx context.Context, kind maintenance.OpKind) {
	u.setStatus(fmt.Sprintf("%s started ...", kind))
	u.draw()
	req := maintenance.Request{Kind: kind}
	switch kind {
	case maintenance.OpDropCaches:
		req.Level = u.dropLevel
	case maintenance.OpSwapClean:
		req.SafetyMB = u.safetyMB
	}
	res := u.invoke(ctx, req)
	u.setStatus(maintenance.Describe(req, res))
}
