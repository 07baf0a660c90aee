package maintenance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Helper binary names as installed on PATH.
const (
	DropCachesHelper = "ptop-drop-caches"
	SwapCleanHelper  = "ptop-swap-clean"
)

// HelperTimeout bounds one helper invocation. A helper exceeding it is
// killed and reported as a subprocess error, never a hang.
const HelperTimeout = 60 * time.Second

// OpKind names one of the two privileged operations.
type OpKind string

const (
	OpDropCaches OpKind = "drop-caches"
	OpSwapClean  OpKind = "swap-clean"
)

// Request describes one privileged-operation invocation. A fresh value is
// created per invocation and never persisted.
type Request struct {
	Kind     OpKind
	Level    int    // drop-caches: cache level 1-3
	SafetyMB uint64 // swap-clean: safety margin
	DryRun   bool
}

// Result is the outcome of one helper invocation.
type Result struct {
	Code     int
	Output   string
	Err      error
	TimedOut bool
}

// Stubbed in tests.
var (
	lookPath      = exec.LookPath
	executable    = os.Executable
	runnerGeteuid = os.Geteuid
	runHelper     = execHelper
)

// HelperPath resolves a helper binary: PATH first, then the directory of
// the running executable as the uninstalled-checkout fallback.
func HelperPath(name string) (string, error) {
	if p, err := lookPath(name); err == nil {
		return p, nil
	}
	exe, err := executable()
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH", name)
	}
	sibling := filepath.Join(filepath.Dir(exe), name)
	if _, err := os.Stat(sibling); err == nil {
		return sibling, nil
	}
	return "", fmt.Errorf("%s not found on PATH or next to %s", name, exe)
}

// Invoke runs the helper for req as a child process with an explicit
// argument list, never through a shell, prefixed with non-interactive
// sudo when the caller is unprivileged. The call blocks up to
// HelperTimeout.
func Invoke(ctx context.Context, req Request) Result {
	var helper string
	var args []string
	switch req.Kind {
	case OpDropCaches:
		helper = DropCachesHelper
		args = []string{"-level", strconv.Itoa(req.Level)}
	case OpSwapClean:
		helper = SwapCleanHelper
		args = []string{"-safety-mb", strconv.FormatUint(req.SafetyMB, 10)}
	default:
		return Result{Code: -1, Err: fmt.Errorf("unknown operation %q", req.Kind)}
	}
	if req.DryRun {
		args = append(args, "-dry-run")
	}

	path, err := HelperPath(helper)
	if err != nil {
		return Result{Code: -1, Err: err}
	}

	argv := append([]string{path}, args...)
	if runnerGeteuid() != 0 {
		argv = append([]string{"sudo", "-n"}, argv...)
	}

	ctx, cancel := context.WithTimeout(ctx, HelperTimeout)
	defer cancel()
	return runHelper(ctx, argv)
}

func execHelper(ctx context.Context, argv []string) Result {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	res := Result{Output: string(out)}
	if err == nil {
		return res
	}
	if ctx.Err() == context.DeadlineExceeded {
		res.Code = -1
		res.TimedOut = true
		res.Err = fmt.Errorf("%s timed out after %v", argv[0], HelperTimeout)
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.Code = exitErr.ExitCode()
		return res
	}
	res.Code = -1
	res.Err = err
	return res
}

// Describe renders a helper result as a one-line status message for the
// interactive session.
func Describe(req Request, res Result) string {
	name := string(req.Kind)
	if res.TimedOut {
		return fmt.Sprintf("%s timed out", name)
	}
	if res.Err != nil {
		return fmt.Sprintf("%s error: %s", name, truncate(res.Err.Error(), 60))
	}

	lastLine := ""
	if trimmed := strings.TrimSpace(res.Output); trimmed != "" {
		parts := strings.Split(trimmed, "\n")
		lastLine = strings.TrimSpace(parts[len(parts)-1])
	}

	switch res.Code {
	case ExitOK:
		if lastLine != "" {
			return fmt.Sprintf("%s: %s", name, truncate(lastLine, 70))
		}
		return fmt.Sprintf("%s finished", name)
	case ExitNotRoot:
		return fmt.Sprintf("%s needs NOPASSWD sudo; run: sudo ptop -init-sudo", name)
	case ExitInvalidParam:
		return fmt.Sprintf("%s rejected parameters: %s", name, truncate(lastLine, 50))
	case ExitMarginShort:
		return fmt.Sprintf("%s aborted: not enough free memory margin", name)
	case ExitPartialFailure:
		return fmt.Sprintf("%s PARTIAL FAILURE: a swap device was left disabled", name)
	case ExitMutateFailed:
		return fmt.Sprintf("%s failed: %s", name, truncate(lastLine, 60))
	default:
		if strings.Contains(strings.ToLower(res.Output), "password") {
			return fmt.Sprintf("%s needs NOPASSWD sudo; run: sudo ptop -init-sudo", name)
		}
		return fmt.Sprintf("%s failed (exit %d)%s", name, res.Code, suffixColon(lastLine))
	}
}

func suffixColon(s string) string {
	if s == "" {
		return ""
	}
	return ": " + truncate(s, 50)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
