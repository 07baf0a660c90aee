package maintenance

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func stubRunner(t *testing.T, path string, euid int, fn func(ctx context.Context, argv []string) Result) {
	t.Helper()
	origLook, origExec, origEuid, origRun := lookPath, executable, runnerGeteuid, runHelper
	lookPath = func(name string) (string, error) {
		if path == "" {
			return "", errors.New("not found")
		}
		return path, nil
	}
	executable = func() (string, error) { return "", errors.New("no executable") }
	runnerGeteuid = func() int { return euid }
	runHelper = fn
	t.Cleanup(func() {
		lookPath, executable, runnerGeteuid, runHelper = origLook, origExec, origEuid, origRun
	})
}

func TestInvokeBuildsDropCachesArgv(t *testing.T) {
	var gotArgv []string
	stubRunner(t, "/usr/local/bin/ptop-drop-caches", 0, func(ctx context.Context, argv []string) Result {
		gotArgv = argv
		return Result{Code: ExitOK, Output: "Dropped caches (level 3), freed 512 MB.\n"}
	})

	res := Invoke(context.Background(), Request{Kind: OpDropCaches, Level: 3})
	if res.Code != ExitOK {
		t.Fatalf("code = %d, want %d", res.Code, ExitOK)
	}
	want := []string{"/usr/local/bin/ptop-drop-caches", "-level", "3"}
	if len(gotArgv) != len(want) {
		t.Fatalf("argv = %v, want %v", gotArgv, want)
	}
	for i := range want {
		if gotArgv[i] != want[i] {
			t.Fatalf("argv = %v, want %v", gotArgv, want)
		}
	}
}

func TestInvokePrependsSudoWhenUnprivileged(t *testing.T) {
	var gotArgv []string
	stubRunner(t, "/usr/local/bin/ptop-swap-clean", 1000, func(ctx context.Context, argv []string) Result {
		gotArgv = argv
		return Result{Code: ExitOK}
	})

	Invoke(context.Background(), Request{Kind: OpSwapClean, SafetyMB: 512, DryRun: true})
	want := []string{"sudo", "-n", "/usr/local/bin/ptop-swap-clean", "-safety-mb", "512", "-dry-run"}
	if len(gotArgv) != len(want) {
		t.Fatalf("argv = %v, want %v", gotArgv, want)
	}
	for i := range want {
		if gotArgv[i] != want[i] {
			t.Fatalf("argv = %v, want %v", gotArgv, want)
		}
	}
}

func TestInvokeUnknownKind(t *testing.T) {
	stubRunner(t, "/bin/true", 0, func(ctx context.Context, argv []string) Result {
		t.Fatal("helper ran for unknown kind")
		return Result{}
	})
	res := Invoke(context.Background(), Request{Kind: OpKind("format-disk")})
	if res.Err == nil {
		t.Fatal("want error for unknown operation")
	}
}

func TestInvokeHelperMissing(t *testing.T) {
	stubRunner(t, "", 0, func(ctx context.Context, argv []string) Result {
		t.Fatal("helper ran despite missing binary")
		return Result{}
	})
	res := Invoke(context.Background(), Request{Kind: OpDropCaches, Level: 3})
	if res.Err == nil || res.Code != -1 {
		t.Fatalf("res = %+v, want resolution error", res)
	}
}

func TestDescribeStatusLines(t *testing.T) {
	req := Request{Kind: OpSwapClean}
	cases := []struct {
		res  Result
		want string
	}{
		{Result{Code: ExitOK, Output: "Swap clean completed.\n"}, "swap-clean: Swap clean completed."},
		{Result{Code: ExitOK}, "swap-clean finished"},
		{Result{Code: ExitNotRoot}, "needs NOPASSWD sudo"},
		{Result{Code: ExitMarginShort}, "not enough free memory margin"},
		{Result{Code: ExitPartialFailure}, "PARTIAL FAILURE"},
		{Result{Code: ExitMutateFailed, Output: "error: swapoff failed\n"}, "swap-clean failed: error: swapoff failed"},
		{Result{TimedOut: true, Code: -1}, "timed out"},
		{Result{Code: 127, Output: "sudo: a password is required\n"}, "needs NOPASSWD sudo"},
	}
	for _, tc := range cases {
		got := Describe(req, tc.res)
		if !strings.Contains(got, tc.want) {
			t.Errorf("Describe(%+v) = %q, want substring %q", tc.res, got, tc.want)
		}
	}
}

func TestHelperPathFallsBackToExeDir(t *testing.T) {
	origLook, origExec := lookPath, executable
	lookPath = func(string) (string, error) { return "", errors.New("not on PATH") }
	executable = func() (string, error) { return "/nonexistent/dir/ptop", nil }
	t.Cleanup(func() { lookPath, executable = origLook, origExec })

	if _, err := HelperPath(DropCachesHelper); err == nil {
		t.Fatal("want error when helper is neither on PATH nor next to the executable")
	}
}
