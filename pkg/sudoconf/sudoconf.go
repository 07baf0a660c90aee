// Package sudoconf validates and installs the sudo delegation that lets an
// unprivileged interactive session invoke the two privileged maintenance
// helpers without a password.
package sudoconf

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spazyCZ/ptop3/pkg/maintenance"
)

// SudoersPath is the live delegation-rule file written by Init.
const SudoersPath = "/etc/sudoers.d/ptop3"

// HelperNames lists the two delegated helper binaries.
var HelperNames = []string{maintenance.DropCachesHelper, maintenance.SwapCleanHelper}

// Status classifies one helper's delegation state as seen by Check.
type Status string

const (
	StatusOK            Status = "ok"
	StatusMissing       Status = "missing"
	StatusNeedsPassword Status = "needs_password"
	StatusError         Status = "error"
)

// Stubbed in tests.
var (
	sudoersPath = SudoersPath
	geteuid     = os.Geteuid
	resolvePath = maintenance.HelperPath
	runCommand  = func(argv ...string) (code int, stderr string, err error) {
		cmd := exec.Command(argv[0], argv[1:]...)
		var errBuf strings.Builder
		cmd.Stderr = &errBuf
		runErr := cmd.Run()
		if runErr == nil {
			return 0, errBuf.String(), nil
		}
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return exitErr.ExitCode(), errBuf.String(), nil
		}
		return -1, errBuf.String(), runErr
	}
	currentUsername = func() (string, error) {
		// When invoked via sudo the delegation must target the real user,
		// not root.
		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			return sudoUser, nil
		}
		u, err := user.Current()
		if err != nil {
			return "", err
		}
		return u.Username, nil
	}
)

// Check reports, per helper, whether the current user may run it as root
// without a password. It is a pure read: nothing is mutated.
func Check() map[string]Status {
	result := make(map[string]Status, len(HelperNames))
	for _, name := range HelperNames {
		path, err := resolvePath(name)
		if err != nil {
			result[name] = StatusMissing
			continue
		}
		code, stderr, err := runCommand("sudo", "-l", "-n", path)
		switch {
		case err != nil:
			result[name] = StatusError
		case code == 0:
			result[name] = StatusOK
		case strings.Contains(strings.ToLower(stderr), "password"):
			result[name] = StatusNeedsPassword
		default:
			result[name] = StatusNeedsPassword
		}
	}
	return result
}

// BuildSudoersContent generates the delegation text for username and the
// resolved helper paths. The output must pass visudo -c unchanged.
func BuildSudoersContent(username string, paths map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# ptop3 maintenance helpers for %s (managed by ptop -init-sudo)\n", username)
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	// Deterministic line order keeps reinstallation idempotent.
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s ALL=(root) NOPASSWD: %s\n", username, paths[name])
	}
	return b.String()
}

// ErrNotRoot is returned by Init when invoked without effective root.
var ErrNotRoot = fmt.Errorf("must run as root to install sudoers delegation")

// Init installs the delegation file. The generated text is written to a
// temporary file and validated with visudo before the live path is touched;
// on any failure the temporary file is removed and the live configuration
// is left exactly as it was. Without root it prints the would-be content
// and instructions, changes nothing, and returns ErrNotRoot.
func Init(out io.Writer) error {
	username, err := currentUsername()
	if err != nil {
		return fmt.Errorf("resolving username: %w", err)
	}

	paths := make(map[string]string, len(HelperNames))
	for _, name := range HelperNames {
		path, err := resolvePath(name)
		if err != nil {
			return fmt.Errorf("resolving helper: %w", err)
		}
		if !filepath.IsAbs(path) {
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving helper path %s: %w", path, err)
			}
			path = abs
		}
		paths[name] = path
	}
	content := BuildSudoersContent(username, paths)

	if geteuid() != 0 {
		fmt.Fprintln(out, "Not running as root; no changes made.")
		fmt.Fprintln(out, "To enable passwordless maintenance helpers, run:")
		fmt.Fprintln(out, "  sudo ptop -init-sudo")
		fmt.Fprintf(out, "or install %s manually with visudo:\n\n", sudoersPath)
		fmt.Fprint(out, content)
		return ErrNotRoot
	}

	dir := filepath.Dir(sudoersPath)
	tmp, err := os.CreateTemp(dir, ".ptop3-*")
	if err != nil {
		return fmt.Errorf("creating temp sudoers file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { os.Remove(tmpPath) }

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp sudoers file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp sudoers file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o440); err != nil {
		cleanup()
		return fmt.Errorf("setting sudoers mode: %w", err)
	}

	// Validation gate: the live file is replaced only with content visudo
	// accepts, never partially written.
	code, stderr, err := runCommand("visudo", "-c", "-f", tmpPath)
	if err != nil {
		cleanup()
		return fmt.Errorf("running visudo: %w", err)
	}
	if code != 0 {
		cleanup()
		return fmt.Errorf("generated sudoers rejected by visudo: %s", strings.TrimSpace(stderr))
	}

	if err := os.Rename(tmpPath, sudoersPath); err != nil {
		cleanup()
		return fmt.Errorf("installing %s: %w", sudoersPath, err)
	}
	fmt.Fprintf(out, "Installed %s for user %s:\n", sudoersPath, username)
	fmt.Fprint(out, content)
	return nil
}
