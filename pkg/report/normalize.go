package report

import (
	"path/filepath"
	"strings"
)

// defaultAliases collapses well-known multi-process application families to
// one key, matched by prefix against the normalized executable name.
var defaultAliases = map[string]string{
	"code-insiders":   "vscode-insiders",
	"code":            "vscode",
	"chromium":        "chrome",
	"chromium-browse": "chrome",
	"chrome":          "chrome",
	"firefox":         "firefox",
	"web content":     "firefox",
	"python3":         "python",
	"python":          "python",
	"java":            "java",
	"cursor":          "cursor",
	"gnome-shell":     "gnome-shell",
	"xwayland":        "Xwayland",
}

// cmdlineAliases match anywhere in the lowercased command line. They catch
// helper processes launched under generic interpreter names.
var cmdlineAliases = []struct{ substr, app string }{
	{"cloud-code", "cursor"},
	{"cloudcode", "cursor"},
	{".cursor/", "cursor"},
	{"/cursor/cursor", "cursor"},
	{".mount_cursor", "cursor"},
}

// interpreters whose first non-flag argument names the real application.
var interpreterNames = map[string]bool{
	"python": true, "python2": true, "python3": true,
	"perl": true, "ruby": true, "node": true, "nodejs": true,
	"sh": true, "bash": true, "zsh": true, "dash": true,
	"java": true,
}

// Normalizer derives stable application keys from raw process identity.
// It is deterministic and total: every input yields a non-empty key.
type Normalizer struct {
	aliases []aliasRule // longest-first for deterministic matching
}

type aliasRule struct {
	prefix string
	app    string
}

// NewNormalizer builds a Normalizer with the built-in alias table merged
// with extra config-supplied aliases. Extra entries win on exact collision.
func NewNormalizer(extra map[string]string) *Normalizer {
	merged := make(map[string]string, len(defaultAliases)+len(extra))
	for k, v := range defaultAliases {
		merged[k] = v
	}
	for k, v := range extra {
		merged[strings.ToLower(k)] = v
	}
	rules := make([]aliasRule, 0, len(merged))
	for k, v := range merged {
		rules = append(rules, aliasRule{prefix: k, app: v})
	}
	// Longest prefix first so "code-insiders" beats "code".
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0; j-- {
			a, b := rules[j-1], rules[j]
			if len(b.prefix) > len(a.prefix) || (len(b.prefix) == len(a.prefix) && b.prefix < a.prefix) {
				rules[j-1], rules[j] = b, a
			} else {
				break
			}
		}
	}
	return &Normalizer{aliases: rules}
}

// AppName maps an executable name plus command line to a group key.
// Interpreter wrappers resolve to the base name of the script they run,
// path prefixes and one trailing extension are stripped, and alias families
// collapse to a single key. The result is never empty.
func (n *Normalizer) AppName(name, cmdline string) string {
	app := baseName(name)
	cmdLow := strings.ToLower(cmdline)

	scripted := false
	if interpreterNames[app] {
		if script := firstScriptArg(cmdline); script != "" {
			if b := baseName(script); b != "" {
				app = b
				scripted = true
			}
		}
	}

	for _, rule := range n.aliases {
		if strings.HasPrefix(app, rule.prefix) {
			return rule.app
		}
	}
	for _, rule := range cmdlineAliases {
		if strings.Contains(cmdLow, rule.substr) {
			return rule.app
		}
	}
	// The command line still names the interpreter, so word matching there
	// would undo the script resolution above.
	if !scripted {
		for _, rule := range n.aliases {
			if containsWord(cmdLow, rule.prefix) {
				return rule.app
			}
		}
	}
	if app == "" {
		return "unknown"
	}
	return app
}

// baseName lowercases, strips any path prefix and one trailing extension.
func baseName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	base := filepath.Base(strings.ToLower(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		base = base[:dot]
	}
	return base
}

// firstScriptArg returns the first command-line token after the interpreter
// that does not look like a flag, or "" when there is none.
func firstScriptArg(cmdline string) string {
	fields := strings.Fields(cmdline)
	if len(fields) < 2 {
		return ""
	}
	for _, tok := range fields[1:] {
		if strings.HasPrefix(tok, "-") {
			continue
		}
		return tok
	}
	return ""
}

// containsWord reports whether needle occurs in haystack bounded by
// non-word characters, so "code" does not match inside "unicode".
func containsWord(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	start := 0
	for {
		idx := strings.Index(haystack[start:], needle)
		if idx < 0 {
			return false
		}
		idx += start
		before := idx == 0 || !isWordByte(haystack[idx-1])
		afterIdx := idx + len(needle)
		after := afterIdx >= len(haystack) || !isWordByte(haystack[afterIdx])
		if before && after {
			return true
		}
		start = idx + 1
		if start >= len(haystack) {
			return false
		}
	}
}

func isWordByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= '0' && b <= '9', b == '_', b == '-':
		return true
	}
	return false
}
