package report

import "testing"

func TestAppNameAliasesAndInterpreters(t *testing.T) {
	norm := NewNormalizer(nil)
	cases := []struct {
		name, cmd, want string
	}{
		{"code", "", "vscode"},
		{"code-insiders", "", "vscode-insiders"},
		{"chromium", "", "chrome"},
		{"chromium-browse", "", "chrome"},
		{"chrome", "", "chrome"},
		{"firefox", "", "firefox"},
		{"python3", "", "python"},
		{"python", "", "python"},
		{"cursor", "", "cursor"},
		{"gnome-shell", "", "gnome-shell"},
		// interpreter wrappers resolve to the script they run
		{"python3", "python3 /opt/tools/backup.py --daily", "backup"},
		{"node", "node --max-old-space-size=256 server.js", "server"},
		{"bash", "bash /usr/local/bin/deploy.sh", "deploy"},
		// cmdline aliases catch helpers under generic names
		{"node", "/home/user/.cursor/extensions/foo", "cursor"},
		{"sh", "cloud-code --some-arg", "cursor"},
		// path and extension stripping
		{"/usr/lib/firefox/firefox", "", "firefox"},
		{"myapp.bin", "", "myapp"},
		// fallback
		{"myapp", "", "myapp"},
		{"", "", "unknown"},
	}
	for _, tc := range cases {
		if got := norm.AppName(tc.name, tc.cmd); got != tc.want {
			t.Errorf("AppName(%q, %q) = %q, want %q", tc.name, tc.cmd, got, tc.want)
		}
	}
}

func TestAppNameDeterministicAndTotal(t *testing.T) {
	norm := NewNormalizer(nil)
	inputs := [][2]string{
		{"", ""},
		{"   ", "   "},
		{"/", ""},
		{".", "--flag-only --another"},
		{"weird\x00name", ""},
		{"python3", "python3"},
	}
	for _, in := range inputs {
		first := norm.AppName(in[0], in[1])
		if first == "" {
			t.Fatalf("AppName(%q, %q) returned empty key", in[0], in[1])
		}
		for i := 0; i < 3; i++ {
			if again := norm.AppName(in[0], in[1]); again != first {
				t.Fatalf("AppName(%q, %q) not deterministic: %q vs %q", in[0], in[1], first, again)
			}
		}
	}
}

func TestAppNameExtraAliasesWin(t *testing.T) {
	norm := NewNormalizer(map[string]string{"myapp": "fleet"})
	if got := norm.AppName("myapp-worker", ""); got != "fleet" {
		t.Fatalf("extra alias ignored: got %q", got)
	}
	// Built-ins still apply.
	if got := norm.AppName("chromium", ""); got != "chrome" {
		t.Fatalf("built-in alias lost: got %q", got)
	}
}

func TestContainsWordBoundaries(t *testing.T) {
	if containsWord("unicode stuff", "code") {
		t.Fatal("matched inside a larger word")
	}
	if !containsWord("run code now", "code") {
		t.Fatal("missed word-bounded match")
	}
	if !containsWord("/usr/bin/code --serve", "code") {
		t.Fatal("missed path-bounded match")
	}
}
