package policy

import (
	"strings"
	"testing"
)

func compiled(t *testing.T, rules []Rule) []Rule {
	t.Helper()
	for i := range rules {
		if err := rules[i].compile(); err != nil {
			t.Fatalf("compile %q: %v", rules[i].Pattern, err)
		}
	}
	return rules
}

func TestMatchCommandTokenPrefix(t *testing.T) {
	cfg := &Config{
		Approve: []Rule{{Pattern: "git stash"}, {Pattern: "make"}},
		Deny:    []Rule{{Pattern: "git push --force"}},
	}

	tests := []struct {
		command string
		want    string // decision, "" for no match
	}{
		{"git stash", DecideAllow},
		{"git stash pop", DecideAllow},
		{"git stashes", ""}, // token match, not string prefix
		{"make test", DecideAllow},
		{"git push --force origin main", DecideDeny},
		{"git push origin main", ""},
		{"git", ""}, // shorter than the pattern
	}
	for _, tt := range tests {
		m := MatchCommand(strings.Fields(tt.command), cfg, "/work")
		got := ""
		if m != nil {
			got = m.Decision
		}
		if got != tt.want {
			t.Errorf("MatchCommand(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestMatchCommandRegex(t *testing.T) {
	cfg := &Config{
		Approve: compiled(t, []Rule{{Pattern: `re:^make (lint|test)$`}}),
	}

	if m := MatchCommand([]string{"make", "lint"}, cfg, ""); m == nil || m.Decision != DecideAllow {
		t.Errorf("make lint: got %+v, want approve", m)
	}
	if m := MatchCommand([]string{"make", "deploy"}, cfg, ""); m != nil {
		t.Errorf("make deploy: got %+v, want no match", m)
	}
	if m := MatchCommand([]string{"make", "lint", "extra"}, cfg, ""); m != nil {
		t.Errorf("anchored regex matched with trailing args: %+v", m)
	}
}

func TestMatchCommandUncompiledRegexMatchesNothing(t *testing.T) {
	cfg := &Config{Approve: []Rule{{Pattern: "re:.*"}}}
	if m := MatchCommand([]string{"anything"}, cfg, ""); m != nil {
		t.Errorf("uncompiled regex matched: %+v", m)
	}
}

func TestMatchCommandPrecedence(t *testing.T) {
	cfg := &Config{
		Approve: []Rule{{Pattern: "git"}},
		Confirm: []Rule{{Pattern: "git push"}},
		Deny:    []Rule{{Pattern: "git push --force"}},
	}

	tests := []struct {
		command string
		want    string
	}{
		{"git status", DecideAllow},
		{"git push origin", DecideAsk},
		{"git push --force origin", DecideDeny},
	}
	for _, tt := range tests {
		m := MatchCommand(strings.Fields(tt.command), cfg, "")
		if m == nil || m.Decision != tt.want {
			t.Errorf("MatchCommand(%q) = %+v, want %s", tt.command, m, tt.want)
		}
	}
}

func TestMatchCommandScriptPath(t *testing.T) {
	cfg := &Config{
		Approve:     []Rule{{Pattern: "scripts/gen.sh"}, {Pattern: "/opt/tools/run.py"}},
		ProjectRoot: "/proj",
	}

	tests := []struct {
		words []string
		cwd   string
		match bool
	}{
		{[]string{"./scripts/gen.sh"}, "/proj", true},
		{[]string{"scripts/gen.sh", "--fast"}, "/proj", true},
		{[]string{"/proj/scripts/gen.sh"}, "/elsewhere", true},
		{[]string{"./gen.sh"}, "/proj/scripts", true},
		{[]string{"./gen.sh"}, "/proj", false}, // resolves to /proj/gen.sh
		{[]string{"/opt/tools/run.py"}, "", true},
	}
	for _, tt := range tests {
		m := MatchCommand(tt.words, cfg, tt.cwd)
		if (m != nil) != tt.match {
			t.Errorf("MatchCommand(%v, cwd=%q) = %+v, want match=%v", tt.words, tt.cwd, m, tt.match)
		}
	}
}

func TestMatchReason(t *testing.T) {
	m := &Match{Pattern: "git push", Message: "review pushes"}
	if m.Reason() != "review pushes" {
		t.Errorf("Reason() = %q", m.Reason())
	}
	m = &Match{Pattern: "git push"}
	if m.Reason() != "git push" {
		t.Errorf("Reason() without message = %q", m.Reason())
	}
}

func TestMatchRedirect(t *testing.T) {
	cfg := &Config{
		Redirects: RedirectRules{
			Approve: []string{"/work/build/**", "*.log", "/tmp/*"},
			Confirm: []string{"/work/docs/*"},
			Deny:    []string{"/etc/**"},
		},
	}

	tests := []struct {
		target string
		cwd    string
		want   string
	}{
		{"/work/build/out.bin", "/work", DecideAllow},
		{"build/deep/nested.txt", "/work", DecideAllow}, // resolves under /work/build
		{"debug.log", "/anywhere", DecideAllow},
		{"/var/app/server.log", "", DecideAllow}, // basename glob
		{"/tmp/scratch", "", DecideAllow},
		{"/tmp/sub/deeper", "", ""}, // /* is direct children only
		{"/work/docs/readme.txt", "", DecideAsk},
		{"/etc/passwd", "", DecideDeny},
		{"/etc/ssh/sshd_config", "", DecideDeny},
		{"random.txt", "/work", ""},
	}
	for _, tt := range tests {
		m := MatchRedirect(tt.target, cfg, tt.cwd)
		got := ""
		if m != nil {
			got = m.Decision
		}
		if got != tt.want {
			t.Errorf("MatchRedirect(%q, cwd=%q) = %q, want %q", tt.target, tt.cwd, got, tt.want)
		}
	}
}

func TestMatchRedirectDenyBeatsApprove(t *testing.T) {
	cfg := &Config{
		Redirects: RedirectRules{
			Approve: []string{"/work/**"},
			Deny:    []string{"/work/.git/**"},
		},
	}
	m := MatchRedirect("/work/.git/config", cfg, "")
	if m == nil || m.Decision != DecideDeny {
		t.Errorf("got %+v, want deny", m)
	}
}

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		path    string
		pattern string
		want    bool
	}{
		{"/a/b/c", "/a/**", true},
		{"/a", "/a/**", true},
		{"/ab", "/a/**", false},
		{"/a/b", "/a/*", true},
		{"/a/b/c", "/a/*", false},
		{"/x/y/file.log", "*.log", true},
		{"/x/y/file.txt", "*.log", false},
	}
	for _, tt := range tests {
		if got := matchGlob(tt.path, tt.pattern); got != tt.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}
