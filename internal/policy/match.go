package policy

import (
	"os"
	"path/filepath"
	"strings"
)

// Decisions a rule can carry. Deny is only ever produced here: built-in
// engine heuristics stop at ask, so a hard block is always traceable to an
// operator rule.
const (
	DecideAllow = "allow"
	DecideAsk   = "ask"
	DecideDeny  = "deny"
)

// Match reports which rule matched and with what decision.
type Match struct {
	Decision string
	Pattern  string
	Message  string
}

// Reason returns the operator message if one was configured, otherwise the
// pattern itself.
func (m *Match) Reason() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Pattern
}

// MatchCommand checks a simple command (its literal words) against the
// configured rules. Precedence: deny > confirm > approve, so an explicit
// block or confirm always beats a broader approval.
func MatchCommand(words []string, cfg *Config, cwd string) *Match {
	if cfg == nil || len(words) == 0 {
		return nil
	}
	command := strings.Join(words, " ")

	for _, set := range []struct {
		rules    []Rule
		decision string
	}{
		{cfg.Deny, DecideDeny},
		{cfg.Confirm, DecideAsk},
		{cfg.Approve, DecideAllow},
	} {
		for i := range set.rules {
			r := &set.rules[i]
			if matchesPattern(command, words, r, cfg.ProjectRoot, cwd) {
				return &Match{Decision: set.decision, Pattern: r.Pattern, Message: r.Message}
			}
		}
	}
	return nil
}

// MatchRedirect checks an output-redirect target path against the configured
// redirect globs. A nil return means no rule covers the target; the engine
// treats that as ask.
func MatchRedirect(target string, cfg *Config, cwd string) *Match {
	if cfg == nil || target == "" {
		return nil
	}
	resolved := resolveTarget(target, cwd)

	for _, set := range []struct {
		patterns []string
		decision string
	}{
		{cfg.Redirects.Deny, DecideDeny},
		{cfg.Redirects.Confirm, DecideAsk},
		{cfg.Redirects.Approve, DecideAllow},
	} {
		for _, pattern := range set.patterns {
			if matchGlob(resolved, expandHome(pattern)) || matchGlob(target, pattern) {
				return &Match{Decision: set.decision, Pattern: pattern}
			}
		}
	}
	return nil
}

var scriptExtensions = []string{".sh", ".bash", ".py", ".rb", ".pl"}

// matchesPattern implements the three command pattern forms: re: regex on
// the full command, script paths, and token-prefix match.
func matchesPattern(command string, words []string, r *Rule, projectRoot, cwd string) bool {
	if r.re != nil {
		return r.re.MatchString(command)
	}
	if strings.HasPrefix(r.Pattern, "re:") {
		// Uncompiled regex: config was built by hand, not Load. Match
		// nothing rather than guessing.
		return false
	}

	if strings.Contains(r.Pattern, "/") || hasScriptExtension(r.Pattern) {
		return matchesScriptPath(words, r.Pattern, projectRoot, cwd)
	}

	patternTokens := strings.Fields(r.Pattern)
	if len(patternTokens) == 0 || len(patternTokens) > len(words) {
		return false
	}
	for i, pt := range patternTokens {
		if words[i] != pt {
			return false
		}
	}
	return true
}

func hasScriptExtension(pattern string) bool {
	for _, ext := range scriptExtensions {
		if strings.HasSuffix(pattern, ext) {
			return true
		}
	}
	return false
}

// matchesScriptPath resolves both the pattern and the invoked command to
// absolute paths so "./scripts/gen.sh" matches the exact file rather than
// any same-named script elsewhere.
func matchesScriptPath(words []string, pattern, projectRoot, cwd string) bool {
	if len(words) == 0 {
		return false
	}
	invoked := words[0]

	var patternPath string
	switch {
	case filepath.IsAbs(pattern):
		patternPath = filepath.Clean(pattern)
	case projectRoot != "":
		patternPath = filepath.Join(projectRoot, pattern)
	default:
		return false
	}

	var cmdPath string
	switch {
	case filepath.IsAbs(invoked):
		cmdPath = filepath.Clean(invoked)
	case cwd != "":
		cmdPath = filepath.Join(cwd, invoked)
	default:
		return false
	}

	return cmdPath == patternPath
}

func resolveTarget(target, cwd string) string {
	target = expandHome(target)
	if filepath.IsAbs(target) || cwd == "" {
		return filepath.Clean(target)
	}
	return filepath.Join(cwd, target)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// matchGlob supports the two recursive forms alongside plain filepath.Match:
// "dir/**" matches dir and everything under it, "dir/*" matches direct
// children only.
func matchGlob(path, pattern string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if !strings.HasPrefix(path, prefix+"/") {
			return false
		}
		return !strings.Contains(strings.TrimPrefix(path, prefix+"/"), "/")
	}

	// Plain glob matches against both the full path and its basename so
	// "*.log" covers any log file regardless of directory.
	if ok, _ := filepath.Match(pattern, path); ok {
		return true
	}
	ok, _ := filepath.Match(pattern, filepath.Base(path))
	return ok
}
