package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cmdvet/cmdvet/internal/handlers"
	"github.com/cmdvet/cmdvet/internal/policy"
)

// Commands safe regardless of arguments. Output redirects are judged
// separately, so `cat x > y` still goes through redirect policy.
var simpleSafe = map[string]bool{
	// file content viewing
	"cat": true, "head": true, "tail": true, "less": true, "more": true,
	"bat": true, "tac": true, "od": true, "hexdump": true, "ldd": true,
	"nm": true, "objdump": true, "otool": true, "readelf": true,
	"size": true, "strings": true,
	// directory listing
	"ls": true, "ll": true, "la": true, "tree": true, "exa": true,
	"eza": true, "dir": true, "vdir": true,
	// file and disk information
	"stat": true, "file": true, "wc": true, "du": true, "df": true,
	// path utilities
	"basename": true, "dirname": true, "pwd": true, "cd": true,
	"readlink": true, "realpath": true,
	// search
	"grep": true, "rg": true, "ripgrep": true, "ag": true, "ack": true,
	"locate": true,
	// text processing
	"uniq": true, "cut": true, "col": true, "colrm": true, "column": true,
	"comm": true, "cmp": true, "diff": true, "expand": true, "bc": true,
	"dc": true, "expr": true, "fmt": true, "fold": true, "join": true,
	"nl": true, "paste": true, "rev": true, "seq": true, "tr": true,
	"tsort": true, "unexpand": true,
	// structured data
	"jq": true, "yq": true, "xq": true,
	// encoding and checksums
	"base64": true, "md5sum": true, "sha1sum": true, "sha256sum": true,
	"sha512sum": true, "b2sum": true, "cksum": true, "md5": true,
	"shasum": true, "sum": true,
	// identity and system info
	"whoami": true, "hostname": true, "uname": true, "sw_vers": true,
	"id": true, "groups": true, "last": true, "locale": true,
	"w": true, "who": true,
	// date and time
	"date": true, "cal": true, "uptime": true,
	// process and resource monitoring
	"dmesg": true, "iostat": true, "ps": true, "pgrep": true, "top": true,
	"htop": true, "free": true, "fuser": true, "lsof": true,
	"nettop": true, "ioreg": true, "powermetrics": true,
	"system_profiler": true, "vm_stat": true, "vmstat": true,
	// environment and output
	"printenv": true, "echo": true, "printf": true,
	// network diagnostics
	"ping": true, "host": true, "dig": true, "nslookup": true,
	"traceroute": true, "mtr": true, "netstat": true, "ss": true,
	"arp": true, "route": true, "whois": true,
	// command lookup and help
	"which": true, "whereis": true, "type": true, "command": true,
	"hash": true, "man": true, "help": true, "info": true,
	// linting and formatting
	"mypy": true, "black": true, "isort": true, "flake8": true,
	"pre-commit": true,
	// shell builtins
	"true": true, "false": true, "sleep": true, "read": true,
	// terminal
	"clear": true, "reset": true, "tput": true, "tty": true,
}

// Transparent wrappers: the real command is in the arguments.
var wrapperCommands = map[string]bool{
	"time": true, "timeout": true, "nice": true, "nohup": true,
	"strace": true, "ltrace": true, "command": true, "builtin": true,
}

// Fallback patterns for commands with no handler. These only sharpen the
// reason string; an unhandled command asks either way.
var unsafePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+\S`),
	regexp.MustCompile(`\bmv\s+`),
	regexp.MustCompile(`\bcp\s+`),
	regexp.MustCompile(`\bchmod\s+`),
	regexp.MustCompile(`\bchown\s+`),
	regexp.MustCompile(`\bsudo\s+`),
	regexp.MustCompile(`\bdd\s+`),
}

// analyzeSimple judges a simple command given its literal words. Precedence:
// operator rules, then wrapper unwrapping, the always-safe set, version/help
// heuristics, per-tool handlers, and finally a default ask.
func (a *analyzer) analyzeSimple(words []string, cwd string) Decision {
	if len(words) == 0 {
		return allowD("empty")
	}

	// leading VAR=value assignments from re-parsed delegate strings
	i := 0
	for i < len(words) && strings.Contains(words[i], "=") && !strings.HasPrefix(words[i], "-") {
		i++
	}
	if i >= len(words) {
		return allowD("env assignment")
	}
	base := words[i]
	tokens := words[i:]

	if m := policy.MatchCommand(tokens, a.cfg, cwd); m != nil {
		switch m.Decision {
		case policy.DecideAllow:
			return allowD(base + " (" + m.Pattern + ")")
		case policy.DecideDeny:
			return Decision{Action: ActionDeny, Reason: base + ": " + m.Reason()}
		default:
			return askD(base + ": " + m.Reason())
		}
	}

	if expansion, ok := a.cfg.AliasFor(base); ok {
		rebuilt := expansion
		if len(tokens) > 1 {
			rebuilt += " " + strings.Join(tokens[1:], " ")
		}
		return a.recurse(rebuilt, cwd)
	}

	if wrapperCommands[base] && len(tokens) > 1 {
		if base == "command" && (tokens[1] == "-v" || tokens[1] == "-V") {
			return allowD("command -v")
		}
		j := 1
		for j < len(tokens) {
			tok := tokens[j]
			if isNumeric(tok) {
				j++
				continue
			}
			if strings.HasPrefix(tok, "-") && tok != "--" {
				j++
				continue
			}
			if tok == "--" {
				j++
			}
			break
		}
		if j < len(tokens) {
			return a.analyzeSimple(tokens[j:], cwd)
		}
		return askD(base)
	}

	if simpleSafe[base] {
		return allowD(base)
	}

	if isVersionOrHelp(tokens) {
		return allowD(base + " --help")
	}

	if fn, ok := handlers.Lookup(base); ok {
		result := a.safeClassify(fn, tokens, cwd)
		desc := result.Description
		if desc == "" {
			desc = describe(tokens)
		}
		for _, target := range result.RedirectTargets {
			m := policy.MatchRedirect(target, a.cfg, cwd)
			if m == nil {
				return askD(desc)
			}
			switch m.Decision {
			case policy.DecideDeny:
				return Decision{Action: ActionDeny, Reason: desc + ": " + m.Reason()}
			case policy.DecideAsk:
				return askD(desc + ": " + m.Reason())
			}
		}
		switch result.Action {
		case handlers.Allow:
			return allowD(desc)
		case handlers.Delegate:
			if result.Inner != "" {
				return a.recurse(result.Inner, cwd)
			}
			return askD(desc)
		default:
			return askD(desc)
		}
	}

	joined := strings.Join(tokens, " ")
	for _, p := range unsafePatterns {
		if loc := p.FindString(joined); loc != "" {
			return askD("unsafe pattern: " + strings.Fields(loc)[0])
		}
	}
	return askD(describe(tokens))
}

// safeClassify isolates handler panics: a classifier bug downgrades to ask
// instead of crashing the gateway open.
func (a *analyzer) safeClassify(fn handlers.Func, tokens []string, cwd string) (result handlers.Classification) {
	defer func() {
		if r := recover(); r != nil {
			result = handlers.Classification{
				Action:      handlers.Ask,
				Description: fmt.Sprintf("%s (handler error: %v)", tokens[0], r),
			}
		}
	}()
	return fn(tokens, handlers.Context{Cwd: cwd})
}

func isVersionOrHelp(tokens []string) bool {
	if len(tokens) < 2 {
		return false
	}
	if len(tokens) == 2 {
		switch tokens[1] {
		case "help", "version", "--version", "--help", "-h":
			return true
		}
	}
	last := tokens[len(tokens)-1]
	return (last == "--help" || last == "-h") && len(tokens) <= 4
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i := 0; i < len(s); i++ {
		if s[i] == '.' && !dot {
			dot = true
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func describe(tokens []string) string {
	if len(tokens) > 3 {
		tokens = tokens[:3]
	}
	return strings.Join(tokens, " ")
}
