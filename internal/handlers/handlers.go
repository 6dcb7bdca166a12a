// Package handlers holds per-tool classifiers for commands whose safety
// depends on their arguments. A handler sees the literal words of one simple
// command and decides: allow it, ask the operator, or delegate an inner
// command back to the full analyzer (wrappers like xargs or bash -c).
//
// Handlers never deny. Hard blocks come from operator policy only, so every
// deny in an audit trail traces back to a configured rule.
package handlers

import "strings"

// Action is a handler's verdict on a command.
type Action int

const (
	// Ask means the command needs operator confirmation.
	Ask Action = iota
	// Allow means the command is known safe as written.
	Allow
	// Delegate means the real command is nested inside this one; the
	// analyzer should recurse into Classification.Inner.
	Delegate
)

// Classification is the result of one handler run.
type Classification struct {
	Action      Action
	Description string

	// Inner is the wrapped command to re-analyze when Action is Delegate.
	Inner string

	// RedirectTargets lists files the tool itself writes to (tee). The
	// analyzer checks each against redirect policy even when Action is
	// Allow.
	RedirectTargets []string
}

// Context carries per-invocation state a handler may need.
type Context struct {
	// Cwd resolves relative script paths (python handler).
	Cwd string
}

// Func classifies one simple command. args[0] is the resolved command name.
type Func func(args []string, ctx Context) Classification

var registry = map[string]Func{}

func register(fn Func, names ...string) {
	for _, name := range names {
		registry[name] = fn
	}
}

// Lookup returns the handler for a command name, if one is registered.
func Lookup(name string) (Func, bool) {
	fn, ok := registry[name]
	return fn, ok
}

func allow(desc string) Classification {
	return Classification{Action: Allow, Description: desc}
}

func ask(desc string) Classification {
	return Classification{Action: Ask, Description: desc}
}

func delegate(inner string) Classification {
	return Classification{Action: Delegate, Inner: inner}
}

// firstPositional returns the first token not starting with "-", or "".
func firstPositional(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return ""
}

func contains(args []string, want ...string) bool {
	for _, a := range args {
		for _, w := range want {
			if a == w {
				return true
			}
		}
	}
	return false
}

// shellQuote quotes a single token for safe re-parsing as one shell word.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c == '_' || c == '-' || c == '.' || c == '/' || c == '=' || c == ':' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func quoteJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}
