package handlers

import "strings"

func init() {
	register(classifyShell, "bash", "sh", "zsh", "dash", "ksh", "fish")
	register(classifyEnv, "env")
	register(classifyXargs, "xargs")
}

// classifyShell handles inline shells. The wrapped script in -c is handed
// back to the analyzer whole; everything else is an interactive session.
func classifyShell(args []string, _ Context) Classification {
	base := args[0]
	if len(args) < 2 {
		return ask(base + " interactive")
	}

	// -c may be combined with other short flags (-lc, -xc).
	cIdx := -1
	for i, tok := range args {
		if strings.HasPrefix(tok, "-") && !strings.HasPrefix(tok, "--") && strings.ContainsRune(tok, 'c') {
			cIdx = i
			break
		}
	}
	if cIdx == -1 {
		return ask(base + " interactive")
	}
	if cIdx+1 >= len(args) || args[cIdx+1] == "" {
		return ask(base + " -c (no command)")
	}
	return delegate(args[cIdx+1])
}

var envFlagsWithArg = set("-u", "--unset", "-S", "--split-string", "-C", "--chdir")

// classifyEnv skips flags and VAR=value assignments to find the wrapped
// command. Bare env just prints the environment.
func classifyEnv(args []string, _ Context) Classification {
	if len(args) < 2 {
		return allow("env")
	}

	i := 1
	for i < len(args) {
		tok := args[i]
		if tok == "--" {
			i++
			break
		}
		if envFlagsWithArg[tok] {
			i += 2
			continue
		}
		if strings.HasPrefix(tok, "-") || strings.Contains(tok, "=") {
			i++
			continue
		}
		break
	}
	if i >= len(args) {
		return allow("env")
	}
	return delegate(strings.Join(args[i:], " "))
}

var xargsFlagsWithArg = set(
	"-a", "--arg-file",
	"-d", "--delimiter",
	"-E", "-e", "--eof",
	"-I", "-J", "--replace",
	"-L", "-l", "--max-lines",
	"-n", "--max-args",
	"-P", "--max-procs",
	"-R",
	"-s", "-S", "--max-chars",
	"--process-slot-var",
)

var xargsUnsafeFlags = map[string]string{
	"-p":            "prompt before execute",
	"--interactive": "prompt before execute",
	"-o":            "open tty",
	"--open-tty":    "open tty",
}

func classifyXargs(args []string, _ Context) Classification {
	if len(args) < 2 {
		return ask("xargs (no command)")
	}

	for _, tok := range args[1:] {
		if tok == "--" {
			break
		}
		for flag, context := range xargsUnsafeFlags {
			if tok == flag || (len(flag) > 2 && strings.HasPrefix(tok, flag)) {
				return ask("xargs " + flag + " (" + context + ")")
			}
		}
	}

	inner := 1 + xargsSkipFlags(args[1:])
	if inner >= len(args) {
		return ask("xargs (no command)")
	}
	// Re-quote so the inner command parses back into the same words.
	return delegate(quoteJoin(args[inner:]))
}

func xargsSkipFlags(args []string) int {
	i := 0
	for i < len(args) {
		tok := args[i]
		if tok == "--" {
			return i + 1
		}
		if !strings.HasPrefix(tok, "-") {
			return i
		}
		if xargsFlagsWithArg[tok] {
			i += 2
			continue
		}
		// combined short flag with inline value, -I{} style
		if len(tok) > 2 && tok[1] != '-' && xargsFlagsWithArg[tok[:2]] {
			i++
			continue
		}
		i++
	}
	return i
}
