package handlers

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cmdvet/cmdvet/internal/pysafe"
)

func init() {
	names := []string{"python", "python3"}
	for minor := 8; minor < 20; minor++ {
		names = append(names, "python3."+strconv.Itoa(minor))
	}
	register(classifyPython, names...)
}

var pythonSafeFlags = set("-V", "--version", "-h", "--help", "-VV")

var pythonFlagsWithArg = set("-c", "-m", "-W", "-X", "--check-hash-based-pycs")

// classifyPython approves version/help invocations and scripts that pass
// source analysis. Inline code (-c) and module execution (-m, calendar
// excepted) cannot be vetted and always ask.
func classifyPython(args []string, ctx Context) Classification {
	base := args[0]
	if len(args) < 2 {
		return ask(base + " interactive")
	}
	desc := pythonDescribe(args)

	for _, tok := range args[1:] {
		if pythonSafeFlags[tok] {
			return allow(desc)
		}
	}
	if contains(args, "-c") {
		return ask(desc)
	}
	if contains(args, "-m") {
		for i, tok := range args {
			if tok == "-m" && i+1 < len(args) && args[i+1] == "calendar" {
				return allow(desc)
			}
		}
		return ask(desc)
	}
	if contains(args, "-i") {
		return ask(desc)
	}

	script := pythonFindScript(args, ctx.Cwd)
	if script == "" {
		return ask(desc)
	}
	ok, reason := pysafe.AnalyzeFile(script, true)
	if ok {
		return allow(desc + " (analyzed)")
	}
	return ask(desc + ": " + reason)
}

func pythonFindScript(args []string, cwd string) string {
	for i := 1; i < len(args); i++ {
		tok := args[i]
		if pythonSafeFlags[tok] || tok == "-c" || tok == "-m" {
			return ""
		}
		if pythonFlagsWithArg[tok] {
			i++
			continue
		}
		if strings.HasPrefix(tok, "-") {
			continue
		}
		if filepath.IsAbs(tok) || cwd == "" {
			return filepath.Clean(tok)
		}
		return filepath.Join(cwd, tok)
	}
	return ""
}

func pythonDescribe(args []string) string {
	base := args[0]
	for i, tok := range args[1:] {
		if pythonSafeFlags[tok] {
			return base + " " + tok
		}
		if tok == "-c" {
			return base + " -c"
		}
		if tok == "-m" {
			if i+2 < len(args) {
				return base + " -m " + args[i+2]
			}
			return base + " -m"
		}
		if !strings.HasPrefix(tok, "-") {
			return base + " " + filepath.Base(tok)
		}
	}
	return base
}
