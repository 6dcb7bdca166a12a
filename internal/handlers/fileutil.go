package handlers

import "strings"

func init() {
	register(classifyFind, "find")
	register(classifySed, "sed")
	register(classifyTee, "tee")
}

// find only becomes dangerous through its action flags.
var findUnsafeFlags = set("-exec", "-execdir", "-ok", "-okdir", "-delete")

func classifyFind(args []string, _ Context) Classification {
	for _, tok := range args {
		if findUnsafeFlags[tok] {
			return ask("find " + tok)
		}
	}
	return allow("find")
}

func classifySed(args []string, _ Context) Classification {
	for _, tok := range args[1:] {
		if strings.HasPrefix(tok, "-i") || strings.HasPrefix(tok, "--in-place") {
			return ask("sed in-place edit")
		}
	}
	return allow("sed")
}

// classifyTee allows the command itself but reports its file arguments as
// redirect targets so they go through redirect policy like a > would.
func classifyTee(args []string, _ Context) Classification {
	var targets []string
	for i := 1; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			targets = append(targets, args[i+1:]...)
			break
		}
		if strings.HasPrefix(tok, "-") {
			continue
		}
		targets = append(targets, tok)
	}
	if len(targets) == 0 {
		return allow("tee")
	}
	desc := "tee " + targets[0]
	if len(targets) > 1 {
		desc = "tee multiple files"
	}
	c := allow(desc)
	c.RedirectTargets = targets
	return c
}
