package handlers

import "strings"

func init() {
	register(classifyGit, "git")
}

// Actions that only read repository data.
var gitSafeActions = map[string]bool{
	"status": true, "log": true, "show": true, "diff": true, "blame": true,
	"annotate": true, "shortlog": true, "describe": true, "rev-parse": true,
	"rev-list": true,
	"reflog":  true, "whatchanged": true,
	"diff-tree": true, "diff-files": true, "diff-index": true,
	"range-diff": true, "format-patch": true, "difftool": true,
	"grep":     true,
	"ls-files": true, "ls-tree": true, "ls-remote": true, "cat-file": true,
	"verify-commit": true, "verify-tag": true, "name-rev": true,
	"merge-base": true, "show-ref": true, "show-branch": true,
	"check-ignore": true, "cherry": true, "for-each-ref": true,
	"count-objects": true, "fsck": true, "var": true, "request-pull": true,
	"archive": true,
	// fetch downloads but never touches the working tree
	"fetch": true,
}

// Extra context for actions whose names do not explain themselves.
var gitUnclearActions = map[string]string{
	"gc":            "garbage collect",
	"prune":         "remove unreachable objects",
	"filter-branch": "rewrite history",
	"filter-repo":   "rewrite history",
}

var gitGlobalFlagsWithArg = map[string]bool{
	"-C": true, "-c": true, "--git-dir": true, "--work-tree": true,
	"--namespace": true, "--super-prefix": true, "--config-env": true,
}

var gitGlobalFlagsNoArg = map[string]bool{
	"--no-pager": true, "--paginate": true, "-p": true,
	"--no-replace-objects": true, "--bare": true,
	"--literal-pathspecs": true, "--glob-pathspecs": true,
	"--noglob-pathspecs": true, "--icase-pathspecs": true,
	"--no-optional-locks": true,
}

// gitFindAction locates the subcommand, stepping over global flags. Returns
// -1 when an unknown flag makes the action ambiguous.
func gitFindAction(args []string) (int, string) {
	i := 1
	for i < len(args) {
		tok := args[i]
		if gitGlobalFlagsWithArg[tok] {
			i += 2
			continue
		}
		if eq := strings.IndexByte(tok, '='); eq > 0 && gitGlobalFlagsWithArg[tok[:eq]] {
			i++
			continue
		}
		if gitGlobalFlagsNoArg[tok] {
			i++
			continue
		}
		if !strings.HasPrefix(tok, "-") {
			return i, tok
		}
		break
	}
	return -1, ""
}

func classifyGit(args []string, _ Context) Classification {
	if len(args) < 2 {
		return ask("git")
	}

	idx, action := gitFindAction(args)
	if action == "" {
		return ask("git")
	}
	var rest []string
	if idx+1 < len(args) {
		rest = args[idx+1:]
	}

	var safe bool
	switch action {
	case "branch":
		safe = gitBranchSafe(rest)
	case "tag":
		safe = gitTagSafe(rest)
	case "remote":
		safe = gitRemoteSafe(rest)
	case "stash":
		safe = gitStashSafe(rest)
	case "config":
		safe = gitConfigSafe(rest)
	case "notes":
		safe = gitNotesSafe(rest)
	case "bisect":
		safe = len(rest) > 0 && (rest[0] == "log" || rest[0] == "visualize" || rest[0] == "view")
	case "worktree":
		safe = len(rest) > 0 && rest[0] == "list"
	case "submodule":
		safe = len(rest) > 0 && (rest[0] == "status" || rest[0] == "summary" || rest[0] == "foreach")
	case "apply":
		safe = contains(rest, "--check")
	case "sparse-checkout":
		safe = len(rest) > 0 && rest[0] == "list"
	case "bundle":
		safe = len(rest) > 0 && (rest[0] == "verify" || rest[0] == "list-heads")
	case "lfs":
		safe = len(rest) > 0 && (rest[0] == "fetch" || rest[0] == "ls-files" ||
			rest[0] == "status" || rest[0] == "env" || rest[0] == "version")
	case "hash-object":
		safe = !contains(rest, "-w", "--write")
	case "symbolic-ref":
		safe = gitSymbolicRefSafe(rest)
	case "replace":
		safe = len(rest) == 0 || contains(rest, "-l", "--list")
	case "rerere":
		safe = len(rest) == 0 || rest[0] == "status" || rest[0] == "diff"
	default:
		safe = gitSafeActions[action]
	}

	desc := "git " + action
	if !safe {
		if context, ok := gitUnclearActions[action]; ok {
			desc += " (" + context + ")"
		}
		return ask(desc)
	}
	return allow(desc)
}

func gitBranchSafe(rest []string) bool {
	for _, tok := range rest {
		switch tok {
		case "-d", "-D", "--delete", "-m", "-M", "--move", "-c", "-C", "--copy", "-u":
			return false
		}
		if strings.HasPrefix(tok, "--set-upstream-to") {
			return false
		}
	}
	listing := map[string]bool{
		"--list": true, "-l": true, "--contains": true, "--no-contains": true,
		"--merged": true, "--no-merged": true, "--points-at": true,
	}
	for _, tok := range rest {
		if listing[tok] || strings.HasPrefix(tok, "--list") {
			return true
		}
	}
	for _, tok := range rest {
		if !strings.HasPrefix(tok, "-") {
			// bare name means branch creation
			return false
		}
	}
	return true
}

func gitTagSafe(rest []string) bool {
	if contains(rest, "-d", "--delete") {
		return false
	}
	listing := map[string]bool{
		"-l": true, "--list": true, "--contains": true, "--no-contains": true,
		"--merged": true, "--no-merged": true, "--points-at": true,
	}
	for _, tok := range rest {
		if listing[tok] || strings.HasPrefix(tok, "--list") {
			return true
		}
	}
	for _, tok := range rest {
		if !strings.HasPrefix(tok, "-") {
			return false
		}
	}
	return true
}

func gitRemoteSafe(rest []string) bool {
	if len(rest) == 0 {
		return true
	}
	switch rest[0] {
	case "show", "-v", "--verbose", "get-url":
		return true
	case "add", "remove", "rm", "rename", "set-url", "prune", "set-head", "set-branches":
		return false
	}
	return true
}

func gitStashSafe(rest []string) bool {
	// bare "git stash" creates a stash
	if len(rest) == 0 {
		return false
	}
	return rest[0] == "list" || rest[0] == "show"
}

func gitConfigSafe(rest []string) bool {
	for _, tok := range rest {
		switch tok {
		case "-e", "--edit", "--unset", "--unset-all", "--add",
			"--replace-all", "--remove-section", "--rename-section":
			return false
		}
	}
	for _, tok := range rest {
		switch tok {
		case "--get", "--get-all", "--list", "-l", "--get-regexp", "--get-urlmatch":
			return true
		}
	}
	// One positional reads a key, two sets it.
	scopes := map[string]bool{"--global": true, "--local": true, "--system": true, "--worktree": true}
	positional := 0
	for _, tok := range rest {
		if !strings.HasPrefix(tok, "-") && !scopes[tok] {
			positional++
		}
	}
	return positional <= 1
}

func gitNotesSafe(rest []string) bool {
	if len(rest) == 0 {
		return true
	}
	switch rest[0] {
	case "list", "show":
		return true
	case "add", "copy", "append", "edit", "merge", "remove", "prune":
		return false
	}
	return true
}

func gitSymbolicRefSafe(rest []string) bool {
	positional := 0
	for _, tok := range rest {
		if !strings.HasPrefix(tok, "-") {
			positional++
		}
	}
	return positional <= 1
}
