package handlers

func init() {
	register(classifyNodePkg, "npm", "yarn", "pnpm")
	register(classifyCargo, "cargo")
}

var npmSafeActions = set(
	"list", "ls", "ll", "la",
	"info", "show", "view", "v",
	"search", "s", "find",
	"outdated", "help", "help-search",
	"-v", "--version",
	"get", "root", "prefix", "bin",
	"docs", "home", "bugs", "repo",
	"whoami", "ping", "explain", "why",
	"pack", "fund", "doctor", "licenses", "completion",
	"diff", "find-dupes", "query", "stars", "sbom",
)

var npmSafeSubcommands = map[string]map[string]bool{
	"config":   set("list", "ls", "get"),
	"cache":    set("ls", "list"),
	"run":      set("--list"),
	"access":   set("list", "get"),
	"dist-tag": set("ls"),
	"token":    set("list"),
	"profile":  set("get"),
	"pkg":      set("get"),
	"owner":    set("ls"),
}

var npmUnsafeSubcommands = map[string]map[string]bool{
	"config":   set("set", "delete", "edit"),
	"cache":    set("clean", "add", "verify"),
	"access":   set("set", "grant", "revoke"),
	"dist-tag": set("add", "rm"),
	"token":    set("create", "revoke"),
	"profile":  set("set", "enable-2fa", "disable-2fa"),
	"pkg":      set("set", "delete", "fix"),
	"owner":    set("add", "rm"),
	"audit":    set("fix"),
	"version":  set("major", "minor", "patch", "premajor", "preminor", "prepatch", "prerelease"),
}

func classifyNodePkg(args []string, _ Context) Classification {
	base := args[0]
	if len(args) < 2 {
		return ask(base)
	}
	action := args[1]
	rest := args[2:]
	desc := base + " " + action

	switch action {
	case "run":
		// bare "run" or "run --list" only lists scripts
		if len(rest) == 0 || contains(rest, "--list") {
			return allow(desc)
		}
		return ask(desc)
	case "version":
		if len(rest) == 0 {
			return allow(desc)
		}
		return ask(desc)
	case "audit":
		if len(rest) > 0 && rest[0] == "fix" {
			return ask(desc + " fix")
		}
		return allow(desc)
	case "config", "c":
		if len(rest) > 0 {
			if npmSafeSubcommands["config"][rest[0]] {
				return allow(base + " config " + rest[0])
			}
			if npmUnsafeSubcommands["config"][rest[0]] {
				return ask(base + " config " + rest[0])
			}
		}
		return allow(desc)
	}

	if npmSafeSubcommands[action] != nil {
		if len(rest) > 0 {
			if npmSafeSubcommands[action][rest[0]] {
				return allow(desc + " " + rest[0])
			}
			if npmUnsafeSubcommands[action][rest[0]] {
				return ask(desc + " " + rest[0])
			}
		}
		if action == "owner" {
			return allow(desc)
		}
		return ask(desc)
	}
	if npmUnsafeSubcommands[action] != nil {
		return ask(desc)
	}
	if npmSafeActions[action] {
		return allow(desc)
	}
	return ask(desc)
}

// Commands that read metadata, lint, or only touch build artifacts and the
// lockfile. Anything that compiles and runs project code (build, test, run,
// bench) stays out.
var cargoSafeActions = set(
	"help", "-h", "--help",
	"version", "-V", "--version",
	"search", "info",
	"tree", "metadata",
	"read-manifest", "locate-project",
	"pkgid", "verify-project",
	"check", "c", "clippy", "fmt", "doc",
	"fetch", "generate-lockfile", "update", "vendor",
	"login", "logout", "owner",
)

func classifyCargo(args []string, _ Context) Classification {
	if len(args) < 2 {
		return ask("cargo")
	}
	desc := "cargo " + args[1]
	if cargoSafeActions[args[1]] {
		return allow(desc)
	}
	return ask(desc)
}
