package handlers

import "strings"

func init() {
	register(classifyDocker, "docker", "docker-compose", "podman", "podman-compose")
}

var dockerSafeActions = map[string]bool{
	"version": true, "help": true, "info": true,
	"ps": true, "images": true, "image": true,
	"inspect": true, "logs": true, "stats": true, "top": true,
	"port": true, "diff": true,
	"history": true, "search": true,
	"events": true, "system": true,
	"network": true, "volume": true, "config": true, "context": true,
	// export/save write to stdout unless -o is given
	"export": true, "save": true,
}

var dockerSafeSubcommands = map[string]map[string]bool{
	"image":     set("ls", "list", "inspect", "history", "save"),
	"container": set("ls", "list", "inspect", "logs", "stats", "top", "port", "diff", "export"),
	"network":   set("ls", "list", "inspect"),
	"volume":    set("ls", "list", "inspect"),
	"system":    set("df", "info", "events"),
	"context":   set("ls", "list", "inspect", "show"),
	"config":    set("ls", "inspect"),
	"secret":    set("ls", "inspect"),
	"service":   set("ls", "list", "inspect", "logs", "ps"),
	"stack":     set("ls", "ps", "services"),
	"node":      set("ls", "inspect", "ps"),
	"compose":   set("ps", "logs", "config", "images", "ls", "top", "version", "port", "events"),
	"plugin":    set("ls", "list", "inspect"),
	"buildx":    set("ls", "inspect", "du", "version"),
	"manifest":  set("inspect"),
	"trust":     set("inspect"),
}

var dockerUnsafeSubcommands = map[string]map[string]bool{
	"image":     set("rm", "prune", "build", "push", "pull", "tag", "import", "load"),
	"container": set("rm", "prune", "create", "start", "stop", "restart", "kill", "exec"),
	"network":   set("create", "rm", "prune", "connect", "disconnect"),
	"volume":    set("create", "rm", "prune"),
	"system":    set("prune"),
	"context":   set("create", "update", "use", "rm", "import"),
	"compose":   set("up", "down", "start", "stop", "restart", "rm", "pull", "build", "exec", "run"),
	"config":    set("create", "rm"),
	"secret":    set("create", "rm"),
	"service":   set("create", "rm", "scale", "update", "rollback"),
	"stack":     set("deploy", "rm"),
	"node":      set("update", "rm", "promote", "demote"),
	"plugin":    set("install", "enable", "disable", "rm", "upgrade", "create", "push"),
	"buildx":    set("build", "bake", "create", "rm", "use", "prune"),
	"manifest":  set("create", "push", "annotate", "rm"),
	"trust":     set("sign", "revoke"),
	"swarm":     set("init", "join", "join-token", "leave", "update", "ca", "unlock", "unlock-key"),
}

var dockerGlobalFlagsWithArg = map[string]bool{
	"-H": true, "--host": true,
	"-c": true, "--context": true,
	"-l": true, "--log-level": true,
	"--config": true, "--tlscacert": true, "--tlscert": true, "--tlskey": true,
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func classifyDocker(args []string, _ Context) Classification {
	base := args[0]
	if len(args) < 2 {
		return ask(base)
	}

	idx := dockerFindAction(args)
	if idx >= len(args) {
		return ask(base)
	}
	action := args[idx]
	var rest []string
	if idx+1 < len(args) {
		rest = args[idx+1:]
	}

	if action == "compose" || base == "docker-compose" || base == "podman-compose" {
		return dockerClassifyCompose(args, idx, base)
	}

	if dockerSafeSubcommands[action] != nil || dockerUnsafeSubcommands[action] != nil {
		if sub := firstPositional(rest); sub != "" {
			if action == "buildx" && sub == "imagetools" {
				var after []string
				for i, tok := range rest {
					if tok == "imagetools" {
						after = rest[i+1:]
						break
					}
				}
				if firstPositional(after) == "inspect" {
					return allow(base + " buildx imagetools inspect")
				}
				return ask(base + " buildx imagetools")
			}
			desc := base + " " + action + " " + sub
			if dockerSafeSubcommands[action][sub] {
				if action == "image" && sub == "save" && dockerHasOutputFlag(rest) {
					return ask(desc + " -o")
				}
				return allow(desc)
			}
			if dockerUnsafeSubcommands[action][sub] {
				return ask(desc)
			}
		}
	}

	if dockerSafeActions[action] {
		if (action == "export" || action == "save") && dockerHasOutputFlag(rest) {
			return ask(base + " " + action + " -o")
		}
		return allow(base + " " + action)
	}
	return ask(base + " " + action)
}

func dockerFindAction(args []string) int {
	i := 1
	for i < len(args) {
		tok := args[i]
		if !strings.HasPrefix(tok, "-") {
			return i
		}
		if dockerGlobalFlagsWithArg[tok] && i+1 < len(args) {
			i += 2
			continue
		}
		i++
	}
	return len(args)
}

func dockerHasOutputFlag(args []string) bool {
	for _, tok := range args {
		if tok == "-o" || tok == "--output" ||
			strings.HasPrefix(tok, "-o") || strings.HasPrefix(tok, "--output=") {
			return true
		}
	}
	return false
}

func dockerClassifyCompose(args []string, start int, base string) Classification {
	flagsWithArg := map[string]bool{
		"-f": true, "--file": true,
		"-p": true, "--project-name": true,
		"--project-directory": true, "--env-file": true,
		"--profile": true, "--ansi": true,
	}

	i := start
	switch {
	case base == "docker-compose" || base == "podman-compose":
		i = 1
	case start < len(args) && args[start] == "compose":
		i = start + 1
	}

	for i < len(args) {
		tok := args[i]
		if strings.HasPrefix(tok, "-") {
			if flagsWithArg[tok] && i+1 < len(args) {
				i += 2
			} else {
				i++
			}
			continue
		}
		if dockerSafeSubcommands["compose"][tok] {
			return allow(base + " compose " + tok)
		}
		return ask(base + " compose " + tok)
	}
	return ask(base + " compose")
}
