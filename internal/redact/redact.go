// Package redact strips credential material from text before it reaches the
// audit log. Commands routinely carry tokens inline (curl -H "Authorization:
// Bearer ..."), and a decision log must not become a secret store.
package redact

import (
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	// AWS
	regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),

	// GitHub
	regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`),
	regexp.MustCompile(`gh[opurs]_[A-Za-z0-9]{36}`),

	// Generic API keys and tokens
	regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`),

	// Private key material
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),

	// Credentials embedded in URLs
	regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`),

	// Slack and Stripe
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`),
	regexp.MustCompile(`[sr]k_live_[0-9a-zA-Z]{24}`),

	// password=... in any spelling
	regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
}

// Redact replaces anything that looks like credential material.
func Redact(input string) string {
	out := input
	for _, p := range secretPatterns {
		out = p.ReplaceAllString(out, placeholder)
	}
	return out
}

// Strings redacts each element of a slice.
func Strings(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Redact(s)
	}
	return out
}

// EnvAssignment redacts the value of a NAME=value pair when the name
// suggests a secret; other assignments pass through unchanged.
func EnvAssignment(assign string) string {
	name, _, ok := strings.Cut(assign, "=")
	if !ok {
		return assign
	}
	upper := strings.ToUpper(name)
	for _, marker := range []string{"TOKEN", "SECRET", "PASSWORD", "PASSWD", "API_KEY", "APIKEY", "CREDENTIAL", "_URL"} {
		if strings.Contains(upper, marker) {
			return name + "=" + placeholder
		}
	}
	return Redact(assign)
}
