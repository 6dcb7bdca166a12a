// Package sqlscan classifies SQL statements as read-only or writing without
// committing to any one dialect's grammar.
//
// The classifier looks only at the leading keyword of the (single) statement,
// after stripping everything that could hide or fake a keyword: string
// literals, quoted identifiers, and comments. Ambiguity is a first-class
// outcome: anything it cannot prove read-only or write comes back Unknown,
// and callers treat Unknown the same as write for approval purposes.
package sqlscan

import (
	"regexp"
	"strings"
)

// Verdict is the tri-state classification result.
type Verdict int

const (
	// Unknown means the statement could not be classified: multiple
	// statements, an unrecognized leading keyword, or no keyword at all.
	Unknown Verdict = iota
	// ReadOnly means the statement provably performs no writes.
	ReadOnly
	// Write means the statement mutates data, schema, or grants.
	Write
)

func (v Verdict) String() string {
	switch v {
	case ReadOnly:
		return "read-only"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// quotedPattern matches, in one pass, everything that must be removed before
// keyword scanning: single/double-quoted strings (with doubled-quote
// escaping), backtick and bracket identifiers, line comments, and block
// comments. A literal value like 'DELETE' must never read as a keyword.
var quotedPattern = regexp.MustCompile(
	`'(?:[^']*'')*[^']*'` +
		`|"(?:[^"]*"")*[^"]*"` +
		"|`[^`]*`" +
		`|\[[^\]]*\]` +
		`|--[^\n]*` +
		`|(?s:/\*.*?\*/)`)

var readonlyKeywords = map[string]bool{
	"SELECT":   true,
	"SHOW":     true,
	"DESCRIBE": true,
	"EXPLAIN":  true,
}

var writeKeywords = map[string]bool{
	"INSERT":   true,
	"CREATE":   true,
	"ALTER":    true,
	"DROP":     true,
	"TRUNCATE": true,
	"DELETE":   true,
	"UPDATE":   true,
	"MERGE":    true,
	"GRANT":    true,
	"REVOKE":   true,
	"REPLACE":  true,
}

// Classify determines whether a SQL statement is read-only.
//
// extraReadOnly and extraWrite supply dialect-specific keywords (SQLite
// PRAGMA, Postgres COPY, MySQL LOAD, ...) per call site; no single
// vocabulary spans every engine so none is hard-coded here.
//
// Multiple statements return Unknown: auto-approving "SELECT 1; DROP TABLE x"
// on the strength of its first keyword would be exactly the bug this package
// exists to prevent. Side-effect functions (e.g. SQLite's writefile) are not
// detected.
func Classify(sql string, extraReadOnly, extraWrite []string) Verdict {
	if hasMultipleStatements(sql) {
		return Unknown
	}

	stripped := stripQuoted(sql)

	pos := 0
	for pos < len(stripped) {
		pos = skipWhitespace(stripped, pos)
		if pos >= len(stripped) {
			break
		}
		kw, end := readKeyword(stripped, pos)
		if kw == "" {
			return Unknown
		}
		kw = strings.ToUpper(kw)

		if kw == "WITH" {
			pos = skipCTE(stripped, end)
			continue
		}
		if kw == "SELECT" {
			// SELECT ... INTO t creates a table despite the leading SELECT.
			if selectHasInto(stripped, end) {
				return Write
			}
			return ReadOnly
		}
		if readonlyKeywords[kw] || containsFold(extraReadOnly, kw) {
			return ReadOnly
		}
		if writeKeywords[kw] || containsFold(extraWrite, kw) {
			return Write
		}
		return Unknown
	}
	return Unknown
}

func stripQuoted(sql string) string {
	return quotedPattern.ReplaceAllString(sql, " ")
}

// hasMultipleStatements reports whether anything other than trailing
// whitespace and immediately adjacent semicolons follows the first
// unquoted semicolon. "SELECT 1;;" is one statement; "SELECT 1; ;" is
// ambiguous and treated as multiple.
func hasMultipleStatements(sql string) bool {
	stripped := stripQuoted(sql)
	first := strings.IndexByte(stripped, ';')
	if first == -1 {
		return false
	}
	after := stripped[first+1:]
	trimmed := strings.TrimSpace(after)
	if trimmed == "" {
		return false
	}
	if strings.Trim(trimmed, ";") == "" {
		for i := 0; i < len(after); i++ {
			c := after[i]
			if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
				if strings.IndexByte(after[i+1:], ';') != -1 {
					return true
				}
			} else if c != ';' {
				return true
			}
		}
		return false
	}
	return true
}

func skipWhitespace(s string, pos int) int {
	for pos < len(s) {
		switch s[pos] {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			pos++
		default:
			return pos
		}
	}
	return pos
}

// readKeyword reads an identifier-shaped token at pos. Returns "" if the
// character at pos cannot start one.
func readKeyword(s string, pos int) (string, int) {
	if pos >= len(s) || !isKeywordStart(s[pos]) {
		return "", pos
	}
	end := pos + 1
	for end < len(s) && isKeywordChar(s[end]) {
		end++
	}
	return s[pos:end], end
}

func isKeywordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKeywordChar(c byte) bool {
	return isKeywordStart(c) || (c >= '0' && c <= '9')
}

// skipCTE walks one or more CTE definitions following WITH. The state
// machine alternates between "expect a name (optionally after RECURSIVE)
// then AS" and "expect a balanced-paren body or a comma introducing the
// next CTE"; the first bare keyword seen outside either state is the real
// leading keyword of the main statement.
func skipCTE(s string, pos int) int {
	expectAS := true
	for pos < len(s) {
		pos = skipWhitespace(s, pos)
		if pos >= len(s) {
			break
		}
		switch s[pos] {
		case '(':
			depth := 1
			pos++
			for pos < len(s) && depth > 0 {
				switch s[pos] {
				case '(':
					depth++
				case ')':
					depth--
				}
				pos++
			}
			expectAS = false
			continue
		case ',':
			pos++
			expectAS = true
			continue
		}
		kw, end := readKeyword(s, pos)
		if kw != "" {
			if expectAS {
				upper := strings.ToUpper(kw)
				pos = end
				if upper == "AS" {
					expectAS = false
				}
				// RECURSIVE and the CTE name itself are skipped the same way.
				continue
			}
			return pos
		}
		pos++
	}
	return pos
}

// selectHasInto scans forward from a SELECT keyword for a bare INTO token,
// stopping at FROM.
func selectHasInto(s string, pos int) bool {
	for pos < len(s) {
		pos = skipWhitespace(s, pos)
		if pos >= len(s) {
			break
		}
		kw, end := readKeyword(s, pos)
		if kw != "" {
			switch strings.ToUpper(kw) {
			case "INTO":
				return true
			case "FROM":
				return false
			}
			pos = end
			continue
		}
		pos++
	}
	return false
}

func containsFold(set []string, upper string) bool {
	for _, s := range set {
		if strings.ToUpper(s) == upper {
			return true
		}
	}
	return false
}
