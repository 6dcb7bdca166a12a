package handlers

import (
	"strings"

	"github.com/cmdvet/cmdvet/internal/sqlscan"
)

func init() {
	register(classifyPsql, "psql")
	register(classifyMysql, "mysql")
	register(classifySqlite, "sqlite3")
	register(classifyDuckdb, "duckdb")
}

// Keywords beyond the shared classifier's vocabulary that mutate state in
// each engine's dialect.
var (
	postgresWrite = []string{"COPY", "VACUUM", "CLUSTER", "REINDEX", "ANALYZE"}
	mysqlWrite    = []string{"LOAD"}
	sqliteWrite   = []string{"PRAGMA", "ATTACH", "DETACH", "VACUUM", "REINDEX", "ANALYZE"}
	duckdbWrite   = []string{"PRAGMA", "ATTACH", "DETACH", "VACUUM", "COPY", "EXPORT", "IMPORT"}
)

func sqlVerdict(base, sql string, extraWrite []string) Classification {
	switch sqlscan.Classify(sql, nil, extraWrite) {
	case sqlscan.ReadOnly:
		return allow(base + " (read-only query)")
	case sqlscan.Write:
		return ask(base + " (write query)")
	default:
		return ask(base + " (unknown query)")
	}
}

func classifyPsql(args []string, _ Context) Classification {
	if contains(args, "--help", "--version", "-V") {
		return allow("psql help/version")
	}
	if contains(args, "-l", "--list") {
		return allow("psql --list")
	}
	for _, tok := range args[1:] {
		if tok == "-f" || tok == "--file" ||
			strings.HasPrefix(tok, "--file=") || strings.HasPrefix(tok, "-f") {
			return ask("psql (file input)")
		}
	}

	var queries []string
	for i := 1; i < len(args); i++ {
		tok := args[i]
		if (tok == "-c" || tok == "--command") && i+1 < len(args) {
			queries = append(queries, args[i+1])
			i++
			continue
		}
		if strings.HasPrefix(tok, "--command=") {
			queries = append(queries, stripQuotes(strings.TrimPrefix(tok, "--command=")))
		}
	}
	if len(queries) == 0 {
		return ask("psql (interactive)")
	}
	for _, sql := range queries {
		if c := sqlVerdict("psql", sql, postgresWrite); c.Action != Allow {
			return c
		}
	}
	return allow("psql (read-only query)")
}

func classifyMysql(args []string, _ Context) Classification {
	if contains(args, "--help", "-?", "--version", "-V") {
		return allow("mysql help/version")
	}

	var sql string
	for i := 1; i < len(args); i++ {
		tok := args[i]
		if (tok == "-e" || tok == "--execute") && i+1 < len(args) {
			sql = args[i+1]
			break
		}
		if strings.HasPrefix(tok, "--execute=") {
			sql = stripQuotes(strings.TrimPrefix(tok, "--execute="))
			break
		}
		if strings.HasPrefix(tok, "-e") && len(tok) > 2 {
			sql = tok[2:]
			break
		}
	}
	if sql == "" {
		return ask("mysql (interactive)")
	}
	return sqlVerdict("mysql", sql, mysqlWrite)
}

var sqliteNoArgFlags = set(
	"-append", "-ascii", "-bail", "-batch", "-box", "-column", "-csv",
	"-deserialize", "-echo", "-header", "-noheader", "-help", "-html",
	"-interactive", "-json", "-line", "-list", "-markdown", "-memtrace",
	"-nofollow", "-quote", "-readonly", "-safe", "-stats", "-table",
	"-tabs", "-version", "-vfstrace",
)

var sqliteArgFlags = set(
	"-cmd", "-init", "-key", "-hexkey", "-textkey", "-lookaside",
	"-maxsize", "-newline", "-nonce", "-nullvalue", "-pagecache",
	"-separator", "-vfs", "-escape", "-A",
)

func classifySqlite(args []string, _ Context) Classification {
	if contains(args, "-help", "--help", "-version") {
		return allow("sqlite3 help/version")
	}
	if contains(args, "-readonly", "-safe") {
		return allow("sqlite3 (read-only mode)")
	}
	if contains(args, "-init") {
		return ask("sqlite3 (init script)")
	}
	sql := extractCLISQL(args, sqliteNoArgFlags, sqliteArgFlags, nil)
	if sql == "" {
		return ask("sqlite3 (interactive)")
	}
	return sqlVerdict("sqlite3", sql, sqliteWrite)
}

var duckdbNoArgFlags = set(
	"-ascii", "-bail", "-batch", "-box", "-column", "-csv", "-echo",
	"-header", "-noheader", "-help", "-html", "-interactive", "-json",
	"-line", "-list", "-markdown", "-no-stdin", "-quote", "-readonly",
	"-safe", "-stats", "-table", "-tabs", "-unredacted", "-unsigned",
	"-version",
)

var duckdbArgFlags = set(
	"-cmd", "-init", "-separator", "-vfs", "-storage-version",
	"-newline", "-nullvalue",
)

func classifyDuckdb(args []string, _ Context) Classification {
	if contains(args, "-help", "--help", "-version") {
		return allow("duckdb help/version")
	}
	if contains(args, "-readonly", "-safe") {
		return allow("duckdb (read-only mode)")
	}
	if contains(args, "-init") {
		return ask("duckdb (init script)")
	}
	sql := extractCLISQL(args, duckdbNoArgFlags, duckdbArgFlags, set("-c", "-s"))
	if sql == "" {
		return ask("duckdb (interactive)")
	}
	return sqlVerdict("duckdb", sql, duckdbWrite)
}

// extractCLISQL walks the usual  tool [OPTIONS] [FILENAME [SQL...]]  shape
// shared by sqlite3 and duckdb. -cmd and any flags in sqlFlags contribute
// their argument as SQL; the first bare token is the database file.
func extractCLISQL(args []string, noArg, withArg, sqlFlags map[string]bool) string {
	var parts []string
	filenameSeen := false
	for i := 1; i < len(args); i++ {
		tok := args[i]
		if noArg[tok] {
			continue
		}
		if withArg[tok] {
			if tok == "-cmd" && i+1 < len(args) {
				parts = append(parts, args[i+1])
			}
			i++
			continue
		}
		if sqlFlags[tok] && i+1 < len(args) {
			parts = append(parts, args[i+1])
			i++
			continue
		}
		if strings.HasPrefix(tok, "-") {
			continue
		}
		if !filenameSeen {
			filenameSeen = true
			continue
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, " ")
}

func stripQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
