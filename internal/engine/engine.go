// Package engine decides whether a shell command is safe to run unattended.
//
// The command is parsed into a bash AST and walked recursively; every node
// produces a Decision and parents combine their children, most restrictive
// action winning. Unknown constructs ask. The engine itself never denies:
// deny comes only from operator policy rules.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/cmdvet/cmdvet/internal/handlers"
	"github.com/cmdvet/cmdvet/internal/policy"
	"github.com/cmdvet/cmdvet/internal/unicode"
)

// maxDepth bounds recursion through command substitutions and delegated
// inner commands (bash -c inside xargs inside ...).
const maxDepth = 40

// Redirect targets that never write a file.
var safeRedirectTargets = map[string]bool{
	"/dev/null": true, "-": true, "/dev/stdout": true, "/dev/stdin": true,
}

type analyzer struct {
	cfg     *policy.Config
	parser  *syntax.Parser
	printer *syntax.Printer
	buf     strings.Builder // scratch for printing words
	depth   int
}

// Analyze parses and judges one command string.
func Analyze(command string, cfg *policy.Config, cwd string) Decision {
	a := &analyzer{
		cfg:     cfg,
		parser:  syntax.NewParser(syntax.Variant(syntax.LangBash)),
		printer: syntax.NewPrinter(),
	}
	return a.analyze(command, cwd)
}

func (a *analyzer) analyze(command, cwd string) Decision {
	command = strings.TrimSpace(command)
	if command == "" {
		return askD("empty command")
	}

	if threats := unicode.Scan(command); len(threats) > 0 {
		return askD("suspicious characters: " + threats[0].Detail)
	}

	file, err := a.parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return askD(fmt.Sprintf("parse error: %v", err))
	}
	if len(file.Stmts) == 0 {
		return askD("empty command")
	}

	// `cd <literal>` at the start of a sequence moves the working directory
	// for what follows; relative script paths resolve against it.
	effectiveCwd := cwd
	decisions := make([]Decision, 0, len(file.Stmts))
	for i, stmt := range file.Stmts {
		decisions = append(decisions, a.analyzeStmt(stmt, effectiveCwd))
		if i == 0 {
			if target := cdTarget(stmt); target != "" {
				effectiveCwd = resolveCd(target, cwd)
			}
		}
	}
	return combine(decisions)
}

// recurse re-analyzes a nested command string (delegated inner command,
// alias expansion) with the depth guard.
func (a *analyzer) recurse(command, cwd string) Decision {
	if a.depth >= maxDepth {
		return askD("nesting too deep")
	}
	a.depth++
	defer func() { a.depth-- }()
	return a.analyze(command, cwd)
}

func (a *analyzer) analyzeStmt(stmt *syntax.Stmt, cwd string) Decision {
	if a.depth >= maxDepth {
		return askD("nesting too deep")
	}
	a.depth++
	defer func() { a.depth-- }()

	var decisions []Decision
	decisions = append(decisions, a.analyzeRedirects(stmt.Redirs, cwd)...)
	decisions = append(decisions, a.analyzeCommand(stmt.Cmd, cwd))
	return combine(decisions)
}

func (a *analyzer) analyzeCommand(cmd syntax.Command, cwd string) Decision {
	switch c := cmd.(type) {
	case nil:
		return allowD("empty")

	case *syntax.CallExpr:
		return a.analyzeCall(c, cwd)

	case *syntax.BinaryCmd:
		left := a.analyzeStmt(c.X, cwd)
		rightCwd := cwd
		if c.Op == syntax.AndStmt || c.Op == syntax.OrStmt {
			if target := cdTarget(c.X); target != "" {
				rightCwd = resolveCd(target, cwd)
			}
		}
		right := a.analyzeStmt(c.Y, rightCwd)
		return combine([]Decision{left, right})

	case *syntax.IfClause:
		var decisions []Decision
		for ic := c; ic != nil; ic = ic.Else {
			for _, s := range ic.Cond {
				decisions = append(decisions, a.analyzeStmt(s, cwd))
			}
			for _, s := range ic.Then {
				decisions = append(decisions, a.analyzeStmt(s, cwd))
			}
		}
		return combine(decisions)

	case *syntax.WhileClause:
		var decisions []Decision
		for _, s := range c.Cond {
			decisions = append(decisions, a.analyzeStmt(s, cwd))
		}
		for _, s := range c.Do {
			decisions = append(decisions, a.analyzeStmt(s, cwd))
		}
		return combine(decisions)

	case *syntax.ForClause:
		var decisions []Decision
		switch loop := c.Loop.(type) {
		case *syntax.WordIter:
			for _, w := range loop.Items {
				decisions = append(decisions, a.analyzeWordParts(w, cwd)...)
			}
		case *syntax.CStyleLoop:
			for _, expr := range []syntax.ArithmExpr{loop.Init, loop.Cond, loop.Post} {
				decisions = append(decisions, a.analyzeArith(expr, cwd)...)
			}
		}
		for _, s := range c.Do {
			decisions = append(decisions, a.analyzeStmt(s, cwd))
		}
		return combine(decisions)

	case *syntax.CaseClause:
		var decisions []Decision
		decisions = append(decisions, a.analyzeWordParts(c.Word, cwd)...)
		for _, item := range c.Items {
			for _, p := range item.Patterns {
				decisions = append(decisions, a.analyzeWordParts(p, cwd)...)
			}
			for _, s := range item.Stmts {
				decisions = append(decisions, a.analyzeStmt(s, cwd))
			}
		}
		if len(decisions) == 0 {
			return allowD("empty case")
		}
		return combine(decisions)

	case *syntax.Block:
		return a.analyzeStmts(c.Stmts, cwd)

	case *syntax.Subshell:
		return a.analyzeStmts(c.Stmts, cwd)

	case *syntax.FuncDecl:
		// Defining a function runs nothing, but approving a definition
		// that hides dangerous commands would launder them.
		return a.analyzeStmt(c.Body, cwd)

	case *syntax.TimeClause:
		if c.Stmt == nil {
			return allowD("time")
		}
		return a.analyzeStmt(c.Stmt, cwd)

	case *syntax.CoprocClause:
		return a.analyzeStmt(c.Stmt, cwd)

	case *syntax.TestClause:
		decisions := a.analyzeTestExpr(c.X, cwd)
		if len(decisions) == 0 {
			return allowD("conditional")
		}
		return combine(decisions)

	case *syntax.ArithmCmd:
		decisions := a.analyzeArith(c.X, cwd)
		if len(decisions) == 0 {
			return allowD("arithmetic")
		}
		return combine(decisions)

	case *syntax.DeclClause:
		var decisions []Decision
		for _, assign := range c.Args {
			decisions = append(decisions, a.analyzeAssign(assign, cwd)...)
		}
		if len(decisions) == 0 {
			return allowD("declaration")
		}
		return combine(decisions)

	case *syntax.LetClause:
		var decisions []Decision
		for _, expr := range c.Exprs {
			decisions = append(decisions, a.analyzeArith(expr, cwd)...)
		}
		if len(decisions) == 0 {
			return allowD("arithmetic")
		}
		return combine(decisions)

	default:
		return askD(fmt.Sprintf("unrecognized construct: %s", nodeName(cmd)))
	}
}

func (a *analyzer) analyzeStmts(stmts []*syntax.Stmt, cwd string) Decision {
	decisions := make([]Decision, 0, len(stmts))
	for _, s := range stmts {
		decisions = append(decisions, a.analyzeStmt(s, cwd))
	}
	return combine(decisions)
}

// analyzeCall handles a simple command: substitutions in its words first,
// then the injection heuristic, then the command itself.
func (a *analyzer) analyzeCall(call *syntax.CallExpr, cwd string) Decision {
	var decisions []Decision

	for _, assign := range call.Assigns {
		for _, d := range a.analyzeAssign(assign, cwd) {
			if d.Action != ActionAllow {
				return d
			}
			decisions = append(decisions, d)
		}
	}

	if len(call.Args) == 0 {
		if len(decisions) > 0 {
			return combine(append(decisions, allowD("env assignment")))
		}
		return allowD("env assignment")
	}

	words := make([]string, len(call.Args))
	for i, w := range call.Args {
		words[i] = a.wordText(w)
	}
	base := words[0]
	handlerFn, hasHandler := handlers.Lookup(base)

	for position, word := range call.Args {
		pureCmdsub := isPureCmdsub(word)

		for _, d := range a.analyzeWordParts(word, cwd) {
			if d.Action != ActionAllow {
				return d
			}
			decisions = append(decisions, d)
		}

		// A safe substitution feeding an argument of a state-changing CLI
		// is still injection surface: git commit -m "$(cat notes)" passes
		// file content into a command we would not auto-approve bare.
		if pureCmdsub && position > 0 && hasHandler && !simpleSafe[base] {
			outer := a.safeClassify(handlerFn, words, cwd)
			if outer.Action != handlers.Allow {
				inner := strings.TrimSuffix(strings.TrimPrefix(words[position], "$("), ")")
				return askD("cmdsub injection risk: " + inner)
			}
		}
	}

	if base == "[" || base == "test" {
		decisions = append(decisions, allowD("conditional test"))
		return combine(decisions)
	}

	decisions = append(decisions, a.analyzeSimple(words, cwd))
	return combine(decisions)
}

func (a *analyzer) analyzeAssign(assign *syntax.Assign, cwd string) []Decision {
	var decisions []Decision
	if assign.Value != nil {
		decisions = append(decisions, a.analyzeWordParts(assign.Value, cwd)...)
	}
	if assign.Index != nil {
		decisions = append(decisions, a.analyzeArith(assign.Index, cwd)...)
	}
	if assign.Array != nil {
		for _, el := range assign.Array.Elems {
			if el.Value != nil {
				decisions = append(decisions, a.analyzeWordParts(el.Value, cwd)...)
			}
		}
	}
	return decisions
}

// analyzeWordParts digs substitutions out of one word, recursing through
// double quotes, parameter expansions, and arithmetic.
func (a *analyzer) analyzeWordParts(word *syntax.Word, cwd string) []Decision {
	if word == nil {
		return nil
	}
	return a.analyzeParts(word.Parts, cwd)
}

func (a *analyzer) analyzeParts(parts []syntax.WordPart, cwd string) []Decision {
	var decisions []Decision
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.CmdSubst:
			inner := a.analyzeStmts(p.Stmts, cwd)
			if inner.Action != ActionAllow {
				decisions = append(decisions, Decision{
					Action:   inner.Action,
					Reason:   "command substitution: " + inner.Reason,
					Children: []Decision{inner},
				})
			} else {
				decisions = append(decisions, inner)
			}
		case *syntax.ProcSubst:
			inner := a.analyzeStmts(p.Stmts, cwd)
			if inner.Action != ActionAllow {
				op := "<"
				if p.Op == syntax.CmdOut {
					op = ">"
				}
				decisions = append(decisions, Decision{
					Action:   inner.Action,
					Reason:   "process substitution " + op + "(...): " + inner.Reason,
					Children: []Decision{inner},
				})
			} else {
				decisions = append(decisions, inner)
			}
		case *syntax.DblQuoted:
			decisions = append(decisions, a.analyzeParts(p.Parts, cwd)...)
		case *syntax.ParamExp:
			decisions = append(decisions, a.analyzeParamExp(p, cwd)...)
		case *syntax.ArithmExp:
			decisions = append(decisions, a.analyzeArith(p.X, cwd)...)
		case *syntax.ExtGlob, *syntax.SglQuoted, *syntax.Lit:
			// literal, nothing to expand
		}
	}
	return decisions
}

// ${x:-$(cmd)}, ${x/pat/$(cmd)}, ${arr[$(cmd)]} all run the substitution.
func (a *analyzer) analyzeParamExp(p *syntax.ParamExp, cwd string) []Decision {
	var decisions []Decision
	if p.Exp != nil && p.Exp.Word != nil {
		decisions = append(decisions, a.analyzeWordParts(p.Exp.Word, cwd)...)
	}
	if p.Repl != nil {
		decisions = append(decisions, a.analyzeWordParts(p.Repl.Orig, cwd)...)
		decisions = append(decisions, a.analyzeWordParts(p.Repl.With, cwd)...)
	}
	if p.Index != nil {
		decisions = append(decisions, a.analyzeArith(p.Index, cwd)...)
	}
	return decisions
}

func (a *analyzer) analyzeArith(expr syntax.ArithmExpr, cwd string) []Decision {
	switch e := expr.(type) {
	case nil:
		return nil
	case *syntax.BinaryArithm:
		return append(a.analyzeArith(e.X, cwd), a.analyzeArith(e.Y, cwd)...)
	case *syntax.UnaryArithm:
		return a.analyzeArith(e.X, cwd)
	case *syntax.ParenArithm:
		return a.analyzeArith(e.X, cwd)
	case *syntax.Word:
		var decisions []Decision
		for _, d := range a.analyzeWordParts(e, cwd) {
			if d.Action != ActionAllow {
				d.Reason = "arithmetic " + d.Reason
			}
			decisions = append(decisions, d)
		}
		return decisions
	}
	return nil
}

func (a *analyzer) analyzeTestExpr(expr syntax.TestExpr, cwd string) []Decision {
	switch e := expr.(type) {
	case nil:
		return nil
	case *syntax.BinaryTest:
		return append(a.analyzeTestExpr(e.X, cwd), a.analyzeTestExpr(e.Y, cwd)...)
	case *syntax.UnaryTest:
		return a.analyzeTestExpr(e.X, cwd)
	case *syntax.ParenTest:
		return a.analyzeTestExpr(e.X, cwd)
	case *syntax.Word:
		return a.analyzeWordParts(e, cwd)
	}
	return nil
}

// analyzeRedirects judges a statement's redirections. Heredoc bodies are
// parsed words, so substitutions inside an unquoted heredoc surface through
// the normal part walk; quoted heredocs parse as literals and stay inert.
func (a *analyzer) analyzeRedirects(redirs []*syntax.Redirect, cwd string) []Decision {
	var decisions []Decision
	for _, r := range redirs {
		switch r.Op {
		case syntax.Hdoc, syntax.DashHdoc:
			decisions = append(decisions, a.analyzeWordParts(r.Hdoc, cwd)...)
			continue
		case syntax.DplIn, syntax.DplOut:
			// descriptor duplication, no file touched
			continue
		}

		decisions = append(decisions, a.analyzeWordParts(r.Word, cwd)...)

		if !isOutputRedirect(r.Op) {
			continue
		}
		target := a.wordText(r.Word)
		if safeRedirectTargets[target] || strings.HasPrefix(target, "&") {
			continue
		}

		m := policy.MatchRedirect(target, a.cfg, cwd)
		if m == nil {
			decisions = append(decisions, askD("redirect to "+target))
			continue
		}
		switch m.Decision {
		case policy.DecideAllow:
			decisions = append(decisions, allowD("redirect to "+target))
		case policy.DecideDeny:
			decisions = append(decisions, Decision{
				Action: ActionDeny,
				Reason: "redirect to " + target + ": " + m.Reason(),
			})
		default:
			decisions = append(decisions, askD("redirect to "+target+": "+m.Reason()))
		}
	}
	return decisions
}

func isOutputRedirect(op syntax.RedirOperator) bool {
	switch op {
	case syntax.RdrOut, syntax.AppOut, syntax.RdrAll, syntax.AppAll, syntax.ClbOut:
		return true
	}
	return false
}

// isPureCmdsub reports whether one command substitution spans the whole
// word, bare ($(...)) or double-quoted ("$(...)").
func isPureCmdsub(word *syntax.Word) bool {
	if len(word.Parts) != 1 {
		return false
	}
	part := word.Parts[0]
	if dq, ok := part.(*syntax.DblQuoted); ok {
		if len(dq.Parts) != 1 {
			return false
		}
		part = dq.Parts[0]
	}
	_, ok := part.(*syntax.CmdSubst)
	return ok
}

// wordText renders a word back to source text with outer quotes stripped,
// matching what an operator pattern would be written against.
func (a *analyzer) wordText(w *syntax.Word) string {
	if w == nil {
		return ""
	}
	if lit := w.Lit(); lit != "" {
		return lit
	}
	a.buf.Reset()
	if err := a.printer.Print(&a.buf, w); err != nil {
		return ""
	}
	return stripOuterQuotes(a.buf.String())
}

func stripOuterQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func nodeName(cmd syntax.Command) string {
	name := fmt.Sprintf("%T", cmd)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// cdTarget extracts the path from a literal `cd <path>` statement. Anything
// dynamic (variables, substitutions) disqualifies it.
func cdTarget(stmt *syntax.Stmt) string {
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Args) != 2 {
		return ""
	}
	if call.Args[0].Lit() != "cd" {
		return ""
	}
	return call.Args[1].Lit()
}

func resolveCd(target, cwd string) string {
	if strings.HasPrefix(target, "~") {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return cwd
		}
		if target == "~" {
			return home
		}
		return filepath.Join(home, strings.TrimPrefix(target, "~/"))
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(cwd, target)
}
