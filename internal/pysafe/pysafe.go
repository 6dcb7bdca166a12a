// Package pysafe statically vets Python source for side effects.
//
// The model is a strict whitelist: a script is considered safe only when
// every import, call, and attribute access is provably free of file,
// network, process, and reflection side effects. Anything unknown is
// flagged. No data-flow or taint tracking is attempted; false positives are
// acceptable, false negatives are not.
package pysafe

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Violation is one reason a script cannot be auto-approved. Violations are
// accumulated in discovery order and never deduplicated.
type Violation struct {
	Line   int
	Col    int
	Kind   string // "syntax", "import", "builtin", "method", "reflection", "async", "io"
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (line %d)", v.Kind, v.Detail, v.Line)
}

// Modules that cannot perform I/O, execute code, or mutate external state.
// When in doubt, leave it out: configparser, codecs, inspect and linecache
// all read files and are deliberately absent.
var safeModules = map[string]bool{
	// Core data structures
	"collections": true, "collections.abc": true, "dataclasses": true,
	"typing": true, "typing_extensions": true, "types": true, "enum": true,
	"array": true,
	// Math and algorithms
	"math": true, "cmath": true, "statistics": true, "decimal": true,
	"fractions": true, "random": true, "itertools": true, "functools": true,
	"operator": true, "bisect": true, "heapq": true, "graphlib": true,
	// Text processing
	"re": true, "string": true, "textwrap": true, "difflib": true,
	"unicodedata": true,
	// Data format parsing (in-memory only; the file objects they need come
	// from open(), which is blocked)
	"json": true, "csv": true, "tomllib": true,
	// Hashing and encoding
	"hashlib": true, "hmac": true, "base64": true, "binascii": true,
	"quopri": true, "uu": true,
	// Compression (in-memory compress/decompress only; gzip/bz2/lzma have
	// .open() and are dangerous)
	"zlib": true,
	// Date and time
	"datetime": true, "time": true, "calendar": true, "zoneinfo": true,
	// Introspection of given source, not of files
	"ast": true, "dis": true, "tokenize": true, "token": true,
	"keyword": true, "symtable": true,
	// Other safe utilities
	"copy": true, "pprint": true, "reprlib": true, "abc": true,
	"numbers": true, "contextlib": true, "warnings": true, "traceback": true,
	"struct": true,
	// HTML parsing only
	"html": true, "html.parser": true, "html.entities": true,
}

// Modules that are never safe under this model.
var dangerousModules = map[string]bool{
	// Code execution
	"subprocess": true, "os": true, "sys": true, "shutil": true,
	"runpy": true, "compileall": true, "py_compile": true,
	"importlib": true, "pkgutil": true, "popen2": true, "commands": true,
	// File I/O
	"pathlib": true, "io": true, "fileinput": true, "tempfile": true,
	"glob": true, "fnmatch": true, "codecs": true, "linecache": true,
	"inspect": true, "configparser": true,
	"gzip": true, "bz2": true, "lzma": true, "tarfile": true, "zipfile": true,
	// Network
	"socket": true, "ssl": true, "http": true, "urllib": true,
	"ftplib": true, "smtplib": true, "poplib": true, "imaplib": true,
	"nntplib": true, "telnetlib": true, "socketserver": true,
	"xmlrpc": true, "ipaddress": true,
	// XML parsing (entity-expansion attacks)
	"xml": true,
	// Process/threading
	"multiprocessing": true, "threading": true, "concurrent": true,
	"asyncio": true, "signal": true, "mmap": true,
	// System interaction
	"ctypes": true, "platform": true, "sysconfig": true, "resource": true,
	"pty": true, "tty": true, "termios": true, "fcntl": true,
	"grp": true, "pwd": true, "spwd": true, "crypt": true,
	// Deserialization
	"pickle": true, "cPickle": true, "dill": true, "shelve": true,
	"marshal": true, "jsonpickle": true,
	// Databases
	"dbm": true, "sqlite3": true,
	// Code manipulation
	"code": true, "codeop": true, "gc": true,
	// Other
	"webbrowser": true, "cmd": true, "shlex": true, "getpass": true,
	"getopt": true, "argparse": true, "logging": true, "atexit": true,
	"cgi": true, "cgitb": true, "wsgiref": true,
}

// Builtins whose mere invocation is disqualifying. print is carved out via
// the allowPrint switch, an explicit configuration choice.
var dangerousBuiltins = map[string]bool{
	"eval": true, "exec": true, "compile": true, "__import__": true,
	"open": true, "input": true, "print": true,
	"globals": true, "locals": true, "vars": true, "dir": true,
	"setattr": true, "delattr": true, "getattr": true,
	"memoryview": true, "breakpoint": true,
}

// Method names whose call is flagged regardless of receiver: receiver types
// cannot be resolved statically, so any obj.system(...) is treated as
// os.system.
var dangerousMethods = map[string]bool{
	// File operations
	"write": true, "writelines": true, "truncate": true, "flush": true,
	"close": true, "read": true, "readline": true, "readlines": true,
	"read_text": true, "read_bytes": true, "write_text": true,
	"write_bytes": true, "open": true,
	// OS/process operations
	"remove": true, "unlink": true, "rmdir": true, "rmtree": true,
	"mkdir": true, "makedirs": true, "rename": true, "replace": true,
	"chmod": true, "chown": true, "chroot": true, "link": true,
	"symlink": true, "system": true,
	"popen": true, "popen2": true, "popen3": true, "popen4": true,
	"spawn": true, "spawnl": true, "spawnle": true, "spawnlp": true,
	"spawnlpe": true, "spawnv": true, "spawnve": true, "spawnvp": true,
	"spawnvpe": true, "startfile": true, "fork": true, "forkpty": true,
	"exec": true, "execl": true, "execle": true, "execlp": true,
	"execlpe": true, "execv": true, "execve": true, "execvp": true,
	"execvpe": true, "kill": true, "killpg": true, "terminate": true,
	"wait": true, "waitpid": true, "wait3": true, "wait4": true,
	// subprocess family
	"call": true, "check_call": true, "check_output": true, "run": true,
	"Popen": true, "getoutput": true, "getstatusoutput": true,
	// Network
	"connect": true, "bind": true, "listen": true, "accept": true,
	"send": true, "sendall": true, "sendto": true, "sendmsg": true,
	"recv": true, "recvfrom": true, "recvmsg": true,
	"request": true, "urlopen": true, "urlretrieve": true,
	// Deserialization (load/loads are too generic to flag; json.loads is
	// safe, and the dangerous deserializer modules are caught by imports)
	"Unpickler": true,
}

// Attribute names dangerous even on bare access: each one is a link in a
// known sandbox-escape chain through object, frame, or code internals.
var reflectionAttrs = map[string]bool{
	"__dict__": true, "__class__": true, "__bases__": true, "__mro__": true,
	"__subclasses__": true, "__globals__": true, "__code__": true,
	"__closure__": true, "__reduce__": true, "__reduce_ex__": true,
	"__builtins__": true,
	"tb_frame":     true, "tb_next": true,
	"f_back": true, "f_builtins": true, "f_code": true, "f_globals": true,
	"f_locals": true, "f_trace": true,
	"co_code":  true,
	"gi_frame": true, "gi_code": true, "gi_yieldfrom": true,
	"cr_await": true, "cr_frame": true, "cr_code": true,
}

// Bare names that expose the interpreter's builtin namespace or import
// machinery; flagged wherever they appear, which closes the
// getattr(name, 'open') indirection.
var dangerousNames = map[string]bool{
	"__builtins__": true,
	"__loader__":   true,
	"__spec__":     true,
}

type analyzer struct {
	src        []byte
	allowPrint bool
	violations []Violation
}

// Analyze inspects Python source and returns every safety violation found.
// An empty result means the script is provably free of file, network,
// process, and reflection side effects under this model. Deterministic:
// identical input yields an identical violation list.
func Analyze(source []byte, allowPrint bool) []Violation {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return []Violation{{Kind: "syntax", Detail: err.Error()}}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := firstErrorPos(root)
		return []Violation{{Line: line, Col: col, Kind: "syntax", Detail: "invalid Python syntax"}}
	}

	a := &analyzer{src: source, allowPrint: allowPrint}
	a.walk(root)
	return a.violations
}

func (a *analyzer) add(n *sitter.Node, kind, detail string) {
	a.violations = append(a.violations, Violation{
		Line:   int(n.StartPoint().Row) + 1,
		Col:    int(n.StartPoint().Column),
		Kind:   kind,
		Detail: detail,
	})
}

func (a *analyzer) walk(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		a.checkImport(n)
	case "import_from_statement":
		a.checkImportFrom(n)
	case "call":
		a.checkCall(n)
	case "attribute":
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			if name := attr.Content(a.src); reflectionAttrs[name] {
				a.add(n, "reflection", "dangerous attribute: "+name)
			}
		}
	case "identifier":
		if name := n.Content(a.src); dangerousNames[name] {
			a.add(n, "reflection", "dangerous name: "+name)
		}
	case "function_definition", "for_statement", "with_statement":
		if hasAsyncKeyword(n) {
			a.add(n, "async", "async constructs rely on an event loop")
		}
		if n.Type() == "with_statement" {
			a.checkWith(n)
		}
	case "await":
		a.add(n, "async", "await relies on an event loop")
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		a.walk(n.NamedChild(i))
	}
}

func (a *analyzer) checkImport(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		var mod *sitter.Node
		switch child.Type() {
		case "dotted_name":
			mod = child
		case "aliased_import":
			mod = child.ChildByFieldName("name")
		}
		if mod != nil {
			a.checkModule(n, mod.Content(a.src))
		}
	}
}

func (a *analyzer) checkImportFrom(n *sitter.Node) {
	mod := n.ChildByFieldName("module_name")
	if mod == nil || mod.Type() == "relative_import" {
		a.add(n, "import", "relative import")
		return
	}
	a.checkModule(n, mod.Content(a.src))
}

func (a *analyzer) checkModule(n *sitter.Node, module string) {
	root := module
	if i := strings.IndexByte(module, '.'); i >= 0 {
		root = module[:i]
	}
	switch {
	case dangerousModules[module] || dangerousModules[root]:
		a.add(n, "import", "dangerous module: "+module)
	case !safeModules[module] && !safeModules[root]:
		a.add(n, "import", "unknown module: "+module)
	}
}

func (a *analyzer) checkCall(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	switch fn.Type() {
	case "identifier":
		name := fn.Content(a.src)
		if dangerousBuiltins[name] {
			if name == "print" && a.allowPrint {
				return
			}
			a.add(n, "builtin", "dangerous builtin: "+name)
		}
	case "attribute":
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			if name := attr.Content(a.src); dangerousMethods[name] {
				a.add(n, "method", "dangerous method: "+name)
			}
		}
	}
}

// checkWith flags `with open(...)` independently of the direct-call check,
// defense in depth for the single most common file-access shape.
func (a *analyzer) checkWith(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "with_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			item := clause.NamedChild(j)
			if item.Type() != "with_item" {
				continue
			}
			expr := item.ChildByFieldName("value")
			if expr == nil {
				continue
			}
			if expr.Type() == "as_pattern" && expr.NamedChildCount() > 0 {
				expr = expr.NamedChild(0)
			}
			if expr.Type() != "call" {
				continue
			}
			fn := expr.ChildByFieldName("function")
			if fn != nil && fn.Type() == "identifier" && fn.Content(a.src) == "open" {
				a.add(n, "io", "file open in with statement")
			}
		}
	}
}

func hasAsyncKeyword(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Type() == "async" {
			return true
		}
		if c.IsNamed() {
			break
		}
	}
	return false
}

func firstErrorPos(n *sitter.Node) (line, col int) {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPoint().Row) + 1, int(n.StartPoint().Column)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if l, c := firstErrorPos(n.Child(i)); l > 0 {
			return l, c
		}
	}
	return 0, 0
}

