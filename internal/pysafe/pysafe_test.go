package pysafe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeSafeScripts(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"arithmetic", "x = 1 + 2\ny = x * 3"},
		{"safe imports", "import math\nimport json\nfrom collections import Counter"},
		{"dotted safe import", "import collections.abc"},
		{"comprehension", "squares = [n * n for n in range(10)]"},
		{"string methods", "s = 'hello'.upper().strip()"},
		{"json in memory", "import json\ndata = json.loads('{\"a\": 1}')\nout = json.dumps(data)"},
		{"function definition", "def add(a, b):\n    return a + b\n\nresult = add(2, 3)"},
		{"class definition", "class Point:\n    def __init__(self, x):\n        self.x = x"},
		{"safe builtins", "n = len([1, 2, 3])\nm = max(1, 2)\ns = sorted([3, 1, 2])"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Analyze([]byte(tt.source), false); len(got) != 0 {
				t.Errorf("Analyze(%q) = %v, want no violations", tt.source, got)
			}
		})
	}
}

func TestAnalyzeViolations(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantKind   string
		wantDetail string
	}{
		{"import os", "import os", "import", "dangerous module: os"},
		{"import subprocess", "import subprocess", "import", "dangerous module: subprocess"},
		{"from os import", "from os import path", "import", "dangerous module: os"},
		{"dotted dangerous", "import os.path", "import", "dangerous module: os.path"},
		{"unknown module", "import requests", "import", "unknown module: requests"},
		{"relative import", "from . import helpers", "import", "relative import"},
		{"aliased import", "import socket as s", "import", "dangerous module: socket"},
		{"eval", "eval('1 + 1')", "builtin", "dangerous builtin: eval"},
		{"exec", "exec('pass')", "builtin", "dangerous builtin: exec"},
		{"open call", "f = open('data.txt')", "builtin", "dangerous builtin: open"},
		{"dunder import", "__import__('os')", "builtin", "dangerous builtin: __import__"},
		{"getattr", "getattr(obj, 'attr')", "builtin", "dangerous builtin: getattr"},
		{"method system", "x.system('ls')", "method", "dangerous method: system"},
		{"method write", "f.write('data')", "method", "dangerous method: write"},
		{"subprocess run shape", "sp.run(['ls'])", "method", "dangerous method: run"},
		{"reflection class", "x.__class__", "reflection", "dangerous attribute: __class__"},
		{"reflection subclasses", "().__class__.__bases__[0].__subclasses__()", "reflection", "dangerous attribute: __subclasses__"},
		{"builtins name", "b = __builtins__", "reflection", "dangerous name: __builtins__"},
		{"async def", "async def main():\n    pass", "async", ""},
		{"await", "async def main():\n    await thing()", "async", ""},
		{"with open", "with open('f.txt') as f:\n    pass", "io", "file open in with statement"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze([]byte(tt.source), false)
			if len(got) == 0 {
				t.Fatalf("Analyze(%q) = no violations, want kind %q", tt.source, tt.wantKind)
			}
			found := false
			for _, v := range got {
				if v.Kind == tt.wantKind && (tt.wantDetail == "" || v.Detail == tt.wantDetail) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Analyze(%q) = %v, want violation kind %q detail %q", tt.source, got, tt.wantKind, tt.wantDetail)
			}
		})
	}
}

func TestAnalyzePrintToggle(t *testing.T) {
	source := []byte("print('hello')")

	if got := Analyze(source, true); len(got) != 0 {
		t.Errorf("Analyze with allowPrint = %v, want no violations", got)
	}
	got := Analyze(source, false)
	if len(got) != 1 || got[0].Kind != "builtin" {
		t.Errorf("Analyze without allowPrint = %v, want one builtin violation", got)
	}
}

func TestAnalyzeSyntaxError(t *testing.T) {
	got := Analyze([]byte("def broken(:\n"), false)
	if len(got) != 1 {
		t.Fatalf("Analyze on broken source = %v, want exactly one violation", got)
	}
	if got[0].Kind != "syntax" {
		t.Errorf("violation kind = %q, want syntax", got[0].Kind)
	}
}

func TestAnalyzeViolationPositions(t *testing.T) {
	source := "x = 1\nimport os\n"
	got := Analyze([]byte(source), false)
	if len(got) != 1 {
		t.Fatalf("Analyze = %v, want one violation", got)
	}
	if got[0].Line != 2 {
		t.Errorf("violation line = %d, want 2", got[0].Line)
	}
}

func TestAnalyzeCollectsAll(t *testing.T) {
	source := "import os\nimport socket\neval('x')\n"
	got := Analyze([]byte(source), false)
	if len(got) != 3 {
		t.Errorf("Analyze = %d violations, want 3: %v", len(got), got)
	}
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("safe script", func(t *testing.T) {
		path := write("safe.py", "import math\nprint(math.pi)\n")
		ok, reason := AnalyzeFile(path, true)
		if !ok {
			t.Errorf("AnalyzeFile = false (%s), want true", reason)
		}
	})

	t.Run("unsafe script", func(t *testing.T) {
		path := write("unsafe.py", "import os\nos.system('ls')\n")
		ok, reason := AnalyzeFile(path, true)
		if ok {
			t.Fatal("AnalyzeFile = true, want false")
		}
		if !strings.Contains(reason, "os") {
			t.Errorf("reason = %q, want mention of os", reason)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		ok, reason := AnalyzeFile(filepath.Join(dir, "nope.py"), true)
		if ok || !strings.Contains(reason, "not found") {
			t.Errorf("AnalyzeFile = %v (%s), want not-found failure", ok, reason)
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := write("script.rb", "puts 'hi'\n")
		ok, reason := AnalyzeFile(path, true)
		if ok || !strings.Contains(reason, "not a Python script") {
			t.Errorf("AnalyzeFile = %v (%s), want extension failure", ok, reason)
		}
	})

	t.Run("too large", func(t *testing.T) {
		path := write("big.py", strings.Repeat("x = 1\n", 20000))
		ok, reason := AnalyzeFile(path, true)
		if ok || !strings.Contains(reason, "too large") {
			t.Errorf("AnalyzeFile = %v (%s), want size failure", ok, reason)
		}
	})
}
