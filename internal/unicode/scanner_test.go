package unicode

import "testing"

func TestScanCleanASCII(t *testing.T) {
	if threats := Scan("ls -la /tmp"); threats != nil {
		t.Errorf("expected no threats for ASCII command, got %v", threats)
	}
}

func TestScanCleanMultiline(t *testing.T) {
	if threats := Scan("echo one\n\techo two\r\n"); threats != nil {
		t.Errorf("tab/newline/CR should be allowed, got %v", threats)
	}
}

func TestScanCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"zero-width space", "ls\u200B -la", "zero-width"},
		{"zero-width joiner", "rm\u200D -rf /", "zero-width"},
		{"BOM", "\uFEFFecho hello", "zero-width"},
		{"word joiner", "cat\u2060 file", "zero-width"},
		{"rtl override", "echo \u202Egood.txt", "bidi-override"},
		{"ltr isolate", "echo \u2066x\u2069", "bidi-override"},
		{"tag character", "ls \U000E0041", "tag-char"},
		{"escape control", "echo \x1b[31m", "control-char"},
		{"null byte", "echo a\x00b", "control-char"},
		{"cyrillic homoglyph", "еcho hi", "homoglyph"},
		{"greek homoglyph", "ΟK", "homoglyph"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threats := Scan(tt.input)
			if len(threats) == 0 {
				t.Fatalf("Scan(%q) found nothing, want category %q", tt.input, tt.want)
			}
			if threats[0].Category != tt.want {
				t.Errorf("category = %q, want %q", threats[0].Category, tt.want)
			}
		})
	}
}

func TestScanInvalidUTF8(t *testing.T) {
	threats := Scan("echo \xff\xfe")
	if len(threats) != 2 {
		t.Fatalf("got %d threats, want 2: %v", len(threats), threats)
	}
	for _, th := range threats {
		if th.Category != "invalid-utf8" {
			t.Errorf("category = %q, want invalid-utf8", th.Category)
		}
	}
}

func TestScanReportsPosition(t *testing.T) {
	threats := Scan("ab\u200Bcd")
	if len(threats) != 1 {
		t.Fatalf("got %v, want one threat", threats)
	}
	if threats[0].Position != 2 {
		t.Errorf("position = %d, want 2", threats[0].Position)
	}
	if threats[0].Codepoint != "U+200B" {
		t.Errorf("codepoint = %q, want U+200B", threats[0].Codepoint)
	}
}

func TestScanMultipleThreats(t *testing.T) {
	threats := Scan("a\u200Bb\u202Ec")
	if len(threats) != 2 {
		t.Fatalf("got %d threats, want 2: %v", len(threats), threats)
	}
	if threats[0].Category != "zero-width" || threats[1].Category != "bidi-override" {
		t.Errorf("categories = %q, %q", threats[0].Category, threats[1].Category)
	}
}
