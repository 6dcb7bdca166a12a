// Package unicode screens raw command text for characters that can make the
// displayed command differ from the executed one. The scan runs before shell
// parsing so smuggled codepoints cannot hide inside quoting the parser
// would otherwise normalize away.
package unicode

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Threat is one suspicious character found in the input.
type Threat struct {
	Category  string // "invalid-utf8", "zero-width", "bidi-override", "tag-char", "control-char", "homoglyph"
	Detail    string
	Position  int // byte offset
	Codepoint string
}

func (t Threat) String() string {
	return fmt.Sprintf("%s %s at byte %d", t.Category, t.Codepoint, t.Position)
}

// Scan inspects a command string and returns every smuggling indicator.
// A nil result means the input is plain, displayable text.
func Scan(input string) []Threat {
	var threats []Threat

	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])
		if r == utf8.RuneError && size == 1 {
			threats = append(threats, Threat{
				Category:  "invalid-utf8",
				Detail:    "invalid UTF-8 byte sequence",
				Position:  i,
				Codepoint: fmt.Sprintf("0x%02X", input[i]),
			})
			i++
			continue
		}
		if t, found := classifyRune(r, i); found {
			threats = append(threats, t)
		}
		i += size
	}
	return threats
}

func classifyRune(r rune, pos int) (Threat, bool) {
	cp := fmt.Sprintf("U+%04X", r)
	threat := func(category, detail string) (Threat, bool) {
		return Threat{Category: category, Detail: detail, Position: pos, Codepoint: cp}, true
	}

	switch {
	case isZeroWidth(r):
		return threat("zero-width", "zero-width character "+cp+" can hide content from display")
	case isBidiControl(r):
		return threat("bidi-override", "directional control "+cp+" can make displayed text differ from executed text")
	case r >= 0xE0001 && r <= 0xE007F:
		return threat("tag-char", "tag character "+cp+" can carry hidden instructions")
	case isUnsafeControl(r):
		return threat("control-char", "control character "+cp+" does not belong in a command")
	}

	if latin, ok := homoglyphs[r]; ok {
		script := "Cyrillic"
		if unicode.Is(unicode.Greek, r) {
			script = "Greek"
		}
		return threat("homoglyph", fmt.Sprintf("%s %s resembles Latin %q", script, cp, latin))
	}
	return Threat{}, false
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', // zero width space
		'\u200C', // zero width non-joiner
		'\u200D', // zero width joiner
		'\uFEFF', // zero width no-break space (BOM)
		'\u2060', // word joiner
		'\u180E', // Mongolian vowel separator
		'\u200E', // left-to-right mark
		'\u200F': // right-to-left mark
		return true
	}
	return false
}

func isBidiControl(r rune) bool {
	switch r {
	case '\u202A', '\u202B', '\u202C', '\u202D', '\u202E', // embedding/override
		'\u2066', '\u2067', '\u2068', '\u2069': // isolates
		return true
	}
	return false
}

// Tab, newline and carriage return are legitimate in multi-line commands;
// every other C0/C1 control plus DEL is not.
func isUnsafeControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r <= 0x1F || r == 0x7F || (r >= 0x80 && r <= 0x9F)
}

// Cyrillic and Greek letters visually confusable with Latin ones. A command
// name spelled with one of these resolves to a different executable than the
// one the reviewer reads.
var homoglyphs = map[rune]rune{
	// Cyrillic
	'а': 'a', 'А': 'A', 'В': 'B', 'с': 'c', 'С': 'C',
	'е': 'e', 'Е': 'E', 'Н': 'H', 'і': 'i', 'І': 'I',
	'К': 'K', 'М': 'M', 'о': 'o', 'О': 'O', 'р': 'p',
	'Р': 'P', 'Т': 'T', 'х': 'x', 'Х': 'X', 'у': 'y', 'У': 'Y',
	// Greek
	'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Η': 'H', 'Ι': 'I',
	'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'ο': 'o',
	'Ρ': 'P', 'Τ': 'T', 'Χ': 'X', 'Υ': 'Y', 'Ζ': 'Z',
}
