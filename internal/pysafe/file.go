package pysafe

import (
	"fmt"
	"os"
	"strings"
)

// maxFileSize caps how much script we will read and walk. Larger scripts get
// a human review rather than a multi-second parse on the approval path.
const maxFileSize = 100_000

// AnalyzeFile vets a Python script on disk. It returns ok=false with the
// first violation's reason when the script cannot be auto-approved, and
// ok=false with a file-level reason when the path is not a readable, normal
// Python file.
func AnalyzeFile(path string, allowPrint bool) (ok bool, reason string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Sprintf("script not found: %s", path)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Sprintf("not a regular file: %s", path)
	}
	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, ".py") && !strings.HasSuffix(lower, ".pyw") {
		return false, fmt.Sprintf("not a Python script: %s", path)
	}
	if info.Size() > maxFileSize {
		return false, fmt.Sprintf("script too large to analyze: %s (%d bytes)", path, info.Size())
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Sprintf("cannot read script: %s", path)
	}

	violations := Analyze(source, allowPrint)
	if len(violations) > 0 {
		return false, violations[0].String()
	}
	return true, ""
}
