package compile

import "strings"

// StripDuplicateDocumentClass removes every \documentclass declaration
// after the first one. The compiler rejects a document with more than
// one, and accumulated or pasted fragments routinely carry duplicates;
// keeping the first matches what the author most recently meant to build.
func StripDuplicateDocumentClass(source string) string {
	lines := strings.Split(source, "\n")
	seen := false
	out := lines[:0]
	for _, line := range lines {
		if isDocumentClassLine(line) {
			if seen {
				continue
			}
			seen = true
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isDocumentClassLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, `\documentclass`)
}
