package score

import (
	"regexp"
	"strings"
)

var (
	commentRe     = regexp.MustCompile(`(^|[^\\])%.*`)
	environmentRe = regexp.MustCompile(`\\(begin|end)\{[^}]*\}`)
	commandRe     = regexp.MustCompile(`\\[a-zA-Z@]+\*?(\[[^\]]*\])?`)
	whitespaceRe  = regexp.MustCompile(`[ \t]+`)
)

// ExtractPlainText strips LaTeX markup down to the prose the scoring
// model should see: comments, environment markers and command tokens go
// away, brace groups keep their contents.
func ExtractPlainText(source string) string {
	text := commentRe.ReplaceAllString(source, "$1")
	text = environmentRe.ReplaceAllString(text, " ")
	text = commandRe.ReplaceAllString(text, " ")
	text = strings.NewReplacer("{", " ", "}", " ", "~", " ", `\\`, "\n").Replace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
