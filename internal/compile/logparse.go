package compile

import (
	"regexp"
	"strings"
)

// Failure is the structured result of a compilation that produced no
// artifact. It is recoverable: the caller fixes the source and resubmits.
type Failure struct {
	Summary string   `json:"error"`
	Details []string `json:"details"`
	Hint    string   `json:"hint"`
}

func (f *Failure) Error() string { return f.Summary }

// FixedHint is attached to every Failure regardless of which
// diagnostics matched.
const FixedHint = `Common issues: Missing packages (use \usepackage), undefined commands (\fa* icons), or invalid LaTeX syntax`

const (
	genericSummary = "Failed to compile LaTeX"
	genericDetail  = "Check LaTeX syntax and package dependencies"

	maxPrimaryErrors   = 5
	maxSecondaryErrors = 3
)

var (
	lineNumberRe    = regexp.MustCompile(`^l\.\d+`)
	fileNotFoundRe  = regexp.MustCompile("File `[^`]+' not found")
	packageErrorRe  = regexp.MustCompile(`Package.*Error:.*`)
	undefinedCtrlRe = regexp.MustCompile(`Undefined control sequence`)
)

// ParseLog extracts diagnostics from a LaTeX compiler log.
//
// Primary errors are blocks starting with a "!" line and running until
// the next line beginning with "!", "Type ", "L.", "(" or end of log;
// the detail kept for each block is its first line, capped at 5 blocks.
// Secondary patterns follow, capped at 3 matches each: undefined
// control sequence blocks (through the next l.<n> reference), missing
// file lines, and package error lines.
func ParseLog(log string) *Failure {
	lines := strings.Split(log, "\n")

	var details []string
	summary := genericSummary

	primaries := primaryErrors(lines)
	if len(primaries) > 0 {
		details = append(details, primaries...)
		summary = primaries[0]
	}

	details = append(details, undefinedControlSequences(lines)...)
	details = append(details, fileNotFoundRe.FindAllString(log, maxSecondaryErrors)...)
	details = append(details, packageErrorRe.FindAllString(log, maxSecondaryErrors)...)

	if len(details) == 0 {
		details = []string{genericDetail}
	}

	return &Failure{
		Summary: summary,
		Details: details,
		Hint:    FixedHint,
	}
}

// primaryErrors returns the first line of each "!" error block.
func primaryErrors(lines []string) []string {
	var out []string
	inBlock := false
	for _, line := range lines {
		if strings.HasPrefix(line, "!") {
			if len(out) == maxPrimaryErrors {
				break
			}
			out = append(out, strings.TrimSpace(line))
			inBlock = true
			continue
		}
		if inBlock && isBlockTerminator(line) {
			inBlock = false
		}
	}
	return out
}

func isBlockTerminator(line string) bool {
	return strings.HasPrefix(line, "Type ") ||
		strings.HasPrefix(line, "L.") ||
		strings.HasPrefix(line, "(")
}

// undefinedControlSequences collects "Undefined control sequence" blocks
// through the line-number reference that closes them.
func undefinedControlSequences(lines []string) []string {
	var out []string
	var block []string
	collecting := false
	for _, line := range lines {
		if !collecting {
			if undefinedCtrlRe.MatchString(line) {
				collecting = true
				block = []string{strings.TrimSpace(line)}
			}
			continue
		}
		block = append(block, strings.TrimSpace(line))
		if lineNumberRe.MatchString(line) {
			out = append(out, strings.Join(block, "\n"))
			collecting = false
			if len(out) == maxSecondaryErrors {
				break
			}
		}
	}
	return out
}
