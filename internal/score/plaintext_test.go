package score

import (
	"strings"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	t.Run("strips commands and environments", func(t *testing.T) {
		source := strings.Join([]string{
			`\documentclass{article}`,
			`\begin{document}`,
			`\section{Experience}`,
			`Senior engineer at Acme.`,
			`\end{document}`,
		}, "\n")

		got := ExtractPlainText(source)
		if strings.Contains(got, `\section`) || strings.Contains(got, `\begin`) {
			t.Errorf("markup survived: %q", got)
		}
		if !strings.Contains(got, "Experience") {
			t.Errorf("brace content lost: %q", got)
		}
		if !strings.Contains(got, "Senior engineer at Acme.") {
			t.Errorf("prose lost: %q", got)
		}
	})

	t.Run("drops comments", func(t *testing.T) {
		got := ExtractPlainText("visible % hidden remark\n")
		if strings.Contains(got, "hidden") {
			t.Errorf("comment survived: %q", got)
		}
		if !strings.Contains(got, "visible") {
			t.Errorf("text lost: %q", got)
		}
	})

	t.Run("escaped percent is not a comment", func(t *testing.T) {
		got := ExtractPlainText(`Grew revenue by 40\% in one year`)
		if !strings.Contains(got, "40") || !strings.Contains(got, "in one year") {
			t.Errorf("escaped percent swallowed text: %q", got)
		}
	})

	t.Run("blank lines collapse", func(t *testing.T) {
		got := ExtractPlainText("one\n\n\n\ntwo")
		if got != "one\ntwo" {
			t.Errorf("got %q, want %q", got, "one\ntwo")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := ExtractPlainText(""); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}
