package compile

import (
	"context"
	"os/exec"

	"github.com/google/uuid"
)

// Canonical file names inside a compile session's working directory.
const (
	SourceFile   = "document.tex"
	ArtifactFile = "document.pdf"
	LogFile      = "document.log"
)

// Compiler runs the external LaTeX toolchain against a working directory
// containing SourceFile. A nonzero exit is returned as an *exec.ExitError
// and is not fatal on its own: the toolchain may emit a partial artifact
// and a log despite failing.
type Compiler interface {
	Run(ctx context.Context, workDir string) error
}

// PDFLaTeX invokes a pdflatex-compatible binary, non-interactive and
// halting on the first error.
type PDFLaTeX struct {
	Command string // e.g. "pdflatex"
}

func (c PDFLaTeX) Run(ctx context.Context, workDir string) error {
	cmd := exec.CommandContext(ctx, c.Command, "-interaction=nonstopmode", "-halt-on-error", SourceFile)
	cmd.Dir = workDir
	return cmd.Run()
}

// KeyGenerator abstracts retrieval key generation so tests are deterministic.
type KeyGenerator interface {
	New() Key
}

// UUIDKeyGenerator produces random UUID keys; collisions are not a
// practical concern within or across processes.
type UUIDKeyGenerator struct{}

func (UUIDKeyGenerator) New() Key { return Key(uuid.New().String()) }
