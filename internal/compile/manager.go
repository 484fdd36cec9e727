package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"texforge/internal/tex"
)

// Key is the capability token used to fetch a previously produced
// artifact. It is a random UUID and shares nothing with identity
// session tokens: holding a Key grants access to exactly one artifact
// and nothing else.
type Key string

// Result is a successful compilation: the artifact bytes plus the key
// under which the artifact stays retrievable until the sweeper removes
// its working directory.
type Result struct {
	Key      Key
	Artifact []byte
}

// Manager orchestrates compile sessions. Each call gets a fresh
// isolated working directory under root; nothing is shared between
// concurrent compilations.
type Manager struct {
	root     string
	compiler Compiler
	timeout  time.Duration
	keys     KeyGenerator
	logger   tex.Logger
}

// NewManager creates a Manager that materializes working directories
// under root. A timeout of zero disables the subprocess deadline.
func NewManager(root string, compiler Compiler, timeout time.Duration, keys KeyGenerator, logger tex.Logger) *Manager {
	return &Manager{
		root:     root,
		compiler: compiler,
		timeout:  timeout,
		keys:     keys,
		logger:   logger,
	}
}

// Compile runs one compilation attempt for the given source text.
//
// On success the artifact bytes and retrieval key are returned and the
// artifact stays on disk for later Retrieve calls. When the compiler
// produces no artifact, the returned error is a *Failure with parsed
// diagnostics. Subprocess launch problems and filesystem errors are
// plain errors with no diagnostics attached.
func (m *Manager) Compile(ctx context.Context, source string) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: source text is required", tex.ErrValidation)
	}

	key := m.keys.New()
	dir := filepath.Join(m.root, string(key))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating working directory: %w", err)
	}

	source = StripDuplicateDocumentClass(source)
	if err := os.WriteFile(filepath.Join(dir, SourceFile), []byte(source), 0644); err != nil {
		return nil, fmt.Errorf("writing source file: %w", err)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	if err := m.compiler.Run(ctx, dir); err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("compiler timed out after %s: %w", m.timeout, ctx.Err())
		case errors.As(err, &exitErr):
			// The compiler may emit a partial artifact and a log even
			// when it exits nonzero; keep probing.
			m.logger.Debug("compiler exited nonzero", "key", key, "error", err)
		default:
			return nil, fmt.Errorf("launching compiler: %w", err)
		}
	}

	artifact, err := os.ReadFile(filepath.Join(dir, ArtifactFile))
	if err == nil {
		m.logger.Info("compile succeeded", "key", key, "size", len(artifact))
		return &Result{Key: key, Artifact: artifact}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	logText, err := os.ReadFile(filepath.Join(dir, LogFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading compiler log: %w", err)
	}

	failure := ParseLog(string(logText))
	m.logger.Info("compile failed", "key", key, "summary", failure.Summary)
	return nil, failure
}

// Retrieve returns the artifact bytes for a previous compilation. The
// key itself is the capability; there is no ownership check. A swept or
// unknown key is ErrNotFound, including when the sweeper removes the
// directory concurrently with this call.
func (m *Manager) Retrieve(key Key) ([]byte, error) {
	if !validKey(key) {
		return nil, tex.ErrNotFound
	}
	artifact, err := os.ReadFile(m.ArtifactPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tex.ErrNotFound
		}
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return artifact, nil
}

// ArtifactPath returns the on-disk location of a session's artifact.
func (m *Manager) ArtifactPath(key Key) string {
	return filepath.Join(m.root, string(key), ArtifactFile)
}

// validKey rejects anything that could escape the working-directory
// root when joined into a path.
func validKey(key Key) bool {
	s := string(key)
	return s != "" && !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}
