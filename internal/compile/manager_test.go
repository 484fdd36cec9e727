package compile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"texforge/internal/tex"
)

// fakeCompiler writes the configured artifact and/or log into the
// working directory and returns the configured error.
type fakeCompiler struct {
	artifact []byte
	log      string
	err      error

	mu      sync.Mutex
	workDir string
	calls   int
}

func (c *fakeCompiler) Run(_ context.Context, workDir string) error {
	c.mu.Lock()
	c.workDir = workDir
	c.calls++
	c.mu.Unlock()

	if c.artifact != nil {
		if err := os.WriteFile(filepath.Join(workDir, ArtifactFile), c.artifact, 0644); err != nil {
			return err
		}
	}
	if c.log != "" {
		if err := os.WriteFile(filepath.Join(workDir, LogFile), []byte(c.log), 0644); err != nil {
			return err
		}
	}
	return c.err
}

// exitError fabricates an *exec.ExitError the way a real nonzero exit
// surfaces from cmd.Run.
func exitError(t *testing.T) error {
	t.Helper()
	cmd := exec.Command("false")
	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Skipf("cannot produce ExitError on this system: %v", err)
	}
	return err
}

// stubKeys returns sequential keys: "key-1", "key-2", etc.
type stubKeys struct {
	mu      sync.Mutex
	counter int
}

func (g *stubKeys) New() Key {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return Key(fmt.Sprintf("key-%d", g.counter))
}

func newTestManager(t *testing.T, compiler Compiler) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), compiler, 0, &stubKeys{}, tex.NewNopLogger())
}

func TestManager_Compile(t *testing.T) {
	t.Run("success returns artifact and key", func(t *testing.T) {
		fake := &fakeCompiler{artifact: []byte("%PDF-1.5 fake")}
		m := newTestManager(t, fake)

		result, err := m.Compile(context.Background(), `\documentclass{article}`)
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if string(result.Artifact) != "%PDF-1.5 fake" {
			t.Errorf("Artifact = %q", result.Artifact)
		}
		if result.Key == "" {
			t.Error("Key is empty")
		}
	})

	t.Run("rejects blank source", func(t *testing.T) {
		m := newTestManager(t, &fakeCompiler{})

		_, err := m.Compile(context.Background(), "   \n\t")
		if !errors.Is(err, tex.ErrValidation) {
			t.Fatalf("Compile() error = %v, want ErrValidation", err)
		}
	})

	t.Run("source is sanitized before writing", func(t *testing.T) {
		fake := &fakeCompiler{artifact: []byte("pdf")}
		m := newTestManager(t, fake)

		source := "\\documentclass{article}\n\\documentclass{report}\nbody"
		if _, err := m.Compile(context.Background(), source); err != nil {
			t.Fatalf("Compile() error = %v", err)
		}

		written, err := os.ReadFile(filepath.Join(fake.workDir, SourceFile))
		if err != nil {
			t.Fatalf("reading written source: %v", err)
		}
		if got := string(written); got != "\\documentclass{article}\nbody" {
			t.Errorf("written source = %q", got)
		}
	})

	t.Run("nonzero exit with artifact is success", func(t *testing.T) {
		fake := &fakeCompiler{
			artifact: []byte("partial pdf"),
			log:      "! Overfull hbox somewhere.",
			err:      exitError(t),
		}
		m := newTestManager(t, fake)

		result, err := m.Compile(context.Background(), "src")
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if string(result.Artifact) != "partial pdf" {
			t.Errorf("Artifact = %q", result.Artifact)
		}
	})

	t.Run("nonzero exit without artifact returns parsed failure", func(t *testing.T) {
		fake := &fakeCompiler{
			log: "! Undefined control sequence.\nl.3 \\nope\n",
			err: exitError(t),
		}
		m := newTestManager(t, fake)

		_, err := m.Compile(context.Background(), "src")
		var failure *Failure
		if !errors.As(err, &failure) {
			t.Fatalf("Compile() error = %v, want *Failure", err)
		}
		if failure.Summary != "! Undefined control sequence." {
			t.Errorf("Summary = %q", failure.Summary)
		}
		if failure.Hint != FixedHint {
			t.Errorf("Hint = %q", failure.Hint)
		}
	})

	t.Run("no artifact and no log still fails with diagnostics", func(t *testing.T) {
		fake := &fakeCompiler{err: exitError(t)}
		m := newTestManager(t, fake)

		_, err := m.Compile(context.Background(), "src")
		var failure *Failure
		if !errors.As(err, &failure) {
			t.Fatalf("Compile() error = %v, want *Failure", err)
		}
		if len(failure.Details) == 0 {
			t.Error("Details is empty")
		}
	})

	t.Run("launch failure is not a Failure", func(t *testing.T) {
		fake := &fakeCompiler{err: errors.New("executable not found")}
		m := newTestManager(t, fake)

		_, err := m.Compile(context.Background(), "src")
		if err == nil {
			t.Fatal("Compile() expected error")
		}
		var failure *Failure
		if errors.As(err, &failure) {
			t.Fatalf("Compile() error = %v, want plain error", err)
		}
	})

	t.Run("concurrent compiles use isolated directories", func(t *testing.T) {
		m := newTestManager(t, &fakeCompiler{artifact: []byte("pdf")})

		const n = 5
		keys := make(chan Key, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := m.Compile(context.Background(), "src")
				if err != nil {
					t.Errorf("Compile() error = %v", err)
					return
				}
				keys <- result.Key
			}()
		}
		wg.Wait()
		close(keys)

		seen := make(map[Key]bool)
		for k := range keys {
			if seen[k] {
				t.Fatalf("duplicate key %q", k)
			}
			seen[k] = true
		}
	})
}

func TestManager_CompileTimeout(t *testing.T) {
	m := NewManager(t.TempDir(), compilerFunc(func(ctx context.Context, _ string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	}), 50*time.Millisecond, &stubKeys{}, tex.NewNopLogger())

	start := time.Now()
	_, err := m.Compile(context.Background(), "src")
	if err == nil {
		t.Fatal("Compile() expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Compile() error = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Compile() took %v, deadline not enforced", time.Since(start))
	}
}

type compilerFunc func(ctx context.Context, workDir string) error

func (f compilerFunc) Run(ctx context.Context, workDir string) error { return f(ctx, workDir) }

func TestManager_Retrieve(t *testing.T) {
	t.Run("returns compiled artifact", func(t *testing.T) {
		m := newTestManager(t, &fakeCompiler{artifact: []byte("pdf bytes")})

		result, err := m.Compile(context.Background(), "src")
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}

		got, err := m.Retrieve(result.Key)
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if string(got) != "pdf bytes" {
			t.Errorf("artifact = %q", got)
		}
	})

	t.Run("unknown key is not found", func(t *testing.T) {
		m := newTestManager(t, &fakeCompiler{})

		_, err := m.Retrieve("never-compiled")
		if !errors.Is(err, tex.ErrNotFound) {
			t.Fatalf("Retrieve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("swept key is not found", func(t *testing.T) {
		root := t.TempDir()
		m := NewManager(root, &fakeCompiler{artifact: []byte("pdf")}, 0, &stubKeys{}, tex.NewNopLogger())

		result, err := m.Compile(context.Background(), "src")
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		if err := os.RemoveAll(filepath.Join(root, string(result.Key))); err != nil {
			t.Fatalf("removing session dir: %v", err)
		}

		_, err = m.Retrieve(result.Key)
		if !errors.Is(err, tex.ErrNotFound) {
			t.Fatalf("Retrieve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("path traversal keys are rejected", func(t *testing.T) {
		m := newTestManager(t, &fakeCompiler{})

		for _, key := range []Key{"", "../etc", "a/b", `a\b`, ".."} {
			if _, err := m.Retrieve(key); !errors.Is(err, tex.ErrNotFound) {
				t.Errorf("Retrieve(%q) error = %v, want ErrNotFound", key, err)
			}
		}
	})
}
