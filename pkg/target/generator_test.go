package target

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// fakeCompiler is a test double standing in for the external CLI.
type fakeCompiler struct {
	mu      sync.Mutex
	calls   int
	fail    bool
	noWrite bool
	output  []byte
}

func (f *fakeCompiler) Compile(ctx context.Context, inputPath, outputPath string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if _, err := os.Stat(inputPath); err != nil {
		return &CompilationError{Err: fmt.Errorf("input missing: %w", err)}
	}
	if f.fail {
		return &CompilationError{Output: "fatal: feature extraction failed", Err: fmt.Errorf("exit status 1")}
	}
	if f.noWrite {
		return nil
	}
	out := f.output
	if out == nil {
		out = []byte{0xDE, 0xAD, 0xBE, 0xEF}
	}
	return os.WriteFile(outputPath, out, 0o644)
}

func listEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list temp root: %v", err)
	}
	return entries
}

func TestGenerateHappyPath(t *testing.T) {
	root := t.TempDir()
	g := NewGenerator(&fakeCompiler{output: []byte("mind-binary")}, root, zerolog.Nop())

	target, err := g.Generate(context.Background(), []byte("composite-png"))
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if string(target.Data) != "mind-binary" {
		t.Errorf("unexpected target data: %q", target.Data)
	}
	if target.ByteSize != len("mind-binary") {
		t.Errorf("unexpected byte size: %d", target.ByteSize)
	}
	if target.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}
	if got := listEntries(t, root); len(got) != 0 {
		t.Errorf("workspace leaked after success: %d entries", len(got))
	}
}

func TestGenerateCleansUpOnCompilerFailure(t *testing.T) {
	root := t.TempDir()
	g := NewGenerator(&fakeCompiler{fail: true}, root, zerolog.Nop())

	_, err := g.Generate(context.Background(), []byte("composite-png"))
	if err == nil {
		t.Fatal("expected compilation error")
	}
	var compErr *CompilationError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected CompilationError, got %T: %v", err, err)
	}
	if compErr.Output == "" {
		t.Error("expected captured compiler output in error")
	}
	if got := listEntries(t, root); len(got) != 0 {
		t.Errorf("workspace leaked after failure: %d entries", len(got))
	}
}

func TestGenerateRejectsMissingOutput(t *testing.T) {
	root := t.TempDir()
	g := NewGenerator(&fakeCompiler{noWrite: true}, root, zerolog.Nop())

	_, err := g.Generate(context.Background(), []byte("composite-png"))
	if err == nil {
		t.Fatal("expected error when compiler produces no output")
	}
	var compErr *CompilationError
	if !errors.As(err, &compErr) {
		t.Fatalf("expected CompilationError, got %T: %v", err, err)
	}
	if got := listEntries(t, root); len(got) != 0 {
		t.Errorf("workspace leaked: %d entries", len(got))
	}
}

func TestGenerateRejectsEmptyOutput(t *testing.T) {
	root := t.TempDir()
	g := NewGenerator(&fakeCompiler{output: []byte{}}, root, zerolog.Nop())

	if _, err := g.Generate(context.Background(), []byte("composite-png")); err == nil {
		t.Fatal("expected error for empty target file")
	}
}

func TestGenerateRejectsEmptyComposite(t *testing.T) {
	g := NewGenerator(&fakeCompiler{}, t.TempDir(), zerolog.Nop())
	if _, err := g.Generate(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty composite")
	}
}

func TestGenerateConcurrentWorkspacesAreDisjoint(t *testing.T) {
	root := t.TempDir()
	compiler := &fakeCompiler{output: []byte("mind")}
	g := NewGenerator(compiler, root, zerolog.Nop())

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Generate(context.Background(), []byte("composite"))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("concurrent call %d failed: %v", i, err)
		}
	}
	if compiler.calls != n {
		t.Errorf("expected %d compiler calls, got %d", n, compiler.calls)
	}
	if got := listEntries(t, root); len(got) != 0 {
		t.Errorf("workspaces leaked: %d entries", len(got))
	}
}

func TestNewExecCompilerValidation(t *testing.T) {
	if _, err := NewExecCompiler(CompilerConfig{}); err == nil {
		t.Error("expected error for missing binary path")
	}
	c, err := NewExecCompiler(DefaultCompilerConfig("/usr/local/bin/mind-compiler"))
	if err != nil {
		t.Fatalf("NewExecCompiler failed: %v", err)
	}
	if c.config.Timeout <= 0 {
		t.Error("expected a positive default timeout")
	}
}

func TestExecCompilerMissingBinary(t *testing.T) {
	c, err := NewExecCompiler(DefaultCompilerConfig("/nonexistent/compiler-binary"))
	if err != nil {
		t.Fatalf("NewExecCompiler failed: %v", err)
	}

	dir := t.TempDir()
	err = c.Compile(context.Background(), dir+"/in.png", dir+"/out.mind")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var compErr *CompilationError
	if !errors.As(err, &compErr) {
		t.Errorf("expected CompilationError, got %T: %v", err, err)
	}
}
