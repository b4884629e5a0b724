// Package target derives a binary AR tracking target (.mind file) from a
// composite image by driving an external feature compiler inside a
// throwaway workspace.
package target

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Compiler is the port to the external feature compiler. Production shells
// out to the real CLI; tests substitute a double that writes a canned file.
type Compiler interface {
	Compile(ctx context.Context, inputPath, outputPath string) error
}

// CompilationError reports a compiler that exited non-zero, timed out, or
// produced no output. Output carries captured stdout/stderr for diagnostics.
type CompilationError struct {
	Output string
	Err    error
}

func (e *CompilationError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("target: compilation failed: %v\noutput: %s", e.Err, e.Output)
	}
	return fmt.Sprintf("target: compilation failed: %v", e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// CompilerConfig configures the external compiler invocation.
type CompilerConfig struct {
	// BinaryPath is the compiler executable.
	BinaryPath string `json:"binary_path"`
	// Timeout bounds one compilation. Feature extraction on large images is
	// CPU-bound and slow, so the default is generous.
	Timeout time.Duration `json:"timeout"`
}

// DefaultCompilerConfig returns a config with a 5 minute timeout.
func DefaultCompilerConfig(binaryPath string) CompilerConfig {
	return CompilerConfig{BinaryPath: binaryPath, Timeout: 5 * time.Minute}
}

// ExecCompiler invokes the real compiler CLI. Arguments are passed as argv
// directly, so paths with spaces or shell metacharacters need no quoting.
type ExecCompiler struct {
	config CompilerConfig
}

// NewExecCompiler creates an ExecCompiler.
func NewExecCompiler(config CompilerConfig) (*ExecCompiler, error) {
	if config.BinaryPath == "" {
		return nil, fmt.Errorf("target: compiler binary path is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Minute
	}
	return &ExecCompiler{config: config}, nil
}

// Compile runs the compiler against inputPath, expecting it to write the
// binary target at outputPath. The format it produces is opaque to us; the
// downstream AR viewer requires the exact proprietary layout, so there is no
// fallback encoder here.
func (c *ExecCompiler) Compile(ctx context.Context, inputPath, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.config.BinaryPath, "-i", inputPath, "-o", outputPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &CompilationError{Output: string(out), Err: fmt.Errorf("timed out after %s", c.config.Timeout)}
		}
		return &CompilationError{Output: string(out), Err: err}
	}
	return nil
}
