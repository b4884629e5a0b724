package target

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

const (
	inputFilename  = "composite.png"
	outputFilename = "targets.mind"
)

// Target is the compiled binary tracking target. The bytes are opaque; one
// target corresponds to the composite it was generated from, and callers
// regenerate both together rather than tracking versions here.
type Target struct {
	Data        []byte
	ByteSize    int
	GeneratedAt time.Time
}

// Generator turns composite images into binary tracking targets.
type Generator struct {
	compiler Compiler
	tempRoot string
	logger   zerolog.Logger
}

// NewGenerator creates a Generator. tempRoot may be empty to use the system
// temp directory.
func NewGenerator(compiler Compiler, tempRoot string, logger zerolog.Logger) *Generator {
	return &Generator{compiler: compiler, tempRoot: tempRoot, logger: logger}
}

// Generate writes the composite into a throwaway workspace, runs the
// compiler, and harvests the produced target file. The workspace is removed
// whether or not compilation succeeds. A compiler that exits zero without
// producing output is treated as a failure, not a silent empty result.
func (g *Generator) Generate(ctx context.Context, composite []byte) (Target, error) {
	if len(composite) == 0 {
		return Target{}, &CompilationError{Err: fmt.Errorf("empty composite image")}
	}

	var result Target
	err := withWorkspace(g.tempRoot, g.logger, func(dir string) error {
		inputPath := filepath.Join(dir, inputFilename)
		outputPath := filepath.Join(dir, outputFilename)

		if err := os.WriteFile(inputPath, composite, 0o644); err != nil {
			return fmt.Errorf("target: write composite: %w", err)
		}

		start := time.Now()
		if err := g.compiler.Compile(ctx, inputPath, outputPath); err != nil {
			return err
		}
		g.logger.Debug().Dur("elapsed", time.Since(start)).Msg("compiler finished")

		info, err := os.Stat(outputPath)
		if err != nil {
			return &CompilationError{Err: fmt.Errorf("compiler exited 0 but produced no output: %w", err)}
		}
		if info.Size() == 0 {
			return &CompilationError{Err: fmt.Errorf("compiler produced an empty target file")}
		}

		data, err := os.ReadFile(outputPath)
		if err != nil {
			return &CompilationError{Err: fmt.Errorf("read target file: %w", err)}
		}

		result = Target{
			Data:        data,
			ByteSize:    len(data),
			GeneratedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return Target{}, err
	}
	return result, nil
}
