package target

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/phygital-app/arpipeline/internal/utils"
)

// withWorkspace creates a uniquely named directory under root, runs fn with
// it, and removes it on every exit path. The uuid suffix keeps concurrent
// invocations collision-free even within the same millisecond. Cleanup
// failures are logged and never replace fn's result.
func withWorkspace(root string, logger zerolog.Logger, fn func(dir string) error) error {
	if root == "" {
		root = os.TempDir()
	}
	if err := utils.EnsureDir(root); err != nil {
		return fmt.Errorf("target: ensure temp root: %w", err)
	}

	dir := filepath.Join(root, "phygital-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return fmt.Errorf("target: create workspace: %w", err)
	}

	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn().Str("dir", dir).Err(err).Msg("failed to clean up workspace")
		}
	}()

	return fn(dir)
}
