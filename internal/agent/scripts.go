package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// RunScript executes a helper script and returns its combined output. The
// context bounds the run; a cancelled context kills the process. Whatever
// output was produced is returned alongside a failure so callers can log it.
func RunScript(ctx context.Context, path string, args ...string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("script not found: %s", path)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return string(out), fmt.Errorf("script %s: %w", filepath.Base(path), ctxErr)
		}
		return string(out), fmt.Errorf("script %s failed: %w", filepath.Base(path), err)
	}
	return string(out), nil
}
