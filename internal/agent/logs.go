package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LatestLogFile returns the newest gnb_*.log in dir, by modification time.
// The gNB writes one timestamped log per run, so the newest file is the
// current (or most recent) run.
func LatestLogFile(dir string) (string, error) {
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("log directory not found: %s", dir)
	}
	paths, err := filepath.Glob(filepath.Join(dir, "gnb_*.log"))
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no gNB log files found in %s", dir)
	}

	latest := ""
	var latestMod time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = p
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no readable gNB log files in %s", dir)
	}
	return latest, nil
}

// TailLines returns the last n lines of the file at path.
func TailLines(path string, n int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read log file: %w", err)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return "", nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n"), nil
}
