package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lox/packdraft/internal/draft"
)

// writeDraftLog archives a completed draft log as pretty-printed JSON under
// dir and returns the written path. The write goes through a temp file and a
// rename on the same filesystem, so readers see either no archive or a
// complete one, never a partial write.
func writeDraftLog(dir string, l *draft.Log) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive dir: %w", err)
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding draft log: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", l.SessionID, time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(dir, name)

	tmpFile, err := os.CreateTemp(dir, name+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", fmt.Errorf("writing draft log: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return "", fmt.Errorf("syncing draft log: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("closing draft log: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("renaming draft log: %w", err)
	}
	return path, nil
}
