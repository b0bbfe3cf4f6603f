// Package dotdir manages the .pdfqa/ and ~/.pdfqa directories.
//
// The directory holds config.toml, the persisted vector store under data/,
// uploaded files under uploads/ and the chat history.
package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the pdfqa directory.
	dirName = ".pdfqa"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .pdfqa/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.pdfqa/ dir
//  3. Home ~/.pdfqa/ dir
//
// Returns an empty string when no override is given and neither directory
// exists.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating pdfqa directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, dirName); isDir(local) {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	if homeDir := filepath.Join(home, dirName); isDir(homeDir) {
		return homeDir, nil
	}

	return "", nil
}

// Ensure works like Target but creates ~/.pdfqa/ when nothing was found.
func (m *Manager) Ensure(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir != "" {
		return dir, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	dir = filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating pdfqa directory %s: %w", dir, err)
	}

	return dir, nil
}

// Subdir returns (and creates) a named directory inside the ensured .pdfqa/
// directory, e.g. "data" or "uploads".
func (m *Manager) Subdir(overrideDir, name string) (string, error) {
	if name == "" {
		return "", errors.New("subdirectory name is required")
	}

	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return "", err
	}

	sub := filepath.Join(dir, name)
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", sub, err)
	}

	return sub, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
