package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	historyFile = "history.json"

	// MaxHistoryEntries is the number of exchanges kept on disk.
	MaxHistoryEntries = 50
)

// HistoryEntry is one question and the answer it received.
type HistoryEntry struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	AskedAt  time.Time `json:"asked_at"`
}

// LoadHistory loads the chat history from a target .pdfqa/history.json.
// Returns nil, nil if no history exists.
func (m *Manager) LoadHistory(overrideDir string) ([]HistoryEntry, error) {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, historyFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}

	return entries, nil
}

// AppendHistory adds entries to the persisted history, keeping only the
// newest MaxHistoryEntries.
func (m *Manager) AppendHistory(overrideDir string, entries ...HistoryEntry) error {
	existing, err := m.LoadHistory(overrideDir)
	if err != nil {
		return err
	}

	all := append(existing, entries...)
	if len(all) > MaxHistoryEntries {
		all = all[len(all)-MaxHistoryEntries:]
	}

	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, historyFile), data, 0o600); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}

	return nil
}

// ClearHistory removes the history file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearHistory(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return err
	}

	if err := os.Remove(filepath.Join(dir, historyFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing history: %w", err)
	}

	return nil
}
