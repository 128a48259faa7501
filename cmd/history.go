package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// HistoryEntry is one line of the REPL's prompt history, persisted so
// --auto-approve-free interactive sessions get arrow-key recall across
// process restarts the way a shell's .bash_history would.
type HistoryEntry struct {
	Timestamp time.Time `json:"ts"`
	Input     string    `json:"input"`
}

// HistoryManager appends and replays the prompts a user has typed into
// the chat REPL, one JSON line per entry so a truncated write never
// corrupts earlier ones.
type HistoryManager struct {
	path string
	mu   sync.Mutex
}

// NewHistoryManager opens the prompt-history log under
// workspaceRoot/history/input.jsonl, creating the directory if needed.
func NewHistoryManager(workspaceRoot string) (*HistoryManager, error) {
	dir := filepath.Join(workspaceRoot, "history")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &HistoryManager{
		path: filepath.Join(dir, "input.jsonl"),
	}, nil
}

// Load replays every entry in the history log, skipping malformed or
// empty lines, in the order they were appended.
func (h *HistoryManager) Load() ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No history yet
		}
		return nil, err
	}

	var inputs []string
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue // Skip malformed lines
		}
		if entry.Input != "" {
			inputs = append(inputs, entry.Input)
		}
	}
	return inputs, nil
}

// Append records one prompt at the current time, timestamped so the
// log can later be pruned or inspected chronologically.
func (h *HistoryManager) Append(input string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := HistoryEntry{
		Timestamp: time.Now(),
		Input:     input,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
