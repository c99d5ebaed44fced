package executor

import (
	"fmt"
	"os"

	"github.com/refile/refile/internal/history"
)

// UndoResult reports the outcome of reversing one history entry.
type UndoResult struct {
	EntryID      int64  `json:"entry_id"`
	OriginalPath string `json:"original_path"`
	NewPath      string `json:"new_path"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// UndoEntry reverses the history entry at the given zero-based index.
func (e *Executor) UndoEntry(index int) (*UndoResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, err := e.store.ByIndex(index)
	if err != nil {
		return nil, err
	}
	res := e.undoOne(*entry)
	return &res, nil
}

// UndoSession reverses every entry recorded under the given session id.
// Entries fail or succeed independently; an already-undone entry is
// reported as a no-op failure.
func (e *Executor) UndoSession(sessionID string) ([]UndoResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries, err := e.store.BySession(sessionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, history.ErrNotFound)
	}

	results := make([]UndoResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, e.undoOne(entry))
	}
	return results, nil
}

// undoOne moves a renamed file back to its original path and flips the
// entry's undone flag. Caller holds e.mu.
func (e *Executor) undoOne(entry history.Entry) UndoResult {
	res := UndoResult{
		EntryID:      entry.ID,
		OriginalPath: entry.OriginalPath,
		NewPath:      entry.NewPath,
	}

	// Undone is terminal; a second undo must not touch the filesystem.
	if entry.Undone {
		res.Error = "already undone"
		return res
	}

	if _, err := os.Lstat(entry.NewPath); err != nil {
		res.Error = fmt.Sprintf("renamed file missing: %v", err)
		return res
	}
	if _, err := os.Lstat(entry.OriginalPath); err == nil {
		res.Error = fmt.Sprintf("original path occupied: %s", entry.OriginalPath)
		return res
	}

	if err := os.Rename(entry.NewPath, entry.OriginalPath); err != nil {
		res.Error = fmt.Sprintf("rename: %v", err)
		return res
	}

	if err := e.store.MarkUndone(entry.ID); err != nil {
		// The file moved back but the log still shows it renamed.
		// Surface the inconsistency rather than hide it.
		res.Error = fmt.Sprintf("file restored but log update failed: %v", err)
		return res
	}

	res.Success = true
	return res
}
