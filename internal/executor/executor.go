// Package executor applies approved rename plans to the filesystem,
// records sessions in the history store, and reverses them on request.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/refile/refile/internal/history"
	"github.com/refile/refile/internal/metadata"
)

// librarySyncTimeout bounds each fire-and-forget library notification.
const librarySyncTimeout = 15 * time.Second

// LibrarySync is the optional external collaborator notified after a
// confident rename. Failures are swallowed.
type LibrarySync interface {
	UpdateAttachment(ctx context.Context, itemKey, newFilename string) error
}

// Request is one approved rename: the plan's proposed name, possibly
// edited by the user.
type Request struct {
	OriginalPath string          `json:"original_path"`
	NewName      string          `json:"new_name"`
	Source       string          `json:"source"`
	Metadata     metadata.Record `json:"metadata"`
}

// Result reports the outcome for one file.
type Result struct {
	OriginalPath string `json:"original_path"`
	NewPath      string `json:"new_path,omitempty"`
	Success      bool   `json:"success"`
	NoOp         bool   `json:"no_op,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BatchResult reports an executed batch. Failed renames never abort
// the batch and are never rolled back.
type BatchResult struct {
	SessionID string   `json:"session_id"`
	Results   []Result `json:"results"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
}

// Executor serializes rename execution and undo against the shared
// filesystem state and history log.
type Executor struct {
	mu     sync.Mutex
	store  *history.Store
	sync   LibrarySync
	logger *slog.Logger

	pending sync.WaitGroup
}

// Option configures an Executor.
type Option func(*Executor)

// WithLibrarySync attaches the optional library-sync collaborator.
func WithLibrarySync(ls LibrarySync) Option {
	return func(e *Executor) {
		e.sync = ls
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New creates an Executor backed by the given history store.
func New(store *history.Store, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute applies the requests in order. Each file succeeds or fails
// independently; successes are recorded as a new session and the
// session id is returned with per-file results.
func (e *Executor) Execute(ctx context.Context, requests []Request) (*BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	batch := &BatchResult{
		SessionID: uuid.NewString(),
		Results:   make([]Result, 0, len(requests)),
	}

	var entries []history.Entry
	now := time.Now().UTC()

	for _, req := range requests {
		res := e.renameOne(req)
		batch.Results = append(batch.Results, res)
		if !res.Success {
			batch.Failed++
			continue
		}
		batch.Succeeded++

		// A same-name no-op leaves no history entry to undo.
		if res.NoOp {
			continue
		}
		entries = append(entries, history.Entry{
			SessionID:      batch.SessionID,
			OriginalPath:   req.OriginalPath,
			NewPath:        res.NewPath,
			MetadataSource: req.Source,
			Timestamp:      now,
		})
		e.notifyLibrarySync(req.Metadata, req.NewName)
	}

	if err := e.store.AppendSession(batch.SessionID, entries); err != nil {
		return nil, fmt.Errorf("recording session: %w", err)
	}
	return batch, nil
}

// renameOne performs a single rename and classifies its outcome.
func (e *Executor) renameOne(req Request) Result {
	res := Result{OriginalPath: req.OriginalPath}

	newName := strings.TrimSpace(req.NewName)
	if newName == "" {
		res.Error = "empty new name"
		return res
	}
	if strings.ContainsAny(newName, `/\`) {
		res.Error = fmt.Sprintf("new name %q must not contain path separators", newName)
		return res
	}

	info, err := os.Lstat(req.OriginalPath)
	if err != nil {
		res.Error = fmt.Sprintf("source file: %v", err)
		return res
	}

	newPath := filepath.Join(filepath.Dir(req.OriginalPath), newName)
	res.NewPath = newPath

	// Renaming a file to its own current name succeeds without
	// touching the filesystem.
	if newPath == req.OriginalPath {
		res.Success = true
		res.NoOp = true
		return res
	}

	if destInfo, err := os.Lstat(newPath); err == nil {
		if !os.SameFile(info, destInfo) {
			res.Error = fmt.Sprintf("destination already exists: %s", newPath)
			return res
		}
		// Same file reached under a different name (case-insensitive
		// filesystems); treat like a plain rename.
	}

	if err := os.Rename(req.OriginalPath, newPath); err != nil {
		res.Error = fmt.Sprintf("rename: %v", err)
		return res
	}

	res.Success = true
	return res
}

// notifyLibrarySync pushes the new filename to the external library in
// the background. Best-effort: errors are logged and dropped.
func (e *Executor) notifyLibrarySync(rec metadata.Record, newName string) {
	if e.sync == nil || rec.ZoteroKey == "" {
		return
	}

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), librarySyncTimeout)
		defer cancel()
		if err := e.sync.UpdateAttachment(ctx, rec.ZoteroKey, newName); err != nil {
			e.logger.Warn("library sync failed",
				slog.String("item", rec.ZoteroKey),
				slog.String("error", err.Error()))
		}
	}()
}

// Flush waits for in-flight library-sync notifications. Used on
// shutdown and in tests.
func (e *Executor) Flush() {
	e.pending.Wait()
}
