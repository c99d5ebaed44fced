package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/refile/refile/internal/config"
	"github.com/refile/refile/internal/executor"
	"github.com/refile/refile/internal/filename"
	"github.com/refile/refile/internal/history"
	"github.com/refile/refile/internal/scan"
)

// Scanner plans renames for a directory.
type Scanner interface {
	Scan(ctx context.Context, dir string) ([]scan.Plan, error)
}

// ScannerFactory builds a Scanner for the given filename template.
type ScannerFactory func(template string) Scanner

// RenameExecutor applies and reverses renames.
type RenameExecutor interface {
	Execute(ctx context.Context, requests []executor.Request) (*executor.BatchResult, error)
	UndoEntry(index int) (*executor.UndoResult, error)
	UndoSession(sessionID string) ([]executor.UndoResult, error)
}

// HistoryReader lists the rename log.
type HistoryReader interface {
	List() ([]history.Entry, error)
}

// Handler holds API route handlers.
type Handler struct {
	newScanner ScannerFactory
	exec       RenameExecutor
	log        HistoryReader
	dataDir    string
}

// NewHandler creates a new Handler. dataDir locates settings.json.
func NewHandler(newScanner ScannerFactory, exec RenameExecutor, log HistoryReader, dataDir string) *Handler {
	return &Handler{
		newScanner: newScanner,
		exec:       exec,
		log:        log,
		dataDir:    dataDir,
	}
}

// Scan handles POST /api/scan.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	template := req.Template
	if template == "" {
		template = h.activeTemplate()
	}

	plans, err := h.newScanner(template).Scan(r.Context(), req.Directory)
	if err != nil {
		slog.Error("scan failed",
			slog.String("directory", req.Directory),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("scan failed"))
		return
	}
	if plans == nil {
		plans = []scan.Plan{}
	}
	writeJSON(w, http.StatusOK, ScanResponse{Files: plans, Count: len(plans)})
}

// Execute handles POST /api/execute.
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	batch, err := h.exec.Execute(r.Context(), req.Files)
	if err != nil {
		slog.Error("execute failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("execute failed"))
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// Undo handles POST /api/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	var req UndoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var (
		results []executor.UndoResult
		err     error
	)
	if req.Index != nil {
		var res *executor.UndoResult
		res, err = h.exec.UndoEntry(*req.Index)
		if res != nil {
			results = []executor.UndoResult{*res}
		}
	} else {
		results, err = h.exec.UndoSession(req.SessionID)
	}
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		slog.Error("undo failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("undo failed"))
		return
	}
	if results == nil {
		results = []executor.UndoResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// History handles GET /api/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.log.List()
	if err != nil {
		slog.Error("history failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := config.LoadSettings(h.dataDir)
	if err != nil {
		slog.Error("load settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles POST /api/settings. Unset fields keep their
// stored values.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update config.Settings
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := config.ValidateLibraryType(update.ZoteroLibraryType); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if update.Template == "custom" {
		if err := config.ValidateTemplate(update.CustomTemplate); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}

	settings, err := config.LoadSettings(h.dataDir)
	if err != nil {
		slog.Error("load settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	settings.Merge(update)
	if err := settings.Save(h.dataDir); err != nil {
		slog.Error("save settings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Templates handles GET /api/templates.
func (h *Handler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TemplatesResponse{
		Presets: filename.Presets,
		Default: filename.DefaultPreset,
	})
}

// activeTemplate reads the configured template, falling back to the
// default preset on any settings problem.
func (h *Handler) activeTemplate() string {
	settings, err := config.LoadSettings(h.dataDir)
	if err != nil {
		return filename.DefaultPreset
	}
	return settings.ActiveTemplate()
}
