package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/refile/refile/internal/executor"
	"github.com/refile/refile/internal/scan"
)

// ScanRequest is the request body for scanning a directory.
type ScanRequest struct {
	Directory string `json:"directory"`
	Template  string `json:"template,omitempty"`
}

// Validate validates the scan request.
func (r ScanRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Directory, validation.Required),
	)
}

// ScanResponse wraps the proposed rename plans.
type ScanResponse struct {
	Files []scan.Plan `json:"files"`
	Count int         `json:"count"`
}

// ExecuteRequest is the request body for executing approved renames.
type ExecuteRequest struct {
	Files []executor.Request `json:"files"`
}

// Validate validates the execute request.
func (r ExecuteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Files, validation.Required, validation.Length(1, 0)),
	)
}

// UndoRequest targets either one history entry by index or a whole
// session. Exactly one of the two must be set.
type UndoRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Index     *int   `json:"index,omitempty"`
}

// Validate validates the undo request.
func (r UndoRequest) Validate() error {
	if (r.SessionID == "") == (r.Index == nil) {
		return validation.Errors{
			"session_id": validation.NewError(
				"undo_target", "exactly one of session_id or index must be set"),
		}
	}
	return nil
}

// TemplatesResponse lists the built-in presets.
type TemplatesResponse struct {
	Presets map[string]string `json:"presets"`
	Default string            `json:"default"`
}
