// Package config handles persistent settings and the data directory
// layout.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents user preferences stored in settings.json.
type Settings struct {
	Template          string `json:"template,omitempty"`            // Preset name or "custom"
	CustomTemplate    string `json:"custom_template,omitempty"`     // Used when Template == "custom"
	ZoteroAPIKey      string `json:"zotero_api_key,omitempty"`      // Zotero Web API key
	ZoteroLibraryID   string `json:"zotero_library_id,omitempty"`   // Numeric library id
	ZoteroLibraryType string `json:"zotero_library_type,omitempty"` // "user" or "group"
}

const (
	// DataDirName is the directory under $HOME holding all state.
	DataDirName = ".refile"
	// SettingsFile is the settings file name.
	SettingsFile = "settings.json"
	// HistoryFile is the rename log database name.
	HistoryFile = "history.db"
	// TuningFile is the optional resolver tuning file name.
	TuningFile = "tuning.yml"

	// DataDirEnv overrides the data directory location.
	DataDirEnv = "REFILE_DATA_DIR"
)

// ValidLibraryTypes lists the supported Zotero library types.
var ValidLibraryTypes = []string{"user", "group"}

// DataDir returns the data directory path. Respects REFILE_DATA_DIR,
// defaults to ~/.refile.
func DataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DataDirName
	}
	return filepath.Join(home, DataDirName)
}

// EnsureDataDir creates the data directory if it does not exist and
// returns its path.
func EnsureDataDir() (string, error) {
	dir := DataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dir, nil
}

// SettingsPath returns the path to settings.json under dir.
func SettingsPath(dir string) string {
	return filepath.Join(dir, SettingsFile)
}

// HistoryPath returns the path to the rename log database under dir.
func HistoryPath(dir string) string {
	return filepath.Join(dir, HistoryFile)
}

// TuningPath returns the path to tuning.yml under dir.
func TuningPath(dir string) string {
	return filepath.Join(dir, TuningFile)
}

// LoadSettings reads settings from the data directory. A missing file
// yields empty settings, not an error.
func LoadSettings(dir string) (*Settings, error) {
	data, err := os.ReadFile(SettingsPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}
	return &s, nil
}

// Save writes settings to the data directory.
func (s *Settings) Save(dir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(SettingsPath(dir), data, 0644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Merge copies the non-empty fields of other into s.
func (s *Settings) Merge(other Settings) {
	if other.Template != "" {
		s.Template = other.Template
	}
	if other.CustomTemplate != "" {
		s.CustomTemplate = other.CustomTemplate
	}
	if other.ZoteroAPIKey != "" {
		s.ZoteroAPIKey = other.ZoteroAPIKey
	}
	if other.ZoteroLibraryID != "" {
		s.ZoteroLibraryID = other.ZoteroLibraryID
	}
	if other.ZoteroLibraryType != "" {
		s.ZoteroLibraryType = other.ZoteroLibraryType
	}
}

// ApplyEnv fills unset Zotero credentials from the environment
// (ZOTERO_API_KEY, ZOTERO_LIBRARY_ID, ZOTERO_LIBRARY_TYPE).
func (s *Settings) ApplyEnv() {
	if s.ZoteroAPIKey == "" {
		s.ZoteroAPIKey = os.Getenv("ZOTERO_API_KEY")
	}
	if s.ZoteroLibraryID == "" {
		s.ZoteroLibraryID = os.Getenv("ZOTERO_LIBRARY_ID")
	}
	if s.ZoteroLibraryType == "" {
		s.ZoteroLibraryType = os.Getenv("ZOTERO_LIBRARY_TYPE")
	}
}

// ActiveTemplate resolves the settings into a template string: the
// custom template when selected, otherwise the preset name.
func (s *Settings) ActiveTemplate() string {
	if s.Template == "custom" && s.CustomTemplate != "" {
		return s.CustomTemplate
	}
	return s.Template
}

// ValidateLibraryType checks that the library type value is valid.
func ValidateLibraryType(t string) error {
	if t == "" {
		return nil // Empty defaults to "user"
	}
	for _, valid := range ValidLibraryTypes {
		if t == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid zotero_library_type: %s (valid: %v)", t, ValidLibraryTypes)
}

// ValidateTemplate checks that a custom template contains at least one
// placeholder.
func ValidateTemplate(template string) error {
	if template == "" {
		return nil
	}
	if !strings.Contains(template, "{") {
		return fmt.Errorf("template has no placeholders: %s", template)
	}
	return nil
}
