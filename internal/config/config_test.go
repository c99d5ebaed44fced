package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDataDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DataDirEnv, dir)
	if got := DataDir(); got != dir {
		t.Errorf("DataDir() = %q, want %q", got, dir)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if *s != (Settings{}) {
		t.Errorf("missing file should yield empty settings, got %+v", s)
	}
}

func TestSettingsSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := Settings{
		Template:          "custom",
		CustomTemplate:    "{year} - {title}",
		ZoteroAPIKey:      "key",
		ZoteroLibraryID:   "12345",
		ZoteroLibraryType: "user",
	}
	if err := want.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if *got != want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestLoadSettingsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(SettingsPath(dir), []byte("{nope"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadSettings(dir); err == nil {
		t.Error("invalid JSON should fail")
	}
}

func TestSettingsMerge(t *testing.T) {
	s := Settings{Template: "standard", ZoteroAPIKey: "old"}
	s.Merge(Settings{Template: "compact", ZoteroLibraryID: "99"})

	if s.Template != "compact" {
		t.Errorf("Template = %q", s.Template)
	}
	if s.ZoteroAPIKey != "old" {
		t.Errorf("Merge must not clear unset fields, got %q", s.ZoteroAPIKey)
	}
	if s.ZoteroLibraryID != "99" {
		t.Errorf("ZoteroLibraryID = %q", s.ZoteroLibraryID)
	}
}

func TestSettingsApplyEnv(t *testing.T) {
	t.Setenv("ZOTERO_API_KEY", "env-key")
	t.Setenv("ZOTERO_LIBRARY_ID", "777")
	t.Setenv("ZOTERO_LIBRARY_TYPE", "group")

	s := Settings{ZoteroAPIKey: "file-key"}
	s.ApplyEnv()

	if s.ZoteroAPIKey != "file-key" {
		t.Errorf("file value must win, got %q", s.ZoteroAPIKey)
	}
	if s.ZoteroLibraryID != "777" || s.ZoteroLibraryType != "group" {
		t.Errorf("env not applied: %+v", s)
	}
}

func TestActiveTemplate(t *testing.T) {
	tests := []struct {
		settings Settings
		want     string
	}{
		{Settings{Template: "standard"}, "standard"},
		{Settings{Template: "custom", CustomTemplate: "{title}"}, "{title}"},
		{Settings{Template: "custom"}, "custom"},
		{Settings{}, ""},
	}
	for _, tt := range tests {
		if got := tt.settings.ActiveTemplate(); got != tt.want {
			t.Errorf("ActiveTemplate(%+v) = %q, want %q", tt.settings, got, tt.want)
		}
	}
}

func TestValidateLibraryType(t *testing.T) {
	for _, ok := range []string{"", "user", "group"} {
		if err := ValidateLibraryType(ok); err != nil {
			t.Errorf("ValidateLibraryType(%q) = %v", ok, err)
		}
	}
	if err := ValidateLibraryType("shared"); err == nil {
		t.Error("ValidateLibraryType(shared) should fail")
	}
}

func TestValidateTemplate(t *testing.T) {
	if err := ValidateTemplate("{author} - {title}"); err != nil {
		t.Errorf("valid template rejected: %v", err)
	}
	if err := ValidateTemplate("no placeholders here"); err == nil {
		t.Error("template without placeholders should fail")
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	tuning, err := LoadTuning(t.TempDir())
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if tuning.Workers != 0 || tuning.AcceptConfidence != 0 || tuning.Sources != nil {
		t.Errorf("missing file should yield zero tuning, got %+v", tuning)
	}
}

func TestLoadTuning(t *testing.T) {
	dir := t.TempDir()
	doc := `
workers: 8
accept_confidence: 0.9
sources:
  crossref:
    timeout_seconds: 5
    max_attempts: 3
    rate_per_second: 2
`
	if err := os.WriteFile(TuningPath(dir), []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tuning, err := LoadTuning(dir)
	if err != nil {
		t.Fatalf("LoadTuning: %v", err)
	}
	if tuning.Workers != 8 {
		t.Errorf("Workers = %d", tuning.Workers)
	}
	if tuning.AcceptConfidence != 0.9 {
		t.Errorf("AcceptConfidence = %v", tuning.AcceptConfidence)
	}
	cr := tuning.Sources["crossref"]
	if cr.Timeout() != 5*time.Second {
		t.Errorf("Timeout = %v", cr.Timeout())
	}
	if cr.MaxAttempts != 3 || cr.RatePerSecond != 2 {
		t.Errorf("crossref tuning = %+v", cr)
	}
}

func TestLoadTuningRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(TuningPath(dir), []byte("accept_confidence: 1.5"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadTuning(dir); err == nil {
		t.Error("out-of-range accept_confidence should fail")
	}
}

func TestPathHelpers(t *testing.T) {
	dir := "/data"
	if got := SettingsPath(dir); got != filepath.Join(dir, SettingsFile) {
		t.Errorf("SettingsPath = %q", got)
	}
	if got := HistoryPath(dir); got != filepath.Join(dir, HistoryFile) {
		t.Errorf("HistoryPath = %q", got)
	}
	if got := TuningPath(dir); got != filepath.Join(dir, TuningFile) {
		t.Errorf("TuningPath = %q", got)
	}
}
