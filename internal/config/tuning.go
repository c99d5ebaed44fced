package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning represents optional resolver tuning stored in tuning.yml.
// Everything has a sensible default; the file is for people who hit
// provider rate limits or slow networks.
type Tuning struct {
	Workers          int                     `yaml:"workers,omitempty"`
	AcceptConfidence float64                 `yaml:"accept_confidence,omitempty"`
	Sources          map[string]SourceTuning `yaml:"sources,omitempty"`
}

// SourceTuning adjusts one metadata provider.
type SourceTuning struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"`
	MaxAttempts    int     `yaml:"max_attempts,omitempty"`
	RatePerSecond  float64 `yaml:"rate_per_second,omitempty"`
}

// Timeout returns the per-request timeout, zero when unset.
func (t SourceTuning) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// LoadTuning reads tuning from the data directory. A missing file
// yields zero tuning (all defaults), not an error.
func LoadTuning(dir string) (*Tuning, error) {
	data, err := os.ReadFile(TuningPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Tuning{}, nil
		}
		return nil, fmt.Errorf("reading tuning: %w", err)
	}

	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing tuning: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Tuning) validate() error {
	if t.Workers < 0 {
		return fmt.Errorf("workers must be positive, got %d", t.Workers)
	}
	if t.AcceptConfidence < 0 || t.AcceptConfidence > 1 {
		return fmt.Errorf("accept_confidence must be in [0,1], got %v", t.AcceptConfidence)
	}
	for name, st := range t.Sources {
		if st.TimeoutSeconds < 0 {
			return fmt.Errorf("source %s: timeout_seconds must be positive", name)
		}
		if st.MaxAttempts < 0 {
			return fmt.Errorf("source %s: max_attempts must be positive", name)
		}
		if st.RatePerSecond < 0 {
			return fmt.Errorf("source %s: rate_per_second must be positive", name)
		}
	}
	return nil
}
