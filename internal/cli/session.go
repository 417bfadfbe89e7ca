package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mbeoliero/uq/sdk"
)

// ErrNotLoggedIn is returned when no session file exists
var ErrNotLoggedIn = errors.New("not logged in, run `uq login --email <address>` first")

// SessionFile is the signed-in state persisted between runs
type SessionFile struct {
	Server      string `yaml:"server"`
	Email       string `yaml:"email,omitempty"`
	sdk.Session `yaml:",inline"`
}

// LoadSession reads the session file at path
func LoadSession(path string) (*SessionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var sf SessionFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return &sf, nil
}

// SaveSession writes sf to path, readable by the owner only
func SaveSession(path string, sf *SessionFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := yaml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// RemoveSession deletes the session file, a missing file is not an error
func RemoveSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
