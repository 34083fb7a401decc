// Package credfile persists the client's credential between runs.
package credfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// PathEnv overrides the default credential file location.
const PathEnv = "TRACKHUB_CREDENTIALS"

// File is what a client remembers between runs.
type File struct {
	BaseURL   string `json:"baseUrl,omitempty"`
	Token     string `json:"token,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

// DefaultPath returns $TRACKHUB_CREDENTIALS, or ~/.trackhub/credentials.json.
func DefaultPath() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "trackhub-credentials.json")
	}
	return filepath.Join(home, ".trackhub", "credentials.json")
}

// Store reads and writes one credential file.
type Store struct {
	Path string
}

// Load returns the stored file. A missing file is not an error and yields
// the zero File.
func (s Store) Load() (File, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("reading credentials %s: %w", s.Path, err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing credentials %s: %w", s.Path, err)
	}
	return f, nil
}

// Save writes f with owner-only permissions. The write goes through a
// temporary file so a crash never leaves a truncated credential behind.
func (s Store) Save(f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating credentials directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("writing credentials %s: %w", s.Path, err)
	}
	return nil
}

// Clear forgets the token and selected project but keeps the base URL.
func (s Store) Clear() error {
	f, err := s.Load()
	if err != nil {
		return os.Remove(s.Path)
	}
	if f.BaseURL == "" {
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing credentials %s: %w", s.Path, err)
		}
		return nil
	}
	return s.Save(File{BaseURL: f.BaseURL})
}
