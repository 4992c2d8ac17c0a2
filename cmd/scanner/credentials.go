package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ecospectre-be/pkg/syncclient"
)

const credentialsFile = "credentials.json"

// loadCredentials returns nil when nobody is signed in.
func loadCredentials(path string) (*syncclient.Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session syncclient.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if session.Token == "" {
		return nil, nil
	}
	return &session, nil
}

func saveCredentials(path string, session *syncclient.Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o600)
}

func clearCredentials(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
