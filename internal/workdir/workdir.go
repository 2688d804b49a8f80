// Package workdir provides utilities for managing the voice CLI working directory.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Root returns the base directory for all voice CLI working files.
// The path is expanded at runtime to resolve to:
//
//	$HOME/Documents/Alkime/Journal
func Root() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "Alkime", "Journal"), nil
}

// Path joins elem onto the root.
func Path(elem ...string) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{root}, elem...)...), nil
}

// Prep ensures that the working directory exists and returns it.
func Prep() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create working directory %s: %w", root, err)
	}

	return root, nil
}
