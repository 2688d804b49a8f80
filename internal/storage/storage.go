// Package storage uploads and deletes journal audio objects.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidPath is returned for empty or escaping object paths.
	ErrInvalidPath = errors.New("invalid object path")
	// ErrNotFound is returned when deleting an object that does not exist.
	ErrNotFound = errors.New("object not found")
)

// Prefixes of the object namespaces used by the journal.
const (
	AudioPrefix = "audio"
	TempPrefix  = "tmp/transcribe"
)

// ObjectStore stores blobs under slash-separated paths.
type ObjectStore interface {
	// Upload stores data at path and returns a URL from which it can be fetched.
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	// Delete removes the object at path. Backends that can tell return
	// ErrNotFound for a missing object.
	Delete(ctx context.Context, objectPath string) error
}

// NewKey returns a unique object path under prefix with the given extension.
func NewKey(prefix, ext string) string {
	return path.Join(prefix, uuid.NewString()+ext)
}

// cleanPath normalises an object path and rejects traversal outside the root.
func cleanPath(objectPath string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(objectPath))
	cleaned = strings.TrimPrefix(cleaned, "/")

	if cleaned == "" || cleaned == "." || strings.Contains(objectPath, "..") {
		return "", ErrInvalidPath
	}

	return cleaned, nil
}
