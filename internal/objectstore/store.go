// Package objectstore is the binary side of media persistence: bytes addressed by path.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Store uploads, addresses and removes media objects.
type Store interface {
	Upload(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error
	PublicURL(objectPath string) string
	Remove(ctx context.Context, objectPaths []string) error
}

// cleanPath rejects absolute and parent-escaping paths so every backend stays inside its root.
func cleanPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty object path")
	}
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || strings.HasPrefix(p, "/") || cleaned != p {
		return "", fmt.Errorf("invalid object path: %q", p)
	}
	return cleaned, nil
}
