package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores objects under a directory that the API serves statically at BaseURL.
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (l *Local) Root() string { return l.root }

func (l *Local) Upload(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	filePath := filepath.Join(l.root, filepath.FromSlash(p))

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create entry directory: %w", err)
	}

	// O_EXCL keeps an upload from silently replacing an existing object.
	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", p, err)
	}
	written, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && size >= 0 && written != size {
		err = fmt.Errorf("short write: %d of %d bytes", written, size)
	}
	if err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to write file %s: %w", p, err)
	}
	return nil
}

func (l *Local) PublicURL(objectPath string) string {
	return l.baseURL + "/" + strings.TrimPrefix(objectPath, "/")
}

// Remove deletes every path it can; missing files count as already removed.
func (l *Local) Remove(ctx context.Context, objectPaths []string) error {
	var errs []error
	for _, op := range objectPaths {
		p, err := cleanPath(op)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		filePath := filepath.Join(l.root, filepath.FromSlash(p))
		if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to delete file %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
