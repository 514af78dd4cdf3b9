package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Memory keeps objects in a map. Used for development and tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemory(baseURL string) *Memory {
	return &Memory{objects: make(map[string][]byte), baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (m *Memory) Upload(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error {
	p, err := cleanPath(objectPath)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[p]; exists {
		return fmt.Errorf("object %s already exists", p)
	}
	m.objects[p] = buf.Bytes()
	return nil
}

func (m *Memory) PublicURL(objectPath string) string {
	return m.baseURL + "/" + strings.TrimPrefix(objectPath, "/")
}

func (m *Memory) Remove(ctx context.Context, objectPaths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range objectPaths {
		delete(m.objects, p)
	}
	return nil
}

// Get returns a copy of the stored bytes.
func (m *Memory) Get(objectPath string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[objectPath]
	return bytes.Clone(b), ok
}

// Paths lists stored object paths in sorted order.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.objects))
	for p := range m.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
