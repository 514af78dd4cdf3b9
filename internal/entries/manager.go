package entries

import (
	"context"
	"sort"
	"sync"
	"time"

	"io.winapps.meicho/internal/apperrors"
	"io.winapps.meicho/internal/metrics"
	"io.winapps.meicho/internal/prompt"
)

// Manager owns one Store per owner, created and opened on first use. Stores left
// unused are dropped by EvictIdle.
type Manager struct {
	deps Deps
	now  func() time.Time

	mu       sync.Mutex
	stores   map[string]*Store
	lastUsed map[string]time.Time
}

func NewManager(deps Deps) *Manager {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		deps:     deps,
		now:      now,
		stores:   make(map[string]*Store),
		lastUsed: make(map[string]time.Time),
	}
}

// For returns the owner's store, hydrating it on first access.
func (m *Manager) For(ctx context.Context, ownerID string) (*Store, error) {
	if ownerID == "" {
		return nil, &apperrors.AuthError{}
	}

	m.mu.Lock()
	store, ok := m.stores[ownerID]
	if !ok {
		store = NewStore(ownerID, m.deps)
		m.stores[ownerID] = store
		metrics.SetOpenStores(len(m.stores))
	}
	m.lastUsed[ownerID] = m.now()
	m.mu.Unlock()

	store.Open(ctx)
	return store, nil
}

// Owners lists the owners with an open store, sorted.
func (m *Manager) Owners() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	owners := make([]string, 0, len(m.stores))
	for owner := range m.stores {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}

// Evict drops the in-memory store; the snapshot cache keeps its state.
func (m *Manager) Evict(ownerID string) {
	m.mu.Lock()
	delete(m.stores, ownerID)
	delete(m.lastUsed, ownerID)
	metrics.SetOpenStores(len(m.stores))
	m.mu.Unlock()
}

// EvictIdle drops every store not requested within maxIdle and returns how many went.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for owner, used := range m.lastUsed {
		if used.Before(cutoff) {
			delete(m.stores, owner)
			delete(m.lastUsed, owner)
			evicted++
		}
	}
	metrics.SetOpenStores(len(m.stores))
	return evicted
}

func (m *Manager) snapshot() []*Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	stores := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		stores = append(stores, s)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].ownerID < stores[j].ownerID })
	return stores
}

// CheckPrompts runs the prompt check on every open store and returns how many rotated.
func (m *Manager) CheckPrompts(ctx context.Context) int {
	rotated := 0
	for _, s := range m.snapshot() {
		if _, changed := s.CheckPrompt(ctx); changed {
			rotated++
		}
	}
	return rotated
}

// PendingPrompts returns the active, uncompleted prompt of every open store.
func (m *Manager) PendingPrompts() map[string]prompt.Prompt {
	pending := make(map[string]prompt.Prompt)
	for _, s := range m.snapshot() {
		if p := s.Prompt(); p != nil && !p.Completed && s.now().Before(p.ExpiresAt) {
			pending[s.ownerID] = *p
		}
	}
	return pending
}
