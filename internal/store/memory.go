package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/spigell/cv-assistant/internal/cv"
)

type memoryEntry struct {
	owner string
	doc   cv.CV
}

// Memory keeps CVs in process. Documents are cloned on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]memoryEntry
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// List returns the owner's CVs in creation order.
func (m *Memory) List(_ context.Context, ownerID string) ([]cv.CV, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]cv.CV, 0)
	for _, id := range m.order {
		entry := m.entries[id]
		if entry.owner == ownerID {
			out = append(out, entry.doc.Clone())
		}
	}
	return out, nil
}

func (m *Memory) Create(_ context.Context, ownerID string, doc cv.CV) (cv.CV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc = doc.Clone()
	doc.ID = cv.NewID()

	m.entries[doc.ID] = memoryEntry{owner: ownerID, doc: doc}
	m.order = append(m.order, doc.ID)

	return doc.Clone(), nil
}

func (m *Memory) Update(_ context.Context, id string, doc cv.CV) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	doc = doc.Clone()
	doc.ID = id
	entry.doc = doc
	m.entries[id] = entry

	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	delete(m.entries, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	return nil
}
