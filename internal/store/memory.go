// Package store holds the durable now-recording set and the channel alias cache.
package store

import (
	"context"
	"sort"
	"sync"
)

// Memory keeps sets and key/values in process memory.
type Memory struct {
	mu   sync.RWMutex
	sets map[string]map[string]struct{}
	kv   map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		sets: make(map[string]map[string]struct{}),
		kv:   make(map[string]string),
	}
}

func (m *Memory) Add(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

func (m *Memory) Remove(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[key], member)
	return nil
}

func (m *Memory) Members(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }
