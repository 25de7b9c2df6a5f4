package store

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/wcfdehao/gomoku/pkg/errors"
)

// MemoryKV is an in-process KV implementation used for tests and
// single-process development runs.
type MemoryKV struct {
	mu     sync.Mutex
	sets   map[string]map[string]bool
	keys   map[string]string
	counts map[string]int64
	hashes map[string]map[string]string
	closed bool
}

// NewMemoryKV creates an empty in-memory store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		sets:   make(map[string]map[string]bool),
		keys:   make(map[string]string),
		counts: make(map[string]int64),
		hashes: make(map[string]map[string]string),
	}
}

func (m *MemoryKV) guard() error {
	if m.closed {
		return apperrors.ErrStoreClosed
	}
	return nil
}

// SAdd adds member to the set at key, reporting whether it was newly added
func (m *MemoryKV) SAdd(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return false, err
	}

	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]bool)
		m.sets[key] = set
	}
	if set[member] {
		return false, nil
	}
	set[member] = true
	return true, nil
}

// SRem removes member from the set at key
func (m *MemoryKV) SRem(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return err
	}

	if set, ok := m.sets[key]; ok {
		delete(set, member)
	}
	return nil
}

// SIsMember reports membership of member in the set at key
func (m *MemoryKV) SIsMember(_ context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return false, err
	}

	return m.sets[key][member], nil
}

// SMembers returns all members of the set at key
func (m *MemoryKV) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return nil, err
	}

	set := m.sets[key]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	return members, nil
}

// Set stores value under key
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return err
	}

	m.keys[key] = value
	return nil
}

// Get returns the value stored under key
func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return "", err
	}

	value, ok := m.keys[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", apperrors.ErrKeyNotFound, key)
	}
	return value, nil
}

// Del removes key
func (m *MemoryKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return err
	}

	delete(m.keys, key)
	return nil
}

// Incr atomically increments the counter at key and returns the new value
func (m *MemoryKV) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return 0, err
	}

	m.counts[key]++
	return m.counts[key], nil
}

// HSet stores fields into the hash at key
func (m *MemoryKV) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return err
	}

	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]string)
		m.hashes[key] = hash
	}
	for field, value := range fields {
		hash[field] = value
	}
	return nil
}

// HGetAll returns a copy of the hash at key
func (m *MemoryKV) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.guard(); err != nil {
		return nil, err
	}

	hash := m.hashes[key]
	out := make(map[string]string, len(hash))
	for field, value := range hash {
		out[field] = value
	}
	return out, nil
}

// Close marks the store closed; further operations fail
func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
