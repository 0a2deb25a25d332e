package kvlock

import (
	"encoding/json"
	"sync"
)

// Memory is a process local Store and Adapter backed by a map
type Memory struct {
	mu    sync.Mutex
	items map[string]string
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

// Name of the adapter
func (m *Memory) Name() string { return `memory` }

// SetIfAbsent stores value only if key is not set yet
func (m *Memory) SetIfAbsent(key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; ok {
		return false, nil
	}
	m.items[key] = value
	return true, nil
}

// GetAndSet stores value and returns the previous one
func (m *Memory) GetAndSet(key, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.items[key]
	m.items[key] = value
	return prev, nil
}

// Get value or empty string
func (m *Memory) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[key], nil
}

// Delete key
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Read returns the raw value and whether the key exists
func (m *Memory) Read(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.items[key]
	return val, ok, nil
}

// Write stores the JSON encoding of value
func (m *Memory) Write(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = string(data)
	m.mu.Unlock()
	return nil
}

// Clear removes every key
func (m *Memory) Clear() error {
	m.mu.Lock()
	m.items = make(map[string]string)
	m.mu.Unlock()
	return nil
}
