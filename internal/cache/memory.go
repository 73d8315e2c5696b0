package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const defaultTTL = 24 * time.Hour

type memoryItem struct {
	data     []byte
	expireAt time.Time
	access   time.Time
}

// Memory implements Cache in process with least-recently-used eviction.
type Memory struct {
	mu      sync.Mutex
	items   map[string]*memoryItem
	maxSize int
	now     func() time.Time
}

// NewMemory creates an in-memory cache holding at most maxSize entries.
func NewMemory(maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &Memory{
		items:   make(map[string]*memoryItem),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	item, ok := m.items[key]
	if ok && m.now().After(item.expireAt) {
		delete(m.items, key)
		ok = false
	}
	if !ok {
		m.mu.Unlock()
		return ErrMiss
	}
	item.access = m.now()
	data := item.data
	m.mu.Unlock()

	return json.Unmarshal(data, dest)
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[key]; !exists && len(m.items) >= m.maxSize {
		m.evictLRU()
	}
	now := m.now()
	m.items[key] = &memoryItem{data: data, expireAt: now.Add(ttl), access: now}
	return nil
}

func (m *Memory) Flush(_ context.Context) error {
	m.mu.Lock()
	m.items = make(map[string]*memoryItem)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range m.items {
		if oldestKey == "" || item.access.Before(oldest) {
			oldestKey = key
			oldest = item.access
		}
	}
	if oldestKey != "" {
		delete(m.items, oldestKey)
	}
}
