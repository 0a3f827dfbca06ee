package cache

import (
	"context"
	"encoding/json"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

var _ domain.Cache = (*Memory)(nil)

// Memory is an in-process cache bounded by entry count. Values are kept JSON encoded so callers
// never share mutable state with the cache.
type Memory struct {
	mu          sync.Mutex
	entries     *lru.Cache[string, []byte]
	maxListSize int
}

func NewMemory(size, maxListSize int) (*Memory, error) {
	if size <= 0 {
		size = 10000
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Memory{entries: entries, maxListSize: maxListSize}, nil
}

func (m *Memory) Get(_ context.Context, key string, out any) (bool, error) {
	raw, ok := m.entries.Get(key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries.Add(key, raw)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		m.entries.Remove(key)
	}
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries.Purge()
	return nil
}

func (m *Memory) GetList(_ context.Context, key string) ([]int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getList(key)
}

func (m *Memory) getList(key string) ([]int64, bool, error) {
	raw, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	ids := make([]int64, 0)
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

func (m *Memory) SetList(_ context.Context, key string, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setList(key, ids)
}

func (m *Memory) setList(key string, ids []int64) error {
	ids = capList(ids, m.maxListSize)
	if ids == nil {
		ids = []int64{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	m.entries.Add(key, raw)
	return nil
}

// AddToTopOfList prepends ids to a cached list. Missing lists stay missing so the next read
// rebuilds them from the database.
func (m *Memory) AddToTopOfList(_ context.Context, key string, ids ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok, err := m.getList(key)
	if err != nil || !ok {
		return err
	}
	next := make([]int64, 0, len(ids)+len(current))
	next = append(next, ids...)
	next = append(next, current...)
	return m.setList(key, next)
}

func (m *Memory) RemoveFromList(_ context.Context, key string, ids ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok, err := m.getList(key)
	if err != nil || !ok {
		return err
	}
	return m.setList(key, without(current, ids))
}

func capList(ids []int64, max int) []int64 {
	if max > 0 && len(ids) > max {
		return ids[:max]
	}
	return ids
}

func without(ids, remove []int64) []int64 {
	drop := make(map[int64]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
