package cache

import (
	"container/list"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"
)

const (
	// DefaultTTL bounds staleness of cached read-model answers.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxSize caps the entry count before LRU eviction kicks in.
	DefaultMaxSize = 10000
)

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process cache with per-entry TTL and LRU eviction once the
// size cap is reached. Safe for concurrent use.
type Memory struct {
	logger     *slog.Logger
	defaultTTL time.Duration
	maxSize    int

	mu      sync.Mutex
	order   *list.List
	entries map[string]*list.Element

	now func() time.Time
}

// NewMemory creates a memory cache. Non-positive ttl or maxSize fall back to
// the defaults.
func NewMemory(defaultTTL time.Duration, maxSize int, logger *slog.Logger) *Memory {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Memory{
		logger:     logger,
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		now:        time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := elem.Value.(*memoryEntry)
	if m.now().After(entry.expiresAt) {
		m.removeLocked(elem)
		return nil, false, nil
	}
	m.order.MoveToFront(elem)
	return entry.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = m.now().Add(ttl)
		m.order.MoveToFront(elem)
		return nil
	}

	for len(m.entries) >= m.maxSize {
		oldest := m.order.Back()
		if oldest == nil {
			break
		}
		m.removeLocked(oldest)
	}

	elem := m.order.PushFront(&memoryEntry{
		key:       key,
		value:     value,
		expiresAt: m.now().Add(ttl),
	})
	m.entries[key] = elem
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		m.removeLocked(elem)
	}
	return nil
}

func (m *Memory) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalidate pattern %q: %w", pattern, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, elem := range m.entries {
		if re.MatchString(key) {
			m.removeLocked(elem)
			removed++
		}
	}
	if removed > 0 {
		m.logger.DebugContext(ctx, "cache entries invalidated",
			slog.String("pattern", pattern),
			slog.Int("count", removed),
		)
	}
	return removed, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.order.Init()
	m.entries = make(map[string]*list.Element)
	return nil
}

// CleanupExpired drops entries past their TTL and returns how many were
// removed. The app runs this on a ticker so idle expired entries do not pin
// memory between reads.
func (m *Memory) CleanupExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for _, elem := range m.entries {
		if now.After(elem.Value.(*memoryEntry).expiresAt) {
			m.removeLocked(elem)
			removed++
		}
	}
	return removed, nil
}

// Len returns the current entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// removeLocked drops the element from both the list and the index. Callers
// hold mu.
func (m *Memory) removeLocked(elem *list.Element) {
	m.order.Remove(elem)
	delete(m.entries, elem.Value.(*memoryEntry).key)
}
