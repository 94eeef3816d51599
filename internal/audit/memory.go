package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLog is a thread-safe bounded log used when a database is not configured.
type MemoryLog struct {
	mu       sync.RWMutex
	capacity int
	entries  []Entry
}

// NewMemoryLog keeps at most capacity entries, newest first.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = DefaultLimit
	}
	return &MemoryLog{capacity: capacity, entries: make([]Entry, 0)}
}

// Record prepends the entry, dropping the oldest beyond capacity.
func (l *MemoryLog) Record(_ context.Context, entry Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.MediaKeys = append([]string(nil), entry.MediaKeys...)

	l.entries = append([]Entry{entry}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first.
func (l *MemoryLog) Recent(_ context.Context, limit int) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	limit = clampLimit(limit)
	if limit > len(l.entries) {
		limit = len(l.entries)
	}
	snapshot := make([]Entry, limit)
	copy(snapshot, l.entries[:limit])
	return snapshot, nil
}

// Close is a no-op for the in-memory log.
func (l *MemoryLog) Close() {}
