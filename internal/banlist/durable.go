package banlist

import (
	"context"
	"sync"
)

// DurableStore is the backing tier of the enforcement cache: bulk read
// per kind, upsert of a single record, delete by identity. The badger
// implementation is the production store; MemoryDurable backs tests.
type DurableStore interface {
	// Put upserts a record. Existing records are overwritten; the
	// preserve-first-reason policy is enforced above, in Store.
	Put(ctx context.Context, kind Kind, rec Record) error

	// Delete removes a record by identity. Absent is not an error.
	Delete(ctx context.Context, kind Kind, value string) error

	// Load bulk-reads every record of a kind.
	Load(ctx context.Context, kind Kind) (map[string]Record, error)

	// AcquireRestoreLock takes a short-lived mutual-exclusion guard so
	// concurrently starting instances do not run overlapping bulk
	// loads. The returned function releases the guard.
	AcquireRestoreLock(ctx context.Context) (release func(), err error)

	// Close releases the store.
	Close() error
}

// MemoryDurable is an in-memory DurableStore for tests. It also serves
// as the reference implementation of the interface semantics.
type MemoryDurable struct {
	mu      sync.Mutex
	records map[Kind]map[string]Record

	// FailPuts makes every Put return the given error, simulating an
	// unavailable durable tier.
	FailPuts error
}

// NewMemoryDurable creates an empty in-memory durable store.
func NewMemoryDurable() *MemoryDurable {
	records := make(map[Kind]map[string]Record, len(Kinds))
	for _, k := range Kinds {
		records[k] = make(map[string]Record)
	}
	return &MemoryDurable{records: records}
}

func (m *MemoryDurable) Put(ctx context.Context, kind Kind, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPuts != nil {
		return m.FailPuts
	}
	m.records[kind][rec.Value] = rec
	return nil
}

func (m *MemoryDurable) Delete(ctx context.Context, kind Kind, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records[kind], value)
	return nil
}

func (m *MemoryDurable) Load(ctx context.Context, kind Kind) (map[string]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Record, len(m.records[kind]))
	for v, rec := range m.records[kind] {
		out[v] = rec
	}
	return out, nil
}

func (m *MemoryDurable) AcquireRestoreLock(ctx context.Context) (func(), error) {
	return func() {}, nil
}

func (m *MemoryDurable) Close() error { return nil }
