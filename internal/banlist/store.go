package banlist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/willf/bloom"

	"threatgate/internal/logging"
	"threatgate/internal/metrics"
)

// bloomCapacity sizes the negative-lookup filter. At 1% false positives
// a miss (the common case on the request hot path) is answered by the
// filter alone.
const (
	bloomCapacity = 100000
	bloomFPRate   = 0.01
)

// Store is the enforcement cache. All writes go through both tiers
// synchronously (write-through); IsBanned reads only the fast tier and
// never blocks on durable I/O.
type Store struct {
	mu      sync.RWMutex
	entries map[Kind]map[string]Record
	filter  *bloom.BloomFilter
	closed  bool

	durable DurableStore

	syncDone chan struct{}
	syncWG   sync.WaitGroup
	syncOnce sync.Once
}

// NewStore creates a store over the given durable tier. The fast tier
// starts empty; call Restore before serving requests.
func NewStore(durable DurableStore) *Store {
	entries := make(map[Kind]map[string]Record, len(Kinds))
	for _, k := range Kinds {
		entries[k] = make(map[string]Record)
	}
	return &Store{
		entries:  entries,
		filter:   bloom.NewWithEstimates(bloomCapacity, bloomFPRate),
		durable:  durable,
		syncDone: make(chan struct{}),
	}
}

func filterKey(kind Kind, value string) []byte {
	return []byte(string(kind) + ":" + value)
}

// IsBanned reports whether the identity is banned. Fast tier only: the
// bloom filter answers definite misses, the map confirms hits. Never
// touches the durable store.
func (s *Store) IsBanned(kind Kind, identity string) bool {
	value := Normalize(kind, identity)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	if !s.filter.Test(filterKey(kind, value)) {
		return false
	}
	_, banned := s.entries[kind][value]
	return banned
}

// Reason returns the stored ban reason, if the identity is banned.
func (s *Store) Reason(kind Kind, identity string) (string, bool) {
	value := Normalize(kind, identity)

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.entries[kind][value]
	return rec.Reason, ok
}

// Ban inserts the identity into both tiers. Idempotent on the identity
// key: an existing ban is kept untouched, preserving the reason of the
// first detection for forensics. The fast tier is written first so the
// ban takes effect immediately; the durable write follows, and its
// failure surfaces to the caller even though the fast tier was updated.
func (s *Store) Ban(ctx context.Context, kind Kind, identity, reason string) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	value := Normalize(kind, identity)
	rec := Record{Value: value, Reason: reason, CreatedAt: time.Now().UTC()}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if _, exists := s.entries[kind][value]; exists {
		s.mu.Unlock()
		metrics.BanStoreOps.WithLabelValues("ban", "already_banned").Inc()
		return nil
	}
	s.entries[kind][value] = rec
	s.filter.Add(filterKey(kind, value))
	size := len(s.entries[kind])
	s.mu.Unlock()

	metrics.BanStoreSize.WithLabelValues(string(kind)).Set(float64(size))

	if err := s.durable.Put(ctx, kind, rec); err != nil {
		metrics.BanStoreOps.WithLabelValues("ban", "durable_failure").Inc()
		return fmt.Errorf("banlist: ban %s/%s: durable write: %w", kind, value, err)
	}

	metrics.BanStoreOps.WithLabelValues("ban", "success").Inc()
	return nil
}

// Unban removes the identity from both tiers. Absent is a no-op. The
// bloom filter cannot forget; stale positives fall through to the map.
func (s *Store) Unban(ctx context.Context, kind Kind, identity string) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	value := Normalize(kind, identity)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	delete(s.entries[kind], value)
	size := len(s.entries[kind])
	s.mu.Unlock()

	metrics.BanStoreSize.WithLabelValues(string(kind)).Set(float64(size))

	if err := s.durable.Delete(ctx, kind, value); err != nil {
		metrics.BanStoreOps.WithLabelValues("unban", "durable_failure").Inc()
		return fmt.Errorf("banlist: unban %s/%s: durable delete: %w", kind, value, err)
	}
	metrics.BanStoreOps.WithLabelValues("unban", "success").Inc()
	return nil
}

// List returns an identity -> reason snapshot of the fast tier.
func (s *Store) List(kind Kind) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.entries[kind]))
	for value, rec := range s.entries[kind] {
		out[value] = rec.Reason
	}
	return out
}

// Records returns a full-record snapshot of the fast tier, for the
// administrative surface.
func (s *Store) Records(kind Kind) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.entries[kind]))
	for _, rec := range s.entries[kind] {
		out = append(out, rec)
	}
	return out
}

// Restore bulk-loads the durable tier into the fast tier, replacing
// its contents and rebuilding the bloom filter. Runs once at startup
// before the server accepts connections, under the durable tier's
// restore guard so concurrently starting instances do not overlap.
func (s *Store) Restore(ctx context.Context) error {
	release, err := s.durable.AcquireRestoreLock(ctx)
	if err != nil {
		return err
	}
	defer release()

	loaded := make(map[Kind]map[string]Record, len(Kinds))
	total := 0
	for _, kind := range Kinds {
		recs, err := s.durable.Load(ctx, kind)
		if err != nil {
			metrics.BanStoreOps.WithLabelValues("restore", "failure").Inc()
			return fmt.Errorf("banlist: restore: %w", err)
		}
		loaded[kind] = recs
		total += len(recs)
	}

	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPRate)
	for kind, recs := range loaded {
		for value := range recs {
			filter.Add(filterKey(kind, value))
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.entries = loaded
	s.filter = filter
	s.mu.Unlock()

	for _, kind := range Kinds {
		metrics.BanStoreSize.WithLabelValues(string(kind)).Set(float64(len(loaded[kind])))
	}
	metrics.BanStoreOps.WithLabelValues("restore", "success").Inc()
	logging.Info().Int("entries", total).Msg("ban list restored from durable store")
	return nil
}

// Sync pushes a fast-tier snapshot to the durable tier. Ban and Unban
// already write through, so this is a consistency backstop for cold
// durable stores and fast-tier writes that lost their durable half. It
// holds no lock while writing; a concurrent write racing the snapshot
// resolves last-write-wins.
func (s *Store) Sync(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	snapshot := make(map[Kind][]Record, len(Kinds))
	for kind, recs := range s.entries {
		for _, rec := range recs {
			snapshot[kind] = append(snapshot[kind], rec)
		}
	}
	s.mu.RUnlock()

	var firstErr error
	for kind, recs := range snapshot {
		for _, rec := range recs {
			if err := s.durable.Put(ctx, kind, rec); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("banlist: sync %s/%s: %w", kind, rec.Value, err)
			}
		}
	}
	if firstErr != nil {
		metrics.BanStoreOps.WithLabelValues("sync", "failure").Inc()
		return firstErr
	}
	metrics.BanStoreOps.WithLabelValues("sync", "success").Inc()
	return nil
}

// StartSync runs Sync on a background ticker until Close. Each cycle
// gets its own timeout so a stalled durable store cannot wedge the
// goroutine.
func (s *Store) StartSync(interval, timeout time.Duration) {
	s.syncWG.Add(1)
	go func() {
		defer s.syncWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				if err := s.Sync(ctx); err != nil {
					logging.Warn().Err(err).Msg("periodic ban list sync failed")
				}
				cancel()
			case <-s.syncDone:
				return
			}
		}
	}()
}

// Close stops the sync goroutine and marks the store closed. It does
// not close the durable tier; the owner of the durable store does that
// after a final Sync.
func (s *Store) Close() {
	s.syncOnce.Do(func() { close(s.syncDone) })
	s.syncWG.Wait()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
