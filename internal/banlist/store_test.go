package banlist

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*Store, *MemoryDurable) {
	t.Helper()
	durable := NewMemoryDurable()
	store := NewStore(durable)
	t.Cleanup(store.Close)
	return store, durable
}

func TestBanAndIsBanned(t *testing.T) {
	store, durable := newTestStore(t)
	ctx := context.Background()

	if store.IsBanned(KindIP, "192.0.2.1") {
		t.Fatal("fresh store reports a ban")
	}
	if err := store.Ban(ctx, KindIP, "192.0.2.1", "scanner user agent"); err != nil {
		t.Fatal(err)
	}
	if !store.IsBanned(KindIP, "192.0.2.1") {
		t.Fatal("ban not visible in fast tier")
	}
	if store.IsBanned(KindUser, "192.0.2.1") {
		t.Error("ban leaked across kinds")
	}

	reason, ok := store.Reason(KindIP, "192.0.2.1")
	if !ok || reason != "scanner user agent" {
		t.Errorf("Reason = %q, %v", reason, ok)
	}

	recs, err := durable.Load(ctx, KindIP)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := recs["192.0.2.1"]; !ok {
		t.Error("ban not written through to durable tier")
	}
}

func TestBanPreservesFirstReason(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Ban(ctx, KindIP, "192.0.2.1", "first detection"); err != nil {
		t.Fatal(err)
	}
	if err := store.Ban(ctx, KindIP, "192.0.2.1", "second detection"); err != nil {
		t.Fatal(err)
	}
	reason, _ := store.Reason(KindIP, "192.0.2.1")
	if reason != "first detection" {
		t.Errorf("Reason = %q, want the first detection preserved", reason)
	}
}

func TestBanNormalizesMappedIPv6(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Ban(context.Background(), KindIP, "::ffff:192.0.2.7", "probe"); err != nil {
		t.Fatal(err)
	}
	if !store.IsBanned(KindIP, "192.0.2.7") {
		t.Error("plain IPv4 form not banned")
	}
	if !store.IsBanned(KindIP, "::ffff:192.0.2.7") {
		t.Error("mapped IPv6 form not banned")
	}
	if len(store.List(KindIP)) != 1 {
		t.Errorf("List = %v, want one canonical entry", store.List(KindIP))
	}
}

func TestBanInvalidKind(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Ban(context.Background(), Kind("bogus"), "x", "r"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("err = %v, want ErrInvalidKind", err)
	}
}

func TestBanDurableFailureSurfacesButFastTierHolds(t *testing.T) {
	store, durable := newTestStore(t)
	durable.FailPuts = errors.New("disk on fire")

	err := store.Ban(context.Background(), KindIP, "192.0.2.9", "probe")
	if err == nil {
		t.Fatal("durable failure not surfaced")
	}
	// The attacker is still locked out even though persistence failed.
	if !store.IsBanned(KindIP, "192.0.2.9") {
		t.Error("fast-tier ban lost on durable failure")
	}
}

func TestUnban(t *testing.T) {
	store, durable := newTestStore(t)
	ctx := context.Background()

	if err := store.Ban(ctx, KindUser, "alice", "abuse"); err != nil {
		t.Fatal(err)
	}
	if err := store.Unban(ctx, KindUser, "alice"); err != nil {
		t.Fatal(err)
	}
	if store.IsBanned(KindUser, "alice") {
		t.Error("still banned after Unban")
	}
	recs, _ := durable.Load(ctx, KindUser)
	if len(recs) != 0 {
		t.Error("durable tier still holds the record")
	}

	// Absent identity is a no-op.
	if err := store.Unban(ctx, KindUser, "nobody"); err != nil {
		t.Errorf("Unban of absent identity: %v", err)
	}
}

func TestRestoreRebuildsFastTier(t *testing.T) {
	durable := NewMemoryDurable()
	ctx := context.Background()
	seed := []Record{
		{Value: "192.0.2.1", Reason: "seeded", CreatedAt: time.Now().UTC()},
		{Value: "192.0.2.2", Reason: "seeded", CreatedAt: time.Now().UTC()},
	}
	for _, rec := range seed {
		if err := durable.Put(ctx, KindIP, rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := durable.Put(ctx, KindToken, Record{Value: "sig123", Reason: "revoked"}); err != nil {
		t.Fatal(err)
	}

	store := NewStore(durable)
	defer store.Close()

	if store.IsBanned(KindIP, "192.0.2.1") {
		t.Fatal("ban visible before Restore")
	}
	if err := store.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	for _, rec := range seed {
		if !store.IsBanned(KindIP, rec.Value) {
			t.Errorf("%s not restored", rec.Value)
		}
	}
	if !store.IsBanned(KindToken, "sig123") {
		t.Error("token ban not restored")
	}
	if store.IsBanned(KindIP, "192.0.2.99") {
		t.Error("unseeded identity reported banned after restore")
	}
}

func TestRestoreReplacesStaleEntries(t *testing.T) {
	store, durable := newTestStore(t)
	ctx := context.Background()

	if err := store.Ban(ctx, KindIP, "192.0.2.50", "pre-restore"); err != nil {
		t.Fatal(err)
	}
	// Simulate another worker removing the ban durably.
	if err := durable.Delete(ctx, KindIP, "192.0.2.50"); err != nil {
		t.Fatal(err)
	}
	if err := store.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	if store.IsBanned(KindIP, "192.0.2.50") {
		t.Error("restore kept an entry the durable tier no longer has")
	}
}

func TestSyncBackfillsDurableTier(t *testing.T) {
	store, durable := newTestStore(t)
	ctx := context.Background()

	// A durable outage during Ban leaves the fast tier ahead.
	durable.FailPuts = errors.New("outage")
	_ = store.Ban(ctx, KindIP, "192.0.2.77", "probe")
	durable.FailPuts = nil

	if err := store.Sync(ctx); err != nil {
		t.Fatal(err)
	}
	recs, _ := durable.Load(ctx, KindIP)
	if _, ok := recs["192.0.2.77"]; !ok {
		t.Error("sync did not backfill the missed write")
	}
}

func TestClosedStoreRejectsWrites(t *testing.T) {
	store, _ := newTestStore(t)
	store.Close()

	ctx := context.Background()
	if err := store.Ban(ctx, KindIP, "192.0.2.1", "r"); !errors.Is(err, ErrClosed) {
		t.Errorf("Ban after close: %v, want ErrClosed", err)
	}
	if err := store.Unban(ctx, KindIP, "192.0.2.1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Unban after close: %v, want ErrClosed", err)
	}
	if err := store.Sync(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Sync after close: %v, want ErrClosed", err)
	}
	if store.IsBanned(KindIP, "192.0.2.1") {
		t.Error("closed store reports bans")
	}
}

func TestRecordsSnapshot(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	if err := store.Ban(ctx, KindUser, "alice", "abuse"); err != nil {
		t.Fatal(err)
	}
	recs := store.Records(KindUser)
	if len(recs) != 1 || recs[0].Value != "alice" || recs[0].Reason != "abuse" {
		t.Fatalf("Records = %+v", recs)
	}
	if recs[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}
