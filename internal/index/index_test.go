package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberkv/emberkv/internal/hash"
)

// fakeEntries is a minimal KeySource backing store for tests: a plain
// append-only slice of keys plus an expired set.
type fakeEntries struct {
	keys    [][]byte
	expired map[Ref]bool
}

func newFakeEntries() *fakeEntries {
	return &fakeEntries{expired: map[Ref]bool{}}
}

func (f *fakeEntries) add(key string) Ref {
	ref := Ref(len(f.keys))
	f.keys = append(f.keys, []byte(key))
	return ref
}

func (f *fakeEntries) KeyAt(ref Ref) []byte { return f.keys[ref] }
func (f *fakeEntries) Expired(ref Ref) bool { return f.expired[ref] }

func TestLookupMissOnEmpty(t *testing.T) {
	entries := newFakeEntries()
	ix := New(16, entries)

	_, found := ix.Lookup(hash.FNV1a64String("nope"), []byte("nope"))
	assert.False(t, found)
}

func TestInsertLookupRoundTrip(t *testing.T) {
	entries := newFakeEntries()
	ix := New(16, entries)

	ref := entries.add("foo")
	ix.Insert(hash.FNV1a64String("foo"), []byte("foo"), ref)

	got, found := ix.Lookup(hash.FNV1a64String("foo"), []byte("foo"))
	require.True(t, found)
	assert.Equal(t, ref, got)
}

func TestDeleteTombstonesAndMissesAfter(t *testing.T) {
	entries := newFakeEntries()
	ix := New(16, entries)

	ref := entries.add("foo")
	ix.Insert(hash.FNV1a64String("foo"), []byte("foo"), ref)

	got, ok := ix.Delete(hash.FNV1a64String("foo"), []byte("foo"))
	require.True(t, ok)
	assert.Equal(t, ref, got)

	_, found := ix.Lookup(hash.FNV1a64String("foo"), []byte("foo"))
	assert.False(t, found)

	_, ok = ix.Delete(hash.FNV1a64String("foo"), []byte("foo"))
	assert.False(t, ok, "deleting twice must report not-found the second time")
}

// TestProbeCompletenessPastTombstones checks that after interleaving
// inserts and deletes that leave a key present, a lookup must still
// find it even though tombstones litter the probe chain ahead of it.
func TestProbeCompletenessPastTombstones(t *testing.T) {
	entries := newFakeEntries()
	ix := New(16, entries)

	keys := []string{"a", "b", "c", "d", "e"}
	refs := map[string]Ref{}
	for _, k := range keys {
		ref := entries.add(k)
		refs[k] = ref
		ix.Insert(hash.FNV1a64String(k), []byte(k), ref)
	}

	// delete everything except "e", which should still be reachable
	// regardless of how many tombstones precede it in its chain.
	for _, k := range []string{"a", "b", "c", "d"} {
		_, ok := ix.Delete(hash.FNV1a64String(k), []byte(k))
		require.True(t, ok)
	}

	got, found := ix.Lookup(hash.FNV1a64String("e"), []byte("e"))
	require.True(t, found)
	assert.Equal(t, refs["e"], got)
}

// TestResizeCarriesLiveKeysForward checks that growing the table
// leaves every previously inserted, still-live key readable once
// migration completes.
func TestResizeCarriesLiveKeysForward(t *testing.T) {
	entries := newFakeEntries()
	ix := New(16, entries)

	const n = 200
	refs := make(map[string]Ref, n)
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("key-%d", i)
		ref := entries.add(k)
		refs[k] = ref
		ix.Insert(hash.FNV1a64String(k), []byte(k), ref)

		// every key inserted so far must stay visible at every step,
		// resize in progress or not.
		for j := 0; j <= i; j++ {
			kj := fmt.Sprintf("key-%d", j)
			got, found := ix.Lookup(hash.FNV1a64String(kj), []byte(kj))
			require.True(t, found, "key %s should still be readable at step %d", kj, i)
			require.Equal(t, refs[kj], got)
		}
	}
	assert.False(t, ix.Resizing(), "enough store operations should have drained the migration")
}

// TestLiveCountDuringResize checks that LiveCount reflects every live
// key throughout a resize, not just once migration completes. Before
// the running counter, LiveCount walked only the old table, so keys
// inserted into the new table while a resize was in progress went
// uncounted for the whole migration window.
func TestLiveCountDuringResize(t *testing.T) {
	entries := newFakeEntries()
	ix := New(16, entries)

	const n = 200
	want := 0
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("key-%d", i)
		ref := entries.add(k)
		ix.Insert(hash.FNV1a64String(k), []byte(k), ref)
		want++

		require.Equal(t, want, ix.LiveCount(), "live count wrong at step %d (resizing=%v)", i, ix.Resizing())
	}
	assert.False(t, ix.Resizing(), "enough store operations should have drained the migration")
	assert.Equal(t, want, ix.LiveCount())

	_, ok := ix.Delete(hash.FNV1a64String("key-0"), []byte("key-0"))
	require.True(t, ok)
	want--
	assert.Equal(t, want, ix.LiveCount())
}

func TestMigrationDropsExpiredEntries(t *testing.T) {
	entries := newFakeEntries()
	ix := New(16, entries)

	liveRef := entries.add("live")
	ix.Insert(hash.FNV1a64String("live"), []byte("live"), liveRef)

	expiredRef := entries.add("expired")
	ix.Insert(hash.FNV1a64String("expired"), []byte("expired"), expiredRef)
	entries.expired[expiredRef] = true

	// force enough inserts to cross the 70% load factor and then
	// drive the migration to completion with further inserts, each
	// of which advances the migration by one batch.
	for i := 0; ix.Resizing() || i < 20; i++ {
		k := fmt.Sprintf("filler-%d", i)
		ref := entries.add(k)
		ix.Insert(hash.FNV1a64String(k), []byte(k), ref)
		if i > 1000 {
			t.Fatal("migration never completed")
		}
	}

	_, found := ix.Lookup(hash.FNV1a64String("live"), []byte("live"))
	assert.True(t, found)

	_, found = ix.Lookup(hash.FNV1a64String("expired"), []byte("expired"))
	assert.False(t, found, "expired entry should have been dropped during migration")

	// the dropped expired entry must not be double-counted as live.
	assert.Equal(t, len(entries.keys)-1, ix.LiveCount())
}
