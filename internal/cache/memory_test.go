package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore(time.Minute)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryStore_SetAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "airtable:bases", []byte(`{"bases":[]}`), time.Minute))

	payload, ok, err := store.Get(ctx, "airtable:bases")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"bases":[]}`), payload)
}

func TestMemoryStore_Get_Missing(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.Get(context.Background(), "airtable:schema:appUnknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Get_Expired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "airtable:record:b:t:r", []byte("payload"), 10*time.Millisecond))

	// Present before the TTL elapses
	_, ok, err := store.Get(ctx, "airtable:record:b:t:r")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	// A pure read must observe expiry without waiting for the janitor
	_, ok, err = store.Get(ctx, "airtable:record:b:t:r")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Set_Replaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", []byte("old"), time.Minute))
	require.NoError(t, store.Set(ctx, "key", []byte("new"), time.Minute))

	payload, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), payload)
}

func TestMemoryStore_Set_NonPositiveTTL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", []byte("payload"), 0))

	_, ok, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Set(ctx, "a", []byte("1"), time.Minute)
	store.Set(ctx, "b", []byte("2"), time.Minute)

	require.NoError(t, store.Delete(ctx, "a", "missing"))

	_, ok, _ := store.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Set(ctx, KeyRecords("appBase1", "tblTasks", "h1"), []byte("1"), time.Minute)
	store.Set(ctx, KeyRecords("appBase1", "tblTasks", "h2"), []byte("2"), time.Minute)
	store.Set(ctx, KeyRecords("appBase1", "tblNotes", "h1"), []byte("3"), time.Minute)
	store.Set(ctx, KeySchema("appBase1"), []byte("4"), time.Minute)

	dropped, err := store.DeletePrefix(ctx, PrefixRecords("appBase1", "tblTasks"))
	require.NoError(t, err)
	assert.Equal(t, 2, dropped)

	// Entries outside the prefix survive
	_, ok, _ := store.Get(ctx, KeyRecords("appBase1", "tblNotes", "h1"))
	assert.True(t, ok)
	_, ok, _ = store.Get(ctx, KeySchema("appBase1"))
	assert.True(t, ok)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("airtable:record:b:t:rec%d", n)
			for j := 0; j < 50; j++ {
				store.Set(ctx, key, []byte("payload"), time.Minute)
				store.Get(ctx, key)
				if j%10 == 0 {
					store.DeletePrefix(ctx, "airtable:record:b:t:")
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryStore_Janitor(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	store.Set(ctx, "short", []byte("1"), 5*time.Millisecond)
	store.Set(ctx, "long", []byte("2"), time.Minute)

	assert.Eventually(t, func() bool {
		return store.Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_Close_Idempotent(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestMemoryStore_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
