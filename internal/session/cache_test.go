package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// countingReader is a remote double with a call counter.
type countingReader struct {
	calls atomic.Int32
	snaps map[string]Snapshot
	err   error

	started chan struct{}
	release chan struct{}
}

func newCountingReader() *countingReader {
	return &countingReader{snaps: make(map[string]Snapshot)}
}

func (r *countingReader) GetUser(_ context.Context, id string) (*Snapshot, error) {
	r.calls.Add(1)
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	if r.err != nil {
		return nil, r.err
	}
	s, ok := r.snaps[id]
	if !ok {
		return nil, errors.New("no such user")
	}
	return &s, nil
}

func snapshotFor(id string, toOffer int64) Snapshot {
	return Snapshot{
		Profile: Profile{ID: id, Name: "user " + id},
		Wallet:  Wallet{ID: "w-" + id, ToOffer: toOffer},
	}
}

func newTestCache(t *testing.T, r Reader) *Cache {
	t.Helper()
	c, err := NewCache(r, 16, discard)
	require.NoError(t, err)
	return c
}

func TestCache_ReadCacheOnlyNeverCallsRemote(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 42)
	cache := newTestCache(t, reader)

	for i := 0; i < 100; i++ {
		_, ok := cache.ReadCacheOnly("u1")
		assert.False(t, ok)
	}
	assert.Zero(t, reader.calls.Load())

	_, err := cache.Hydrate(context.Background(), "u1")
	require.NoError(t, err)
	before := reader.calls.Load()

	for i := 0; i < 100; i++ {
		_, ok := cache.ReadCacheOnly("u1")
		assert.True(t, ok)
	}
	assert.Equal(t, before, reader.calls.Load())
}

func TestCache_HydrateThenReadCacheOnly(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 42)
	cache := newTestCache(t, reader)

	got, err := cache.Hydrate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Wallet.ToOffer)

	cached, ok := cache.ReadCacheOnly("u1")
	require.True(t, ok)
	assert.Equal(t, int64(42), cached.Wallet.ToOffer)
	assert.Equal(t, int32(1), reader.calls.Load())
}

func TestCache_HydrateReplacesSnapshot(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 1)
	cache := newTestCache(t, reader)

	_, err := cache.Hydrate(context.Background(), "u1")
	require.NoError(t, err)

	reader.snaps["u1"] = snapshotFor("u1", 2)
	_, err = cache.Hydrate(context.Background(), "u1")
	require.NoError(t, err)

	cached, ok := cache.ReadCacheOnly("u1")
	require.True(t, ok)
	assert.Equal(t, int64(2), cached.Wallet.ToOffer)
}

func TestCache_HydrateFailureKeepsPreviousSnapshot(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 42)
	cache := newTestCache(t, reader)

	_, err := cache.Hydrate(context.Background(), "u1")
	require.NoError(t, err)

	reader.err = errors.New("remote unavailable")
	_, err = cache.Hydrate(context.Background(), "u1")
	require.Error(t, err)

	cached, ok := cache.ReadCacheOnly("u1")
	require.True(t, ok)
	assert.Equal(t, int64(42), cached.Wallet.ToOffer)
}

func TestCache_Invalidate(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 42)
	reader.snaps["u2"] = snapshotFor("u2", 7)
	cache := newTestCache(t, reader)

	_, err := cache.Hydrate(context.Background(), "u1")
	require.NoError(t, err)
	_, err = cache.Hydrate(context.Background(), "u2")
	require.NoError(t, err)

	cache.Invalidate("u1")
	cache.Invalidate("u1")
	cache.Invalidate("never-seen")

	_, ok := cache.ReadCacheOnly("u1")
	assert.False(t, ok)
	_, ok = cache.ReadCacheOnly("u2")
	assert.True(t, ok)
}

func TestCache_ClearDropsEverything(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 42)
	reader.snaps["u2"] = snapshotFor("u2", 7)
	cache := newTestCache(t, reader)

	for _, id := range []string{"u1", "u2"} {
		_, err := cache.Hydrate(context.Background(), id)
		require.NoError(t, err)
	}

	cache.Clear()
	cache.Clear()

	assert.Zero(t, cache.Len())
	_, ok := cache.ReadCacheOnly("u1")
	assert.False(t, ok)
	_, ok = cache.ReadCacheOnly("u2")
	assert.False(t, ok)
}

func TestCache_ConcurrentHydrateIsCoalesced(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 42)
	reader.started = make(chan struct{}, 10)
	reader.release = make(chan struct{})
	cache := newTestCache(t, reader)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]Snapshot, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.Hydrate(context.Background(), "u1")
		}(i)
	}

	<-reader.started
	// Give the remaining callers time to join the in-flight read.
	time.Sleep(50 * time.Millisecond)
	close(reader.release)
	wg.Wait()

	assert.Equal(t, int32(1), reader.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(42), results[i].Wallet.ToOffer)
	}
}

func TestCache_LateResultAfterClearIsDiscarded(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 42)
	reader.started = make(chan struct{}, 1)
	reader.release = make(chan struct{})
	cache := newTestCache(t, reader)

	errCh := make(chan error, 1)
	go func() {
		_, err := cache.Hydrate(context.Background(), "u1")
		errCh <- err
	}()

	<-reader.started
	cache.Clear()
	close(reader.release)

	assert.ErrorIs(t, <-errCh, ErrSessionChanged)
	_, ok := cache.ReadCacheOnly("u1")
	assert.False(t, ok)
}

func TestCache_HydrateAfterClearIsNotCoalescedWithStaleRead(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 42)
	reader.started = make(chan struct{}, 2)
	reader.release = make(chan struct{})
	cache := newTestCache(t, reader)

	staleErr := make(chan error, 1)
	go func() {
		_, err := cache.Hydrate(context.Background(), "u1")
		staleErr <- err
	}()
	<-reader.started

	cache.Clear()

	freshErr := make(chan error, 1)
	go func() {
		_, err := cache.Hydrate(context.Background(), "u1")
		freshErr <- err
	}()
	<-reader.started

	close(reader.release)

	assert.ErrorIs(t, <-staleErr, ErrSessionChanged)
	assert.NoError(t, <-freshErr)
	assert.Equal(t, int32(2), reader.calls.Load())

	_, ok := cache.ReadCacheOnly("u1")
	assert.True(t, ok)
}

func TestCache_HydrateRespectsCallerCancellation(t *testing.T) {
	reader := newCountingReader()
	reader.snaps["u1"] = snapshotFor("u1", 42)
	reader.started = make(chan struct{}, 1)
	reader.release = make(chan struct{})
	cache := newTestCache(t, reader)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := cache.Hydrate(ctx, "u1")
		errCh <- err
	}()

	<-reader.started
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(reader.release)
	// The detached read still lands in the cache for the next reader.
	assert.Eventually(t, func() bool {
		_, ok := cache.ReadCacheOnly("u1")
		return ok
	}, time.Second, 10*time.Millisecond)
}
