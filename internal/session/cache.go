package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/brunogervazio/ezcoins-web/internal/metrics"
)

// ErrSessionChanged is returned by Hydrate when the cache was cleared while the
// remote read was in flight. The late result is dropped.
var ErrSessionChanged = errors.New("session changed during hydrate")

// Reader fetches a fresh snapshot from the remote profile/wallet service.
type Reader interface {
	GetUser(ctx context.Context, id string) (*Snapshot, error)
}

// Cache is the process-wide session cache, keyed by user identifier.
//
// Reads come in two explicit flavours: ReadCacheOnly never touches the
// Reader, Hydrate always does. Concurrent Hydrate calls for the same user are
// coalesced into one remote read. Clear advances an epoch; a read started
// before the epoch changed is never written back.
type Cache struct {
	reader Reader
	logger *slog.Logger

	mu      sync.Mutex
	entries *lru.Cache[string, Snapshot]
	epoch   uint64

	group singleflight.Group
}

// NewCache creates a cache holding at most size snapshots.
func NewCache(reader Reader, size int, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := lru.New[string, Snapshot](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Cache{reader: reader, logger: logger, entries: entries}, nil
}

// ReadCacheOnly returns the last hydrated snapshot for userID without any
// network I/O. A miss is reported as false, not as an error.
func (c *Cache) ReadCacheOnly(userID string) (Snapshot, bool) {
	c.mu.Lock()
	snap, ok := c.entries.Get(userID)
	c.mu.Unlock()

	if ok {
		metrics.CacheReads.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheReads.WithLabelValues("miss").Inc()
	}
	return snap, ok
}

// Hydrate fetches a fresh snapshot for userID, stores it and returns it. On
// failure the previously cached snapshot, if any, is left untouched.
func (c *Cache) Hydrate(ctx context.Context, userID string) (Snapshot, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	key := fmt.Sprintf("%d/%s", epoch, userID)
	ch := c.group.DoChan(key, func() (any, error) {
		// Detached from the first caller so that its cancellation does not
		// fail the callers coalesced onto the same read.
		snap, err := c.reader.GetUser(context.WithoutCancel(ctx), userID)
		if err != nil {
			return Snapshot{}, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch {
			return Snapshot{}, ErrSessionChanged
		}
		c.entries.Add(userID, *snap)
		return *snap, nil
	})

	select {
	case <-ctx.Done():
		metrics.Hydrations.WithLabelValues("canceled").Inc()
		return Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.Hydrations.WithLabelValues(hydrateResult(res.Err)).Inc()
			c.logger.Warn("session hydrate failed",
				slog.String("user_id", userID),
				slog.String("error", res.Err.Error()),
			)
			return Snapshot{}, res.Err
		}
		if res.Shared {
			metrics.Hydrations.WithLabelValues("coalesced").Inc()
		} else {
			metrics.Hydrations.WithLabelValues("ok").Inc()
		}
		return res.Val.(Snapshot), nil
	}
}

// Invalidate drops the snapshot for userID. It is idempotent.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(userID)
}

// Clear drops every snapshot and makes any in-flight hydrate discard its result.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.epoch++
}

// Len reports how many snapshots are cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func hydrateResult(err error) string {
	if errors.Is(err, ErrSessionChanged) {
		return "discarded"
	}
	return "error"
}
