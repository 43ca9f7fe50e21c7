package mediaserver

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kshepherd/vibin-go/internal/model"
)

func TestMetadataCacheExpiresAfterTTL(t *testing.T) {
	c := newMetadataCache()
	c.put("track-1", model.Track{ID: "track-1", Title: "Track One"})

	cached, ok := c.get("track-1")
	require.True(t, ok)
	require.Equal(t, "Track One", cached.Title)

	c.entries["track-1"] = metadataCacheEntry{track: cached, expiresAt: time.Now().Add(-time.Second)}
	_, ok = c.get("track-1")
	require.False(t, ok, "entry should have been swept once its TTL elapsed")
}

func TestBrowseGateBoundsConcurrency(t *testing.T) {
	gate := newBrowseGate()

	var current, peak int32
	var wg sync.WaitGroup
	wg.Add(5)

	for i := 0; i < 5; i++ {
		go func() {
			defer wg.Done()
			gate.run(context.Background(), "slow-browse", func(ctx context.Context) error {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, peak, int32(maxConcurrentBrowse))
}
