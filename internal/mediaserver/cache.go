package mediaserver

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kshepherd/vibin-go/internal/model"
)

// metadataTTL is how long a Metadata(id) result is cached before it's
// considered stale; expired entries are swept lazily on the next miss
// for the same id, matching the teacher's zonecache.go TTL-cache style.
const metadataTTL = 5 * time.Second

// maxConcurrentBrowse bounds outstanding SOAP Browse calls: the teacher's
// parallel.go bounded-concurrency helper observed that higher
// concurrency against a UPnP content directory causes long tail
// latencies, so every browse acquires a permit first.
const maxConcurrentBrowse = 2

type metadataCacheEntry struct {
	track     model.Track
	expiresAt time.Time
}

// metadataCache is a small per-id TTL cache guarding repeated
// Metadata(id) SOAP calls for the same track during a short burst (e.g.
// several REST handlers resolving the same now-playing track).
type metadataCache struct {
	mu      sync.Mutex
	entries map[model.MediaId]metadataCacheEntry
}

func newMetadataCache() *metadataCache {
	return &metadataCache{entries: make(map[model.MediaId]metadataCacheEntry)}
}

func (c *metadataCache) get(id model.MediaId) (model.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return model.Track{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, id)
		return model.Track{}, false
	}
	return entry.track, true
}

func (c *metadataCache) put(id model.MediaId, track model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = metadataCacheEntry{track: track, expiresAt: time.Now().Add(metadataTTL)}
}

// browseGate serializes SOAP Browse calls behind maxConcurrentBrowse
// permits, logging in-flight count and call duration the way the
// teacher's parallel.go bounded-concurrency helper does.
type browseGate struct {
	sem      chan struct{}
	inFlight int32
	mu       sync.Mutex
}

func newBrowseGate() *browseGate {
	return &browseGate{sem: make(chan struct{}, maxConcurrentBrowse)}
}

func (g *browseGate) run(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.sem }()

	g.mu.Lock()
	g.inFlight++
	inFlight := g.inFlight
	g.mu.Unlock()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()

	log.Printf("MEDIASERVER: %s in-flight=%d elapsed=%s err=%v", label, inFlight, elapsed, err)
	return err
}
