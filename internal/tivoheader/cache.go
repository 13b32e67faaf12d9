package tivoheader

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// DetailsFunc renders the TvBus details document for (tsn, path) on a cache
// miss; typically VideoMetadata lookup + RenderDetails.
type DetailsFunc func(tsn, path string) ([]byte, error)

// detailsKey is an LRU(1) cache, replaying the original tool's
// `tvbus_cache = LRUCache(1)` (plugins/video/video.go): at most one entry is
// ever held, so back-to-back requests for the same (tsn, path) from a
// TiVo's own QueryContainer-then-download sequence hit cache, but switching
// to a different file evicts it immediately. Concurrent misses for the same
// key are collapsed with singleflight rather than rendering the same
// details document twice.
type detailsKey struct {
	tsn  string
	path string
}

// DetailsCache is the LRU(1) + singleflight cache spec.md §4.4 requires for
// the TvBus details XML embedded in synthesized TiVo headers.
type DetailsCache struct {
	mu    sync.Mutex
	key   detailsKey
	value []byte
	valid bool

	group singleflight.Group
	fetch DetailsFunc
}

// NewDetailsCache builds a DetailsCache that calls fetch on a miss.
func NewDetailsCache(fetch DetailsFunc) *DetailsCache {
	return &DetailsCache{fetch: fetch}
}

// Get returns the cached details for (tsn, path), rendering and caching
// them on a miss. Concurrent Get calls for the same key share one fetch.
func (c *DetailsCache) Get(tsn, path string) ([]byte, error) {
	key := detailsKey{tsn: tsn, path: path}

	c.mu.Lock()
	if c.valid && c.key == key {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	sfKey := tsn + "\x00" + path
	v, err, _ := c.group.Do(sfKey, func() (any, error) {
		return c.fetch(tsn, path)
	})
	if err != nil {
		return nil, err
	}
	details := v.([]byte)

	c.mu.Lock()
	c.key = key
	c.value = details
	c.valid = true
	c.mu.Unlock()

	return details, nil
}

// Invalidate drops the cached entry if it matches (tsn, path); used when a
// share Reset invalidates in-flight metadata.
func (c *DetailsCache) Invalidate(tsn, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.key == (detailsKey{tsn: tsn, path: path}) {
		c.valid = false
		c.value = nil
	}
}
