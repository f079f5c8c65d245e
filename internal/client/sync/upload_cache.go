package sync

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const uploadCacheSize = 1024

// UploadCache remembers the content hash of the last successful upload per
// path so that redundant dispatches (same bytes, new events) are skipped.
// Bounded, so it never grows with the tree; a miss just means one extra
// upload.
type UploadCache struct {
	cache *lru.Cache[string, string]
}

func NewUploadCache() *UploadCache {
	cache, _ := lru.New[string, string](uploadCacheSize)
	return &UploadCache{cache: cache}
}

// Unchanged reports whether the path's last uploaded content hash matches.
func (c *UploadCache) Unchanged(relPath, hash string) bool {
	prev, ok := c.cache.Get(relPath)
	return ok && prev == hash
}

func (c *UploadCache) Put(relPath, hash string) {
	c.cache.Add(relPath, hash)
}

func (c *UploadCache) Forget(relPath string) {
	c.cache.Remove(relPath)
}
