package loader

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"sync"

	"github.com/sartorproj/skuforecast/demand"
	"github.com/sartorproj/skuforecast/logger"
)

// Cache memoizes parsed demand history per file. Every call hashes the file
// contents, so a changed file is always reparsed.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	sum    [sha256.Size]byte
	series map[string]*demand.Series
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// LoadFile returns the series in path, parsing only when the file changed
// since the last call. Callers receive their own copies.
func (c *Cache) LoadFile(path string) (map[string]*demand.Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read demand history: %w", err)
	}
	sum := sha256.Sum256(data)
	log := logger.GetLogger().WithComponent("loader").WithField("path", path)

	c.mu.Lock()
	entry, ok := c.entries[path]
	c.mu.Unlock()
	if ok && entry.sum == sum {
		log.Debug("demand history cache hit")
		return copySeries(entry.series), nil
	}

	series, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{sum: sum, series: series}
	c.mu.Unlock()
	log.Debug("demand history cache refreshed")

	return copySeries(series), nil
}

// Invalidate drops the cached entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

func copySeries(in map[string]*demand.Series) map[string]*demand.Series {
	out := make(map[string]*demand.Series, len(in))
	for k, s := range in {
		out[k] = s.Copy()
	}
	return out
}
