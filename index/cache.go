package index

import (
	"fsq/geom"
	"math"
	"sync"
)

// lruTileCache is a simple LRU (least recently used) cache for decoded tiles. It has an internal locking mechanism and
// can be used in concurrent goroutines. Recency is measured by a counter that increases with every access.
type lruTileCache struct {
	tileCache           map[geom.Tile]*TileData
	tileCacheLastAccess map[geom.Tile]uint64
	tileCacheMutex      *sync.Mutex
	accessCounter       uint64
	maxSize             int // Maximum number of entries this cache should hold
}

func newLruCache(maxSize int) *lruTileCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &lruTileCache{
		tileCache:           map[geom.Tile]*TileData{},
		tileCacheLastAccess: map[geom.Tile]uint64{},
		tileCacheMutex:      &sync.Mutex{},
		maxSize:             maxSize,
	}
}

func (c *lruTileCache) has(tile geom.Tile) bool {
	c.tileCacheMutex.Lock()
	defer c.tileCacheMutex.Unlock()

	_, ok := c.tileCache[tile]
	return ok
}

// get returns the cached tile and marks it as recently used.
func (c *lruTileCache) get(tile geom.Tile) (*TileData, bool) {
	c.tileCacheMutex.Lock()
	defer c.tileCacheMutex.Unlock()

	data, ok := c.tileCache[tile]
	if ok {
		c.accessCounter++
		c.tileCacheLastAccess[tile] = c.accessCounter
	}
	return data, ok
}

// insert adds the given tile to the cache. If the cache is full, the tile that hasn't been used longest will be
// evicted from the cache. Inserting an already cached tile replaces it.
func (c *lruTileCache) insert(tile geom.Tile, data *TileData) {
	c.tileCacheMutex.Lock()
	defer c.tileCacheMutex.Unlock()

	_, alreadyCached := c.tileCache[tile]
	if !alreadyCached && len(c.tileCache) >= c.maxSize {
		longestUnusedTile := c.getMinEntry()
		delete(c.tileCache, longestUnusedTile)
		delete(c.tileCacheLastAccess, longestUnusedTile)
	}

	c.accessCounter++
	c.tileCacheLastAccess[tile] = c.accessCounter
	c.tileCache[tile] = data
}

// getMinEntry returns the entry that hasn't been used longest. This function does NOT use locking and is meant for
// internal use only!
func (c *lruTileCache) getMinEntry() geom.Tile {
	minAccess := uint64(math.MaxUint64)
	var minTile geom.Tile

	for tile, access := range c.tileCacheLastAccess {
		if access < minAccess {
			minAccess = access
			minTile = tile
		}
	}

	return minTile
}

func (c *lruTileCache) len() int {
	c.tileCacheMutex.Lock()
	defer c.tileCacheMutex.Unlock()

	return len(c.tileCache)
}
