package match

import (
	"fsq/feature"
	"github.com/hauke96/sigolo/v2"
	"sync"
)

// Cache holds compiled programs by their selector string. Programs are only valid for the string table they were
// compiled against, so each store has its own cache.
type Cache struct {
	strings  feature.StringResolver
	programs map[string]*Program
	maxSize  int
	mutex    *sync.RWMutex
}

// NewCache creates a cache holding at most maxSize programs. All entries are dropped at once when the cache is full.
func NewCache(strings feature.StringResolver, maxSize int) *Cache {
	return &Cache{
		strings:  strings,
		programs: map[string]*Program{},
		maxSize:  maxSize,
		mutex:    &sync.RWMutex{},
	}
}

// Get returns the program of the given selector and compiles it when not cached yet.
func (c *Cache) Get(selector string) (*Program, error) {
	c.mutex.RLock()
	program, ok := c.programs[selector]
	c.mutex.RUnlock()
	if ok {
		sigolo.Tracef("Use cached program for selector %q", selector)
		return program, nil
	}

	program, err := Compile(selector, c.strings)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if existing, ok := c.programs[selector]; ok {
		// Compiled concurrently by another goroutine
		return existing, nil
	}
	if c.maxSize > 0 && len(c.programs) >= c.maxSize {
		sigolo.Debugf("Program cache full with %d entries, clear it", len(c.programs))
		c.programs = map[string]*Program{}
	}
	c.programs[selector] = program
	return program, nil
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.programs)
}
