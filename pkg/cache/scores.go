package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ScoreCache memoizes objective scores by canonical configuration key, so a
// configuration the optimizer proposes twice is only trained once.
type ScoreCache struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, float64]
	hits   uint64
	misses uint64
}

// NewScoreCache creates a score cache holding up to size entries.
func NewScoreCache(size int) (*ScoreCache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, float64](size)
	if err != nil {
		return nil, err
	}
	return &ScoreCache{lru: c}, nil
}

// Get returns the cached score for a configuration key.
func (c *ScoreCache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	score, ok := c.lru.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return score, ok
}

// Set stores the score for a configuration key.
func (c *ScoreCache) Set(key string, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, score)
}

// Stats returns hit and miss counts.
func (c *ScoreCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
