package utils

// A simple FIFO cache of recently seen transaction signatures, used to dedupe
// log lines from the pending-transaction feed.
type SigCache struct {
	set      map[string]struct{}
	order    []string
	capacity int
}

const DefaultSigCacheCapacity = 10000

func NewSigCache() *SigCache {
	return &SigCache{
		set:      make(map[string]struct{}),
		capacity: DefaultSigCacheCapacity,
		order:    make([]string, 0, DefaultSigCacheCapacity),
	}
}

func (c *SigCache) Has(sig string) bool {
	_, exists := c.set[sig]
	return exists
}

func (c *SigCache) Add(sig string) {
	if c.Has(sig) {
		return
	}
	if len(c.order) >= c.capacity {
		old := c.order[0]
		c.order = c.order[1:]
		delete(c.set, old)
	}
	c.set[sig] = struct{}{}
	c.order = append(c.order, sig)
}

func (c *SigCache) Len() int {
	return len(c.set)
}
