package marketdata

import (
	"sync"
	"time"

	"github.com/erain9/marketsim/pkg/core"
	"github.com/erain9/marketsim/pkg/exchange"
)

// Snapshot is an immutable market-data view: top of book, full depth per
// side and the reference price.
type Snapshot struct {
	Instrument string
	Touch      core.Touch
	BidDepth   []core.Interest
	OfferDepth []core.Interest
	Reference  *core.Level
	Taken      time.Time
}

// Source recomputes a fresh snapshot from live market state.
type Source func() Snapshot

// ManagerSource builds a Source reading from an order manager.
func ManagerSource(symbol string, m *exchange.OrderManager) Source {
	return func() Snapshot {
		bids, offers := m.Depth()
		return Snapshot{
			Instrument: symbol,
			Touch:      m.Touch(),
			BidDepth:   bids,
			OfferDepth: offers,
			Reference:  m.Reference(),
		}
	}
}

// Cache serves snapshots with a configurable maximum age. A stale read
// triggers an asynchronous recompute but still returns the last good value
// immediately: reads never block, freshness is eventually consistent. This
// deliberately simulates real market-data latency.
type Cache struct {
	source Source
	maxAge time.Duration

	mu         sync.Mutex
	last       Snapshot
	hasLast    bool
	refreshing bool
}

// NewCache creates a cache over the given source.
func NewCache(source Source, maxAge time.Duration) *Cache {
	return &Cache{source: source, maxAge: maxAge}
}

// Get returns the last good snapshot, kicking off a background refresh
// when it has aged out. The very first read computes synchronously.
func (c *Cache) Get() Snapshot {
	c.mu.Lock()

	if !c.hasLast {
		c.mu.Unlock()
		snap := c.take()
		c.mu.Lock()
		if !c.hasLast {
			c.last = snap
			c.hasLast = true
		}
		defer c.mu.Unlock()
		return c.last
	}

	if time.Since(c.last.Taken) > c.maxAge && !c.refreshing {
		c.refreshing = true
		go c.refresh()
	}

	defer c.mu.Unlock()
	return c.last
}

func (c *Cache) refresh() {
	snap := c.take()
	c.mu.Lock()
	c.last = snap
	c.refreshing = false
	c.mu.Unlock()
}

func (c *Cache) take() Snapshot {
	snap := c.source()
	snap.Taken = time.Now()
	return snap
}
