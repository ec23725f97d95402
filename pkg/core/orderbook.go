package core

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// Book is one side of the order book: a level-ordered collection of
// LimitQueues guarded by a read-write lock. Structural reads take the read
// lock, structural writes the write lock; batch-level atomicity across both
// books is the OrderManager's concern.
type Book struct {
	mu         sync.RWMutex
	side       Side
	instrument *Instrument
	queues     map[int]*LimitQueue
}

// NewBook creates an empty book for one side of one instrument.
func NewBook(side Side, instrument *Instrument) *Book {
	return &Book{
		side:       side,
		instrument: instrument,
		queues:     make(map[int]*LimitQueue),
	}
}

// Side returns the side of the book.
func (b *Book) Side() Side {
	return b.side
}

// NewOrder inserts a pending order into the book and derives its live
// state. Protocol violations (no id, wrong side, non-pending state) return
// an error; resubmitting an order already queued at its level returns
// false.
func (b *Book) NewOrder(o *Order, now time.Time) (bool, error) {
	if o.ID() == 0 {
		return false, ErrNoOrderID
	}
	if o.Side() != b.side {
		return false, fmt.Errorf("%w: %s order on %s book", ErrWrongSide, o.Side(), b.side)
	}
	if !o.State().IsPending() {
		return false, fmt.Errorf("%w: state %s", ErrNotPending, o.State())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queueAt(o.Level())
	if !q.Append(o) {
		return false, nil
	}
	o.ResetState(now)
	return true, nil
}

// CancelOrder removes a resident order matching o and resolves it to
// Cancelled. Returns false when no matching order rests in the book (it may
// have already been filled); the caller notifies the sender "too late".
func (b *Book) CancelOrder(o *Order, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queues[o.Level().Index()]
	if q == nil {
		return false
	}
	resident := q.Remove(o)
	if resident == nil {
		return false
	}
	b.prune(q)

	resident.ChangeState(PendingCancel, now)
	resident.ResetState(now)
	return true
}

// ForceCancel removes a resident order bypassing the pending-cancel
// intermediate. Used when entering an auction.
func (b *Book) ForceCancel(o *Order, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queues[o.Level().Index()]
	if q == nil {
		return false
	}
	resident := q.Remove(o)
	if resident == nil {
		return false
	}
	b.prune(q)

	resident.Cancel(true, now)
	return true
}

// ReplaceOrder amends a resident order's level and quantity, requeueing it
// at the back of its (possibly new) level. Returns false when the order is
// not resident.
func (b *Book) ReplaceOrder(o *Order, level *Level, quantity int64, now time.Time) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queues[o.Level().Index()]
	if q == nil {
		return false, nil
	}
	resident := q.Resident(o)
	if resident == nil {
		return false, nil
	}

	// An amendment changing nothing never leaves the queue, so the order
	// keeps its time priority.
	if resident.Level() == level && resident.Quantity() == quantity {
		return true, nil
	}

	q.Remove(resident)
	b.prune(q)

	if !resident.Replace(level, quantity, now) {
		b.queueAt(resident.Level()).Append(resident)
		return true, nil
	}

	resident.ResetState(now)
	if !resident.State().IsTerminal() {
		b.queueAt(resident.Level()).Append(resident)
	}
	return true, nil
}

// Execute fills quantity of a resident order at the given execution level,
// removing it from book structure once its remaining quantity reaches zero.
func (b *Book) Execute(o *Order, quantity int64, at *Level, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	q := b.queues[o.Level().Index()]
	if q == nil {
		return false
	}
	if !q.Fill(o, quantity, at, now) {
		return false
	}
	b.prune(q)
	return true
}

// GetBestLimitQueue returns the first non-market level in side order with
// at least one order, or the market queue if none.
func (b *Book) GetBestLimitQueue() *LimitQueue {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, idx := range b.limitIndexes() {
		if q := b.queues[idx]; q.Len() > 0 {
			return q
		}
	}
	return b.queues[MarketLevelIndex]
}

// GetBestInterest returns a detached copy of the best limit level's
// interest, or false when no limit orders rest.
func (b *Book) GetBestInterest() (Interest, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, idx := range b.limitIndexes() {
		if q := b.queues[idx]; q.Len() > 0 {
			return q.Interest().Copy(), true
		}
	}
	return Interest{}, false
}

// GetMarketInterest returns a detached copy of the market queue's interest.
func (b *Book) GetMarketInterest() Interest {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if q := b.queues[MarketLevelIndex]; q != nil {
		return q.Interest().Copy()
	}
	return Interest{side: b.side, level: b.instrument.MarketLevel()}
}

// GetExecutableLevels returns a priority-ordered, independent snapshot of
// the interests with resident orders, market level first. Safe for
// publication.
func (b *Book) GetExecutableLevels() []Interest {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Interest, 0, len(b.queues))
	if q := b.queues[MarketLevelIndex]; q != nil && q.Len() > 0 {
		out = append(out, q.Interest().Copy())
	}
	for _, idx := range b.limitIndexes() {
		if q := b.queues[idx]; q.Len() > 0 {
			out = append(out, q.Interest().Copy())
		}
	}
	return out
}

// GetVwapOfLimitOrders computes the quantity-weighted average price across
// all non-market levels with resident interest, re-quantized to the nearest
// representable level. An approximation, not a continuous VWAP. Returns nil
// when no limit interest rests.
func (b *Book) GetVwapOfLimitOrders() *Level {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sum float64
	var qty int64
	for idx, q := range b.queues {
		if idx == MarketLevelIndex || q.Len() == 0 {
			continue
		}
		sum += q.Level().Price().Float64() * float64(q.Interest().Quantity())
		qty += q.Interest().Quantity()
	}
	if qty == 0 {
		return nil
	}
	return b.instrument.LevelFor(fpdecimal.FromFloat(sum / float64(qty)))
}

// Volumes returns the remaining quantity per limit level index plus the
// market-level volume. Used to snapshot the book for auction evaluation.
func (b *Book) Volumes() (limits map[int]int64, market int64) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limits = make(map[int]int64, len(b.queues))
	for idx, q := range b.queues {
		if q.Len() == 0 {
			continue
		}
		if idx == MarketLevelIndex {
			market = q.Interest().Quantity()
			continue
		}
		limits[idx] = q.Interest().Quantity()
	}
	return limits, market
}

// QueuesAtOrBetter returns the live queues whose level is at least as good
// as limit for this side, market queue included, best first.
func (b *Book) QueuesAtOrBetter(limit *Level) []*LimitQueue {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*LimitQueue, 0, len(b.queues))
	if q := b.queues[MarketLevelIndex]; q != nil && q.Len() > 0 {
		out = append(out, q)
	}
	for _, idx := range b.limitIndexes() {
		q := b.queues[idx]
		if q.Len() == 0 {
			continue
		}
		if limit != nil && !b.side.BetterOrEqual(q.Level(), limit) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Empty reports whether no orders rest on the book.
func (b *Book) Empty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, q := range b.queues {
		if q.Len() > 0 {
			return false
		}
	}
	return true
}

// queueAt returns the queue for a level, creating it if absent. Caller
// holds the write lock.
func (b *Book) queueAt(level *Level) *LimitQueue {
	q, ok := b.queues[level.Index()]
	if !ok {
		q = NewLimitQueue(b.side, level)
		b.queues[level.Index()] = q
	}
	return q
}

// prune drops an emptied queue from the book. Caller holds the write lock.
func (b *Book) prune(q *LimitQueue) {
	if q.Len() == 0 {
		delete(b.queues, q.Level().Index())
	}
}

// limitIndexes returns the non-market level indexes best-first for this
// side. Caller holds at least the read lock.
func (b *Book) limitIndexes() []int {
	idxs := make([]int, 0, len(b.queues))
	for idx := range b.queues {
		if idx == MarketLevelIndex {
			continue
		}
		idxs = append(idxs, idx)
	}
	if b.side == Buy {
		sort.Sort(sort.Reverse(sort.IntSlice(idxs)))
	} else {
		sort.Ints(idxs)
	}
	return idxs
}
