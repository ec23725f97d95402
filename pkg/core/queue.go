package core

import "time"

// LimitQueue is the time-ordered collection of orders resting at one level
// on one side, paired with its Interest. FIFO by submission order gives
// same-level time priority. Owned and locked by its Book.
type LimitQueue struct {
	side     Side
	level    *Level
	orders   []*Order
	interest *Interest
}

// NewLimitQueue creates an empty queue for one level.
func NewLimitQueue(side Side, level *Level) *LimitQueue {
	return &LimitQueue{
		side:     side,
		level:    level,
		interest: NewInterest(side, level),
	}
}

// Side returns the queue's book side.
func (q *LimitQueue) Side() Side {
	return q.side
}

// Level returns the queue's level.
func (q *LimitQueue) Level() *Level {
	return q.level
}

// Interest returns the queue's live interest. Callers outside the book must
// use Interest().Copy().
func (q *LimitQueue) Interest() *Interest {
	return q.interest
}

// Len returns the number of resting orders.
func (q *LimitQueue) Len() int {
	return len(q.orders)
}

// First returns the oldest resting order, or nil when empty.
func (q *LimitQueue) First() *Order {
	if len(q.orders) == 0 {
		return nil
	}
	return q.orders[0]
}

// Orders returns a copied slice of the member orders in time order.
func (q *LimitQueue) Orders() []*Order {
	out := make([]*Order, len(q.orders))
	copy(out, q.orders)
	return out
}

// Contains reports whether an order with the same client id is queued.
func (q *LimitQueue) Contains(o *Order) bool {
	return q.find(o) >= 0
}

// Resident returns the queued instance matching the order's client id, or
// nil when not queued.
func (q *LimitQueue) Resident(o *Order) *Order {
	i := q.find(o)
	if i < 0 {
		return nil
	}
	return q.orders[i]
}

// Append adds an order at the back of the queue and books its remaining
// quantity into the interest. Returns false if the order is already queued.
func (q *LimitQueue) Append(o *Order) bool {
	if q.find(o) >= 0 {
		return false
	}
	q.orders = append(q.orders, o)
	q.interest.AddOrder(o.Remaining())
	return true
}

// Remove takes an order out of the queue, releasing its remaining quantity
// from the interest. Returns the resident instance or nil when not found.
func (q *LimitQueue) Remove(o *Order) *Order {
	i := q.find(o)
	if i < 0 {
		return nil
	}
	resident := q.orders[i]
	q.interest.RemoveOrder(resident.Remaining())
	q.orders = append(q.orders[:i], q.orders[i+1:]...)
	return resident
}

// Fill executes quantity against a resident order, keeping the interest
// consistent and dropping the order from the queue once its remaining
// quantity reaches zero.
func (q *LimitQueue) Fill(o *Order, quantity int64, at *Level, now time.Time) bool {
	i := q.find(o)
	if i < 0 {
		return false
	}
	resident := q.orders[i]

	q.interest.Reduce(quantity)
	resident.FillQuantity(quantity, at, now)

	if resident.Remaining() == 0 {
		q.interest.RemoveOrder(0)
		q.orders = append(q.orders[:i], q.orders[i+1:]...)
	}
	return true
}

func (q *LimitQueue) find(o *Order) int {
	for i, member := range q.orders {
		if member.Equal(o) {
			return i
		}
	}
	return -1
}
