package core

import "sort"

// PriorityOrders is a marketable (price, then time) ordering of candidate
// orders drawn from one or more limit queues. Used both for continuous
// matching and for auction uncrossing. The ordering is a snapshot; Next
// skips orders whose remaining quantity has since gone to zero.
type PriorityOrders struct {
	side   Side
	orders []*Order
}

// NewPriorityOrders builds the marketable ordering across the given queues.
// All queues must belong to the same side.
func NewPriorityOrders(side Side, queues ...*LimitQueue) *PriorityOrders {
	p := &PriorityOrders{side: side}
	for _, q := range queues {
		if q == nil {
			continue
		}
		if q.Side() != side {
			panic(ErrWrongSide)
		}
		p.orders = append(p.orders, q.Orders()...)
	}
	sort.SliceStable(p.orders, func(i, j int) bool {
		return p.orders[i].Before(p.orders[j])
	})
	return p
}

// PriorityAtOrBetter builds a PriorityOrders view over a book restricted to
// levels at-or-better than limit, market level included.
func PriorityAtOrBetter(book *Book, limit *Level) *PriorityOrders {
	return NewPriorityOrders(book.Side(), book.QueuesAtOrBetter(limit)...)
}

// Side returns the side the candidates belong to.
func (p *PriorityOrders) Side() Side {
	return p.side
}

// Len returns the number of candidates not yet consumed.
func (p *PriorityOrders) Len() int {
	return len(p.orders)
}

// Peek returns the next order with nonzero remaining quantity without
// consuming it, or nil when exhausted.
func (p *PriorityOrders) Peek() *Order {
	p.skipExhausted()
	if len(p.orders) == 0 {
		return nil
	}
	return p.orders[0]
}

// Next consumes and returns the next order with nonzero remaining
// quantity, or nil when exhausted. The order stays in its book; only the
// priority view advances.
func (p *PriorityOrders) Next() *Order {
	p.skipExhausted()
	if len(p.orders) == 0 {
		return nil
	}
	o := p.orders[0]
	p.orders = p.orders[1:]
	return o
}

func (p *PriorityOrders) skipExhausted() {
	for len(p.orders) > 0 && p.orders[0].Remaining() == 0 {
		p.orders = p.orders[1:]
	}
}
