package core

import "fmt"

// Interest is the aggregated remaining quantity and order count at one
// level on one side. Each Interest is owned by exactly one LimitQueue;
// copies handed out for publication are detached values.
type Interest struct {
	side     Side
	level    *Level
	quantity int64
	count    int
}

// NewInterest creates an empty Interest for the given side and level.
func NewInterest(side Side, level *Level) *Interest {
	return &Interest{side: side, level: level}
}

// Side returns the book side the interest belongs to.
func (i *Interest) Side() Side {
	return i.side
}

// Level returns the level the interest aggregates.
func (i *Interest) Level() *Level {
	return i.level
}

// Quantity returns the aggregated remaining quantity.
func (i *Interest) Quantity() int64 {
	return i.quantity
}

// Count returns the number of member orders.
func (i *Interest) Count() int {
	return i.count
}

// AddOrder accounts for a newly resting order.
func (i *Interest) AddOrder(remaining int64) {
	if remaining < 0 {
		panic(fmt.Errorf("%w: add %d", ErrNegativeInterest, remaining))
	}
	i.quantity += remaining
	i.count++
}

// RemoveOrder accounts for an order leaving the queue with the given
// remaining quantity.
func (i *Interest) RemoveOrder(remaining int64) {
	if i.quantity-remaining < 0 || i.count == 0 {
		panic(fmt.Errorf("%w: remove %d from %d/%d", ErrNegativeInterest, remaining, i.quantity, i.count))
	}
	i.quantity -= remaining
	i.count--
}

// Reduce accounts for a partial fill or a quantity amendment of a member
// order; the order itself stays queued.
func (i *Interest) Reduce(quantity int64) {
	if i.quantity-quantity < 0 {
		panic(fmt.Errorf("%w: reduce %d from %d", ErrNegativeInterest, quantity, i.quantity))
	}
	i.quantity -= quantity
}

// Copy returns a detached value copy safe for publication.
func (i *Interest) Copy() Interest {
	return *i
}

// String implements Stringer interface
func (i *Interest) String() string {
	return fmt.Sprintf("%s %dx%s (%d orders)", i.side, i.quantity, i.level, i.count)
}
