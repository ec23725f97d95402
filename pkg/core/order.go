package core

import (
	"fmt"
	"time"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Better reports whether level a is strictly better than level b from this
// side's point of view. MARKET beats every limit level on both sides.
func (s Side) Better(a, b *Level) bool {
	if a.market != b.market {
		return a.market
	}
	if a.market {
		return false
	}
	if s == Buy {
		return a.index > b.index
	}
	return a.index < b.index
}

// BetterOrEqual reports whether level a is at least as good as level b for
// this side.
func (s Side) BetterOrEqual(a, b *Level) bool {
	return a == b || a.index == b.index || s.Better(a, b)
}

// Crosses reports whether an aggressing order at level a on this side may
// execute against a resting order at level b on the opposite side.
func (s Side) Crosses(a, b *Level) bool {
	if a.market || b.market {
		return true
	}
	if s == Buy {
		return a.index >= b.index
	}
	return a.index <= b.index
}

// OrderState is one station in the order lifecycle state machine.
type OrderState int

// Order lifecycle states. Pending states are instructions not yet reflected
// in book structure, live states rest in the book, terminal states accept no
// further transition.
const (
	NoState OrderState = iota
	PendingNew
	PendingCancel
	PendingReplace
	New
	PartiallyFilled
	Cancelled
	Filled
)

// String returns state as string
func (s OrderState) String() string {
	switch s {
	case NoState:
		return "NONE"
	case PendingNew:
		return "PENDING_NEW"
	case PendingCancel:
		return "PENDING_CANCEL"
	case PendingReplace:
		return "PENDING_REPLACE"
	case New:
		return "NEW"
	case PartiallyFilled:
		return "PARTIALLY_FILLED"
	case Cancelled:
		return "CANCELLED"
	case Filled:
		return "FILLED"
	default:
		return "UNKNOWN"
	}
}

// IsPending reports whether the state is a pending instruction.
func (s OrderState) IsPending() bool {
	return s == PendingNew || s == PendingCancel || s == PendingReplace
}

// IsLive reports whether the order rests in book structure.
func (s OrderState) IsLive() bool {
	return s == New || s == PartiallyFilled
}

// IsTerminal reports whether the state accepts no further transition.
func (s OrderState) IsTerminal() bool {
	return s == Cancelled || s == Filled
}

// NotificationKind discriminates sender notifications.
type NotificationKind int

// Notification kinds
const (
	NoteUpdate NotificationKind = iota
	NoteFill
	NoteTooLate
	NoteRejected
)

// String returns kind as string
func (k NotificationKind) String() string {
	switch k {
	case NoteUpdate:
		return "UPDATE"
	case NoteFill:
		return "FILL"
	case NoteTooLate:
		return "TOO_LATE"
	case NoteRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Notification is the tagged union pushed across the trust boundary to the
// order's sender. Order is always a value copy, never a reference into live
// book state.
type Notification struct {
	Kind     NotificationKind
	Order    Order
	Quantity int64
	Level    *Level
	Reason   string
}

// OrderSender receives notifications for orders it submitted. Send must not
// block the caller for long; channel-backed implementations consume in the
// sender's own goroutine.
type OrderSender interface {
	Send(n Notification)
}

// Order is the order entity. Identity is the client-assigned id; a
// manager-assigned numeric id is stamped once accepted. All lifecycle
// mutation is owned by the OrderManager / Book pair.
type Order struct {
	clientID string
	id       int64
	sender   OrderSender
	side     Side
	level    *Level
	quantity int64
	filled   int64
	state    OrderState
	version  int64
	ts       time.Time
	snapshot *Touch
}

// NewOrder creates an uninitialized order at version 0. Init must be called
// before the order is submitted.
func NewOrder(clientID string, sender OrderSender, side Side, level *Level, quantity int64) (*Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if level == nil {
		return nil, ErrInvalidPrice
	}

	return &Order{
		clientID: clientID,
		sender:   sender,
		side:     side,
		level:    level,
		quantity: quantity,
	}, nil
}

// ClientID returns the client-assigned id, the order's identity.
func (o *Order) ClientID() string {
	return o.clientID
}

// ID returns the manager-assigned numeric id, zero until accepted.
func (o *Order) ID() int64 {
	return o.id
}

// SetID stamps the manager-assigned id.
func (o *Order) SetID(id int64) {
	o.id = id
}

// Sender returns the submitting agent's notification boundary.
func (o *Order) Sender() OrderSender {
	return o.sender
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Level returns the order's current level. May change on replace.
func (o *Order) Level() *Level {
	return o.level
}

// Quantity returns the order's total quantity.
func (o *Order) Quantity() int64 {
	return o.quantity
}

// Filled returns the accumulated filled quantity.
func (o *Order) Filled() int64 {
	return o.filled
}

// Remaining returns max(0, quantity-filled).
func (o *Order) Remaining() int64 {
	if r := o.quantity - o.filled; r > 0 {
		return r
	}
	return 0
}

// State returns the current lifecycle state.
func (o *Order) State() OrderState {
	return o.state
}

// Version returns the monotonic version, incremented on every state change.
func (o *Order) Version() int64 {
	return o.version
}

// Timestamp returns the simulation time of the last state change.
func (o *Order) Timestamp() time.Time {
	return o.ts
}

// Snapshot returns the market-data snapshot captured at submission, if any.
func (o *Order) Snapshot() *Touch {
	return o.snapshot
}

// SetSnapshot attaches the market-data view seen by the sender at
// submission time.
func (o *Order) SetSnapshot(t *Touch) {
	o.snapshot = t
}

// Init moves a version-0 order to PendingNew. Calling it twice is a caller
// bug.
func (o *Order) Init(now time.Time) {
	if o.version != 0 || o.state != NoState {
		panic(ErrAlreadyInit)
	}
	o.setState(PendingNew, now)
}

// ChangeState explicitly assigns a pending state. Live and terminal states
// are only ever derived through ResetState.
func (o *Order) ChangeState(state OrderState, now time.Time) {
	if o.state.IsTerminal() {
		panic(ErrTerminalOrder)
	}
	if !state.IsPending() {
		panic(fmt.Errorf("%w: %s may not be assigned explicitly", ErrNotPending, state))
	}
	o.setState(state, now)
}

// ResetState derives the correct live or terminal state from filled versus
// total quantity. A pending cancel always resolves to Cancelled regardless
// of fill level.
func (o *Order) ResetState(now time.Time) {
	switch {
	case o.state == PendingCancel:
		o.setState(Cancelled, now)
	case o.filled >= o.quantity:
		o.setState(Filled, now)
	case o.filled > 0:
		o.setState(PartiallyFilled, now)
	default:
		o.setState(New, now)
	}
}

// FillQuantity accumulates filled quantity and notifies the sender of the
// fill, distinct from the state-change notification.
func (o *Order) FillQuantity(quantity int64, at *Level, now time.Time) {
	if quantity <= 0 || quantity > o.Remaining() {
		panic(fmt.Errorf("%w: fill %d against remaining %d", ErrInvalidQuantity, quantity, o.Remaining()))
	}

	o.filled += quantity
	o.ResetState(now)
	o.notify(Notification{Kind: NoteFill, Order: *o, Quantity: quantity, Level: at})
}

// Cancel moves the order toward Cancelled. A sender-initiated cancel goes
// through PendingCancel; a manager-forced cancel (auction entry) resolves
// directly.
func (o *Order) Cancel(forced bool, now time.Time) {
	if o.state.IsTerminal() {
		panic(ErrTerminalOrder)
	}
	if forced {
		o.setState(Cancelled, now)
		return
	}
	o.setState(PendingCancel, now)
}

// Replace amends level and quantity and moves to PendingReplace. Returns
// false without mutating when nothing changes or the order is terminal.
func (o *Order) Replace(level *Level, quantity int64, now time.Time) bool {
	if o.state.IsTerminal() {
		return false
	}
	if o.level == level && o.quantity == quantity {
		return false
	}

	o.level = level
	o.quantity = quantity
	o.setState(PendingReplace, now)
	return true
}

// Before reports whether o has price-time priority over other. Both orders
// must be on the same side.
func (o *Order) Before(other *Order) bool {
	if o.side != other.side {
		panic(ErrWrongSide)
	}
	if o.level != other.level {
		return o.side.Better(o.level, other.level)
	}
	if !o.ts.Equal(other.ts) {
		return o.ts.Before(other.ts)
	}
	return o.id < other.id
}

// Equal reports identity equality: two orders are the same iff their client
// ids match.
func (o *Order) Equal(other *Order) bool {
	return other != nil && o.clientID == other.clientID
}

// Clone returns a deep, independent copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}

// String implements Stringer interface
func (o *Order) String() string {
	return fmt.Sprintf("%s[%d] %s %d@%s filled=%d %s v%d",
		o.clientID, o.id, o.side, o.quantity, o.level, o.filled, o.state, o.version)
}

// setState is the single mutation point: it stamps the simulation
// timestamp, sets state, increments version and notifies the sender with a
// copy.
func (o *Order) setState(state OrderState, now time.Time) {
	o.ts = now
	o.state = state
	o.version++
	o.notify(Notification{Kind: NoteUpdate, Order: *o})
}

func (o *Order) notify(n Notification) {
	if o.sender != nil {
		o.sender.Send(n)
	}
}
