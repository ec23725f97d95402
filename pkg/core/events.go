package core

import "time"

// EventKind discriminates manager intake events. Dispatch over events must
// switch exhaustively on the kind.
type EventKind int

// Event kinds
const (
	EventOrder EventKind = iota
	EventAuction
)

// String returns kind as string
func (k EventKind) String() string {
	switch k {
	case EventOrder:
		return "ORDER"
	case EventAuction:
		return "AUCTION"
	default:
		return "UNKNOWN"
	}
}

// AuctionTrigger asks the order manager to move the market into (or out
// of) an auction. Preconditions list the market states the trigger is valid
// from; mismatches are logged and ignored.
type AuctionTrigger struct {
	Preconditions []MarketState
	Postcondition MarketState
	Reference     *Level
	Extension     time.Duration
}

// AllowsFrom reports whether the trigger may fire from the given state.
func (t *AuctionTrigger) AllowsFrom(state MarketState) bool {
	for _, s := range t.Preconditions {
		if s == state {
			return true
		}
	}
	return false
}

// Event is the tagged union flowing through the order manager's inbound
// queue, ordered by simulation time.
type Event struct {
	Kind    EventKind
	Order   *Order
	Trigger *AuctionTrigger
	Time    time.Time
}
