package core

import "fmt"

// MarketState is the market phase. Back and Choice double as touch states
// describing abnormal top-of-book conditions.
type MarketState int

// Market states
const (
	Closed MarketState = iota
	Auction
	Continuous
	Back
	Choice
)

// String returns state as string
func (s MarketState) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Auction:
		return "AUCTION"
	case Continuous:
		return "CONTINUOUS"
	case Back:
		return "BACK"
	case Choice:
		return "CHOICE"
	default:
		return "UNKNOWN"
	}
}

// IsClearing reports whether resting orders may execute in this phase.
func (s MarketState) IsClearing() bool {
	return s == Continuous || s == Back || s == Choice
}

// marketTransitions is the legal-transition table. A transition to the
// current state is always a legal no-op and is not listed. Back and Choice
// never return to Continuous directly; recovery from an abnormal touch goes
// through a call auction.
var marketTransitions = map[MarketState][]MarketState{
	Closed:     {Auction},
	Auction:    {Continuous, Closed},
	Continuous: {Choice, Back, Auction},
	Choice:     {Back, Auction},
	Back:       {Choice, Auction},
}

// CanAccept reports whether the transition from s to target is legal.
func (s MarketState) CanAccept(target MarketState) bool {
	if s == target {
		return true
	}
	for _, t := range marketTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Accept returns the target state, or an error when the transition is not
// in the table.
func (s MarketState) Accept(target MarketState) (MarketState, error) {
	if !s.CanAccept(target) {
		return s, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s, target)
	}
	return target, nil
}

// Touch is the top-of-book pair and its derived spread classification.
// Interests are detached copies.
type Touch struct {
	Bid   Interest
	Offer Interest
	State MarketState
}

// DeriveTouchState classifies the spread between best bid and best offer:
// Choice when they meet at one price, Back when the book is crossed,
// Continuous otherwise.
func DeriveTouchState(bid, offer *Level) MarketState {
	if bid == nil || offer == nil || bid.IsMarket() || offer.IsMarket() {
		return Continuous
	}
	switch {
	case bid.Index() == offer.Index():
		return Choice
	case bid.Index() > offer.Index():
		return Back
	default:
		return Continuous
	}
}
