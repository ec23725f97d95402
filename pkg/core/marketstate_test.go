package core

import (
	"errors"
	"testing"
)

func TestMarketStateTransitions(t *testing.T) {
	states := []MarketState{Closed, Auction, Continuous, Back, Choice}

	legal := map[MarketState][]MarketState{
		Closed:     {Auction},
		Auction:    {Continuous, Closed},
		Continuous: {Choice, Back, Auction},
		Choice:     {Back, Auction},
		Back:       {Choice, Auction},
	}

	allowed := func(from, to MarketState) bool {
		if from == to {
			return true
		}
		for _, s := range legal[from] {
			if s == to {
				return true
			}
		}
		return false
	}

	for _, from := range states {
		for _, to := range states {
			want := allowed(from, to)
			if got := from.CanAccept(to); got != want {
				t.Errorf("CanAccept(%s -> %s) = %v, want %v", from, to, got, want)
			}

			target, err := from.Accept(to)
			if want {
				if err != nil {
					t.Errorf("Accept(%s -> %s) failed: %v", from, to, err)
				}
				if target != to {
					t.Errorf("Accept(%s -> %s) = %s", from, to, target)
				}
			} else {
				if !errors.Is(err, ErrIllegalTransition) {
					t.Errorf("Accept(%s -> %s): expected ErrIllegalTransition, got %v", from, to, err)
				}
				if target != from {
					t.Errorf("Accept(%s -> %s) moved to %s on failure", from, to, target)
				}
			}
		}
	}
}

func TestAbnormalTouchStatesRequireAuction(t *testing.T) {
	for _, from := range []MarketState{Back, Choice} {
		if from.CanAccept(Continuous) {
			t.Errorf("CanAccept(%s -> CONTINUOUS) = true, want false", from)
		}
		if _, err := from.Accept(Continuous); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("Accept(%s -> CONTINUOUS): expected ErrIllegalTransition, got %v", from, err)
		}
		if !from.CanAccept(Auction) {
			t.Errorf("CanAccept(%s -> AUCTION) = false, want true", from)
		}
	}
}

func TestMarketStateIsClearing(t *testing.T) {
	tests := []struct {
		state MarketState
		want  bool
	}{
		{Closed, false},
		{Auction, false},
		{Continuous, true},
		{Back, true},
		{Choice, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsClearing(); got != tt.want {
			t.Errorf("%s.IsClearing() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestDeriveTouchState(t *testing.T) {
	in := testInstrument()
	low := in.LevelAt(10000)
	high := in.LevelAt(10010)
	market := in.MarketLevel()

	tests := []struct {
		name       string
		bid, offer *Level
		want       MarketState
	}{
		{"NormalSpread", low, high, Continuous},
		{"Choice", low, low, Choice},
		{"Back", high, low, Back},
		{"NilBid", nil, high, Continuous},
		{"NilOffer", low, nil, Continuous},
		{"MarketBid", market, high, Continuous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTouchState(tt.bid, tt.offer); got != tt.want {
				t.Errorf("DeriveTouchState = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMarketStateString(t *testing.T) {
	tests := []struct {
		state MarketState
		want  string
	}{
		{Closed, "CLOSED"},
		{Auction, "AUCTION"},
		{Continuous, "CONTINUOUS"},
		{Back, "BACK"},
		{Choice, "CHOICE"},
		{MarketState(999), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("MarketState.String() = %v, want %v", got, tt.want)
		}
	}
}
