package core

import (
	"testing"

	"github.com/nikolaydubina/fpdecimal"
)

func testInstrument() *Instrument {
	return NewInstrument("TEST", NewConstantTick(fpdecimal.FromFloat(0.01)))
}

func TestConstantTickRoundTrip(t *testing.T) {
	tick := NewConstantTick(fpdecimal.FromFloat(0.01))

	tests := []struct {
		price string
		index int
	}{
		{"100.00", 10000},
		{"104.50", 10450},
		{"0.01", 1},
		{"99.99", 9999},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			p, err := fpdecimal.FromString(tt.price)
			if err != nil {
				t.Fatalf("FromString(%s) failed: %v", tt.price, err)
			}
			if got := tick.LevelIndex(p); got != tt.index {
				t.Errorf("LevelIndex(%s) = %d, want %d", tt.price, got, tt.index)
			}
			if got := tick.Price(tt.index); !got.Equal(p) {
				t.Errorf("Price(%d) = %v, want %v", tt.index, got, p)
			}
		})
	}
}

func TestNewConstantTickRejectsNonPositive(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for zero tick size")
		}
	}()
	NewConstantTick(fpdecimal.Zero)
}

func TestInstrumentCanonicalLevels(t *testing.T) {
	in := testInstrument()

	a := in.LevelAt(10000)
	b := in.LevelAt(10000)
	if a != b {
		t.Error("Expected LevelAt to return the canonical instance")
	}

	c := in.LevelFor(fpdecimal.FromFloat(100.00))
	if a != c {
		t.Error("Expected LevelFor to resolve to the same canonical instance")
	}

	if in.LevelAt(MarketLevelIndex) != in.MarketLevel() {
		t.Error("Expected LevelAt(MarketLevelIndex) to return the market level")
	}
}

func TestInstrumentRebuildCache(t *testing.T) {
	in := testInstrument()

	before := in.LevelAt(10000)
	market := in.MarketLevel()
	in.RebuildCache()
	after := in.LevelAt(10000)

	if before == after {
		t.Error("Expected a fresh level instance after rebuild")
	}
	if market != in.MarketLevel() {
		t.Error("Expected the market level to survive a rebuild")
	}
}

func TestLevelString(t *testing.T) {
	in := testInstrument()

	var nilLevel *Level
	if got := nilLevel.String(); got != "-" {
		t.Errorf("nil Level.String() = %q, want %q", got, "-")
	}
	if got := in.MarketLevel().String(); got != "MKT" {
		t.Errorf("market Level.String() = %q, want %q", got, "MKT")
	}
}

func TestLevelTickDistance(t *testing.T) {
	in := testInstrument()

	a := in.LevelAt(10000)
	b := in.LevelAt(10005)
	if got := a.TickDistance(b); got != 5 {
		t.Errorf("TickDistance = %d, want 5", got)
	}
	if got := b.TickDistance(a); got != 5 {
		t.Errorf("TickDistance = %d, want 5", got)
	}
	if got := a.TickDistance(a); got != 0 {
		t.Errorf("TickDistance to self = %d, want 0", got)
	}
}

func TestSideBetter(t *testing.T) {
	in := testInstrument()
	low := in.LevelAt(10000)
	high := in.LevelAt(10010)
	market := in.MarketLevel()

	tests := []struct {
		name string
		side Side
		a, b *Level
		want bool
	}{
		{"BuyPrefersHigher", Buy, high, low, true},
		{"BuyRejectsLower", Buy, low, high, false},
		{"SellPrefersLower", Sell, low, high, true},
		{"SellRejectsHigher", Sell, high, low, false},
		{"MarketBeatsLimitBuy", Buy, market, high, true},
		{"MarketBeatsLimitSell", Sell, market, low, true},
		{"LimitNeverBeatsMarket", Buy, high, market, false},
		{"MarketNotBetterThanMarket", Buy, market, market, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.side.Better(tt.a, tt.b); got != tt.want {
				t.Errorf("%s.Better(%s, %s) = %v, want %v", tt.side, tt.a, tt.b, got, tt.want)
			}
		})
	}

	if !Buy.BetterOrEqual(market, market) {
		t.Error("Expected market BetterOrEqual market")
	}
	if !Sell.BetterOrEqual(low, low) {
		t.Error("Expected a level to be BetterOrEqual itself")
	}
}

func TestSideCrosses(t *testing.T) {
	in := testInstrument()
	low := in.LevelAt(10000)
	high := in.LevelAt(10010)
	market := in.MarketLevel()

	tests := []struct {
		name string
		side Side
		a, b *Level
		want bool
	}{
		{"BuyAboveOffer", Buy, high, low, true},
		{"BuyAtOffer", Buy, high, high, true},
		{"BuyBelowOffer", Buy, low, high, false},
		{"SellBelowBid", Sell, low, high, true},
		{"SellAtBid", Sell, low, low, true},
		{"SellAboveBid", Sell, high, low, false},
		{"MarketAlwaysCrosses", Buy, market, low, true},
		{"CrossesAgainstMarket", Sell, high, market, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.side.Crosses(tt.a, tt.b); got != tt.want {
				t.Errorf("%s.Crosses(%s, %s) = %v, want %v", tt.side, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSideOpposite(t *testing.T) {
	if Buy.Opposite() != Sell {
		t.Error("Expected Buy.Opposite() == Sell")
	}
	if Sell.Opposite() != Buy {
		t.Error("Expected Sell.Opposite() == Buy")
	}
}
