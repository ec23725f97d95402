package core

import (
	"math"
	"sync"

	"github.com/nikolaydubina/fpdecimal"
)

// MarketLevelIndex is the sentinel index of the MARKET level. It compares
// better than every limit level on both sides.
const MarketLevelIndex = math.MaxInt32

// TickConverter converts a decimal price to an integer level index and back.
type TickConverter interface {
	LevelIndex(price fpdecimal.Decimal) int
	Price(index int) fpdecimal.Decimal
}

// ConstantTick is a TickConverter with one fixed tick size across the whole
// price range.
type ConstantTick struct {
	size float64
	dec  fpdecimal.Decimal
}

// NewConstantTick creates a ConstantTick converter with the given tick size.
func NewConstantTick(size fpdecimal.Decimal) *ConstantTick {
	if size.LessThanOrEqual(fpdecimal.Zero) {
		panic(ErrInvalidPrice)
	}
	return &ConstantTick{size: size.Float64(), dec: size}
}

// LevelIndex returns the index of the level nearest to price.
func (c *ConstantTick) LevelIndex(price fpdecimal.Decimal) int {
	return int(math.Round(price.Float64() / c.size))
}

// Price returns the decimal price of the level at index.
func (c *ConstantTick) Price(index int) fpdecimal.Decimal {
	return c.dec.Mul(fpdecimal.FromInt(index))
}

// Level is an immutable price level. Exactly one canonical instance exists
// per (instrument, index); comparison between levels is always delegated to
// a side-aware comparator, never raw index comparison across sides.
type Level struct {
	index  int
	price  fpdecimal.Decimal
	market bool
}

// Index returns the integer level index.
func (l *Level) Index() int {
	return l.index
}

// Price returns the decimal price of the level. Zero for the MARKET level.
func (l *Level) Price() fpdecimal.Decimal {
	return l.price
}

// IsMarket reports whether this is the MARKET sentinel level.
func (l *Level) IsMarket() bool {
	return l.market
}

// String implements Stringer interface
func (l *Level) String() string {
	if l == nil {
		return "-"
	}
	if l.market {
		return "MKT"
	}
	return l.price.String()
}

// TickDistance returns the absolute distance in ticks between two limit
// levels.
func (l *Level) TickDistance(other *Level) int {
	d := l.index - other.index
	if d < 0 {
		return -d
	}
	return d
}

// Instrument owns the tick converter and the canonical level cache for one
// tradable instrument.
type Instrument struct {
	symbol string
	ticks  TickConverter

	mu     sync.Mutex
	levels map[int]*Level
	market *Level
}

// NewInstrument creates an Instrument with an empty level cache.
func NewInstrument(symbol string, ticks TickConverter) *Instrument {
	return &Instrument{
		symbol: symbol,
		ticks:  ticks,
		levels: make(map[int]*Level),
		market: &Level{index: MarketLevelIndex, market: true},
	}
}

// Symbol returns the instrument symbol.
func (in *Instrument) Symbol() string {
	return in.symbol
}

// MarketLevel returns the canonical MARKET level of the instrument.
func (in *Instrument) MarketLevel() *Level {
	return in.market
}

// LevelAt returns the canonical level instance for the given index,
// creating and caching it on first use.
func (in *Instrument) LevelAt(index int) *Level {
	if index == MarketLevelIndex {
		return in.market
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if l, ok := in.levels[index]; ok {
		return l
	}

	l := &Level{index: index, price: in.ticks.Price(index)}
	in.levels[index] = l
	return l
}

// LevelFor returns the canonical level nearest to the given decimal price.
func (in *Instrument) LevelFor(price fpdecimal.Decimal) *Level {
	return in.LevelAt(in.ticks.LevelIndex(price))
}

// RebuildCache drops every cached limit level. Called at end of day; the
// MARKET sentinel survives so identity comparisons against it stay valid.
func (in *Instrument) RebuildCache() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.levels = make(map[int]*Level)
}
