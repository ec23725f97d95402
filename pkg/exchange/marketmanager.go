package exchange

import (
	"sync"
	"time"

	"github.com/erain9/marketsim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CalendarItem is one fixed-time scheduled auction trigger, offset from the
// trading day's open.
type CalendarItem struct {
	Name    string
	Offset  time.Duration
	Trigger core.AuctionTrigger
}

// DefaultCalendar builds the standard trading day: opening auction at the
// open, uncross into continuous trading, closing auction, close.
func DefaultCalendar(auctionLength, continuousLength time.Duration) []CalendarItem {
	return []CalendarItem{
		{
			Name:   "opening-auction",
			Offset: 0,
			Trigger: core.AuctionTrigger{
				Preconditions: []core.MarketState{core.Closed},
				Postcondition: core.Auction,
			},
		},
		{
			Name:   "open-continuous",
			Offset: auctionLength,
			Trigger: core.AuctionTrigger{
				Preconditions: []core.MarketState{core.Auction},
				Postcondition: core.Continuous,
			},
		},
		{
			Name:   "closing-auction",
			Offset: auctionLength + continuousLength,
			Trigger: core.AuctionTrigger{
				Preconditions: []core.MarketState{core.Continuous, core.Back, core.Choice},
				Postcondition: core.Auction,
			},
		},
		{
			Name:   "close",
			Offset: auctionLength*2 + continuousLength,
			Trigger: core.AuctionTrigger{
				Preconditions: []core.MarketState{core.Auction},
				Postcondition: core.Closed,
			},
		},
	}
}

// MarketManager owns the auction calendar and unscheduled auction triggers
// from price monitoring. It never touches the books itself: every trigger
// is dispatched into the order manager's intake, except the synchronous
// PriceMonitor path where the caller applies the returned trigger.
type MarketManager struct {
	clock    *core.SimClock
	dispatch func(*core.AuctionTrigger)
	logger   zerolog.Logger

	mu              sync.Mutex
	calendar        []CalendarItem
	dayOpen         time.Time
	dayLength       time.Duration
	monitorEnabled  bool
	threshold       float64
	auctionDuration time.Duration
	lastRef         *core.Level
	inflight        bool
	timers          []*core.SimTimer
}

// NewMarketManager creates a market manager dispatching triggers through
// the given function, normally OrderManager.Trigger.
func NewMarketManager(clock *core.SimClock, dispatch func(*core.AuctionTrigger)) *MarketManager {
	return &MarketManager{
		clock:     clock,
		dispatch:  dispatch,
		dayLength: 24 * time.Hour,
		logger:    log.With().Str("component", "market_manager").Logger(),
	}
}

// SetCalendar installs the day's scheduled items, anchored at dayOpen.
func (mm *MarketManager) SetCalendar(items []CalendarItem, dayOpen time.Time) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.calendar = items
	mm.dayOpen = dayOpen
}

// EnablePriceMonitor turns on unscheduled auctions: a relative move from
// the last reference price beyond threshold triggers an auction of the
// given duration.
func (mm *MarketManager) EnablePriceMonitor(threshold float64, duration time.Duration) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.monitorEnabled = true
	mm.threshold = threshold
	mm.auctionDuration = duration
}

// ScheduleDay schedules every calendar item of the current day as a
// delayed, cancellable callback.
func (mm *MarketManager) ScheduleDay() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	for _, item := range mm.calendar {
		item := item
		at := mm.dayOpen.Add(item.Offset)
		timer := mm.clock.AfterFuncAt(at, func() {
			mm.logger.Info().Str("item", item.Name).Time("at", at).Msg("Calendar auction trigger")
			mm.dispatch(&item.Trigger)
		})
		mm.timers = append(mm.timers, timer)
	}
	mm.logger.Info().Time("open", mm.dayOpen).Int("items", len(mm.calendar)).Msg("Scheduled trading day")
}

// EndOfDay cancels outstanding callbacks, restarts the simulation clock at
// the next day's open and reschedules the calendar.
func (mm *MarketManager) EndOfDay() {
	mm.mu.Lock()
	for _, t := range mm.timers {
		t.Cancel()
	}
	mm.timers = nil
	mm.inflight = false
	mm.dayOpen = mm.dayOpen.Add(mm.dayLength)
	open := mm.dayOpen
	mm.mu.Unlock()

	mm.clock.Restart(open)
	mm.ScheduleDay()
}

// PriceMonitor is consulted synchronously by the order manager after every
// continuous fill. When the move from the last reference price exceeds the
// threshold it schedules the auction's end and returns the trigger for the
// caller to apply and broadcast. Calling it while an unscheduled auction is
// already in flight is a usage error.
func (mm *MarketManager) PriceMonitor(trade core.Trade) *core.AuctionTrigger {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if !mm.monitorEnabled {
		return nil
	}
	if mm.inflight {
		panic("price monitor consulted while an unscheduled auction is in flight")
	}

	if mm.lastRef == nil || mm.lastRef.IsMarket() {
		mm.lastRef = trade.Level
		return nil
	}

	ref := mm.lastRef.Price().Float64()
	move := trade.Level.Price().Float64() - ref
	if move < 0 {
		move = -move
	}
	if ref == 0 || move/ref <= mm.threshold {
		mm.lastRef = trade.Level
		return nil
	}

	mm.logger.Warn().
		Str("reference", mm.lastRef.String()).
		Str("trade", trade.Level.String()).
		Float64("threshold", mm.threshold).
		Msg("Price move beyond threshold, triggering auction")

	mm.inflight = true
	reference := mm.lastRef
	end := mm.clock.AfterFunc(mm.auctionDuration, func() {
		mm.mu.Lock()
		mm.inflight = false
		mm.mu.Unlock()
		mm.dispatch(&core.AuctionTrigger{
			Preconditions: []core.MarketState{core.Auction},
			Postcondition: core.Continuous,
		})
	})
	mm.timers = append(mm.timers, end)

	return &core.AuctionTrigger{
		Preconditions: []core.MarketState{core.Continuous, core.Back, core.Choice},
		Postcondition: core.Auction,
		Reference:     reference,
		Extension:     mm.auctionDuration,
	}
}
