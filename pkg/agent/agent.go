package agent

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/erain9/marketsim/pkg/core"
	"github.com/erain9/marketsim/pkg/exchange"
	"github.com/erain9/marketsim/pkg/marketdata"
	"github.com/rs/zerolog/log"
)

// Agent produces orders against the market on its own schedule.
type Agent interface {
	Name() string
	Start(ctx context.Context)
}

// RandomAgent places short-lived limit orders around the reference price
// and occasional market orders, providing background liquidity to the
// simulation.
type RandomAgent struct {
	link       *Link
	manager    *exchange.OrderManager
	instrument *core.Instrument
	data       *marketdata.Cache

	Interval    time.Duration
	Quantity    int64
	RangeTicks  int
	MarketRatio float64

	rand *rand.Rand
	seq  int64
}

// NewRandomAgent creates an agent with its own notification link.
func NewRandomAgent(name string, manager *exchange.OrderManager, instrument *core.Instrument, data *marketdata.Cache) *RandomAgent {
	return &RandomAgent{
		link:        NewLink(name, 512),
		manager:     manager,
		instrument:  instrument,
		data:        data,
		Interval:    200 * time.Millisecond,
		Quantity:    100,
		RangeTicks:  5,
		MarketRatio: 0.1,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Name returns the agent's name.
func (a *RandomAgent) Name() string {
	return a.link.Name()
}

// Link returns the agent's notification link.
func (a *RandomAgent) Link() *Link {
	return a.link
}

// Start submits orders and drains notifications until the context is
// canceled.
func (a *RandomAgent) Start(ctx context.Context) {
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.link.Notifications():
			// Notifications keep the agent's view current; this agent has
			// no state to reconcile beyond draining them.
		case <-ticker.C:
			a.place()
		}
	}
}

func (a *RandomAgent) place() {
	snap := a.data.Get()
	if !snap.Touch.State.IsClearing() && snap.Touch.State != core.Auction {
		return
	}

	anchor := snap.Reference
	if anchor == nil || anchor.IsMarket() {
		return
	}

	side := core.Buy
	if a.rand.Intn(2) == 0 {
		side = core.Sell
	}

	level := a.pickLevel(anchor, side)
	a.seq++
	id := fmt.Sprintf("%s-%d", a.link.Name(), a.seq)

	order, err := core.NewOrder(id, a.link, side, level, a.Quantity)
	if err != nil {
		log.Error().Err(err).Str("agent", a.link.Name()).Msg("Failed to build order")
		return
	}
	order.SetSnapshot(&snap.Touch)
	a.manager.Add(order)
}

func (a *RandomAgent) pickLevel(anchor *core.Level, side core.Side) *core.Level {
	if a.rand.Float64() < a.MarketRatio {
		return a.instrument.MarketLevel()
	}

	// Bids land at or below the anchor, offers at or above, keeping the
	// book two-sided around the reference.
	delta := a.rand.Intn(a.RangeTicks + 1)
	if side == core.Buy {
		return a.instrument.LevelAt(anchor.Index() - delta)
	}
	return a.instrument.LevelAt(anchor.Index() + delta)
}
