package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/erain9/marketsim/pkg/core"
	"github.com/erain9/marketsim/pkg/exchange"
	"github.com/erain9/marketsim/pkg/marketdata"
	"github.com/rs/zerolog/log"
)

// MakerAgent keeps layered symmetric quotes around the reference price.
// Each refresh cycle it cancels the previous layer set and re-quotes
// NumLevels bid/offer pairs, the innermost pair SpreadTicks either side of
// the reference and each further pair StepTicks beyond the last.
type MakerAgent struct {
	link       *Link
	manager    *exchange.OrderManager
	instrument *core.Instrument
	data       *marketdata.Cache
	clock      core.Clock

	Interval    time.Duration
	Quantity    int64
	SpreadTicks int
	StepTicks   int
	NumLevels   int

	live []*core.Order
	seq  int64
}

// NewMakerAgent creates a quoting agent with its own notification link.
func NewMakerAgent(name string, manager *exchange.OrderManager, instrument *core.Instrument, data *marketdata.Cache, clock core.Clock) *MakerAgent {
	return &MakerAgent{
		link:        NewLink(name, 512),
		manager:     manager,
		instrument:  instrument,
		data:        data,
		clock:       clock,
		Interval:    time.Second,
		Quantity:    200,
		SpreadTicks: 2,
		StepTicks:   2,
		NumLevels:   3,
	}
}

// Name returns the agent's name.
func (a *MakerAgent) Name() string {
	return a.link.Name()
}

// Link returns the agent's notification link.
func (a *MakerAgent) Link() *Link {
	return a.link
}

// Start refreshes quotes and drains notifications until the context is
// canceled.
func (a *MakerAgent) Start(ctx context.Context) {
	ticker := time.NewTicker(a.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.link.Notifications():
		case <-ticker.C:
			a.requote()
		}
	}
}

// requote pulls the previous layer set and replaces it around the current
// reference. Outside clearing states the old quotes are pulled and nothing
// new is placed; entering an auction force-cancels resting orders anyway,
// so stale handles are dropped rather than cancelled.
func (a *MakerAgent) requote() {
	snap := a.data.Get()

	if snap.Touch.State == core.Auction || snap.Touch.State == core.Closed {
		a.live = nil
		return
	}
	a.cancelLive()
	if !snap.Touch.State.IsClearing() {
		return
	}

	anchor := snap.Reference
	if anchor == nil || anchor.IsMarket() {
		return
	}

	quotes := make([]*core.Order, 0, a.NumLevels*2)
	for i := 0; i < a.NumLevels; i++ {
		offset := a.SpreadTicks + i*a.StepTicks
		bid := a.quote(core.Buy, a.instrument.LevelAt(anchor.Index()-offset), &snap.Touch)
		offer := a.quote(core.Sell, a.instrument.LevelAt(anchor.Index()+offset), &snap.Touch)
		if bid != nil {
			quotes = append(quotes, bid)
		}
		if offer != nil {
			quotes = append(quotes, offer)
		}
	}
	a.live = a.manager.Add(quotes...)
}

func (a *MakerAgent) quote(side core.Side, level *core.Level, touch *core.Touch) *core.Order {
	a.seq++
	id := fmt.Sprintf("%s-%d", a.link.Name(), a.seq)

	order, err := core.NewOrder(id, a.link, side, level, a.Quantity)
	if err != nil {
		log.Error().Err(err).Str("agent", a.link.Name()).Msg("Failed to build quote")
		return nil
	}
	order.SetSnapshot(touch)
	return order
}

func (a *MakerAgent) cancelLive() {
	now := a.clock.Now()
	cancels := make([]*core.Order, 0, len(a.live))
	for _, o := range a.live {
		c := o.Clone()
		c.ChangeState(core.PendingCancel, now)
		cancels = append(cancels, c)
	}
	if len(cancels) > 0 {
		a.manager.Add(cancels...)
	}
	a.live = nil
}
