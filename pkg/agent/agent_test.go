package agent

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/marketsim/pkg/core"
	"github.com/erain9/marketsim/pkg/exchange"
	"github.com/erain9/marketsim/pkg/marketdata"
	"github.com/erain9/marketsim/pkg/messaging"
)

func TestLinkSendAndDrain(t *testing.T) {
	link := NewLink("a1", 4)
	assert.Equal(t, "a1", link.Name())

	link.Send(core.Notification{Kind: core.NoteUpdate})
	link.Send(core.Notification{Kind: core.NoteFill})

	require.Len(t, link.Notifications(), 2)
	n := <-link.Notifications()
	assert.Equal(t, core.NoteUpdate, n.Kind)
	assert.Equal(t, int64(0), link.Dropped())
}

func TestLinkDropsWhenFull(t *testing.T) {
	link := NewLink("slow", 2)

	for i := 0; i < 5; i++ {
		link.Send(core.Notification{Kind: core.NoteUpdate})
	}

	assert.Equal(t, int64(3), link.Dropped())
	assert.Len(t, link.Notifications(), 2)
}

func TestRandomAgentPlacesOrders(t *testing.T) {
	in := core.NewInstrument("SIM", core.NewConstantTick(fpdecimal.FromFloat(0.01)))
	clock := core.NewSimClock(time.Now(), 1)
	manager := exchange.NewOrderManager(in, clock, messaging.NewMockSink())
	manager.SetReference(in.LevelAt(10000))

	// Walk the market into continuous trading so agent orders are accepted.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager.Trigger(&core.AuctionTrigger{
		Preconditions: []core.MarketState{core.Closed},
		Postcondition: core.Auction,
	})
	manager.ProcessNext(ctx, time.Second)
	seedBid, err := core.NewOrder("seed-bid", nil, core.Buy, in.LevelAt(10000), 100)
	require.NoError(t, err)
	seedOffer, err := core.NewOrder("seed-offer", nil, core.Sell, in.LevelAt(10000), 100)
	require.NoError(t, err)
	manager.Add(seedBid, seedOffer)
	manager.Trigger(&core.AuctionTrigger{
		Preconditions: []core.MarketState{core.Auction},
		Postcondition: core.Continuous,
	})
	manager.ProcessNext(ctx, time.Second)
	require.Equal(t, core.Continuous, manager.State())

	data := marketdata.NewCache(marketdata.ManagerSource("SIM", manager), time.Millisecond)
	agent := NewRandomAgent("agent-1", manager, in, data)
	agent.Interval = 5 * time.Millisecond
	agent.MarketRatio = 0 // keep levels anchored for the assertion below

	go manager.Run(ctx)
	go agent.Start(ctx)

	require.Eventually(t, func() bool {
		bids, offers := manager.Depth()
		return len(bids)+len(offers) > 0
	}, 2*time.Second, 10*time.Millisecond)
}

type panickyAgent struct {
	started atomic.Bool
}

func (p *panickyAgent) Name() string { return "panicky" }

func (p *panickyAgent) Start(ctx context.Context) {
	p.started.Store(true)
	panic("bad decision")
}

type steadyAgent struct {
	done atomic.Bool
}

func (s *steadyAgent) Name() string { return "steady" }

func (s *steadyAgent) Start(ctx context.Context) {
	<-ctx.Done()
	s.done.Store(true)
}

func TestSupervisorIsolatesPanics(t *testing.T) {
	p := &panickyAgent{}
	s := &steadyAgent{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// A panicking agent must not take the supervisor or its peers down.
	NewSupervisor(p, s).Start(ctx)

	assert.True(t, p.started.Load())
	assert.True(t, s.done.Load())
}
