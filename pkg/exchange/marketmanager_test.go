package exchange

import (
	"sync"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erain9/marketsim/pkg/core"
)

// triggerRecorder collects dispatched auction triggers.
type triggerRecorder struct {
	mu       sync.Mutex
	triggers []*core.AuctionTrigger
}

func (r *triggerRecorder) dispatch(t *core.AuctionTrigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, t)
}

func (r *triggerRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.triggers)
}

func (r *triggerRecorder) get(i int) *core.AuctionTrigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.triggers[i]
}

func TestDefaultCalendar(t *testing.T) {
	items := DefaultCalendar(10*time.Minute, 8*time.Hour)
	require.Len(t, items, 4)

	assert.Equal(t, "opening-auction", items[0].Name)
	assert.Equal(t, time.Duration(0), items[0].Offset)
	assert.Equal(t, core.Auction, items[0].Trigger.Postcondition)
	assert.True(t, items[0].Trigger.AllowsFrom(core.Closed))

	assert.Equal(t, "open-continuous", items[1].Name)
	assert.Equal(t, 10*time.Minute, items[1].Offset)
	assert.Equal(t, core.Continuous, items[1].Trigger.Postcondition)

	assert.Equal(t, "closing-auction", items[2].Name)
	assert.Equal(t, 8*time.Hour+10*time.Minute, items[2].Offset)
	assert.True(t, items[2].Trigger.AllowsFrom(core.Back))
	assert.True(t, items[2].Trigger.AllowsFrom(core.Choice))

	assert.Equal(t, "close", items[3].Name)
	assert.Equal(t, 8*time.Hour+20*time.Minute, items[3].Offset)
	assert.Equal(t, core.Closed, items[3].Trigger.Postcondition)
}

func TestScheduleDayDispatchesInOrder(t *testing.T) {
	rec := &triggerRecorder{}
	open := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	// One simulated hour passes per 100ms of wall time.
	clock := core.NewSimClock(open, 3600*10)
	mm := NewMarketManager(clock, rec.dispatch)
	mm.SetCalendar(DefaultCalendar(10*time.Minute, 8*time.Hour), open)
	mm.ScheduleDay()

	require.Eventually(t, func() bool { return rec.count() == 4 },
		2*time.Second, 5*time.Millisecond)

	assert.Equal(t, core.Auction, rec.get(0).Postcondition)
	assert.Equal(t, core.Continuous, rec.get(1).Postcondition)
	assert.Equal(t, core.Auction, rec.get(2).Postcondition)
	assert.Equal(t, core.Closed, rec.get(3).Postcondition)
}

func TestEndOfDayReschedules(t *testing.T) {
	rec := &triggerRecorder{}
	open := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)

	clock := core.NewSimClock(open, 3600*10)
	mm := NewMarketManager(clock, rec.dispatch)
	mm.SetCalendar(DefaultCalendar(10*time.Minute, 8*time.Hour), open)
	mm.ScheduleDay()

	require.Eventually(t, func() bool { return rec.count() == 4 },
		2*time.Second, 5*time.Millisecond)

	mm.EndOfDay()

	// The next day's opening auction fires against the restarted clock.
	require.Eventually(t, func() bool { return rec.count() >= 5 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, core.Auction, rec.get(4).Postcondition)
	assert.True(t, clock.Now().After(open.Add(24*time.Hour).Add(-time.Minute)))
}

func monitorFixture(t *testing.T) (*MarketManager, *core.Instrument, *triggerRecorder) {
	t.Helper()
	rec := &triggerRecorder{}
	in := core.NewInstrument("SIM", core.NewConstantTick(fpdecimal.FromFloat(0.01)))
	clock := core.NewSimClock(time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), 1000)
	mm := NewMarketManager(clock, rec.dispatch)
	mm.EnablePriceMonitor(0.05, 10*time.Second)
	return mm, in, rec
}

func trade(in *core.Instrument, index int) core.Trade {
	return core.Trade{
		Instrument: in.Symbol(),
		Buyer:      "b",
		Seller:     "s",
		Level:      in.LevelAt(index),
		Quantity:   100,
		Time:       time.Now(),
	}
}

func TestPriceMonitorDisabled(t *testing.T) {
	rec := &triggerRecorder{}
	in := core.NewInstrument("SIM", core.NewConstantTick(fpdecimal.FromFloat(0.01)))
	mm := NewMarketManager(core.NewSimClock(time.Now(), 1), rec.dispatch)

	assert.Nil(t, mm.PriceMonitor(trade(in, 10000)))
	assert.Nil(t, mm.PriceMonitor(trade(in, 20000)))
}

func TestPriceMonitorTracksSmallMoves(t *testing.T) {
	mm, in, _ := monitorFixture(t)

	// First trade only seeds the reference.
	require.Nil(t, mm.PriceMonitor(trade(in, 10000)))

	// 2% move, inside the 5% threshold.
	require.Nil(t, mm.PriceMonitor(trade(in, 10200)))

	// 4% from the new reference, still inside.
	require.Nil(t, mm.PriceMonitor(trade(in, 10600)))
}

func TestPriceMonitorTriggersOnLargeMove(t *testing.T) {
	mm, in, rec := monitorFixture(t)

	require.Nil(t, mm.PriceMonitor(trade(in, 10000)))

	trigger := mm.PriceMonitor(trade(in, 11000))
	require.NotNil(t, trigger, "a 10%% move must trigger an auction")
	assert.Equal(t, core.Auction, trigger.Postcondition)
	assert.True(t, trigger.AllowsFrom(core.Continuous))
	assert.Equal(t, 10000, trigger.Reference.Index())
	assert.Equal(t, 10*time.Second, trigger.Extension)

	// The auction's end is scheduled, not dispatched synchronously.
	assert.Equal(t, 0, rec.count())
	require.Eventually(t, func() bool { return rec.count() == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, core.Continuous, rec.get(0).Postcondition)
}

func TestPriceMonitorPanicsWhileInflight(t *testing.T) {
	mm, in, _ := monitorFixture(t)
	mm.EnablePriceMonitor(0.05, 10*time.Minute)

	require.Nil(t, mm.PriceMonitor(trade(in, 10000)))
	require.NotNil(t, mm.PriceMonitor(trade(in, 11000)))

	assert.Panics(t, func() {
		mm.PriceMonitor(trade(in, 12000))
	})
}
