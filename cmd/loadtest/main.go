package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/nikolaydubina/fpdecimal"
	"golang.org/x/time/rate"

	"github.com/erain9/marketsim/pkg/core"
	"github.com/erain9/marketsim/pkg/exchange"
	"github.com/erain9/marketsim/pkg/logging"
	"github.com/erain9/marketsim/pkg/messaging"
)

const (
	seedOrders = 200
	rangeTicks = 20
)

// nopSender discards notifications; the load test measures the matching
// path, not delivery.
type nopSender struct{}

func (nopSender) Send(core.Notification) {}

func main() {
	numOrders := flag.Int("orders", 1_000_000, "total orders to submit")
	maxRate := flag.Int("rate", 0, "orders per second, 0 for unlimited")
	tick := flag.String("tick", "0.01", "tick size")
	reference := flag.String("reference", "100.00", "reference price")
	flag.Parse()

	logging.Setup(logging.Config{Level: "error"})

	tickSize, err := fpdecimal.FromString(*tick)
	if err != nil {
		log.Fatalf("Invalid tick size: %v", err)
	}
	refPrice, err := fpdecimal.FromString(*reference)
	if err != nil {
		log.Fatalf("Invalid reference price: %v", err)
	}

	instrument := core.NewInstrument("LOADTEST", core.NewConstantTick(tickSize))
	clock := core.NewSimClock(time.Now(), 1)
	manager := exchange.NewOrderManager(instrument, clock, messaging.NewMockSink())
	ref := instrument.LevelFor(refPrice)
	manager.SetReference(ref)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Open the market: seed the opening auction with crossed interest on
	// both sides so the uncross resolves a price, then go continuous.
	manager.Trigger(&core.AuctionTrigger{
		Preconditions: []core.MarketState{core.Closed},
		Postcondition: core.Auction,
		Reference:     ref,
	})
	manager.ProcessNext(ctx, time.Second)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < seedOrders; i++ {
		manager.Add(randomOrder(r, instrument, ref, i))
	}
	manager.Trigger(&core.AuctionTrigger{
		Preconditions: []core.MarketState{core.Auction},
		Postcondition: core.Continuous,
	})
	manager.ProcessNext(ctx, time.Second)
	if s := manager.State(); !s.IsClearing() {
		log.Fatalf("Market failed to open, state %s", s)
	}

	var limiter *rate.Limiter
	if *maxRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(*maxRate), *maxRate)
	}

	// Latency from submission to the batch that applied it, recorded in
	// microseconds.
	hist := hdrhistogram.New(1, 10_000_000, 3)

	log.Printf("Submitting %d orders...", *numOrders)
	start := time.Now()
	submitted := 0
	for i := seedOrders; i < seedOrders+*numOrders; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		} else if ctx.Err() != nil {
			break
		}

		t0 := time.Now()
		manager.Add(randomOrder(r, instrument, ref, i))
		manager.ProcessNext(ctx, time.Second)
		if err := hist.RecordValue(time.Since(t0).Microseconds()); err != nil {
			log.Printf("Latency out of histogram range: %v", err)
		}
		submitted++
	}
	duration := time.Since(start)

	fmt.Printf("Load test completed in %v\n", duration)
	fmt.Printf("Orders submitted:   %d\n", submitted)
	fmt.Printf("Throughput:         %.0f orders/sec\n", float64(submitted)/duration.Seconds())
	fmt.Printf("Latency p50:        %dus\n", hist.ValueAtQuantile(50))
	fmt.Printf("Latency p99:        %dus\n", hist.ValueAtQuantile(99))
	fmt.Printf("Latency p99.9:      %dus\n", hist.ValueAtQuantile(99.9))
	fmt.Printf("Latency max:        %dus\n", hist.Max())

	bid, offer := manager.Depth()
	fmt.Printf("Final depth:        %d bid levels, %d offer levels\n", len(bid), len(offer))
	fmt.Printf("Final state:        %s\n", manager.State())
}

// randomOrder builds a limit order within rangeTicks of the reference, or
// occasionally a market order.
func randomOrder(r *rand.Rand, instrument *core.Instrument, ref *core.Level, n int) *core.Order {
	side := core.Buy
	if r.Float64() < 0.5 {
		side = core.Sell
	}

	level := instrument.MarketLevel()
	if r.Float64() >= 0.1 {
		offset := r.Intn(2*rangeTicks+1) - rangeTicks
		level = instrument.LevelAt(ref.Index() + offset)
	}

	quantity := int64(r.Intn(100) + 1)
	order, err := core.NewOrder(fmt.Sprintf("lt-%d", n), nopSender{}, side, level, quantity)
	if err != nil {
		panic(err)
	}
	return order
}
