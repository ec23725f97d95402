package exchange

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erain9/marketsim/pkg/core"
	"github.com/erain9/marketsim/pkg/db/queue"
	"github.com/erain9/marketsim/pkg/messaging"
	"github.com/erain9/marketsim/pkg/otel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// OrderManager orchestrates event intake, order merge, continuous clearing
// and auction processing against the two order books of one instrument.
// Any number of producers may call Add and Trigger concurrently; exactly
// one processing context drains and applies events, so a whole batch is the
// unit of atomicity.
type OrderManager struct {
	instrument *core.Instrument
	clock      core.Clock
	intake     *eventQueue
	nextID     atomic.Int64
	logger     zerolog.Logger

	mu        sync.Mutex
	state     core.MarketState
	bids      *core.Book
	offers    *core.Book
	known     map[string]*core.Order
	reference *core.Level
	tape      messaging.TradeSink
	audit     queue.AuditAppender
	market    *MarketManager
	listeners []func(*core.AuctionTrigger)
}

// NewOrderManager creates a closed market for one instrument. The tape sink
// receives every trade print; pass messaging.NewMockSink() in tests.
func NewOrderManager(instrument *core.Instrument, clock core.Clock, tape messaging.TradeSink) *OrderManager {
	return &OrderManager{
		instrument: instrument,
		clock:      clock,
		intake:     newEventQueue(),
		state:      core.Closed,
		bids:       core.NewBook(core.Buy, instrument),
		offers:     core.NewBook(core.Sell, instrument),
		known:      make(map[string]*core.Order),
		tape:       tape,
		logger:     log.With().Str("component", "order_manager").Str("instrument", instrument.Symbol()).Logger(),
	}
}

// SetAudit attaches an audit appender; accepted instructions are recorded
// there. Leave unset in tests.
func (m *OrderManager) SetAudit(a queue.AuditAppender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = a
}

// SetMarketManager attaches the market manager consulted for price
// monitoring and day scheduling.
func (m *OrderManager) SetMarketManager(mm *MarketManager) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.market = mm
}

// SetReference seeds the reference price before the first trade.
func (m *OrderManager) SetReference(level *core.Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reference = level
}

// OnTrigger registers a listener for auction triggers raised by price
// monitoring. The manager applies a trigger to its own state before
// broadcasting it, so the triggering flow never double-triggers itself.
func (m *OrderManager) OnTrigger(fn func(*core.AuctionTrigger)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Add assigns ids to unseen orders and enqueues a timestamped copy of each.
// It returns independent handles carrying the assigned ids; the caller's
// instances are never trusted afterwards. The only synchronous
// acknowledgment is queuing itself.
func (m *OrderManager) Add(orders ...*core.Order) []*core.Order {
	now := m.clock.Now()
	handles := make([]*core.Order, 0, len(orders))

	for _, o := range orders {
		accepted := o.Clone()
		if accepted.ID() == 0 {
			accepted.SetID(m.nextID.Add(1))
		}
		if accepted.Version() == 0 {
			accepted.Init(now)
		}
		m.intake.Push(core.Event{Kind: core.EventOrder, Order: accepted, Time: now})
		handles = append(handles, accepted.Clone())
	}
	return handles
}

// Trigger enqueues an auction trigger event.
func (m *OrderManager) Trigger(t *core.AuctionTrigger) {
	m.intake.Push(core.Event{Kind: core.EventAuction, Trigger: t, Time: m.clock.Now()})
}

// ProcessNext blocks up to maxWait for queued events, then drains and
// applies whatever is available as one batch under the manager's lock.
// Returns the number of events processed.
func (m *OrderManager) ProcessNext(ctx context.Context, maxWait time.Duration) int {
	events := m.intake.DrainWait(maxWait)
	if len(events) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, span := otel.StartSpan(ctx, otel.SpanProcessBatch,
		attribute.Int(otel.AttributeBatchSize, len(events)),
		attribute.String(otel.AttributeMarketState, m.state.String()),
	)
	defer span.End()

	// Once an auction trigger is seen, order events later in the same batch
	// are skipped rather than queued for the next pass: nothing may slip in
	// between the trigger and the forced cancellation of resting orders.
	entered := false
	for _, ev := range events {
		switch ev.Kind {
		case core.EventOrder:
			if entered {
				m.notify(ev.Order, core.NoteRejected, "entered auction")
				continue
			}
			m.processOrder(ev.Order, ev.Time)
		case core.EventAuction:
			if m.applyTrigger(ev.Trigger) {
				entered = true
			}
		default:
			panic(fmt.Sprintf("unhandled event kind %d", ev.Kind))
		}
	}
	return len(events)
}

// Run drains and processes events until the context is canceled. A panic in
// the processing loop is not recovered here: it terminates the processing
// goroutine and must reach the operator.
func (m *OrderManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m.ProcessNext(ctx, 50*time.Millisecond)
	}
}

// State returns the current market state.
func (m *OrderManager) State() core.MarketState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reference returns the current reference level.
func (m *OrderManager) Reference() *core.Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reference
}

// Books returns the bid and offer books for read access.
func (m *OrderManager) Books() (bids, offers *core.Book) {
	return m.bids, m.offers
}

// Touch returns the current top of book. During an auction it reports the
// indicative uncrossing level and volume as both sides.
func (m *OrderManager) Touch() core.Touch {
	m.mu.Lock()
	state, reference := m.state, m.reference
	m.mu.Unlock()

	if state == core.Auction {
		as := core.NewAuctionState(m.bids, m.offers, reference, m.instrument)
		return as.Touch()
	}

	bid, hasBid := m.bids.GetBestInterest()
	offer, hasOffer := m.offers.GetBestInterest()
	touch := core.Touch{Bid: bid, Offer: offer, State: state}
	if state.IsClearing() && hasBid && hasOffer {
		touch.State = core.DeriveTouchState(bid.Level(), offer.Level())
	}
	return touch
}

// Depth returns independent, priority-ordered snapshots of both books.
func (m *OrderManager) Depth() (bids, offers []core.Interest) {
	return m.bids.GetExecutableLevels(), m.offers.GetExecutableLevels()
}

// processOrder merges one order event against the manager's last-known copy
// and applies the outcome. Caller holds the manager lock.
func (m *OrderManager) processOrder(in *core.Order, now time.Time) {
	logger := m.logger.With().Str("order", in.ClientID()).Int64("id", in.ID()).Logger()

	known, seen := m.known[in.ClientID()]

	switch in.State() {
	case core.PendingCancel, core.PendingReplace:
		if !seen || known.State().IsTerminal() {
			logger.Debug().Str("state", in.State().String()).Msg("Amendment too late")
			m.notify(in, core.NoteTooLate, "")
			return
		}
		if known.Side() != in.Side() {
			logger.Error().Msg("Amendment side mismatch")
			m.notify(in, core.NoteRejected, "side mismatch")
			return
		}
	case core.PendingNew:
		if seen && !known.State().IsTerminal() {
			logger.Error().Msg("Duplicate client order id")
			m.notify(in, core.NoteRejected, "duplicate order id")
			return
		}
	default:
		logger.Error().Str("state", in.State().String()).Msg("Instruction not in a pending state")
		m.notify(in, core.NoteRejected, fmt.Sprintf("unsupported instruction state %s", in.State()))
		return
	}

	if m.state == core.Closed {
		m.notify(in, core.NoteRejected, core.ErrMarketClosed.Error())
		return
	}

	var target *core.Order
	switch in.State() {
	case core.PendingNew:
		m.known[in.ClientID()] = in
		m.appendAudit(in, now)
		ok, err := m.book(in.Side()).NewOrder(in, now)
		if err != nil {
			// Protocol violation; indicates a bug in the intake path.
			panic(err)
		}
		if !ok {
			m.notify(in, core.NoteRejected, "order already queued")
			return
		}
		target = in

	case core.PendingCancel:
		m.appendAudit(in, now)
		if !m.book(known.Side()).CancelOrder(known, now) {
			m.notify(in, core.NoteTooLate, "")
			return
		}

	case core.PendingReplace:
		m.appendAudit(in, now)
		ok, err := m.book(known.Side()).ReplaceOrder(known, in.Level(), in.Quantity(), now)
		if err != nil {
			m.notify(in, core.NoteRejected, err.Error())
			return
		}
		if !ok {
			m.notify(in, core.NoteTooLate, "")
			return
		}
		target = known
	}

	if m.state.IsClearing() && target != nil && target.State().IsLive() {
		m.clear(target, now)
		m.applyTouchState()
	}
}

// clear executes an order against the opposing book while its level still
// crosses, the opposing side has marketable orders, and quantity remains.
func (m *OrderManager) clear(o *core.Order, now time.Time) {
	for o.Remaining() > 0 {
		opp := m.book(o.Side().Opposite())
		bestQ := opp.GetBestLimitQueue()
		if bestQ == nil || bestQ.Len() == 0 {
			break
		}
		if o.Level().IsMarket() && bestQ.Level().IsMarket() {
			// Two unpriced orders cannot discover a price in continuous
			// trading; the aggressor rests until a limit order arrives.
			break
		}
		if !o.Side().Crosses(o.Level(), bestQ.Level()) {
			break
		}

		limit := o.Level()
		if limit.IsMarket() {
			limit = nil
		}
		other := core.PriorityAtOrBetter(opp, limit).Peek()
		if other == nil {
			break
		}

		quantity := min64(o.Remaining(), other.Remaining())
		at := m.chooseLevelForPrice(o, other)
		m.execute(o, other, quantity, at, now, false)
	}
}

// chooseLevelForPrice picks the execution level: a market order executes at
// the other side's limit level, two limit orders execute at the resting
// order's level.
func (m *OrderManager) chooseLevelForPrice(aggressor, resting *core.Order) *core.Level {
	switch {
	case aggressor.Level().IsMarket() && resting.Level().IsMarket():
		return m.reference
	case resting.Level().IsMarket():
		return aggressor.Level()
	case aggressor.Level().IsMarket():
		return resting.Level()
	default:
		if !aggressor.Side().Crosses(aggressor.Level(), resting.Level()) {
			panic(fmt.Errorf("%w: %s vs %s", core.ErrLevelNotCrossing, aggressor.Level(), resting.Level()))
		}
		return resting.Level()
	}
}

// execute fills both orders, prints the trade and consults the price
// monitor. Any trigger returned is applied to this manager's own state
// before being broadcast to other listeners.
func (m *OrderManager) execute(a, b *core.Order, quantity int64, at *core.Level, now time.Time, auction bool) {
	m.book(a.Side()).Execute(a, quantity, at, now)
	m.book(b.Side()).Execute(b, quantity, at, now)

	trade := core.NewTrade(m.instrument.Symbol(), a, b, at, quantity, now, auction)
	m.logger.Debug().
		Int64("quantity", quantity).
		Str("level", at.String()).
		Bool("auction", auction).
		Msg("Trade")

	if !auction && m.market != nil {
		if trigger := m.market.PriceMonitor(trade); trigger != nil {
			m.applyTrigger(trigger)
			for _, fn := range m.listeners {
				fn(trigger)
			}
		}
	}

	if err := m.tape.Append(tradeMessage(trade)); err != nil {
		m.logger.Error().Err(err).Msg("Failed to append trade to tape")
	}
	m.reference = at
}

// applyTrigger validates an auction trigger against the current state and
// runs the corresponding lifecycle step. Precondition mismatches are logged
// and ignored. Returns true when the market entered an auction.
func (m *OrderManager) applyTrigger(t *core.AuctionTrigger) bool {
	now := m.clock.Now()

	if !t.AllowsFrom(m.state) {
		m.logger.Warn().
			Str("state", m.state.String()).
			Str("postcondition", t.Postcondition.String()).
			Msg("Auction trigger precondition mismatch, ignoring")
		return false
	}
	target, err := m.state.Accept(t.Postcondition)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Auction trigger rejected by state machine, ignoring")
		return false
	}

	entered := false
	switch t.Postcondition {
	case core.Auction:
		if t.Reference != nil {
			m.reference = t.Reference
		}
		m.forceCancelAll(now)
		m.logger.Info().Str("from", m.state.String()).Msg("Entered auction")
		entered = true

	case core.Continuous:
		if m.state == core.Auction {
			m.uncross(now)
		}

	case core.Closed:
		if m.state == core.Auction && !(m.bids.Empty() && m.offers.Empty()) {
			m.uncross(now)
		}
		m.forceCancelAll(now)
		m.pruneTerminal()
		m.instrument.RebuildCache()
		if m.market != nil {
			m.market.EndOfDay()
		}
		m.logger.Info().Msg("Market closed")
	}

	m.state = target
	return entered
}

// uncross resolves the auction level and volume, then repeatedly executes
// the oldest nonzero-remaining order from each side at that level until the
// resolved volume is exhausted. A zero resolved volume here signals an
// internal inconsistency and is fatal.
func (m *OrderManager) uncross(now time.Time) {
	as := core.NewAuctionState(m.bids, m.offers, m.reference, m.instrument)
	if as.Volume() == 0 {
		panic(core.ErrZeroVolumeUncross)
	}

	_, span := otel.StartSpan(context.Background(), otel.SpanUncross,
		attribute.String(otel.AttributeAuctionLevel, as.Level().String()),
		attribute.Int64(otel.AttributeAuctionVol, as.Volume()),
	)
	defer span.End()

	level := as.Level()
	bidPrio := core.PriorityAtOrBetter(m.bids, level)
	offerPrio := core.PriorityAtOrBetter(m.offers, level)

	remaining := as.Volume()
	trades := 0
	for remaining > 0 {
		bid, offer := bidPrio.Peek(), offerPrio.Peek()
		if bid == nil || offer == nil {
			panic(fmt.Errorf("%w: %d volume left with no executable orders", core.ErrZeroVolumeUncross, remaining))
		}
		quantity := min64(min64(bid.Remaining(), offer.Remaining()), remaining)
		m.execute(bid, offer, quantity, level, now, true)
		remaining -= quantity
		trades++
	}

	m.reference = level
	m.logger.Info().
		Str("level", level.String()).
		Int64("volume", as.Volume()).
		Int("trades", trades).
		Msg("Auction uncrossed")
	otel.AddAttributes(span, attribute.Int(otel.AttributeTradeCount, trades))
}

// forceCancelAll cancels every order the manager knows about on both
// books, bypassing the pending-cancel intermediate.
func (m *OrderManager) forceCancelAll(now time.Time) {
	for _, o := range m.known {
		if o.State().IsLive() {
			m.book(o.Side()).ForceCancel(o, now)
		}
	}
}

// pruneTerminal drops terminal orders from the last-known map at end of
// day; a terminal id behaves exactly like an unseen one on resubmission, so
// only live entries are worth carrying across trading days.
func (m *OrderManager) pruneTerminal() {
	for id, o := range m.known {
		if o.State().IsTerminal() {
			delete(m.known, id)
		}
	}
}

// applyTouchState derives the touch classification from the top of book
// and moves the market phase when the transition table allows it. Back and
// Choice never walk back to Continuous here; they persist until an auction
// resets the phase.
func (m *OrderManager) applyTouchState() {
	if !m.state.IsClearing() {
		return
	}
	bid, hasBid := m.bids.GetBestInterest()
	offer, hasOffer := m.offers.GetBestInterest()
	if !hasBid || !hasOffer {
		return
	}
	ts := core.DeriveTouchState(bid.Level(), offer.Level())
	if ts == m.state || !m.state.CanAccept(ts) {
		return
	}
	m.logger.Info().Str("from", m.state.String()).Str("to", ts.String()).Msg("Touch state changed")
	m.state = ts
}

func (m *OrderManager) book(side core.Side) *core.Book {
	if side == core.Buy {
		return m.bids
	}
	return m.offers
}

func (m *OrderManager) appendAudit(o *core.Order, now time.Time) {
	if m.audit == nil {
		return
	}
	rec := queue.InstructionRecord{
		OrderID:    o.ID(),
		ClientID:   o.ClientID(),
		Side:       o.Side().String(),
		State:      o.State().String(),
		Level:      o.Level().String(),
		Quantity:   o.Quantity(),
		Filled:     o.Filled(),
		Version:    o.Version(),
		Time:       now,
		Instrument: m.instrument.Symbol(),
	}
	if err := m.audit.AppendInstruction(rec); err != nil {
		m.logger.Error().Err(err).Msg("Failed to append instruction to audit log")
	}
}

func (m *OrderManager) notify(o *core.Order, kind core.NotificationKind, reason string) {
	if o.Sender() == nil {
		return
	}
	o.Sender().Send(core.Notification{Kind: kind, Order: *o.Clone(), Reason: reason})
}

func tradeMessage(t core.Trade) messaging.TradeMessage {
	return messaging.TradeMessage{
		Instrument: t.Instrument,
		Buyer:      t.Buyer,
		Seller:     t.Seller,
		Price:      t.Level.Price().String(),
		Quantity:   t.Quantity,
		Time:       t.Time,
		Auction:    t.Auction,
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
