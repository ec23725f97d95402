package messaging

import (
	"sync"
	"time"
)

// TradeSink receives one TradeMessage per execution. This decouples the
// core from concrete transports like Kafka.
type TradeSink interface {
	Append(trade TradeMessage) error
}

// TradeMessage is the wire form of a trade print.
type TradeMessage struct {
	Instrument string    `json:"instrument"`
	Buyer      string    `json:"buyer"`
	Seller     string    `json:"seller"`
	Price      string    `json:"price"`
	Quantity   int64     `json:"quantity"`
	Time       time.Time `json:"time"`
	Auction    bool      `json:"auction"`
}

// TapeSink is an in-memory trade tape.
type TapeSink struct {
	mu     sync.Mutex
	trades []TradeMessage
}

// NewTapeSink creates an empty tape.
func NewTapeSink() *TapeSink {
	return &TapeSink{}
}

// Append records the trade on the tape.
func (t *TapeSink) Append(trade TradeMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = append(t.trades, trade)
	return nil
}

// Trades returns a copy of the tape in append order.
func (t *TapeSink) Trades() []TradeMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TradeMessage, len(t.trades))
	copy(out, t.trades)
	return out
}

// Len returns the number of prints on the tape.
func (t *TapeSink) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.trades)
}

// Ensure TapeSink implements TradeSink
var _ TradeSink = (*TapeSink)(nil)
