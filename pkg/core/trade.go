package core

import (
	"fmt"
	"time"
)

// Trade is one execution between two counterparties.
type Trade struct {
	Instrument string
	Buyer      string
	Seller     string
	Level      *Level
	Quantity   int64
	Time       time.Time
	Auction    bool
}

// NewTrade builds a Trade from the two executed orders.
func NewTrade(instrument string, a, b *Order, at *Level, quantity int64, now time.Time, auction bool) Trade {
	buyer, seller := a, b
	if a.Side() == Sell {
		buyer, seller = b, a
	}
	return Trade{
		Instrument: instrument,
		Buyer:      buyer.ClientID(),
		Seller:     seller.ClientID(),
		Level:      at,
		Quantity:   quantity,
		Time:       now,
		Auction:    auction,
	}
}

// String implements Stringer interface
func (t Trade) String() string {
	tag := ""
	if t.Auction {
		tag = " AUCTION"
	}
	return fmt.Sprintf("%s %d@%s %s/%s%s", t.Instrument, t.Quantity, t.Level, t.Buyer, t.Seller, tag)
}
