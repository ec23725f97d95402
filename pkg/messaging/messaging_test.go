package messaging

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTapeSinkAppendOrder(t *testing.T) {
	tape := NewTapeSink()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, tape.Append(TradeMessage{Instrument: "SIM", Quantity: i}))
	}

	require.Equal(t, 3, tape.Len())
	trades := tape.Trades()
	for i, trade := range trades {
		assert.Equal(t, int64(i+1), trade.Quantity)
	}
}

func TestTapeSinkTradesReturnsCopy(t *testing.T) {
	tape := NewTapeSink()
	require.NoError(t, tape.Append(TradeMessage{Instrument: "SIM", Quantity: 1}))

	trades := tape.Trades()
	trades[0].Quantity = 999

	assert.Equal(t, int64(1), tape.Trades()[0].Quantity)
}

func TestTapeSinkConcurrentAppend(t *testing.T) {
	tape := NewTapeSink()

	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = tape.Append(TradeMessage{Instrument: "SIM"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 400, tape.Len())
}

func TestTradeMessageJSON(t *testing.T) {
	msg := TradeMessage{
		Instrument: "SIM",
		Buyer:      "agent-1-3",
		Seller:     "agent-2-9",
		Price:      "100.50",
		Quantity:   250,
		Time:       time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC),
		Auction:    true,
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "SIM", got["instrument"])
	assert.Equal(t, "100.50", got["price"])
	assert.Equal(t, float64(250), got["quantity"])
	assert.Equal(t, true, got["auction"])
}

func TestMockSinkDiscards(t *testing.T) {
	sink := NewMockSink()
	assert.NoError(t, sink.Append(TradeMessage{Instrument: "SIM"}))
}
