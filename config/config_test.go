package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConfigYAMLOverride(t *testing.T) {
	raw := `
server:
  log_level: debug
instrument:
  symbol: ACME
  tick_size: "0.05"
  agents: 3
simulation:
  speed: 120
  auction_length: 2m
  price_monitor: false
kafka:
  enabled: true
  broker_addr: kafka:29092
  trade_topic: acme-trades
`

	cfg := &Config{}
	cfg.Simulation.ContinuousLength = Duration(8 * time.Hour)

	require.NoError(t, yaml.Unmarshal([]byte(raw), cfg))

	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "ACME", cfg.Instrument.Symbol)
	assert.Equal(t, "0.05", cfg.Instrument.TickSize)
	assert.Equal(t, 3, cfg.Instrument.Agents)
	assert.Equal(t, float64(120), cfg.Simulation.Speed)
	assert.Equal(t, 2*time.Minute, cfg.Simulation.AuctionLength.Std())
	assert.False(t, cfg.Simulation.PriceMonitorOn)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, "kafka:29092", cfg.Kafka.BrokerAddr)
	assert.Equal(t, "acme-trades", cfg.Kafka.TradeTopic)

	// Fields absent from the file keep their prior values.
	assert.Equal(t, 8*time.Hour, cfg.Simulation.ContinuousLength.Std())
}
