package kafka

import (
	"context"
	"encoding/json"

	"github.com/erain9/marketsim/pkg/messaging"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// TradeConsumer reads trade prints back off the Kafka topic.
type TradeConsumer struct {
	reader *kafka.Reader
	logger zerolog.Logger
}

// NewTradeConsumer creates a consumer for the trade topic.
func NewTradeConsumer(brokerAddr, topic string, logger zerolog.Logger) *TradeConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{brokerAddr},
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &TradeConsumer{reader: reader, logger: logger}
}

// Consume delivers each trade print to the handler until the context is
// canceled.
func (c *TradeConsumer) Consume(ctx context.Context, handler func(messaging.TradeMessage) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		var trade messaging.TradeMessage
		if err := json.Unmarshal(msg.Value, &trade); err != nil {
			c.logger.Warn().Err(err).Msg("Skipping malformed trade message")
			continue
		}

		if err := handler(trade); err != nil {
			return err
		}
	}
}

// Close closes the Kafka reader
func (c *TradeConsumer) Close() error {
	return c.reader.Close()
}
