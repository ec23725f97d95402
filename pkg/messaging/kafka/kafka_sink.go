package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erain9/marketsim/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

// KafkaTradeSink implements TradeSink using Kafka
type KafkaTradeSink struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaTradeSink creates a new Kafka trade sink
func NewKafkaTradeSink(brokerAddr, topic string) (*KafkaTradeSink, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerAddr),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &KafkaTradeSink{
		writer: writer,
		topic:  topic,
	}, nil
}

// Append sends a trade print to Kafka
func (k *KafkaTradeSink) Append(trade messaging.TradeMessage) error {
	data, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("failed to marshal trade message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(trade.Instrument),
		Value: data,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = k.writer.WriteMessages(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send trade to Kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka writer
func (k *KafkaTradeSink) Close() error {
	return k.writer.Close()
}

// Ensure KafkaTradeSink implements TradeSink
var _ messaging.TradeSink = (*KafkaTradeSink)(nil)
