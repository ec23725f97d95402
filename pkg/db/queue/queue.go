package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

var (
	mu         sync.Mutex
	brokerList = "localhost:9092"
	topic      = "marketsim-audit"
)

// SetBrokerList overrides the Kafka broker used by new appenders.
func SetBrokerList(brokers string) {
	mu.Lock()
	defer mu.Unlock()
	brokerList = brokers
}

// SetTopic overrides the audit topic used by new appenders.
func SetTopic(t string) {
	mu.Lock()
	defer mu.Unlock()
	topic = t
}

// InstructionRecord is one audited order instruction as registered by the
// order manager after a successful merge.
type InstructionRecord struct {
	OrderID    int64     `json:"order_id"`
	ClientID   string    `json:"client_id"`
	Side       string    `json:"side"`
	State      string    `json:"state"`
	Level      string    `json:"level"`
	Quantity   int64     `json:"quantity"`
	Filled     int64     `json:"filled"`
	Version    int64     `json:"version"`
	Time       time.Time `json:"time"`
	Instrument string    `json:"instrument"`
}

// AuditAppender appends accepted instructions to a durable log.
type AuditAppender interface {
	AppendInstruction(rec InstructionRecord) error
	Close() error
}

// QueueAuditAppender implements AuditAppender on a Kafka topic through a
// sarama sync producer.
type QueueAuditAppender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewQueueAuditAppender creates an appender connected to the configured
// broker.
func NewQueueAuditAppender() (*QueueAuditAppender, error) {
	mu.Lock()
	brokers, t := []string{brokerList}, topic
	mu.Unlock()

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &QueueAuditAppender{producer: producer, topic: t}, nil
}

// newAppenderWithProducer lets tests inject a mock producer.
func newAppenderWithProducer(producer sarama.SyncProducer, topic string) *QueueAuditAppender {
	return &QueueAuditAppender{producer: producer, topic: topic}
}

// AppendInstruction writes the record to the audit topic.
func (a *QueueAuditAppender) AppendInstruction(rec InstructionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal instruction record: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: a.topic,
		Key:   sarama.StringEncoder(rec.ClientID),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := a.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to append instruction to Kafka: %w", err)
	}
	return nil
}

// Close shuts the underlying producer down.
func (a *QueueAuditAppender) Close() error {
	return a.producer.Close()
}

// Ensure QueueAuditAppender implements AuditAppender
var _ AuditAppender = (*QueueAuditAppender)(nil)
