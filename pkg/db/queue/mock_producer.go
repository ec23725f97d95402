package queue

import "github.com/IBM/sarama"

// mockProducer is an in-memory sarama.SyncProducer recording every audit
// record the appender sends. The transactional surface is stubbed out; the
// appender never uses it.
type mockProducer struct {
	sent   []*sarama.ProducerMessage
	closed bool
}

func (m *mockProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	m.sent = append(m.sent, msg)
	return 0, 0, nil
}

func (m *mockProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	m.sent = append(m.sent, msgs...)
	return nil
}

func (m *mockProducer) Close() error {
	m.closed = true
	return nil
}

func (m *mockProducer) TxnStatus() sarama.ProducerTxnStatusFlag { return sarama.ProducerTxnFlagReady }
func (m *mockProducer) IsTransactional() bool                   { return false }
func (m *mockProducer) BeginTxn() error                         { return nil }
func (m *mockProducer) CommitTxn() error                        { return nil }
func (m *mockProducer) AbortTxn() error                         { return nil }

func (m *mockProducer) AddMessageToTxn(*sarama.ConsumerMessage, string, *string) error {
	return nil
}

func (m *mockProducer) AddOffsetsToTxn(map[string][]*sarama.PartitionOffsetMetadata, string) error {
	return nil
}
