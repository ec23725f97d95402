package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendInstruction(t *testing.T) {
	producer := &mockProducer{}
	appender := newAppenderWithProducer(producer, "audit-test")

	rec := InstructionRecord{
		OrderID:    42,
		ClientID:   "agent-1-17",
		Side:       "BUY",
		State:      "PENDING_NEW",
		Level:      "100.50",
		Quantity:   250,
		Filled:     0,
		Version:    1,
		Time:       time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC),
		Instrument: "SIM",
	}
	require.NoError(t, appender.AppendInstruction(rec))
	require.Len(t, producer.sent, 1)

	msg := producer.sent[0]
	assert.Equal(t, "audit-test", msg.Topic)

	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "agent-1-17", string(key), "records must be keyed by client id")

	value, err := msg.Value.Encode()
	require.NoError(t, err)
	var got InstructionRecord
	require.NoError(t, json.Unmarshal(value, &got))
	assert.Equal(t, rec, got)
}

func TestAppendInstructionPreservesOrder(t *testing.T) {
	producer := &mockProducer{}
	appender := newAppenderWithProducer(producer, "audit-test")

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, appender.AppendInstruction(InstructionRecord{
			OrderID:  i,
			ClientID: "c",
			Version:  i,
		}))
	}

	require.Len(t, producer.sent, 5)
	for i, msg := range producer.sent {
		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var got InstructionRecord
		require.NoError(t, json.Unmarshal(value, &got))
		assert.Equal(t, int64(i+1), got.OrderID)
	}
}

func TestSetBrokerListAndTopic(t *testing.T) {
	mu.Lock()
	origBrokers, origTopic := brokerList, topic
	mu.Unlock()
	defer func() {
		SetBrokerList(origBrokers)
		SetTopic(origTopic)
	}()

	SetBrokerList("kafka:29092")
	SetTopic("audit-override")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "kafka:29092", brokerList)
	assert.Equal(t, "audit-override", topic)
}

func TestCloseClosesProducer(t *testing.T) {
	producer := &mockProducer{}
	appender := newAppenderWithProducer(producer, "audit-test")
	assert.NoError(t, appender.Close())
	assert.True(t, producer.closed)
}

var _ sarama.SyncProducer = (*mockProducer)(nil)
