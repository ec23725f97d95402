package messaging

// MockSink is a no-op implementation of TradeSink for testing.
type MockSink struct{}

// NewMockSink creates a new MockSink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Append does nothing.
func (m *MockSink) Append(trade TradeMessage) error {
	// No-op
	return nil
}

// Close does nothing.
func (m *MockSink) Close() error {
	// No-op
	return nil
}

// Ensure MockSink implements TradeSink
var _ TradeSink = (*MockSink)(nil)
