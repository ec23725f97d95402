package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Span names
	SpanProcessBatch = "process_batch"
	SpanClearOrder   = "clear_order"
	SpanUncross      = "uncross"

	// Attribute keys
	AttributeOrderID      = "order.id"
	AttributeOrderSide    = "order.side"
	AttributeOrderState   = "order.state"
	AttributeBatchSize    = "batch.size"
	AttributeMarketState  = "market.state"
	AttributeAuctionLevel = "auction.level"
	AttributeAuctionVol   = "auction.volume"
	AttributeTradeCount   = "trade.count"
)

// StartSpan starts a span on the simulator tracer. With no provider
// configured this is the global noop tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(ServiceMarketSim)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// AddAttributes adds attributes to a span
func AddAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(attrs...)
}
