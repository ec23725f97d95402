package redis

import (
	"context"
	"fmt"

	"github.com/erain9/marketsim/pkg/core"
	"github.com/erain9/marketsim/pkg/marketdata"
	redisClient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Publisher mirrors market-data snapshots into Redis so out-of-process
// consumers can poll the touch and depth without reaching into the
// simulator.
type Publisher struct {
	client *redisClient.Client
	prefix string
	logger zerolog.Logger
}

// NewPublisher creates a publisher with the given key prefix.
func NewPublisher(client *redisClient.Client, prefix string, logger zerolog.Logger) *Publisher {
	if prefix == "" {
		prefix = "marketsim"
	}
	return &Publisher{client: client, prefix: prefix, logger: logger}
}

// Publish writes the snapshot's touch hash and per-side depth sorted sets
// in one pipeline.
func (p *Publisher) Publish(ctx context.Context, snap marketdata.Snapshot) error {
	touchKey := p.key(snap.Instrument, "touch")
	bidKey := p.key(snap.Instrument, "depth:bids")
	offerKey := p.key(snap.Instrument, "depth:offers")

	pipe := p.client.Pipeline()
	pipe.HSet(ctx, touchKey,
		"state", snap.Touch.State.String(),
		"bid_level", snap.Touch.Bid.Level().String(),
		"bid_quantity", snap.Touch.Bid.Quantity(),
		"offer_level", snap.Touch.Offer.Level().String(),
		"offer_quantity", snap.Touch.Offer.Quantity(),
		"reference", levelString(snap.Reference),
		"taken", snap.Taken.UnixNano(),
	)

	pipe.Del(ctx, bidKey, offerKey)
	for _, i := range snap.BidDepth {
		pipe.ZAdd(ctx, bidKey, depthEntry(i))
	}
	for _, i := range snap.OfferDepth {
		pipe.ZAdd(ctx, offerKey, depthEntry(i))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

func (p *Publisher) key(instrument, suffix string) string {
	return fmt.Sprintf("%s:%s:%s", p.prefix, instrument, suffix)
}

func depthEntry(i core.Interest) redisClient.Z {
	return redisClient.Z{
		Score:  i.Level().Price().Float64(),
		Member: fmt.Sprintf("%s:%d:%d", i.Level(), i.Quantity(), i.Count()),
	}
}

func levelString(l *core.Level) string {
	if l == nil {
		return ""
	}
	return l.String()
}
