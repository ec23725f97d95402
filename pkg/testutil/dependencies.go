package testutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

const probeTimeout = 2 * time.Second

// SkipIfRedisUnavailable skips the test unless Redis answers PING at addr.
func SkipIfRedisUnavailable(t *testing.T, addr string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skipf("Skipping test: Redis not available at %s - %v", addr, err)
	}
}

// SkipIfKafkaUnavailable skips the test unless a broker at addr accepts a
// connection and responds to a fetch on the test topic.
func SkipIfKafkaUnavailable(t *testing.T, addr string) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, probeTimeout)
	if err != nil {
		t.Skipf("Skipping test: Kafka not available at %s - %v", addr, err)
		return
	}
	_ = conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{addr},
		Topic:       "marketsim-test",
		MinBytes:    10e3,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	// A timeout or EOF here is expected; anything else means the broker is
	// up but unhealthy.
	_, err = reader.FetchMessage(ctx)
	if err != nil && err != context.DeadlineExceeded && err.Error() != "EOF" {
		t.Skipf("Skipping test: Kafka at %s is not responding correctly - %v", addr, err)
	}
}

// SkipIfDependenciesUnavailable requires both Redis and Kafka.
func SkipIfDependenciesUnavailable(t *testing.T, redisAddr, kafkaAddr string) {
	t.Helper()
	SkipIfRedisUnavailable(t, redisAddr)
	SkipIfKafkaUnavailable(t, kafkaAddr)
}
