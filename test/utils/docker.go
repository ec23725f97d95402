package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// DockerContainer is a throwaway container started for one test run.
type DockerContainer struct {
	ID        string
	Name      string
	Type      string
	Port      string
	HostPort  string
	StartedAt time.Time
}

// StartRedisContainer starts a Redis container and waits until it answers
// PING.
func StartRedisContainer(ctx context.Context) (*DockerContainer, error) {
	containerName := fmt.Sprintf("marketsim-redis-test-%d", time.Now().Unix())
	hostPort := "6380"

	cmd := exec.CommandContext(ctx, "docker", "run", "--rm", "-d",
		"--name", containerName,
		"-p", hostPort+":6379",
		"redis:alpine")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w, output: %s", err, output)
	}

	container := &DockerContainer{
		ID:        strings.TrimSpace(string(output)),
		Name:      containerName,
		Type:      "redis",
		Port:      "6379",
		HostPort:  hostPort,
		StartedAt: time.Now(),
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:" + hostPort})
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for {
		select {
		case <-pingCtx.Done():
			_ = container.Stop(ctx)
			return nil, fmt.Errorf("timed out waiting for Redis to be ready")
		default:
			if _, err := client.Ping(pingCtx).Result(); err == nil {
				return container, nil
			}
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// StartKafkaContainer starts a Zookeeper/Kafka pair and waits until the
// broker accepts topic creation. The trade topic is pre-created.
func StartKafkaContainer(ctx context.Context) (*DockerContainer, error) {
	containerName := fmt.Sprintf("marketsim-kafka-test-%d", time.Now().Unix())
	hostPort := "9092"

	zookeeperName := fmt.Sprintf("marketsim-zookeeper-test-%d", time.Now().Unix())
	zkCmd := exec.CommandContext(ctx, "docker", "run", "--rm", "-d",
		"--name", zookeeperName,
		"-e", "ZOOKEEPER_CLIENT_PORT=2181",
		"confluentinc/cp-zookeeper:latest")

	output, err := zkCmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to start Zookeeper container: %w, output: %s", err, output)
	}
	zookeeperID := strings.TrimSpace(string(output))

	cmd := exec.CommandContext(ctx, "docker", "run", "--rm", "-d",
		"--name", containerName,
		"--link", zookeeperName+":zookeeper",
		"-p", hostPort+":9092",
		"-e", "KAFKA_ZOOKEEPER_CONNECT=zookeeper:2181",
		"-e", "KAFKA_ADVERTISED_LISTENERS=PLAINTEXT://localhost:"+hostPort,
		"-e", "KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR=1",
		"confluentinc/cp-kafka:latest")

	output, err = cmd.CombinedOutput()
	if err != nil {
		_ = exec.CommandContext(ctx, "docker", "rm", "-f", zookeeperID).Run()
		return nil, fmt.Errorf("failed to start Kafka container: %w, output: %s", err, output)
	}

	container := &DockerContainer{
		ID:        strings.TrimSpace(string(output)),
		Name:      containerName,
		Type:      "kafka",
		Port:      "9092",
		HostPort:  hostPort,
		StartedAt: time.Now(),
	}

	for i := 0; i < 40; i++ {
		select {
		case <-ctx.Done():
			_ = exec.CommandContext(context.Background(), "docker", "rm", "-f", zookeeperID).Run()
			_ = container.Stop(context.Background())
			return nil, ctx.Err()
		default:
			createTopicCmd := exec.CommandContext(
				ctx,
				"docker", "exec", containerName,
				"kafka-topics", "--create",
				"--bootstrap-server", "localhost:9092",
				"--replication-factor", "1",
				"--partitions", "1",
				"--topic", "marketsim-test",
			)

			if err := createTopicCmd.Run(); err == nil {
				return container, nil
			}
			time.Sleep(1 * time.Second)
		}
	}

	_ = exec.CommandContext(context.Background(), "docker", "rm", "-f", zookeeperID).Run()
	_ = container.Stop(context.Background())
	return nil, fmt.Errorf("timed out waiting for Kafka to be ready")
}

// Stop removes the container, along with the linked Zookeeper for Kafka.
func (c *DockerContainer) Stop(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "docker", "rm", "-f", c.ID)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to stop container %s: %w, output: %s", c.ID, err, output)
	}

	if c.Type == "kafka" {
		cmd := exec.CommandContext(ctx, "docker", "ps", "-a", "--filter", "name=marketsim-zookeeper-test", "--format", "{{.ID}}")
		output, err := cmd.CombinedOutput()
		if err == nil && len(output) > 0 {
			for _, zkID := range strings.Fields(string(output)) {
				_ = exec.CommandContext(ctx, "docker", "rm", "-f", strings.TrimSpace(zkID)).Run()
			}
		}
	}

	return nil
}

// skippableT is the subset of testing.T the container helpers need.
type skippableT interface {
	Helper()
	Skip(args ...interface{})
	Cleanup(f func())
	Errorf(format string, args ...interface{})
}

// WithRedisOnly starts a Redis container, runs the test against it, and
// removes the container afterwards. The test is skipped if Docker is
// unavailable.
func WithRedisOnly(t skippableT, testFunc func(redisAddr string)) {
	t.Helper()
	ctx := context.Background()

	container, err := StartRedisContainer(ctx)
	if err != nil {
		t.Skip("Skipping test: could not start Redis container:", err)
		return
	}
	t.Cleanup(func() {
		_ = container.Stop(context.Background())
	})

	testFunc("localhost:" + container.HostPort)
}

// WithKafkaOnly starts a Kafka container, runs the test against it, and
// removes the container afterwards. The test is skipped if Docker is
// unavailable.
func WithKafkaOnly(t skippableT, testFunc func(kafkaAddr string)) {
	t.Helper()
	ctx := context.Background()

	container, err := StartKafkaContainer(ctx)
	if err != nil {
		t.Skip("Skipping test: could not start Kafka container:", err)
		return
	}
	t.Cleanup(func() {
		_ = container.Stop(context.Background())
	})

	testFunc("localhost:" + container.HostPort)
}

// WithTestDependencies starts both Redis and Kafka for one test.
func WithTestDependencies(t skippableT, testFunc func(redisAddr, kafkaAddr string)) {
	t.Helper()
	ctx := context.Background()

	redisContainer, err := StartRedisContainer(ctx)
	if err != nil {
		t.Skip("Skipping test: could not start Redis container:", err)
		return
	}

	kafkaContainer, err := StartKafkaContainer(ctx)
	if err != nil {
		_ = redisContainer.Stop(ctx)
		t.Skip("Skipping test: could not start Kafka container:", err)
		return
	}

	t.Cleanup(func() {
		_ = redisContainer.Stop(context.Background())
		_ = kafkaContainer.Stop(context.Background())
	})

	testFunc("localhost:"+redisContainer.HostPort, "localhost:"+kafkaContainer.HostPort)
}
